package autodj

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/friendsincode/aircore/internal/models"
)

type countingCatalog struct {
	byID map[string]models.CatalogItem
	hits int
}

func (f *countingCatalog) ByCategory(ctx context.Context, category string) ([]models.CatalogItem, error) {
	return nil, nil
}
func (f *countingCatalog) ByDirectoryPrefix(ctx context.Context, prefix string) ([]models.CatalogItem, error) {
	return nil, nil
}
func (f *countingCatalog) Pool(ctx context.Context) ([]models.CatalogItem, error) { return nil, nil }
func (f *countingCatalog) ByID(ctx context.Context, id string) (models.CatalogItem, error) {
	f.hits++
	return f.byID[id], nil
}

func TestCachedCatalogWithNilCachePassesThrough(t *testing.T) {
	fake := &countingCatalog{byID: map[string]models.CatalogItem{"a": {ID: "a", Title: "Track A"}}}
	c := NewCachedCatalog(fake, nil)

	item, err := c.ByID(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "Track A", item.Title)
	require.Equal(t, 1, fake.hits)

	_, err = c.ByID(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, 2, fake.hits, "nil cache never short-circuits the underlying lookup")
}
