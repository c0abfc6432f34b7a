/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package autodj

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/friendsincode/aircore/internal/models"
)

var errNoSurvivors = errors.New("autodj: no candidate survived selection")

const minSelectionWeight = 0.01

func sortRecentDesc(recent []models.RecentPlay) {
	sort.Slice(recent, func(i, j int) bool { return recent[i].PlayedAt.After(recent[j].PlayedAt) })
}

// selectByMethod dispatches to one of the eight selection strategies
// named in spec.md §4.4 step 7.
func selectByMethod(rng *rand.Rand, candidates []models.CatalogItem, recent []models.RecentPlay, method models.SelectionMethod) (models.CatalogItem, error) {
	if len(candidates) == 0 {
		return models.CatalogItem{}, errNoSurvivors
	}

	switch method {
	case models.SelectWeighted:
		return weightedPick(rng, candidates), nil
	case models.SelectPriority:
		return priorityPick(candidates), nil
	case models.SelectRandom:
		return candidates[rng.Intn(len(candidates))], nil
	case models.SelectMRP:
		return extremumByLastPlayed(candidates, recent, lastPlayedByItem, true)
	case models.SelectLRPSong:
		return extremumByLastPlayed(candidates, recent, lastPlayedByItem, false)
	case models.SelectLRPArtist:
		return extremumByLastPlayed(candidates, recent, lastPlayedByArtist, false)
	case models.SelectLemming:
		return lemmingPick(candidates, recent), nil
	case models.SelectPlaylistOrder:
		return playlistOrderPick(candidates, recent), nil
	default:
		return weightedPick(rng, candidates), nil
	}
}

// weightedPick draws a target uniformly in [0, Σweights) and walks the
// candidates, treating weights below 0.01 as 0.01, per spec.md §4.4
// step 7.
func weightedPick(rng *rand.Rand, candidates []models.CatalogItem) models.CatalogItem {
	total := 0.0
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		w := c.Weight
		if w < minSelectionWeight {
			w = minSelectionWeight
		}
		weights[i] = w
		total += w
	}

	target := rng.Float64() * total
	cursor := 0.0
	for i, w := range weights {
		cursor += w
		if target < cursor {
			return candidates[i]
		}
	}
	return candidates[len(candidates)-1]
}

// priorityPick returns the max-weight candidate. Among candidates of equal
// weight the earliest in the slice wins; play count is not consulted.
func priorityPick(candidates []models.CatalogItem) models.CatalogItem {
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Weight > best.Weight {
			best = c
		}
	}
	return best
}

func lastPlayedByItem(recent []models.RecentPlay, item models.CatalogItem) (time.Time, bool) {
	for _, p := range recent {
		if p.ItemID == item.ID {
			return p.PlayedAt, true
		}
	}
	return time.Time{}, false
}

func lastPlayedByArtist(recent []models.RecentPlay, item models.CatalogItem) (time.Time, bool) {
	for _, p := range recent {
		if strings.EqualFold(p.Artist, item.Artist) {
			return p.PlayedAt, true
		}
	}
	return time.Time{}, false
}

// extremumByLastPlayed picks the candidate with the newest (mostRecent
// true, for MRP) or oldest (mostRecent false, for LRP) last-played
// timestamp; unplayed candidates count as oldest for LRP and are
// ignored for MRP, per spec.md §4.4 step 7.
func extremumByLastPlayed(candidates []models.CatalogItem, recent []models.RecentPlay, lookup func([]models.RecentPlay, models.CatalogItem) (time.Time, bool), mostRecent bool) (models.CatalogItem, error) {
	var best models.CatalogItem
	var bestTime time.Time
	found := false

	for _, c := range candidates {
		t, played := lookup(recent, c)
		if !played {
			if mostRecent {
				continue // unplayed ignored for MRP
			}
			t = time.Time{} // unplayed counted as oldest for LRP
		}

		if !found {
			best, bestTime, found = c, t, true
			continue
		}
		if mostRecent && t.After(bestTime) {
			best, bestTime = c, t
		}
		if !mostRecent && t.Before(bestTime) {
			best, bestTime = c, t
		}
	}

	if !found {
		return models.CatalogItem{}, errNoSurvivors
	}
	return best, nil
}

// lemmingPick sorts by staleness descending (longest since last play
// first), tie-broken on weight.
func lemmingPick(candidates []models.CatalogItem, recent []models.RecentPlay) models.CatalogItem {
	type scored struct {
		item      models.CatalogItem
		staleness time.Duration
	}
	now := time.Now()
	scoredList := make([]scored, len(candidates))
	for i, c := range candidates {
		t, played := lastPlayedByItem(recent, c)
		staleness := time.Duration(1<<62 - 1) // unplayed: maximally stale
		if played {
			staleness = now.Sub(t)
		}
		scoredList[i] = scored{item: c, staleness: staleness}
	}

	sort.Slice(scoredList, func(i, j int) bool {
		if scoredList[i].staleness != scoredList[j].staleness {
			return scoredList[i].staleness > scoredList[j].staleness
		}
		return scoredList[i].item.Weight > scoredList[j].item.Weight
	})
	return scoredList[0].item
}

// playlistOrderPick returns the minimum (play_count, song_id) pair.
func playlistOrderPick(candidates []models.CatalogItem, recent []models.RecentPlay) models.CatalogItem {
	counts := make(map[string]int, len(candidates))
	for _, p := range recent {
		counts[p.ItemID]++
	}

	best := candidates[0]
	bestCount := counts[best.ID]
	for _, c := range candidates[1:] {
		count := counts[c.ID]
		if count < bestCount || (count == bestCount && c.ID < best.ID) {
			best, bestCount = c, count
		}
	}
	return best
}
