package sink

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifySourcePasswordAcceptsMatchingHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	require.NoError(t, VerifySourcePassword("s3cret", string(hash)))
}

func TestVerifySourcePasswordRejectsMismatch(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.DefaultCost)
	require.NoError(t, err)

	err = VerifySourcePassword("wrong", string(hash))
	require.ErrorIs(t, err, ErrPermanentFailure)
}

func TestNewIcecastSinkRequiresURLAndMount(t *testing.T) {
	_, err := NewIcecastSink(IcecastConfig{})
	require.Error(t, err)

	_, err = NewIcecastSink(IcecastConfig{URL: "http://localhost:8000", Mount: "/stream"})
	require.NoError(t, err)
}

func TestClampSampleBounds(t *testing.T) {
	require.Equal(t, float32(1), clampSample(2.5))
	require.Equal(t, float32(-1), clampSample(-2.5))
	require.Equal(t, float32(0.5), clampSample(0.5))
}
