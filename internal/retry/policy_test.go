package retry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wconnect/internal/retry"
)

func TestPolicyAllowsUpToCap(t *testing.T) {
	p := retry.New(3)

	for i := 0; i < 3; i++ {
		assert.True(t, p.CanAttempt("metaMask"), "attempt %d should be allowed", i+1)
		p.RecordFailure("metaMask")
	}
	assert.False(t, p.CanAttempt("metaMask"))
	assert.Equal(t, 0, p.Remaining("metaMask"))
}

func TestPolicyFailureAtCapIsIdempotent(t *testing.T) {
	p := retry.New(2)

	assert.Equal(t, 1, p.RecordFailure("metaMask"))
	assert.Equal(t, 2, p.RecordFailure("metaMask"))
	assert.Equal(t, 2, p.RecordFailure("metaMask"))
	assert.Equal(t, 2, p.Attempts("metaMask"))
}

func TestPolicySuccessResetsCounter(t *testing.T) {
	p := retry.New(3)

	p.RecordFailure("metaMask")
	p.RecordFailure("metaMask")
	p.RecordSuccess("metaMask")

	assert.True(t, p.CanAttempt("metaMask"))
	assert.Equal(t, 0, p.Attempts("metaMask"))
	assert.Equal(t, 3, p.Remaining("metaMask"))
}

func TestPolicyResetClearsRecord(t *testing.T) {
	p := retry.New(1)

	p.RecordFailure("metaMask")
	assert.False(t, p.CanAttempt("metaMask"))

	p.Reset("metaMask")
	assert.True(t, p.CanAttempt("metaMask"))
}

func TestPolicyTracksWalletsIndependently(t *testing.T) {
	p := retry.New(1)

	p.RecordFailure("metaMask")
	assert.False(t, p.CanAttempt("metaMask"))
	assert.True(t, p.CanAttempt("coinbaseWallet"))
}

func TestPolicyDefaultsCap(t *testing.T) {
	p := retry.New(0)
	assert.Equal(t, retry.DefaultMaxAttempts, p.Max())
	assert.Equal(t, retry.DefaultMaxAttempts, p.Remaining("unseen"))
}
