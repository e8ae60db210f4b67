package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_ConsumesTokens(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 3, WindowDuration: time.Hour})
	defer rl.Stop()

	assert.True(t, rl.allow("client"))
	assert.True(t, rl.allow("client"))
	assert.True(t, rl.allow("client"))
	assert.False(t, rl.allow("client"))
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 1, WindowDuration: time.Hour})
	defer rl.Stop()

	assert.True(t, rl.allow("alpha"))
	assert.False(t, rl.allow("alpha"))
	assert.True(t, rl.allow("beta"))
}

func TestAllow_Refills(t *testing.T) {
	// 100 requests per 100ms gives a 1ms refill rate.
	rl := New(Config{MaxRequestsPerMinute: 100, WindowDuration: 100 * time.Millisecond})
	defer rl.Stop()

	for i := 0; i < 100; i++ {
		assert.True(t, rl.allow("client"))
	}
	assert.False(t, rl.allow("client"))

	time.Sleep(10 * time.Millisecond)
	assert.True(t, rl.allow("client"))
}
