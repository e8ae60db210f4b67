package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func failing() error { return errBackend }
func succeeding() error { return nil }

func TestExecute_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Timeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, succeeding)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestExecute_SuccessResetsFailureCount(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 2, Timeout: time.Hour})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	require.NoError(t, cb.Execute(ctx, succeeding))
	require.ErrorIs(t, cb.Execute(ctx, failing), errBackend)

	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_RecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		MaxRequests:      2,
		Timeout:          10 * time.Millisecond,
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := New("test", Config{
		FailureThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	time.Sleep(15 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(ctx, failing), errBackend)
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecute_CanceledContext(t *testing.T) {
	cb := New("test", Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, cb.Execute(ctx, succeeding), context.Canceled)
}
