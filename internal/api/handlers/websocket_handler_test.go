package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arca-compliance/backend/internal/chat"
	"github.com/arca-compliance/backend/internal/domain"
)

type cannedResponder struct{}

func (cannedResponder) Respond(_ context.Context, _ []domain.ChatMessage) (string, error) {
	return "ok", nil
}

// A message appended between the watch subscription and the backlog read
// arrives through both; it must be streamed exactly once, and nothing
// appended in that gap may be lost.
func TestReplayFilter_GapMessageStreamedOnce(t *testing.T) {
	manager := chat.NewManager(cannedResponder{}, time.Second)
	sessionID := manager.CreateSession()

	_, err := manager.AppendUserMessage(sessionID, "before subscribe")
	require.NoError(t, err)

	ch, stop, err := manager.Watch(sessionID)
	require.NoError(t, err)
	defer stop()

	_, err = manager.AppendUserMessage(sessionID, "in the gap")
	require.NoError(t, err)

	backlog, _, err := manager.Messages(sessionID, 0)
	require.NoError(t, err)
	require.Len(t, backlog, 2)
	assert.Equal(t, "in the gap", backlog[1].Text)

	filter := newReplayFilter(backlog)

	// The gap message is on the channel too; the filter suppresses it.
	dup := <-ch
	assert.Equal(t, "in the gap", dup.Text)
	assert.True(t, filter.replayed(dup.ID))

	// Messages appended after the backlog read stream through.
	_, err = manager.AppendUserMessage(sessionID, "after backlog")
	require.NoError(t, err)

	fresh := <-ch
	assert.Equal(t, "after backlog", fresh.Text)
	assert.False(t, filter.replayed(fresh.ID))
}

func TestReplayFilter_EmptyBacklog(t *testing.T) {
	filter := newReplayFilter(nil)
	assert.False(t, filter.replayed("any-id"))
}
