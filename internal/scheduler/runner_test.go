package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/store"
)

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent map[int64]string
}

func (f *fakeBroadcaster) Broadcast(channelName string, userID int64, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sent == nil {
		f.sent = make(map[int64]string)
	}
	f.sent[userID] = content
	return nil
}

func TestCheckInTargetsActiveUsers(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.UpsertUser(ctx, 1, "active", "", ""))
	require.NoError(t, db.UpsertUser(ctx, 2, "silent", "", ""))
	_, err = db.InsertMessage(ctx, 1, "still here", "user")
	require.NoError(t, err)

	fb := &fakeBroadcaster{}
	r := NewRunner(db, fb, zap.NewNop(), time.Hour, 7*24*time.Hour, "console")
	r.checkIn()

	// Only the user with a recent message is contacted.
	assert.Contains(t, fb.sent, int64(1))
	assert.NotContains(t, fb.sent, int64(2))

	// The check-in is persisted as a bot message in the history.
	last, err := db.RecentUserMessages(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, last, 1) // user-sent only, the check-in is sender=bot

	msgs, err := db.UserMessagesBetween(ctx, 1, time.Now().UTC().Add(-time.Minute), time.Now().UTC().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	r := NewRunner(db, &fakeBroadcaster{}, zap.NewNop(), time.Hour, time.Hour, "console")
	r.Start()
	r.Stop()
}
