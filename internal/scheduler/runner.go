// Package scheduler drives periodic proactive check-ins.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/core"
	"github.com/reflectbot/reflectbot/internal/store"
)

const checkInText = "Hey, just checking in. How have things been since we last talked? " +
	"If anything is on your mind, tell me about it."

// Broadcaster delivers a proactive message to a user on a named channel.
type Broadcaster interface {
	Broadcast(channelName string, userID int64, content string) error
}

// Runner periodically messages users who have been active recently.
type Runner struct {
	DB       *store.DB
	Gateway  Broadcaster
	Log      *zap.Logger
	Interval time.Duration
	// ActiveWindow bounds how far back a user's last message may be for
	// them to still receive check-ins.
	ActiveWindow time.Duration
	Channel      string

	stop chan struct{}
}

func NewRunner(db *store.DB, gw Broadcaster, log *zap.Logger, interval, activeWindow time.Duration, channel string) *Runner {
	return &Runner{
		DB:           db,
		Gateway:      gw,
		Log:          log,
		Interval:     interval,
		ActiveWindow: activeWindow,
		Channel:      channel,
		stop:         make(chan struct{}),
	}
}

// Start begins the background check-in loop.
func (r *Runner) Start() {
	go func() {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()

		r.Log.Info("scheduler started", zap.Duration("interval", r.Interval))

		for {
			select {
			case <-ticker.C:
				r.checkIn()
			case <-r.stop:
				r.Log.Info("scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the scheduler.
func (r *Runner) Stop() {
	close(r.stop)
}

func (r *Runner) checkIn() {
	ctx := context.Background()

	since := time.Now().UTC().Add(-r.ActiveWindow)
	ids, err := r.DB.ActiveUserIDs(ctx, since)
	if err != nil {
		r.Log.Error("listing active users failed", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := r.Gateway.Broadcast(r.Channel, id, checkInText); err != nil {
			r.Log.Error("check-in delivery failed",
				zap.Int64("user_id", id), zap.Error(err))
			continue
		}
		if _, err := r.DB.InsertMessage(ctx, id, checkInText, core.SenderBot); err != nil {
			r.Log.Error("persisting check-in failed",
				zap.Int64("user_id", id), zap.Error(err))
		}
	}

	if len(ids) > 0 {
		r.Log.Info("check-ins sent", zap.Int("users", len(ids)))
	}
}
