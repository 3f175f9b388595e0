// Package recorder orchestrates idempotent creation of interactions from
// parsed analysis results.
package recorder

import (
	"context"

	"go.uber.org/zap"

	"github.com/reflectbot/reflectbot/internal/analysis"
	"github.com/reflectbot/reflectbot/internal/dedup"
	"github.com/reflectbot/reflectbot/internal/store"
)

// Skip reasons returned in Result.Reason.
const (
	ReasonInteractionExists = "interaction_exists"
	ReasonDuplicateMessage  = "duplicate_message"
)

// Result reports whether an interaction row was created and, if not, why the
// write was suppressed. Suppression is an outcome, not an error.
type Result struct {
	Created bool
	Reason  string
}

// Store is the slice of persistence the recorder needs.
type Store interface {
	GetMessage(ctx context.Context, id string) (*store.Message, error)
	InteractionForMessage(ctx context.Context, userMessageID string) (*store.Interaction, error)
	InsertInteraction(ctx context.Context, it *store.Interaction) error
}

// Recorder creates at most one interaction per source message.
type Recorder struct {
	DB      Store
	Checker *dedup.Checker
	Log     *zap.Logger
}

func New(db Store, checker *dedup.Checker, log *zap.Logger) *Recorder {
	return &Recorder{DB: db, Checker: checker, Log: log}
}

// Record creates an Interaction from a parsed chain. In order:
//  1. If sourceMessageID already has an interaction, skip (idempotence
//     against redelivery and re-processing).
//  2. If the source message is a duplicate of recent input (trailing-hour
//     window), skip without creating a row.
//  3. Otherwise insert exactly one row, with missing chain fields already
//     defaulted by the parser.
//
// Storage failures return an error; the caller decides whether to retry.
func (r *Recorder) Record(ctx context.Context, userID int64, chain *analysis.Chain, sourceMessageID string) (Result, error) {
	if sourceMessageID != "" {
		existing, err := r.DB.InteractionForMessage(ctx, sourceMessageID)
		if err != nil {
			return Result{}, err
		}
		if existing != nil {
			r.Log.Debug("interaction already exists for message",
				zap.Int64("user_id", userID), zap.String("message_id", sourceMessageID))
			return Result{Created: false, Reason: ReasonInteractionExists}, nil
		}

		msg, err := r.DB.GetMessage(ctx, sourceMessageID)
		if err != nil {
			return Result{}, err
		}
		dup, err := r.Checker.IsDuplicateInteraction(ctx, userID, msg.Content, msg.CreatedAt, msg.ID)
		if err != nil {
			return Result{}, err
		}
		if dup {
			r.Log.Debug("duplicate source message, interaction suppressed",
				zap.Int64("user_id", userID), zap.String("message_id", sourceMessageID))
			return Result{Created: false, Reason: ReasonDuplicateMessage}, nil
		}
	}

	it := &store.Interaction{
		UserID:                userID,
		UserMessageID:         sourceMessageID,
		Trigger:               chain.Trigger,
		Thought:               chain.Thought,
		EmotionName:           chain.Emotion.Name,
		EmotionIntensity:      int(chain.Emotion.Intensity),
		Action:                chain.Action,
		Consequence:           chain.Consequence,
		Patterns:              chain.Patterns,
		Goal:                  chain.Goal,
		IneffectivenessReason: chain.IneffectivenessReason,
		HiddenNeed:            chain.HiddenNeed,
		Alternatives:          chain.Alternatives,
		Physiology:            chain.Physiology,
		RawResponse:           chain.RawResponse,
	}
	if err := r.DB.InsertInteraction(ctx, it); err != nil {
		return Result{}, err
	}
	r.Log.Debug("interaction recorded",
		zap.Int64("user_id", userID), zap.String("interaction_id", it.ID))
	return Result{Created: true}, nil
}
