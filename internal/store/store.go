// Package store provides durable persistence for served conversations.
package store

import (
	"context"
	"errors"

	"github.com/louaykahouli/CallCenter-Classifier/internal/domain"
)

// ErrUnavailable marks persistence failures caused by an unreachable engine.
// Callers check it with errors.Is to decide whether to proceed without
// persistence instead of failing the user-facing request.
var ErrUnavailable = errors.New("conversation store unavailable")

// Store is the conversation log contract. Two implementations exist, one per
// deployment mode (embedded SQLite file, client-server PostgreSQL); the
// backend is selected once at construction and never branched on per call.
type Store interface {
	// SaveConversation appends one record and returns its assigned id.
	SaveConversation(ctx context.Context, rec *domain.ConversationRecord) (int64, error)

	// SessionHistory returns up to limit records for a session, newest first.
	SessionHistory(ctx context.Context, sessionID string, limit int) ([]domain.ConversationRecord, error)

	// GlobalStats computes aggregates over the trailing window of days.
	GlobalStats(ctx context.Context, days int) (*domain.GlobalStats, error)

	// PurgeOlderThan removes records older than the given age in days and
	// returns the number removed. This is the only operation that ever
	// deletes conversation rows.
	PurgeOlderThan(ctx context.Context, days int) (int64, error)

	// Ping verifies connectivity to the underlying engine.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}
