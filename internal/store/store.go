// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"github.com/ashureev/solace/internal/domain"
)

// Repository defines the interface for persisting the companion's local state:
// the message log, the rolling summary, checkup results and key/value settings.
type Repository interface {
	// InsertMessage appends a message to the log and sets its Seq.
	InsertMessage(ctx context.Context, msg *domain.Message) error

	// ListMessages returns the whole log in insertion order.
	ListMessages(ctx context.Context) ([]domain.Message, error)

	// ClearMessages removes every message and returns how many were deleted.
	ClearMessages(ctx context.Context) (int64, error)

	// ClearHistory removes every message and empties the summary in one
	// transaction, returning how many messages were deleted.
	ClearHistory(ctx context.Context) (int64, error)

	// ReplaceSummary atomically swaps the single rolling summary record.
	ReplaceSummary(ctx context.Context, content string) error

	// GetSummary returns the rolling summary, or "" if none was written yet.
	GetSummary(ctx context.Context) (string, error)

	// GetValue reads a key/value setting. ok is false when the key is absent.
	GetValue(ctx context.Context, key string) (value string, ok bool, err error)

	// SetValue creates or overwrites a key/value setting.
	SetValue(ctx context.Context, key, value string) error

	// GetProfile returns the onboarding profile, or nil if onboarding never ran.
	GetProfile(ctx context.Context) (*domain.UserProfile, error)

	// SaveProfile stores the onboarding profile blob.
	SaveProfile(ctx context.Context, profile *domain.UserProfile) error

	// InsertCheckup appends a completed checkup record and sets its ID.
	InsertCheckup(ctx context.Context, rec *domain.CheckupRecord) error

	// ListCheckups returns completed checkups, oldest first.
	ListCheckups(ctx context.Context) ([]domain.CheckupRecord, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
