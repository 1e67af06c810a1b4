package store

import (
	"context"

	"github.com/gnosis/profiles/internal/core/profile"
)

// =============================================================================
// Store Interface
// =============================================================================

// UpsertAction reports whether an upsert created or updated a row.
type UpsertAction string

const (
	// ActionCreated means the upsert inserted a new row.
	ActionCreated UpsertAction = "created"

	// ActionUpdated means the upsert modified an existing row.
	ActionUpdated UpsertAction = "updated"
)

// Store defines the persistence interface for profile entities.
type Store interface {
	// User operations. UpsertUser applies the patch over the stored profile,
	// or inserts a new one when user_id is unknown.
	UpsertUser(ctx context.Context, userID int, patch profile.UserPatch) (*profile.User, UpsertAction, error)
	GetUser(ctx context.Context, userID int) (*profile.User, error)

	// AI profile operations, keyed by content_id (one profile per content item).
	UpsertAIProfile(ctx context.Context, contentID int, patch profile.AIPatch) (*profile.AIProfile, UpsertAction, error)
	GetAIProfileByContentID(ctx context.Context, contentID int) (*profile.AIProfile, error)

	// Transaction support
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Close() error
}
