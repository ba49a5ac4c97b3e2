// Package store persists whitelist users and admins.
package store

import (
	"context"
	"errors"

	"imeigate/internal/membership/models"
)

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
var ErrNotFound = errors.New("not found")

// Stores are interface-driven to keep the admission logic testable and to
// allow swapping in-memory and PostgreSQL persistence without rewiring
// business code.
type UserStore interface {
	// FindUser returns the user for telegramID or ErrNotFound.
	FindUser(ctx context.Context, telegramID int64) (*models.User, error)
	// UpsertWhitelist creates the user whitelisted, or re-flags an existing
	// one. A non-empty username overwrites the stored name; an empty one
	// preserves it.
	UpsertWhitelist(ctx context.Context, telegramID int64, username string) (*models.User, error)
	// RevokeWhitelist clears the whitelisted flag and returns the updated
	// user. Returns ErrNotFound unless the user exists and is currently
	// whitelisted. The row itself is kept.
	RevokeWhitelist(ctx context.Context, telegramID int64) (*models.User, error)
	// ListWhitelisted returns all currently whitelisted users in insertion
	// order.
	ListWhitelisted(ctx context.Context) ([]*models.User, error)
}

type AdminStore interface {
	// FindAdmin returns the admin record for telegramID or ErrNotFound.
	FindAdmin(ctx context.Context, telegramID int64) (*models.Admin, error)
	// CreateAdmin persists the admin record. Creation is idempotent: a
	// concurrent or repeated create for the same telegramID returns the
	// stored record instead of failing.
	CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	// ListAdmins returns all admin records in insertion order.
	ListAdmins(ctx context.Context) ([]*models.Admin, error)
}
