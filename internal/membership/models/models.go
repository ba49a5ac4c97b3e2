package models

import (
	"time"

	dErrors "imeigate/pkg/domain-errors"
)

// User is a whitelist entry keyed by the account's numeric identifier.
//
// Invariants:
//   - TelegramID is positive and immutable after construction
//   - CreatedAt is immutable after construction
//   - At most one User exists per TelegramID (enforced by the store)
//
// Admin on User is informational only; privileged access is decided by the
// presence of an Admin record, not by this flag.
type User struct {
	TelegramID  int64     `json:"telegram_id"`
	Username    string    `json:"username,omitempty"`
	Whitelisted bool      `json:"is_whitelisted"`
	Admin       bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

// Admin grants an account the right to perform mutating operations.
// Admin records are never removed once created.
type Admin struct {
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewUser(telegramID int64, username string, now time.Time) (*User, error) {
	if telegramID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "telegram id must be positive")
	}
	return &User{
		TelegramID:  telegramID,
		Username:    username,
		Whitelisted: true,
		CreatedAt:   now,
	}, nil
}

func NewAdmin(telegramID int64, username string, now time.Time) (*Admin, error) {
	if telegramID <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "telegram id must be positive")
	}
	return &Admin{
		TelegramID: telegramID,
		Username:   username,
		CreatedAt:  now,
	}, nil
}
