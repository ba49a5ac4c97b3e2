// Package service implements admission control over the membership stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"imeigate/internal/audit"
	"imeigate/internal/membership/metrics"
	"imeigate/internal/membership/models"
	"imeigate/internal/membership/store"
	dErrors "imeigate/pkg/domain-errors"
	"imeigate/pkg/requestcontext"
)

// Service orchestrates whitelist and admin membership. It is the single
// decision point both front-ends call; transports never touch the stores
// directly.
type Service struct {
	users          store.UserStore
	admins         store.AdminStore
	logger         *slog.Logger
	auditPublisher audit.Publisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(users store.UserStore, admins store.AdminStore, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin store is required")
	}
	s := &Service{users: users, admins: admins, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IsAuthorized reports whether the account is currently whitelisted.
// Absence of a record means not authorized (fail closed).
func (s *Service) IsAuthorized(ctx context.Context, telegramID int64) (bool, error) {
	user, err := s.users.FindUser(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.IncrementAuthDenied()
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check whitelist")
	}
	if !user.Whitelisted {
		s.metrics.IncrementAuthDenied()
	}
	return user.Whitelisted, nil
}

// IsAdmin reports whether an admin record exists for the account. Admin
// status is independent of the whitelist; it does not require the account
// to also be whitelisted.
func (s *Service) IsAdmin(ctx context.Context, telegramID int64) (bool, error) {
	_, err := s.admins.FindAdmin(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check admin status")
	}
	return true, nil
}

// AddToWhitelist whitelists the account, creating the user row on first
// contact. Idempotent: repeat calls leave a single row with the flag set.
func (s *Service) AddToWhitelist(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	if telegramID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "telegram id must be positive")
	}
	user, err := s.users.UpsertWhitelist(ctx, telegramID, strings.TrimSpace(username))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to add to whitelist")
	}
	s.logAudit(ctx, audit.Event{Subject: telegramID, Action: audit.ActionWhitelistAdded})
	s.metrics.IncrementWhitelistAdds()
	return user, nil
}

// RemoveFromWhitelist clears the whitelisted flag. An account that was
// never whitelisted (or already removed) yields CodeNotFound so callers can
// report a 404-equivalent outcome; the user row itself persists.
func (s *Service) RemoveFromWhitelist(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.users.RevokeWhitelist(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found or not in whitelist")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to remove from whitelist")
	}
	s.logAudit(ctx, audit.Event{Subject: telegramID, Action: audit.ActionWhitelistRemoved})
	s.metrics.IncrementWhitelistRemoves()
	return user, nil
}

// PromoteToAdmin creates an admin record for a known account.
//
// Policy:
//   - an existing admin is returned unchanged (idempotent)
//   - the account must already have a user row, else CodeNotFound
//   - an empty username falls back to the user's stored name
func (s *Service) PromoteToAdmin(ctx context.Context, telegramID int64, username string) (*models.Admin, error) {
	existing, err := s.admins.FindAdmin(ctx, telegramID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check admin status")
	}

	user, err := s.users.FindUser(ctx, telegramID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load user")
	}

	name := strings.TrimSpace(username)
	if name == "" {
		name = user.Username
	}
	admin, err := models.NewAdmin(telegramID, name, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	created, err := s.admins.CreateAdmin(ctx, admin)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create admin")
	}
	s.logAudit(ctx, audit.Event{Subject: telegramID, Action: audit.ActionAdminPromoted})
	s.metrics.IncrementAdminPromotions()
	return created, nil
}

// ListWhitelisted returns all whitelisted users.
func (s *Service) ListWhitelisted(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListWhitelisted(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list whitelist")
	}
	return users, nil
}

// ListAdmins returns all admin records.
func (s *Service) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list admins")
	}
	return admins, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	attrs := []any{
		"event", event.Action,
		"subject", event.Subject,
		"log_type", "audit",
	}
	if event.Actor != 0 {
		attrs = append(attrs, "actor", event.Actor)
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, event.Action, attrs...)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "error", err)
	}
}
