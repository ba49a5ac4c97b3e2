package service

import (
	"context"

	"imeigate/internal/audit"
	"imeigate/internal/membership/models"
	dErrors "imeigate/pkg/domain-errors"
)

// Caller-gated variants for front-ends whose mutating operations require the
// caller to be an admin (the chat interface). Failing the gate is a distinct
// authorization error, never folded into not-found, so clients cannot probe
// for account existence through the error type.

func (s *Service) requireAdmin(ctx context.Context, callerID int64) error {
	isAdmin, err := s.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !isAdmin {
		s.logAudit(ctx, audit.Event{Subject: callerID, Actor: callerID, Action: audit.ActionAccessDenied})
		return dErrors.New(dErrors.CodeForbidden, "caller is not an admin")
	}
	return nil
}

func (s *Service) AddToWhitelistAs(ctx context.Context, callerID, telegramID int64, username string) (*models.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.AddToWhitelist(ctx, telegramID, username)
}

func (s *Service) RemoveFromWhitelistAs(ctx context.Context, callerID, telegramID int64) (*models.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.RemoveFromWhitelist(ctx, telegramID)
}

func (s *Service) PromoteToAdminAs(ctx context.Context, callerID, telegramID int64, username string) (*models.Admin, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.PromoteToAdmin(ctx, telegramID, username)
}

func (s *Service) ListWhitelistedAs(ctx context.Context, callerID int64) ([]*models.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.ListWhitelisted(ctx)
}

func (s *Service) ListAdminsAs(ctx context.Context, callerID int64) ([]*models.Admin, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.ListAdmins(ctx)
}
