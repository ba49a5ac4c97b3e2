package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"imeigate/internal/membership/models"
)

type MemoryStoreSuite struct {
	suite.Suite
	users  *InMemoryUserStore
	admins *InMemoryAdminStore
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.users = NewInMemoryUserStore()
	s.admins = NewInMemoryAdminStore()
}

func (s *MemoryStoreSuite) TestFindUserMissing() {
	_, err := s.users.FindUser(context.Background(), 42)
	s.ErrorIs(err, ErrNotFound)
}

func (s *MemoryStoreSuite) TestUpsertWhitelist() {
	ctx := context.Background()

	s.Run("creates user whitelisted", func() {
		user, err := s.users.UpsertWhitelist(ctx, 42, "alice")
		s.Require().NoError(err)
		s.Equal(int64(42), user.TelegramID)
		s.Equal("alice", user.Username)
		s.True(user.Whitelisted)
		s.False(user.CreatedAt.IsZero())
	})

	s.Run("repeat upsert keeps a single row", func() {
		_, err := s.users.UpsertWhitelist(ctx, 42, "alice")
		s.Require().NoError(err)

		users, err := s.users.ListWhitelisted(ctx)
		s.Require().NoError(err)
		s.Len(users, 1)
	})

	s.Run("empty username preserves the stored one", func() {
		user, err := s.users.UpsertWhitelist(ctx, 42, "")
		s.Require().NoError(err)
		s.Equal("alice", user.Username)
	})

	s.Run("non-empty username overwrites", func() {
		user, err := s.users.UpsertWhitelist(ctx, 42, "alice2")
		s.Require().NoError(err)
		s.Equal("alice2", user.Username)
	})

	s.Run("re-flags a revoked user", func() {
		_, err := s.users.RevokeWhitelist(ctx, 42)
		s.Require().NoError(err)

		user, err := s.users.UpsertWhitelist(ctx, 42, "")
		s.Require().NoError(err)
		s.True(user.Whitelisted)
	})
}

func (s *MemoryStoreSuite) TestRevokeWhitelist() {
	ctx := context.Background()

	s.Run("unknown user returns ErrNotFound", func() {
		_, err := s.users.RevokeWhitelist(ctx, 99)
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("clears the flag but keeps the row", func() {
		_, err := s.users.UpsertWhitelist(ctx, 7, "bob")
		s.Require().NoError(err)

		user, err := s.users.RevokeWhitelist(ctx, 7)
		s.Require().NoError(err)
		s.False(user.Whitelisted)

		stored, err := s.users.FindUser(ctx, 7)
		s.Require().NoError(err)
		s.False(stored.Whitelisted)
	})

	s.Run("second revoke returns ErrNotFound", func() {
		_, err := s.users.RevokeWhitelist(ctx, 7)
		s.ErrorIs(err, ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestListWhitelisted() {
	ctx := context.Background()

	_, err := s.users.UpsertWhitelist(ctx, 1, "first")
	s.Require().NoError(err)
	_, err = s.users.UpsertWhitelist(ctx, 2, "second")
	s.Require().NoError(err)
	_, err = s.users.UpsertWhitelist(ctx, 3, "third")
	s.Require().NoError(err)
	_, err = s.users.RevokeWhitelist(ctx, 2)
	s.Require().NoError(err)

	users, err := s.users.ListWhitelisted(ctx)
	s.Require().NoError(err)
	s.Len(users, 2)
	s.Equal(int64(1), users[0].TelegramID)
	s.Equal(int64(3), users[1].TelegramID)
}

func (s *MemoryStoreSuite) TestAdminStore() {
	ctx := context.Background()

	s.Run("missing admin returns ErrNotFound", func() {
		_, err := s.admins.FindAdmin(ctx, 42)
		s.ErrorIs(err, ErrNotFound)
	})

	s.Run("create and find", func() {
		admin, err := models.NewAdmin(42, "alice", time.Now())
		s.Require().NoError(err)

		created, err := s.admins.CreateAdmin(ctx, admin)
		s.Require().NoError(err)
		s.Equal(int64(42), created.TelegramID)

		found, err := s.admins.FindAdmin(ctx, 42)
		s.Require().NoError(err)
		s.Equal("alice", found.Username)
	})

	s.Run("repeat create returns the stored record", func() {
		dup, err := models.NewAdmin(42, "other-name", time.Now())
		s.Require().NoError(err)

		created, err := s.admins.CreateAdmin(ctx, dup)
		s.Require().NoError(err)
		s.Equal("alice", created.Username)

		admins, err := s.admins.ListAdmins(ctx)
		s.Require().NoError(err)
		s.Len(admins, 1)
	})
}
