//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"imeigate/internal/membership/models"
	"imeigate/internal/membership/store"
	"imeigate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	users    *store.PostgresUserStore
	admins   *store.PostgresAdminStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.users = store.NewPostgresUserStore(s.postgres.DB)
	s.admins = store.NewPostgresAdminStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users", "admins"))
}

func (s *PostgresStoreSuite) TestUpsertWhitelistRoundTrip() {
	ctx := context.Background()

	created, err := s.users.UpsertWhitelist(ctx, 42, "alice")
	s.Require().NoError(err)
	s.True(created.Whitelisted)
	s.Equal("alice", created.Username)

	// Repeat upsert with an empty name keeps the row and the stored name.
	again, err := s.users.UpsertWhitelist(ctx, 42, "")
	s.Require().NoError(err)
	s.Equal("alice", again.Username)

	users, err := s.users.ListWhitelisted(ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *PostgresStoreSuite) TestRevokeWhitelist() {
	ctx := context.Background()

	_, err := s.users.RevokeWhitelist(ctx, 99)
	s.ErrorIs(err, store.ErrNotFound)

	_, err = s.users.UpsertWhitelist(ctx, 7, "bob")
	s.Require().NoError(err)

	revoked, err := s.users.RevokeWhitelist(ctx, 7)
	s.Require().NoError(err)
	s.False(revoked.Whitelisted)

	// Row persists after revocation.
	found, err := s.users.FindUser(ctx, 7)
	s.Require().NoError(err)
	s.False(found.Whitelisted)

	_, err = s.users.RevokeWhitelist(ctx, 7)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentUpsertsStayIdempotent() {
	ctx := context.Background()
	const goroutines = 20

	var wg sync.WaitGroup
	var failures atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.users.UpsertWhitelist(ctx, 1001, "carol"); err != nil {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(0), failures.Load(), "all upserts should succeed")
	users, err := s.users.ListWhitelisted(ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *PostgresStoreSuite) TestAdminCreateIdempotent() {
	ctx := context.Background()

	admin, err := models.NewAdmin(42, "alice", time.Now().UTC())
	s.Require().NoError(err)

	created, err := s.admins.CreateAdmin(ctx, admin)
	s.Require().NoError(err)
	s.Equal(int64(42), created.TelegramID)

	dup, err := models.NewAdmin(42, "other", time.Now().UTC())
	s.Require().NoError(err)
	again, err := s.admins.CreateAdmin(ctx, dup)
	s.Require().NoError(err)
	s.Equal("alice", again.Username, "existing record wins on conflict")

	admins, err := s.admins.ListAdmins(ctx)
	s.Require().NoError(err)
	s.Len(admins, 1)
}
