package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"imeigate/internal/membership/models"
)

// Open connects to PostgreSQL using the lib/pq driver and verifies the
// connection before returning.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the membership tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
	telegram_id    BIGINT PRIMARY KEY,
	username       TEXT,
	is_whitelisted BOOLEAN NOT NULL DEFAULT FALSE,
	is_admin       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS admins (
	telegram_id BIGINT PRIMARY KEY,
	username    TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure membership schema: %w", err)
	}
	return nil
}

// PostgresUserStore persists whitelist users in PostgreSQL.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgresUserStore(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) FindUser(ctx context.Context, telegramID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT telegram_id, username, is_whitelisted, is_admin, created_at
		 FROM users WHERE telegram_id = $1`, telegramID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) UpsertWhitelist(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	// ON CONFLICT keeps concurrent upserts for one identifier idempotent;
	// an empty username never clobbers a stored name.
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (telegram_id, username, is_whitelisted)
		 VALUES ($1, NULLIF($2, ''), TRUE)
		 ON CONFLICT (telegram_id) DO UPDATE SET
			is_whitelisted = TRUE,
			username = COALESCE(NULLIF(EXCLUDED.username, ''), users.username)
		 RETURNING telegram_id, username, is_whitelisted, is_admin, created_at`,
		telegramID, username)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert whitelist: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) RevokeWhitelist(ctx context.Context, telegramID int64) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users SET is_whitelisted = FALSE
		 WHERE telegram_id = $1 AND is_whitelisted
		 RETURNING telegram_id, username, is_whitelisted, is_admin, created_at`,
		telegramID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("revoke whitelist: %w", err)
	}
	return user, nil
}

func (s *PostgresUserStore) ListWhitelisted(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT telegram_id, username, is_whitelisted, is_admin, created_at
		 FROM users WHERE is_whitelisted ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list whitelisted: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list whitelisted: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list whitelisted: %w", err)
	}
	return users, nil
}

// PostgresAdminStore persists admin records in PostgreSQL.
type PostgresAdminStore struct {
	db *sql.DB
}

func NewPostgresAdminStore(db *sql.DB) *PostgresAdminStore {
	return &PostgresAdminStore{db: db}
}

func (s *PostgresAdminStore) FindAdmin(ctx context.Context, telegramID int64) (*models.Admin, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT telegram_id, username, created_at FROM admins WHERE telegram_id = $1`,
		telegramID)
	admin, err := scanAdmin(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	return admin, nil
}

func (s *PostgresAdminStore) CreateAdmin(ctx context.Context, admin *models.Admin) (*models.Admin, error) {
	// The no-op DO UPDATE makes RETURNING yield the surviving row when a
	// concurrent promotion already created it.
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO admins (telegram_id, username, created_at)
		 VALUES ($1, NULLIF($2, ''), $3)
		 ON CONFLICT (telegram_id) DO UPDATE SET telegram_id = EXCLUDED.telegram_id
		 RETURNING telegram_id, username, created_at`,
		admin.TelegramID, admin.Username, admin.CreatedAt)
	created, err := scanAdmin(row)
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return created, nil
}

func (s *PostgresAdminStore) ListAdmins(ctx context.Context) ([]*models.Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT telegram_id, username, created_at FROM admins ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []*models.Admin
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
		admins = append(admins, admin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var username sql.NullString
	if err := row.Scan(&user.TelegramID, &username, &user.Whitelisted, &user.Admin, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Username = username.String
	return &user, nil
}

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var admin models.Admin
	var username sql.NullString
	if err := row.Scan(&admin.TelegramID, &username, &admin.CreatedAt); err != nil {
		return nil, err
	}
	admin.Username = username.String
	return &admin, nil
}
