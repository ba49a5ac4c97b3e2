package store

import (
	"context"
	"sync"
	"time"

	"imeigate/internal/membership/models"
)

// In-memory stores keep development and tests lightweight. They intentionally
// favor clarity over performance.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[int64]*models.User
	order []int64
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[int64]*models.User)}
}

func (s *InMemoryUserStore) FindUser(_ context.Context, telegramID int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[telegramID]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryUserStore) UpsertWhitelist(_ context.Context, telegramID int64, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[telegramID]; ok {
		user.Whitelisted = true
		if username != "" {
			user.Username = username
		}
		copied := *user
		return &copied, nil
	}
	user := &models.User{
		TelegramID:  telegramID,
		Username:    username,
		Whitelisted: true,
		CreatedAt:   time.Now(),
	}
	s.users[telegramID] = user
	s.order = append(s.order, telegramID)
	copied := *user
	return &copied, nil
}

func (s *InMemoryUserStore) RevokeWhitelist(_ context.Context, telegramID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[telegramID]
	if !ok || !user.Whitelisted {
		return nil, ErrNotFound
	}
	user.Whitelisted = false
	copied := *user
	return &copied, nil
}

func (s *InMemoryUserStore) ListWhitelisted(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*models.User, 0, len(s.order))
	for _, id := range s.order {
		if user := s.users[id]; user.Whitelisted {
			copied := *user
			users = append(users, &copied)
		}
	}
	return users, nil
}

type InMemoryAdminStore struct {
	mu     sync.RWMutex
	admins map[int64]*models.Admin
	order  []int64
}

func NewInMemoryAdminStore() *InMemoryAdminStore {
	return &InMemoryAdminStore{admins: make(map[int64]*models.Admin)}
}

func (s *InMemoryAdminStore) FindAdmin(_ context.Context, telegramID int64) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if admin, ok := s.admins[telegramID]; ok {
		copied := *admin
		return &copied, nil
	}
	return nil, ErrNotFound
}

func (s *InMemoryAdminStore) CreateAdmin(_ context.Context, admin *models.Admin) (*models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.admins[admin.TelegramID]; ok {
		copied := *existing
		return &copied, nil
	}
	copied := *admin
	s.admins[admin.TelegramID] = &copied
	s.order = append(s.order, admin.TelegramID)
	result := copied
	return &result, nil
}

func (s *InMemoryAdminStore) ListAdmins(_ context.Context) ([]*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admins := make([]*models.Admin, 0, len(s.order))
	for _, id := range s.order {
		copied := *s.admins[id]
		admins = append(admins, &copied)
	}
	return admins, nil
}
