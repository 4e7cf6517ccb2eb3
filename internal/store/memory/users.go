package memory

import (
	"context"
	"slices"
	"strings"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if sameFold(existing.Email, user.Email) {
			return nil, store.ErrConflict
		}
	}

	now := s.now()
	user.ID = s.next("user")
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if sameFold(user.Email, email) {
			found := user
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	for id, other := range s.users {
		if id != user.ID && sameFold(other.Email, user.Email) {
			return nil, store.ErrConflict
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = s.now()
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) ListUsers(_ context.Context, filter domain.UserFilter) ([]domain.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	result := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if search != "" && !containsFold(user.Name, search) && !containsFold(user.Email, search) {
			continue
		}
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if !matchBool(filter.IsActive, user.IsActive) {
			continue
		}
		if filter.CreatedAfter != nil && user.CreatedAt.Before(*filter.CreatedAfter) {
			continue
		}
		if filter.CreatedBefore != nil && user.CreatedAt.After(*filter.CreatedBefore) {
			continue
		}
		result = append(result, user)
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.User) int {
		var c int
		switch filter.SortBy {
		case "email":
			c = ordered(a.Email, b.Email, desc)
		case "role":
			c = ordered(a.Role, b.Role, desc)
		case "created_at":
			c = orderedTime(a.CreatedAt, b.CreatedAt, desc)
		case "updated_at":
			c = orderedTime(a.UpdatedAt, b.UpdatedAt, desc)
		default:
			c = ordered(strings.ToLower(a.Name), strings.ToLower(b.Name), desc)
		}
		if c == 0 {
			return ordered(a.ID, b.ID, false)
		}
		return c
	})

	return paginate(result, filter.ListQuery), len(result), nil
}
