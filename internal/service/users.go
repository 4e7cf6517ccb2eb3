package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

const (
	defaultUserLimit = 20
	recentUsersLimit = 5
)

var errInvalidCredentials = unauthorized("invalid credentials")

// Authenticate checks email and password and returns the active user.
// Unknown email, wrong password and inactive account all produce the same
// AUTH_ERROR so the response does not reveal which accounts exist.
func (s *Service) Authenticate(ctx context.Context, email string, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return domain.User{}, errInvalidCredentials
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, errInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if !VerifyPassword(user.PasswordHash, password) || !user.IsActive {
		return domain.User{}, errInvalidCredentials
	}
	return *user, nil
}

// CurrentUser reloads the actor's account so deactivated users lose access
// before their token expires.
func (s *Service) CurrentUser(ctx context.Context) (domain.User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.User{}, unauthorized("authentication required")
	}
	user, err := s.repo.GetUser(ctx, actor.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, unauthorized("account no longer exists")
	}
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsActive {
		return domain.User{}, unauthorized("account is inactive")
	}
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	if _, err := s.authorize(ctx, domain.PermManageUsers); err != nil {
		return domain.User{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Role == "" {
		req.Role = domain.RoleSalesperson
	}
	if err := validateRequest(req); err != nil {
		return domain.User{}, err
	}
	if err := checkPassword("password", req.Password); err != nil {
		return domain.User{}, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	created, err := s.repo.CreateUser(ctx, domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	})
	if err != nil {
		return domain.User{}, storeError(err, "user", "email already in use")
	}

	s.logAudit(ctx, "user_create", "user", created.ID, fmt.Sprintf("email=%s,role=%s", created.Email, created.Role))
	return *created, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (domain.User, error) {
	if _, err := s.authorize(ctx, domain.PermManageUsers); err != nil {
		return domain.User{}, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, storeError(err, "user", "")
	}
	return *user, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, req domain.UserUpdateRequest) (domain.User, error) {
	actor, err := s.authorize(ctx, domain.PermManageUsers)
	if err != nil {
		return domain.User{}, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if err := validateRequest(req); err != nil {
		return domain.User{}, err
	}

	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, storeError(err, "user", "")
	}
	if id == actor.UserID {
		if req.Role != nil && *req.Role != existing.Role {
			return domain.User{}, forbidden("you cannot change your own role")
		}
		if req.IsActive != nil && !*req.IsActive {
			return domain.User{}, forbidden("you cannot deactivate your own account")
		}
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Email != nil {
		updated.Email = *req.Email
	}
	if req.Role != nil {
		updated.Role = *req.Role
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateUser(ctx, updated)
	if err != nil {
		return domain.User{}, storeError(err, "user", "email already in use")
	}
	s.logAudit(ctx, "user_update", "user", saved.ID, fmt.Sprintf("role=%s,active=%t", saved.Role, saved.IsActive))
	return *saved, nil
}

func (s *Service) ResetPassword(ctx context.Context, id int64, req domain.PasswordResetRequest) error {
	if _, err := s.authorize(ctx, domain.PermManageUsers); err != nil {
		return err
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	if err := checkPassword("password", req.Password); err != nil {
		return err
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return storeError(err, "user", "")
	}
	hash, err := HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if _, err := s.repo.UpdateUser(ctx, *user); err != nil {
		return storeError(err, "user", "")
	}
	s.logAudit(ctx, "user_password_reset", "user", id, "")
	return nil
}

func (s *Service) UpdateUserStatus(ctx context.Context, id int64, req domain.UserStatusRequest) (domain.User, error) {
	actor, err := s.authorize(ctx, domain.PermManageUsers)
	if err != nil {
		return domain.User{}, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return domain.User{}, err
	}
	if id == actor.UserID && !*req.IsActive {
		return domain.User{}, forbidden("you cannot deactivate your own account")
	}

	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, storeError(err, "user", "")
	}
	user.IsActive = *req.IsActive
	saved, err := s.repo.UpdateUser(ctx, *user)
	if err != nil {
		return domain.User{}, storeError(err, "user", "")
	}
	s.logAudit(ctx, "user_status", "user", id, fmt.Sprintf("active=%t,reason=%s", saved.IsActive, req.Reason))
	return *saved, nil
}

// DeleteUser deactivates the account. Rows are kept because sales and
// movements reference them.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	actor, err := s.authorize(ctx, domain.PermManageUsers)
	if err != nil {
		return err
	}
	if id == actor.UserID {
		return forbidden("you cannot delete your own account")
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return storeError(err, "user", "")
	}
	user.IsActive = false
	if _, err := s.repo.UpdateUser(ctx, *user); err != nil {
		return storeError(err, "user", "")
	}
	s.logAudit(ctx, "user_delete", "user", id, "")
	return nil
}

func (s *Service) ListUsers(ctx context.Context, filter domain.UserFilter) (domain.UserList, error) {
	if _, err := s.authorize(ctx, domain.PermManageUsers); err != nil {
		return domain.UserList{}, err
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return domain.UserList{}, fieldError("role", "Must be one of: ADMIN MANAGER SALESPERSON")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.ListQuery = filter.ListQuery.Normalize(defaultUserLimit, "name", "asc", domain.UserSorts...)

	users, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return domain.UserList{}, err
	}
	return domain.UserList{Data: users, Pagination: domain.NewPagination(filter.ListQuery, total)}, nil
}

func (s *Service) SearchUsers(ctx context.Context, term string, limit int) ([]domain.User, error) {
	list, err := s.ListUsers(ctx, domain.UserFilter{
		Search:    term,
		IsActive:  boolPtr(true),
		ListQuery: domain.ListQuery{Limit: limitOr(limit, 10)},
	})
	return list.Data, err
}

func (s *Service) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	return s.allUsers(ctx, domain.UserFilter{IsActive: boolPtr(true)})
}

func (s *Service) UsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	if !role.Valid() {
		return nil, fieldError("role", "Must be one of: ADMIN MANAGER SALESPERSON")
	}
	return s.allUsers(ctx, domain.UserFilter{Role: role, IsActive: boolPtr(true)})
}

func (s *Service) UserStats(ctx context.Context) (domain.UserStats, error) {
	users, err := s.allUsers(ctx, domain.UserFilter{})
	if err != nil {
		return domain.UserStats{}, err
	}

	stats := domain.UserStats{ByRole: map[domain.Role]int{
		domain.RoleAdmin:       0,
		domain.RoleManager:     0,
		domain.RoleSalesperson: 0,
	}}
	for _, u := range users {
		stats.Total++
		if u.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.ByRole[u.Role]++
	}

	recent := slices.Clone(users)
	slices.SortFunc(recent, func(a, b domain.User) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(recent) > recentUsersLimit {
		recent = recent[:recentUsersLimit]
	}
	stats.Recent = recent
	return stats, nil
}

func (s *Service) allUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	if _, err := s.authorize(ctx, domain.PermManageUsers); err != nil {
		return nil, err
	}
	filter.ListQuery = domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1}
	users, _, err := s.repo.ListUsers(ctx, filter)
	return users, err
}

func limitOr(limit int, fallback int) int {
	if limit < 1 {
		return fallback
	}
	if limit > domain.MaxPageLimit {
		return domain.MaxPageLimit
	}
	return limit
}

func VerifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !IsPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func IsPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
