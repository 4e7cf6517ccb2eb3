package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store/memory"
)

func newTestService(t *testing.T, opts ...func(*Options)) (*Service, *memory.Store) {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	t.Setenv("SEED_MANAGER_PASSWORD", "")
	t.Setenv("SEED_SALESPERSON_PASSWORD", "")

	repo := memory.NewSeeded()
	o := Options{}
	for _, fn := range opts {
		fn(&o)
	}
	return New(repo, o), repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 1, Name: "Administrador", Role: domain.RoleAdmin})
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 2, Name: "Gerente Loja", Role: domain.RoleManager})
}

func sellerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{UserID: 3, Name: "Vendedor Balcao", Role: domain.RoleSalesperson})
}

func requireServiceError(t *testing.T, err error, status int, code string) *Error {
	t.Helper()
	require.Error(t, err)
	var svcErr *Error
	require.True(t, errors.As(err, &svcErr), "expected *service.Error, got %T: %v", err, err)
	assert.Equal(t, status, svcErr.Status, svcErr.Message)
	assert.Equal(t, code, svcErr.Code, svcErr.Message)
	return svcErr
}

func hasField(e *Error, field string) bool {
	for _, d := range e.Details {
		if d.Field == field {
			return true
		}
	}
	return false
}

// mapCache is an in-process cache.Cache that stores JSON like the redis one.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "  ADMIN@comercialpereira.com.br ", "Adm1n@Pereira")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, user.Role)

	_, err = svc.Authenticate(ctx, "admin@comercialpereira.com.br", "wrong")
	wrong := requireServiceError(t, err, http.StatusUnauthorized, CodeAuth)

	_, err = svc.Authenticate(ctx, "nobody@comercialpereira.com.br", "Adm1n@Pereira")
	unknown := requireServiceError(t, err, http.StatusUnauthorized, CodeAuth)
	assert.Equal(t, wrong.Message, unknown.Message)
}

func TestAuthenticateRejectsInactiveUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateUserStatus(adminCtx(), 3, domain.UserStatusRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)

	_, err = svc.Authenticate(context.Background(), "vendedor@comercialpereira.com.br", "Vendas@2024")
	requireServiceError(t, err, http.StatusUnauthorized, CodeAuth)

	_, err = svc.CurrentUser(sellerCtx())
	requireServiceError(t, err, http.StatusUnauthorized, CodeAuth)
}

func TestAuthorization(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListUsers(context.Background(), domain.UserFilter{})
	requireServiceError(t, err, http.StatusUnauthorized, CodeAuth)

	_, err = svc.ListUsers(managerCtx(), domain.UserFilter{})
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)

	_, err = svc.CreateCategory(sellerCtx(), domain.CategoryCreateRequest{Name: "Brinquedos"})
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)

	list, err := svc.ListUsers(adminCtx(), domain.UserFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Pagination.Total)
	assert.Equal(t, 20, list.Pagination.Limit)
}

func TestCreateUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	_, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Name:     "Ana Paula",
		Email:    "ana@comercialpereira.com.br",
		Password: "weak",
	})
	verr := requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "password"))

	_, err = svc.CreateUser(ctx, domain.UserCreateRequest{
		Name:     "Ana Paula",
		Email:    "ana@comercialpereira.com.br",
		Password: "Password1!",
	})
	verr = requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "password"))

	user, err := svc.CreateUser(ctx, domain.UserCreateRequest{
		Name:     "Ana Paula",
		Email:    "Ana@ComercialPereira.com.br",
		Password: "S3gura!Senha",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSalesperson, user.Role)
	assert.Equal(t, "ana@comercialpereira.com.br", user.Email)
	assert.True(t, IsPasswordHash(user.PasswordHash))

	_, err = svc.CreateUser(ctx, domain.UserCreateRequest{
		Name:     "Outra Ana",
		Email:    "ana@comercialpereira.com.br",
		Password: "S3gura!Senha",
	})
	requireServiceError(t, err, http.StatusConflict, CodeConflict)
}

func TestUserSelfGuards(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	role := domain.RoleManager
	_, err := svc.UpdateUser(ctx, 1, domain.UserUpdateRequest{Role: &role})
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)

	_, err = svc.UpdateUserStatus(ctx, 1, domain.UserStatusRequest{IsActive: boolPtr(false)})
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)

	err = svc.DeleteUser(ctx, 1)
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)

	require.NoError(t, svc.DeleteUser(ctx, 3))
	user, err := svc.GetUser(ctx, 3)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
}

func TestUserStats(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.UserStats(adminCtx())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Active)
	assert.Equal(t, 1, stats.ByRole[domain.RoleSalesperson])
	assert.Len(t, stats.Recent, 3)
}

func TestPasswordHelpers(t *testing.T) {
	hash, err := HashPassword("S3gura!Senha")
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "S3gura!Senha"))
	assert.False(t, VerifyPassword(hash, "S3gura!senha"))
	assert.False(t, VerifyPassword("plain", "plain"))

	assert.True(t, StrongPassword("Abc123!x"))
	assert.False(t, StrongPassword("abc123!x"))
	assert.NotEmpty(t, passwordWeakness("Qwerty!123"))
	assert.NotEmpty(t, passwordWeakness("Abbb!1234"))
	assert.Empty(t, passwordWeakness("S3gura!Senha"))
}

func TestAuditLogRecordsWrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	created, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Brinquedos"})
	require.NoError(t, err)

	logs, err := svc.ListAuditLogs(ctx, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, "category_create", logs[0].Action)
	assert.Equal(t, created.ID, logs[0].EntityID)
	assert.Equal(t, int64(1), logs[0].UserID)

	_, err = svc.ListAuditLogs(managerCtx(), time.Time{}, time.Time{}, 0)
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)
}

func TestStoreErrorMapping(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetCategory(adminCtx(), 999)
	requireServiceError(t, err, http.StatusNotFound, CodeNotFound)

	assert.Equal(t, "internal error", errorMessage(errors.New("boom")))
	assert.Equal(t, "category not found", errorMessage(notFound("category")))
}
