package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"comercialpereira/backend/internal/cache"
	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/metrics"
	"comercialpereira/backend/internal/storage"
	"comercialpereira/backend/internal/store"
)

const (
	CodeValidation      = "VALIDATION_ERROR"
	CodeBusiness        = "BUSINESS_ERROR"
	CodeAuth            = "AUTH_ERROR"
	CodeAuthorization   = "AUTHORIZATION_ERROR"
	CodeNotFound        = "NOT_FOUND_ERROR"
	CodeConflict        = "CONFLICT_ERROR"
	CodeNoItems         = "NO_ITEMS"
	CodeItemExists      = "ITEM_ALREADY_EXISTS"
	CodeInsufficient    = "INSUFFICIENT_STOCK"
	CodeTransition      = "INVALID_TRANSITION"
	CodeSaleNotEditable = "SALE_NOT_EDITABLE"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is a domain failure carrying the HTTP status and machine code the
// API renders.
type Error struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	Err     error        `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(message string, details ...FieldError) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: message, Details: details}
}

func fieldError(field string, message string) *Error {
	return validationError("Request validation failed", FieldError{Field: field, Message: message})
}

func businessError(code string, message string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Message: message}
}

func notFound(entity string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: entity + " not found", Err: store.ErrNotFound}
}

func conflict(code string, message string) *Error {
	return &Error{Status: http.StatusConflict, Code: code, Message: message, Err: store.ErrConflict}
}

func forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeAuthorization, Message: message}
}

func unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeAuth, Message: message}
}

// storeError turns repository sentinels into service errors. Anything else is
// returned unchanged and ends up as a 500.
func storeError(err error, entity string, conflictMessage string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return notFound(entity)
	case errors.Is(err, store.ErrConflict):
		return conflict(CodeConflict, conflictMessage)
	case errors.Is(err, store.ErrInsufficientStock):
		return insufficientStock(err)
	case errors.Is(err, store.ErrInvalidInput):
		return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: "invalid " + entity, Err: err}
	}
	return err
}

// errorMessage is the client-safe text of err.
func errorMessage(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Message
	}
	return "internal error"
}

func insufficientStock(err error) *Error {
	e := &Error{Status: http.StatusBadRequest, Code: CodeInsufficient, Message: "insufficient stock", Err: err}
	var shortage *store.StockShortage
	if errors.As(err, &shortage) {
		e.Message = fmt.Sprintf("insufficient stock for product %d: available %d, requested %d",
			shortage.ProductID, shortage.Available, shortage.Requested)
	}
	return e
}

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache    cache.Cache
	CacheTTL time.Duration
	Images   storage.ObjectStorage
	Metrics  *metrics.Metrics
	Clock    func() time.Time
}

type Service struct {
	repo     store.Repository
	cache    cache.Cache
	cacheTTL time.Duration
	images   storage.ObjectStorage
	metrics  *metrics.Metrics
	now      func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}

	return &Service{
		repo:     repo,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		images:   opts.Images,
		metrics:  opts.Metrics,
		now:      opts.Clock,
	}
}

// authorize returns the request actor when it holds perm.
func (s *Service) authorize(ctx context.Context, perm domain.Permission) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, unauthorized("authentication required")
	}
	if !domain.HasPermission(actor.Role, perm) {
		return domain.Actor{}, forbidden(fmt.Sprintf("permission %s required", perm))
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID int64, detail string) {
	entry := domain.AuditLog{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		CreatedAt:  s.now(),
	}
	if actor, ok := ActorFromContext(ctx); ok {
		entry.UserID = actor.UserID
		entry.UserRole = actor.Role
	}

	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Int64("entity_id", entityID).
			Msg("failed to write audit log")
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if _, err := s.authorize(ctx, domain.PermManageUsers); err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, fieldError("from", "must be before to")
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

const dashboardKeyPrefix = "dashboard:"

// invalidateDashboard drops cached dashboard figures after writes that change
// sales or stock.
func (s *Service) invalidateDashboard(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, dashboardKeyPrefix); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate dashboard cache")
	}
}

// cached returns the value under key, running load and storing its result on
// a miss.
func cached[T any](ctx context.Context, s *Service, key string, load func() (T, error)) (T, error) {
	var value T
	hit, err := s.cache.Get(ctx, dashboardKeyPrefix+key, &value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dashboard cache read failed")
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return value, nil
	}

	value, err = load()
	if err != nil {
		return value, err
	}
	if err := s.cache.Set(ctx, dashboardKeyPrefix+key, value, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dashboard cache write failed")
	}
	return value, nil
}

func boolPtr(v bool) *bool {
	return &v
}
