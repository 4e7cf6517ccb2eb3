package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/service"
	"comercialpereira/backend/internal/store"
	"comercialpereira/backend/internal/xid"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	rec := newClient(t, newTestAPI(t)).do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, xid.Valid(rec.Header().Get("X-Request-ID"), "req"))
}

func TestMiddlewareKeepsValidRequestID(t *testing.T) {
	handler := newTestAPI(t).Handler()
	id := xid.New("req")

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.NotEqual(t, "<script>", rec.Header().Get("X-Request-ID"))
}

func TestPreflightReturnsNoContent(t *testing.T) {
	rec := newClient(t, newTestAPI(t)).do(http.MethodOptions, "/api/products", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "X-CSRF-Token")
}

func TestMutatingRequestsRequireCSRFToken(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)
	body := domain.CategoryCreateRequest{Name: "Limpeza"}

	c.csrf = ""
	rec := c.do(http.MethodPost, "/api/categories", body)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSRF")

	c.csrf = "deadbeef"
	rec = c.do(http.MethodPost, "/api/categories", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	api := newTestAPI(t)
	c.csrf = api.generateCSRFToken()
	rec = c.do(http.MethodPost, "/api/categories", body)
	assert.Equal(t, http.StatusForbidden, rec.Code, "tokens are bound to the issuing instance")
}

func TestCSRFTokenAcceptsPreviousHour(t *testing.T) {
	api := newTestAPI(t)
	previous := time.Now().UTC().Truncate(time.Hour).Add(-time.Hour).Unix()

	assert.True(t, api.validateCSRFToken(api.csrfTokenForHour(previous)))
	assert.False(t, api.validateCSRFToken(api.csrfTokenForHour(previous-3600)))
	assert.False(t, api.validateCSRFToken(""))
}

func TestLoginRateLimitReturns429(t *testing.T) {
	c := newClient(t, newTestAPI(t))
	c.remote = "127.0.0.1:5000"

	for i := 0; i < 6; i++ {
		rec := c.do(http.MethodPost, "/api/auth/login", domain.LoginRequest{Email: adminEmail, Password: "wrong-pass"})
		if i < 5 {
			require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "RATE_LIMITED", decodeBody[errorBody](t, rec).Code)
	}

	c.remote = "127.0.0.2:5000"
	rec := c.do(http.MethodPost, "/api/auth/login", domain.LoginRequest{Email: adminEmail, Password: adminPassword})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	handler := newTestAPI(t).Handler()
	veryLong := strings.Repeat("a", maxJSONBody+1024)
	body := fmt.Sprintf(`{"email":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body exceeds")
}

func TestManagerPINRateLimitReturns429(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(managerEmail, managerPass)
	c.remote = "127.0.0.1:5001"
	body := domain.SaleRefundRequest{Reason: "teste", ManagerPIN: "000000"}

	for i := 0; i < 9; i++ {
		rec := c.do(http.MethodPost, "/api/sales/999/refund", body)
		if i < 8 {
			require.Equal(t, http.StatusForbidden, rec.Code, "attempt %d", i+1)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestRefundWithWrongPINKeepsSaleCompleted(t *testing.T) {
	api := newTestAPI(t)
	seller := newClient(t, api).login(sellerEmail, sellerPass)
	manager := newClient(t, api).login(managerEmail, managerPass)
	manager.remote = "127.0.0.1:5002"

	rec := seller.do(http.MethodPost, "/api/sales", map[string]any{
		"customer_id": 1,
		"items":       []map[string]any{{"product_id": 3, "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	for _, action := range []string{"submit", "confirm", "complete"} {
		rec = seller.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/%s", sale.ID, action), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	refundPath := fmt.Sprintf("/api/sales/%d/refund", sale.ID)
	for i := 0; i < 8; i++ {
		rec = manager.do(http.MethodPost, refundPath, domain.SaleRefundRequest{Reason: "troca", ManagerPIN: "000000"})
		require.Equal(t, http.StatusForbidden, rec.Code, "attempt %d", i+1)
	}
	rec = manager.do(http.MethodPost, refundPath, domain.SaleRefundRequest{Reason: "troca", ManagerPIN: testPIN})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = manager.do(http.MethodGet, fmt.Sprintf("/api/sales/%d", sale.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SaleCompleted, decodeBody[domain.Sale](t, rec).Status)

	rec = manager.do(http.MethodGet, "/api/inventory/3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 28, decodeBody[domain.Inventory](t, rec).Quantity)

	other := newClient(t, api).login(managerEmail, managerPass)
	other.remote = "127.0.0.1:5003"
	rec = other.do(http.MethodPost, refundPath, domain.SaleRefundRequest{Reason: "troca", ManagerPIN: testPIN})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.SaleRefunded, decodeBody[domain.Sale](t, rec).Status)
}

func TestAttemptLimiterRefillsAndSweepsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	l := newAttemptLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.True(t, l.Allow("a"), "attempt %d", i+1)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	now = now.Add(20 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))

	now = now.Add(2 * time.Minute)
	assert.True(t, l.Allow("c"))
	assert.Len(t, l.entries, 1)
	assert.Contains(t, l.entries, "c")

	var nilLimiter *attemptLimiter
	assert.True(t, nilLimiter.Allow("x"))
}

func TestParsePositiveLimitCaps(t *testing.T) {
	assert.Equal(t, 200, parsePositiveLimit("9999", 50, 200))
	assert.Equal(t, 50, parsePositiveLimit("", 50, 200))
	assert.Equal(t, 50, parsePositiveLimit("invalid", 50, 200))
	assert.Equal(t, 50, parsePositiveLimit("-3", 50, 200))
}

func TestStatusForMapsErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"service error", &service.Error{Status: http.StatusConflict, Code: service.CodeTransition, Message: "x"}, http.StatusConflict, service.CodeTransition},
		{"shortage", &store.StockShortage{ProductID: 1, Available: 1, Requested: 2}, http.StatusBadRequest, service.CodeInsufficient},
		{"not found", fmt.Errorf("load: %w", store.ErrNotFound), http.StatusNotFound, service.CodeNotFound},
		{"conflict", store.ErrConflict, http.StatusConflict, service.CodeConflict},
		{"invalid", store.ErrInvalidInput, http.StatusBadRequest, service.CodeValidation},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := statusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestWriteServiceErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: connection refused to 10.0.0.5"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, "internal server error", body.Error)
}

func TestQueryReaderCollectsFirstError(t *testing.T) {
	q := newQueryReader(url.Values{
		"page":      {"2"},
		"is_active": {"maybe"},
		"min_price": {"1,5"},
		"from":      {"2024-05-01"},
		"to":        {"2024-05-31"},
	})

	list := q.List()
	assert.Equal(t, 2, list.Page)
	assert.Nil(t, q.Bool("is_active"))
	assert.Nil(t, q.Decimal("min_price"))

	from := q.Time("from", false)
	to := q.Time("to", true)
	require.NotNil(t, from)
	require.NotNil(t, to)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *to)

	require.Error(t, q.Err())
	assert.Contains(t, q.Err().Error(), "is_active")
}
