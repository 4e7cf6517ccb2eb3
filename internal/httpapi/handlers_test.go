package httpapi

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/service"
	"comercialpereira/backend/internal/store/memory"
)

const (
	adminEmail    = "admin@comercialpereira.com.br"
	adminPassword = "Adm1n@Pereira"
	sellerEmail   = "vendedor@comercialpereira.com.br"
	sellerPass    = "Vendas@2024"
	managerEmail  = "gerente@comercialpereira.com.br"
	managerPass   = "Gerente@2024"
	testPIN       = "482913"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "")
	t.Setenv("SEED_MANAGER_PASSWORD", "")
	t.Setenv("SEED_SALESPERSON_PASSWORD", "")

	svc := service.New(memory.NewSeeded(), service.Options{})
	auth := NewAuthManager("test-secret-key", time.Hour, testPIN, svc)
	return New(svc, auth, nil, "*")
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	token   string
	csrf    string
	remote  string
}

func newClient(t *testing.T, api *API) *testClient {
	return &testClient{t: t, handler: api.Handler(), remote: "192.0.2.10:4000"}
}

func (c *testClient) do(method string, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = c.remote
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

// login authenticates and fetches a CSRF token so mutating calls pass.
func (c *testClient) login(email string, password string) *testClient {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/auth/login", domain.LoginRequest{Email: email, Password: password})
	require.Equal(c.t, http.StatusOK, rec.Code, rec.Body.String())

	var resp domain.LoginResponse
	require.NoError(c.t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(c.t, resp.AccessToken)
	c.token = resp.AccessToken

	rec = c.do(http.MethodGet, "/api/auth/csrf-token", nil)
	require.Equal(c.t, http.StatusOK, rec.Code)
	var payload map[string]string
	require.NoError(c.t, json.NewDecoder(rec.Body).Decode(&payload))
	c.csrf = payload["csrf_token"]
	require.NotEmpty(c.t, c.csrf)
	return c
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out), rec.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	rec := newClient(t, newTestAPI(t)).do(http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, body["ok"])
}

func TestMetricsDisabledReturnsNotFound(t *testing.T) {
	rec := newClient(t, newTestAPI(t)).do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLogin(t *testing.T) {
	c := newClient(t, newTestAPI(t))
	rec := c.do(http.MethodPost, "/api/auth/login", domain.LoginRequest{Email: adminEmail, Password: adminPassword})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[domain.LoginResponse](t, rec)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, domain.RoleAdmin, resp.User.Role)
	assert.Contains(t, resp.Permissions, domain.PermManageUsers)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestHandleLoginInvalidCredentials(t *testing.T) {
	c := newClient(t, newTestAPI(t))

	rec := c.do(http.MethodPost, "/api/auth/login", domain.LoginRequest{Email: adminEmail, Password: "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.CodeAuth, decodeBody[errorBody](t, rec).Code)

	rec = c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": "x", "role": "ADMIN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMe(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(sellerEmail, sellerPass)

	rec := c.do(http.MethodGet, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		User        domain.User         `json:"user"`
		Permissions []domain.Permission `json:"permissions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, sellerEmail, body.User.Email)
	assert.ElementsMatch(t, domain.PermissionsFor(domain.RoleSalesperson), body.Permissions)
}

func TestRoutesRequireAuthentication(t *testing.T) {
	c := newClient(t, newTestAPI(t))

	for _, path := range []string{"/api/products", "/api/sales", "/api/users", "/api/dashboard/overview", "/api/me"} {
		rec := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	c.token = "not-a-jwt"
	rec := c.do(http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSalespersonPermissions(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(sellerEmail, sellerPass)

	forbidden := []string{"/api/users", "/api/audit-logs", "/api/dashboard/overview", "/api/reports/sales", "/api/inventory/stats", "/api/suppliers/export"}
	for _, path := range forbidden {
		rec := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Equal(t, service.CodeAuthorization, decodeBody[errorBody](t, rec).Code, path)
	}

	allowed := []string{"/api/products", "/api/customers", "/api/sales", "/api/categories", "/api/inventory/alerts"}
	for _, path := range allowed {
		rec := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := c.do(http.MethodPost, "/api/categories", domain.CategoryCreateRequest{Name: "Limpeza"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListProducts(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)

	rec := c.do(http.MethodGet, "/api/products?limit=4&sort_by=price&sort_order=desc", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	list := decodeBody[domain.ProductList](t, rec)
	require.Len(t, list.Data, 4)
	assert.Equal(t, "FIO-25", list.Data[0].Code)
	assert.Equal(t, 6, list.Pagination.Total)
	assert.True(t, list.Pagination.HasNext)
	assert.False(t, list.Pagination.HasPrev)

	rec = c.do(http.MethodGet, "/api/products?category_id=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[domain.ProductList](t, rec).Data, 2)

	rec = c.do(http.MethodGet, "/api/products?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProductLookupRoutes(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)

	rec := c.do(http.MethodGet, "/api/products/code/CAD-001", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decodeBody[domain.Product](t, rec).ID)

	rec = c.do(http.MethodGet, "/api/products/category/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byCategory := decodeBody[struct {
		Data []domain.Product `json:"data"`
	}](t, rec)
	assert.Len(t, byCategory.Data, 2)

	rec = c.do(http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/api/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/products/check-code?code=CAD-001", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[domain.CodeAvailability](t, rec).Available)
}

func TestCreateProductValidationDetails(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)

	rec := c.do(http.MethodPost, "/api/products", map[string]any{"name": "ab", "code": "x", "price": "0", "category_id": 1})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[errorBody](t, rec)
	assert.Equal(t, service.CodeValidation, body.Code)
	assert.NotEmpty(t, body.Details)
}

func TestSaleFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	seller := newClient(t, api).login(sellerEmail, sellerPass)
	manager := newClient(t, api).login(managerEmail, managerPass)

	rec := seller.do(http.MethodPost, "/api/sales", map[string]any{
		"customer_id": 1,
		"items":       []map[string]any{{"product_id": 2, "quantity": 4}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	assert.Equal(t, domain.SaleDraft, sale.Status)
	assert.Equal(t, "10.00", sale.Total.StringFixed(2))

	for _, step := range []struct {
		action string
		status domain.SaleStatus
	}{
		{"submit", domain.SalePending},
		{"confirm", domain.SaleConfirmed},
		{"complete", domain.SaleCompleted},
	} {
		rec = seller.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/%s", sale.ID, step.action), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, step.status, decodeBody[domain.Sale](t, rec).Status)
	}

	rec = seller.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/complete", sale.ID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.CodeTransition, decodeBody[errorBody](t, rec).Code)

	refundPath := fmt.Sprintf("/api/sales/%d/refund", sale.ID)
	rec = manager.do(http.MethodPost, refundPath, domain.SaleRefundRequest{Reason: "cliente desistiu", ManagerPIN: "000000"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = manager.do(http.MethodPost, refundPath, domain.SaleRefundRequest{Reason: "cliente desistiu", ManagerPIN: testPIN})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.SaleRefunded, decodeBody[domain.Sale](t, rec).Status)

	rec = manager.do(http.MethodGet, "/api/inventory/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 500, decodeBody[domain.Inventory](t, rec).Quantity)
}

func TestSaleItemRoutes(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(sellerEmail, sellerPass)

	rec := c.do(http.MethodPost, "/api/sales", map[string]any{
		"customer_id": 2,
		"items":       []map[string]any{{"product_id": 1, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)

	rec = c.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/items", sale.ID), map[string]any{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.CodeItemExists, decodeBody[errorBody](t, rec).Code)

	rec = c.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/items", sale.ID), map[string]any{"product_id": 4, "quantity": 50})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, service.CodeInsufficient, decodeBody[errorBody](t, rec).Code)

	rec = c.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/items", sale.ID), map[string]any{"product_id": 2, "quantity": 2})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale = decodeBody[domain.Sale](t, rec)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, "29.90", sale.Total.StringFixed(2))

	var added domain.SaleItem
	for _, item := range sale.Items {
		if item.ProductID == 2 {
			added = item
		}
	}
	rec = c.do(http.MethodDelete, fmt.Sprintf("/api/sales/%d/items/%d", sale.ID, added.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "24.90", decodeBody[domain.Sale](t, rec).Total.StringFixed(2))
}

func TestValidateStockRoute(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(sellerEmail, sellerPass)

	rec := c.do(http.MethodPost, "/api/sales/validate-stock", domain.StockValidationRequest{Items: []domain.SaleItemInput{
		{ProductID: 1, Quantity: 5},
		{ProductID: 5, Quantity: 1},
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	result := decodeBody[domain.StockValidation](t, rec)
	assert.False(t, result.Summary.CanProceed)
	assert.Equal(t, 1, result.Summary.InvalidItems)
}

func TestDeleteCustomerWithoutSales(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)

	rec := c.do(http.MethodDelete, "/api/customers/3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decodeBody[map[string]any](t, rec)["deleted"])

	rec = c.do(http.MethodGet, "/api/customers/3", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateDocumentRoute(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(sellerEmail, sellerPass)

	rec := c.do(http.MethodPost, "/api/customers/validate", domain.DocumentValidationRequest{Document: "529.982.247-25"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decodeBody[domain.DocumentValidation](t, rec)
	assert.True(t, result.IsValid)
	assert.Equal(t, "52998224725", result.Document)
}

func TestCheckStockRoute(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(sellerEmail, sellerPass)

	rec := c.do(http.MethodGet, "/api/inventory/check-stock/5", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	check := decodeBody[domain.StockCheck](t, rec)
	assert.False(t, check.Available)
	assert.Equal(t, 0, check.Quantity)
}

func TestAdjustStockRoute(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(managerEmail, managerPass)

	rec := c.do(http.MethodPost, "/api/inventory/adjust", map[string]any{"product_id": 4, "quantity": 12, "reason": "contagem anual"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 20, decodeBody[domain.Inventory](t, rec).Quantity)

	rec = c.do(http.MethodPost, "/api/inventory/adjust", map[string]any{"product_id": 4, "quantity": -50, "reason": "contagem anual"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/inventory/movements/product/4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	movements := decodeBody[domain.MovementList](t, rec)
	require.Len(t, movements.Data, 1)
	assert.Equal(t, domain.MovementAdjustment, movements.Data[0].Type)
}

func TestSupplierExportCSV(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(managerEmail, managerPass)

	rec := c.do(http.MethodGet, "/api/suppliers/export", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "suppliers.csv")

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, supplierCSVHeader, records[0])
	assert.Equal(t, "Distribuidora Paulista Ltda", records[1][1])
}

func TestReportsRoute(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(managerEmail, managerPass)

	rec := c.do(http.MethodGet, "/api/reports/financial?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	firstLine, _, _ := strings.Cut(rec.Body.String(), "\n")
	assert.Equal(t, strings.Join(dailyCSVHeader, ","), firstLine)

	rec = c.do(http.MethodGet, "/api/reports/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = c.do(http.MethodGet, "/api/reports/payroll", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/api/reports/sales?from=2024-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/api/reports/sales?from=2020-01-01&to=2024-01-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardRoutes(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)

	rec := c.do(http.MethodGet, "/api/dashboard/overview?period=week", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	overview := decodeBody[domain.DashboardOverview](t, rec)
	assert.Equal(t, domain.PeriodWeek, overview.Period)
	assert.Equal(t, 6, overview.TotalProducts)

	rec = c.do(http.MethodGet, "/api/dashboard/overview?period=decade", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, path := range []string{"/api/dashboard/products", "/api/dashboard/users", "/api/dashboard/categories", "/api/dashboard/inventory", "/api/dashboard/charts/categories?period=year"} {
		rec = c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestDashboardAlertsRoute(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(managerEmail, managerPass)

	rec := c.do(http.MethodGet, "/api/dashboard/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	alerts := decodeBody[struct {
		Data []domain.StockAlert `json:"data"`
	}](t, rec).Data
	require.Len(t, alerts, 2)
	assert.Equal(t, "out-5", alerts[0].ID)
	assert.Equal(t, domain.PriorityHigh, alerts[0].Priority)
	assert.Equal(t, domain.AlertLowStock, alerts[1].Type)
	assert.Equal(t, int64(4), alerts[1].ProductID)

	rec = c.do(http.MethodGet, "/api/dashboard/alerts?types=out_of_stock&priority=all", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	alerts = decodeBody[struct {
		Data []domain.StockAlert `json:"data"`
	}](t, rec).Data
	require.Len(t, alerts, 1)
	assert.Equal(t, int64(5), alerts[0].ProductID)

	for _, path := range []string{"/api/dashboard/alerts?priority=urgent", "/api/dashboard/alerts?types=HIGH_SALES", "/api/dashboard/alerts?limit=51", "/api/dashboard/alerts?limit=x"} {
		rec = c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestSalesChartRoute(t *testing.T) {
	api := newTestAPI(t)
	seller := newClient(t, api).login(sellerEmail, sellerPass)
	admin := newClient(t, api).login(adminEmail, adminPassword)

	rec := seller.do(http.MethodPost, "/api/sales", map[string]any{
		"customer_id": 1,
		"items":       []map[string]any{{"product_id": 6, "quantity": 5}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sale := decodeBody[domain.Sale](t, rec)
	for _, action := range []string{"submit", "confirm", "complete"} {
		rec = seller.do(http.MethodPost, fmt.Sprintf("/api/sales/%d/%s", sale.ID, action), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec = admin.do(http.MethodGet, fmt.Sprintf("/api/dashboard/charts/sales?period=today&groupBy=month&userId=%d", sale.UserID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	points := decodeBody[struct {
		Data []domain.SalesChartPoint `json:"data"`
	}](t, rec).Data
	require.Len(t, points, 1)
	assert.Equal(t, 1, points[0].Sales)
	assert.Equal(t, 5, points[0].Units)
	assert.True(t, points[0].Revenue.Equal(sale.Total))

	rec = admin.do(http.MethodGet, "/api/dashboard/charts/sales?period=today&userId=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decodeBody[struct {
		Data []domain.SalesChartPoint `json:"data"`
	}](t, rec).Data)

	for _, path := range []string{"/api/dashboard/charts/sales?groupBy=year", "/api/dashboard/charts/sales?userId=abc", "/api/dashboard/charts/sales?period=decade"} {
		rec = admin.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestUserAdministrationRoutes(t *testing.T) {
	c := newClient(t, newTestAPI(t)).login(adminEmail, adminPassword)

	rec := c.do(http.MethodGet, "/api/users/roles/MANAGER", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	byRole := decodeBody[struct {
		Data []domain.User `json:"data"`
	}](t, rec)
	require.Len(t, byRole.Data, 1)
	assert.Equal(t, managerEmail, byRole.Data[0].Email)

	rec = c.do(http.MethodPatch, "/api/users/1/status", map[string]any{"is_active": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodDelete, "/api/users/3", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/api/auth/login", domain.LoginRequest{Email: sellerEmail, Password: sellerPass})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tomorrow := time.Now().UTC().AddDate(0, 0, 1).Format(time.DateOnly)
	rec = c.do(http.MethodGet, "/api/audit-logs?to="+tomorrow, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decodeBody[struct {
		Data []domain.AuditLog `json:"data"`
	}](t, rec)
	assert.NotEmpty(t, logs.Data)
}
