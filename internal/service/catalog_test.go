package service

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/document"
	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/storage"
)

func newProductRequest(code string, stock int) domain.ProductCreateRequest {
	return domain.ProductCreateRequest{
		Name:         "Grampeador de Mesa",
		Price:        decimal.RequireFromString("32.50"),
		Code:         code,
		CategoryID:   1,
		InitialStock: stock,
		Location:     "A2",
	}
}

func TestCategoryRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	_, err := svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Papelaria"})
	requireServiceError(t, err, http.StatusConflict, CodeConflict)

	_, err = svc.CreateCategory(ctx, domain.CategoryCreateRequest{Name: "Brinquedos", CNAE: "99.99-9-99"})
	verr := requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "cnae"))

	_, err = svc.UpdateCategory(ctx, 1, domain.CategoryUpdateRequest{IsActive: boolPtr(false)})
	requireServiceError(t, err, http.StatusConflict, CodeConflict)

	details, err := svc.GetCategory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Papelaria", details.CNAEActivity)
	assert.Equal(t, 2, details.ActiveProductCount)
}

func TestCreateProductRecordsOpeningStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	product, err := svc.CreateProduct(ctx, newProductRequest("GRA-001", 15))
	require.NoError(t, err)
	require.NotNil(t, product.Inventory)
	assert.Equal(t, 15, product.Inventory.Quantity)
	assert.Equal(t, domain.DefaultMinStock, product.Inventory.MinStock)

	movements, err := svc.ProductMovements(ctx, product.ID, domain.ListQuery{})
	require.NoError(t, err)
	require.Len(t, movements.Data, 1)
	assert.Equal(t, domain.MovementIn, movements.Data[0].Type)
	assert.Equal(t, 15, movements.Data[0].Quantity)

	_, err = svc.CreateProduct(ctx, newProductRequest("GRA-001", 0))
	requireServiceError(t, err, http.StatusConflict, CodeConflict)

	avail, err := svc.CheckCodeAvailability(ctx, "gra-001", 0)
	require.NoError(t, err)
	assert.False(t, avail.Available)

	err = svc.DeleteProduct(ctx, product.ID)
	requireServiceError(t, err, http.StatusBadRequest, CodeBusiness)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	req := newProductRequest("GRA-002", 0)
	req.Price = decimal.RequireFromString("10.999")
	_, err := svc.CreateProduct(ctx, req)
	verr := requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "price"))

	req = newProductRequest("GRA-002", 0)
	minStock, maxStock := 20, 10
	req.MinStock, req.MaxStock = &minStock, &maxStock
	_, err = svc.CreateProduct(ctx, req)
	verr = requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "max_stock"))

	req = newProductRequest("GRA-002", 0)
	req.CategoryID = 999
	_, err = svc.CreateProduct(ctx, req)
	verr = requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "category_id"))

	_, err = svc.CreateProduct(sellerCtx(), newProductRequest("GRA-002", 0))
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)
}

func TestDeleteUnusedProductDeactivates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	require.NoError(t, svc.DeleteProduct(ctx, 3))
	product, err := svc.GetProduct(ctx, 3)
	require.NoError(t, err)
	assert.False(t, product.IsActive)
}

func TestListProductsSummaryCoversWholeFilter(t *testing.T) {
	svc, _ := newTestService(t)

	list, err := svc.ListProducts(sellerCtx(), domain.ProductFilter{ListQuery: domain.ListQuery{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, list.Data, 2)
	assert.Equal(t, 6, list.Pagination.Total)
	assert.Equal(t, 3, list.Pagination.Pages)
	assert.Equal(t, 6, list.Summary.TotalProducts)
	assert.Equal(t, 1, list.Summary.OutOfStockProducts)
	assert.Equal(t, 2, list.Summary.LowStockProducts)
}

func TestBulkImportIsPerItem(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.BulkImport(managerCtx(), domain.BulkImportRequest{Products: []domain.ProductCreateRequest{
		newProductRequest("BLK-001", 5),
		newProductRequest("CAD-001", 5),
		newProductRequest("BLK-002", 0),
	}})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 1, result.Errors[0].Index)
	assert.Equal(t, "CAD-001", result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "already in use")
}

func TestProductImageUpload(t *testing.T) {
	images := storage.NewMemory("https://cdn.test/img")
	svc, _ := newTestService(t, func(o *Options) { o.Images = images })
	ctx := managerCtx()

	_, err := svc.UploadProductImage(ctx, 1, "text/plain", bytes.NewReader([]byte("x")), 1)
	requireServiceError(t, err, http.StatusBadRequest, CodeValidation)

	first, err := svc.UploadProductImage(ctx, 1, "image/png", bytes.NewReader([]byte("png-1")), 5)
	require.NoError(t, err)
	assert.Contains(t, first.ImageURL, "https://cdn.test/img/products/1/")
	assert.Equal(t, 1, images.Len())

	_, err = svc.UploadProductImage(ctx, 1, "image/jpeg", bytes.NewReader([]byte("jpg-2")), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, images.Len())

	cleared, err := svc.DeleteProductImage(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, cleared.ImageURL)
	assert.Equal(t, 0, images.Len())
}

func TestProductImageWithoutStorage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UploadProductImage(managerCtx(), 1, "image/png", bytes.NewReader([]byte("png")), 3)
	requireServiceError(t, err, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE")
}

func TestSupplierRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	_, err := svc.CreateSupplier(ctx, domain.SupplierCreateRequest{Name: "Atacado Sul", CNPJ: "11.222.333/0001-82"})
	verr := requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "cnpj"))

	created, err := svc.CreateSupplier(ctx, domain.SupplierCreateRequest{
		Name:  "Atacado Sul",
		CNPJ:  "11.222.333/0001-81",
		State: "rs",
	})
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", created.CNPJ)
	assert.Equal(t, "RS", created.State)

	err = svc.DeleteSupplier(ctx, 1)
	requireServiceError(t, err, http.StatusBadRequest, CodeBusiness)

	require.NoError(t, svc.DeleteSupplier(ctx, created.ID))
	supplier, err := svc.GetSupplier(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, supplier.IsActive)

	_, err = svc.SuppliersByState(ctx, "XX")
	requireServiceError(t, err, http.StatusBadRequest, CodeValidation)

	bySP, err := svc.SuppliersByState(ctx, "sp")
	require.NoError(t, err)
	assert.Len(t, bySP, 1)
}

func TestBulkSupplierStatus(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.BulkSupplierStatus(managerCtx(), domain.SupplierBulkStatusRequest{
		IDs:      []int64{1, 404},
		IsActive: boolPtr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, resp.Updated)
	assert.Equal(t, "supplier not found", resp.Failed[404])
}

func TestAdjustStockAndMovements(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	inv, err := svc.AdjustStock(ctx, domain.StockAdjustRequest{ProductID: 1, Quantity: -20, Reason: "inventory count"})
	require.NoError(t, err)
	assert.Equal(t, 100, inv.Quantity)

	_, err = svc.AdjustStock(ctx, domain.StockAdjustRequest{ProductID: 1, Quantity: -1000, Reason: "inventory count"})
	requireServiceError(t, err, http.StatusBadRequest, CodeBusiness)

	_, err = svc.ProcessMovement(ctx, domain.MovementRequest{ProductID: 1, Type: "out", Quantity: 1000, Reason: "loss"})
	requireServiceError(t, err, http.StatusBadRequest, CodeInsufficient)

	inv, err = svc.ProcessMovement(ctx, domain.MovementRequest{ProductID: 5, Type: domain.MovementIn, Quantity: 12, Reason: "purchase order"})
	require.NoError(t, err)
	assert.Equal(t, 12, inv.Quantity)

	movements, err := svc.ListMovements(ctx, domain.MovementFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, movements.Pagination.Total)
	assert.Equal(t, domain.MovementIn, movements.Data[0].Type)
	assert.Equal(t, domain.MovementAdjustment, movements.Data[1].Type)
	assert.Equal(t, 20, movements.Data[1].Quantity)

	_, err = svc.AdjustStock(sellerCtx(), domain.StockAdjustRequest{ProductID: 1, Quantity: 1, Reason: "recount"})
	requireServiceError(t, err, http.StatusForbidden, CodeAuthorization)
}

func TestInventoryQueries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	check, err := svc.CheckStock(ctx, 5)
	require.NoError(t, err)
	assert.False(t, check.Available)
	assert.True(t, check.IsLowStock)

	check, err = svc.CheckStock(ctx, 999)
	require.NoError(t, err)
	assert.False(t, check.Available)

	alerts, err := svc.LowStockAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(5), alerts[0].ProductID)
	assert.Equal(t, domain.StockOut, alerts[0].StockStatus)

	out, err := svc.OutOfStock(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)

	stats, err := svc.InventoryStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalProducts)
	assert.Equal(t, 2, stats.LowStockCount)
	assert.Equal(t, 1, stats.OutOfStockCount)

	maxStock := 5
	_, err = svc.UpdateInventory(ctx, 1, domain.InventoryUpdateRequest{MaxStock: &maxStock})
	verr := requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "max_stock"))
}

func validCPF(t *testing.T, base string) string {
	t.Helper()
	digits, err := document.CheckDigits(base)
	require.NoError(t, err)
	return base + digits
}

func TestCustomerDocumentRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := sellerCtx()

	_, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Pedro Lima", Document: "11.222.333/0001-81"})
	verr := requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "document"))

	_, err = svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Pedro Lima", Document: "123.456.789-00"})
	verr = requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "document"))

	_, err = svc.CreateCustomer(ctx, domain.CustomerCreateRequest{Name: "Pedro Lima", Address: "Rua Augusta, 200"})
	verr = requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "address"))

	cpf := validCPF(t, "987654321")
	created, err := svc.CreateCustomer(ctx, domain.CustomerCreateRequest{
		Name:     "Pedro Lima",
		Email:    "Pedro@Email.com",
		Document: document.FormatCPF(cpf),
		Address:  "Rua Augusta, 200",
		City:     "São Paulo",
		State:    "sp",
	})
	require.NoError(t, err)
	assert.Equal(t, cpf, created.Document)
	assert.Equal(t, domain.CustomerRetail, created.Type)
	assert.Equal(t, "pedro@email.com", created.Email)
	assert.Equal(t, "SP", created.State)

	wholesale := domain.CustomerWholesale
	_, err = svc.UpdateCustomer(ctx, created.ID, domain.CustomerUpdateRequest{Type: &wholesale})
	verr = requireServiceError(t, err, http.StatusBadRequest, CodeValidation)
	assert.True(t, hasField(verr, "document"))
}

func TestValidateDocument(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ValidateDocument(sellerCtx(), "529.982.247-25")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.Equal(t, "CPF", res.Type)
	assert.Equal(t, "529.982.247-25", res.FormattedDocument)

	res, err = svc.ValidateDocument(sellerCtx(), "1234")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.NotEmpty(t, res.Error)
}

func TestDeleteCustomer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := managerCtx()

	deleted, err := svc.DeleteCustomer(ctx, 3)
	require.NoError(t, err)
	assert.True(t, deleted)
	_, err = svc.GetCustomer(ctx, 3)
	requireServiceError(t, err, http.StatusNotFound, CodeNotFound)

	_, err = svc.CreateSale(ctx, saleRequest(1, 1, 1))
	require.NoError(t, err)
	deleted, err = svc.DeleteCustomer(ctx, 1)
	require.NoError(t, err)
	assert.False(t, deleted)
	customer, err := svc.GetCustomer(ctx, 1)
	require.NoError(t, err)
	assert.False(t, customer.IsActive)
}
