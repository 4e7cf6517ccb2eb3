package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

// arrayConverter lets id and status slices through the way the pgx driver
// does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	switch v.(type) {
	case []int64, []string:
		return v, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

// ids matches an id slice argument.
type ids []int64

func (want ids) Match(v driver.Value) bool {
	got, ok := v.([]int64)
	return ok && slices.Equal(got, want)
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewWithDB(db), mock
}

func q(fragment string) string {
	return regexp.QuoteMeta(fragment)
}

func TestGetCategoryMapsMissingRowToNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("FROM categories c WHERE c.id = $1")).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetCategory(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateCategoryMapsUniqueViolationToConflict(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(q("INSERT INTO categories")).
		WithArgs("Papelaria", "", nil, true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "categories_name_key"})

	_, err := s.CreateCategory(context.Background(), domain.Category{Name: "Papelaria", IsActive: true})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.Contains(t, err.Error(), "categories_name_key")
}

func TestCreateProductMapsMissingCategoryToInvalidInput(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("INSERT INTO products")).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"})
	mock.ExpectRollback()

	product := domain.Product{Name: "Caderno", Code: "CAD-9", Price: decimal.RequireFromString("9.90"), CategoryID: 99}
	_, err := s.CreateProduct(context.Background(), product, domain.Inventory{}, nil)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestApplyMovementRejectsShortageWithoutWriting(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT quantity\s+FROM inventory\s+WHERE product_id = \$1\s+FOR UPDATE`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}).AddRow(3))
	mock.ExpectRollback()

	movement := domain.InventoryMovement{ProductID: 4, Type: domain.MovementOut, Quantity: 5, Reason: "quebra", UserID: 1}
	_, err := s.ApplyMovement(context.Background(), movement, -5)

	var shortage *store.StockShortage
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, store.StockShortage{ProductID: 4, Available: 3, Requested: 5}, *shortage)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
}

func TestApplyMovementMissingInventory(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT quantity\s+FROM inventory`).
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"quantity"}))
	mock.ExpectRollback()

	_, err := s.ApplyMovement(context.Background(), domain.InventoryMovement{ProductID: 77}, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransitionSaleRejectsStaleStatus(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM sales WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("COMPLETED"))
	mock.ExpectRollback()

	_, err := s.TransitionSale(context.Background(), domain.SaleTransition{
		SaleID: 9,
		From:   domain.SaleConfirmed,
		To:     domain.SaleCompleted,
		At:     time.Now(),
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestTransitionSaleShortageLeavesStockUntouched(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT status FROM sales WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING"))
	mock.ExpectQuery(q("FROM sale_items si")).
		WithArgs(ids{5}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "product_id", "name", "code", "quantity", "unit_price", "discount", "total"}).
			AddRow(int64(1), int64(5), int64(2), "Caneta", "CAN-AZ-01", 10, "2.50", "0.00", "25.00").
			AddRow(int64(2), int64(5), int64(3), "Martelo", "MAR-500", 1, "45.00", "0.00", "45.00"))
	mock.ExpectQuery(`SELECT product_id, quantity\s+FROM inventory\s+WHERE product_id = ANY\(\$1\)\s+ORDER BY product_id\s+FOR UPDATE`).
		WithArgs(ids{2, 3}).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "quantity"}).
			AddRow(int64(2), 4).
			AddRow(int64(3), 30))
	mock.ExpectRollback()

	_, err := s.TransitionSale(context.Background(), domain.SaleTransition{
		SaleID: 5,
		From:   domain.SalePending,
		To:     domain.SaleConfirmed,
		Stock:  domain.StockDecrement,
		UserID: 1,
		At:     time.Now(),
	})

	var shortage *store.StockShortage
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, int64(2), shortage.ProductID)
	assert.Equal(t, 4, shortage.Available)
	assert.Equal(t, 10, shortage.Requested)
}

func TestDeleteCustomerWithSalesConflicts(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM customers WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(q("SELECT count(*) FROM sales WHERE customer_id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := s.DeleteCustomer(context.Background(), 3)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestListProductsBuildsFilteredPagedQuery(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT count\(\*\)\s+FROM products p.*WHERE \(p\.name ILIKE \$1 OR p\.code ILIKE \$1 OR p\.description ILIKE \$1 OR p\.barcode ILIKE \$1\) AND p\.category_id = \$2`).
		WithArgs("%cad%", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(q("ORDER BY p.price DESC, p.id ASC LIMIT $3 OFFSET $4")).
		WithArgs("%cad%", int64(1), int64(10), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "description", "price", "code", "barcode", "category_id", "category_name",
			"supplier_id", "supplier_name", "image_url", "image_key", "is_active", "created_at", "updated_at",
			"inv_id", "quantity", "min_stock", "max_stock", "location", "last_update",
		}).AddRow(
			int64(1), "Caderno Universitário", "Caderno espiral", "24.90", "CAD-001", "", int64(1), "Papelaria",
			int64(1), "Distribuidora Paulista Ltda", "", "", true, now, now,
			int64(1), int64(15), int64(20), nil, "A1", now,
		))

	products, total, err := s.ListProducts(context.Background(), domain.ProductFilter{
		Search:     "cad",
		CategoryID: 1,
		ListQuery:  domain.ListQuery{Page: 2, Limit: 10, SortBy: "price", SortOrder: "desc"},
	})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, products, 1)

	p := products[0]
	assert.True(t, decimal.RequireFromString("24.90").Equal(p.Price))
	require.NotNil(t, p.SupplierID)
	assert.Equal(t, int64(1), *p.SupplierID)
	require.NotNil(t, p.Inventory)
	assert.Equal(t, 15, p.Inventory.Quantity)
	assert.Nil(t, p.Inventory.MaxStock)
	assert.Equal(t, domain.StockLow, p.Inventory.StockStatus)
	assert.Equal(t, "Papelaria", p.Inventory.CategoryName)
}

func TestSummarizeSalesAveragesRevenue(t *testing.T) {
	s, mock := newMockStore(t)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT count\(\*\), COALESCE\(sum\(s\.total\), 0\).*WHERE s\.status = \$1 AND COALESCE\(s\.sale_date, s\.created_at\) >= \$2`).
		WithArgs("COMPLETED", from).
		WillReturnRows(sqlmock.NewRows([]string{"count", "revenue", "qty"}).AddRow(3, "100.00", int64(12)))

	summary, err := s.SummarizeSales(context.Background(), domain.SaleFilter{Status: domain.SaleCompleted, From: &from})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalSales)
	assert.Equal(t, 12, summary.TotalQuantity)
	assert.Equal(t, "33.33", summary.AverageOrderValue.StringFixed(2))
}

func TestOrderByUsesWhitelist(t *testing.T) {
	got := orderBy(domain.ListQuery{SortBy: "price; DROP TABLE products", SortOrder: "asc"}, productSortColumns, "name", "p.id ASC")
	assert.Equal(t, " ORDER BY lower(p.name) ASC, p.id ASC", got)

	got = orderBy(domain.ListQuery{SortBy: "stock", SortOrder: "desc"}, productSortColumns, "name", "p.id ASC")
	assert.Equal(t, " ORDER BY COALESCE(i.quantity, 0) DESC, p.id ASC", got)
}

func TestConditionsBuildPlaceholders(t *testing.T) {
	yes, no := true, false
	c := &conditions{}
	c.search("50%_off", "name")
	c.flag(&yes, "email IS NOT NULL")
	c.flag(&no, "document IS NOT NULL")
	c.flag(nil, "ignored")
	c.equals("state", "SP")

	assert.Equal(t, " WHERE (name ILIKE $1) AND (email IS NOT NULL) AND NOT (document IS NOT NULL) AND state = $2", c.where())
	assert.Equal(t, []any{`%50\%\_off%`, "SP"}, c.args)
	assert.Equal(t, " LIMIT $3 OFFSET $4", c.page(domain.ListQuery{Page: 1, Limit: 20}))
	assert.Empty(t, (&conditions{}).page(domain.ListQuery{}))
}

func TestMapErrorPassesSentinelsThrough(t *testing.T) {
	shortage := &store.StockShortage{ProductID: 1}
	assert.Same(t, shortage, mapError(shortage))
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "40001"}), store.ErrConflict)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23514"}), store.ErrInvalidInput)
	assert.Nil(t, mapError(nil))

	boom := errors.New("boom")
	assert.Equal(t, boom, mapError(boom))
}
