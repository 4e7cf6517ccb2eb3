package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

// newContainerStore starts a throwaway postgres and migrates it. Set
// COMERCIAL_TEST_CONTAINERS=1 to run it; it needs a docker daemon.
func newContainerStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() || os.Getenv("COMERCIAL_TEST_CONTAINERS") == "" {
		t.Skip("set COMERCIAL_TEST_CONTAINERS=1 to run postgres integration tests")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("comercial_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "second run is a no-op")
	return s
}

type fixture struct {
	user     *domain.User
	category *domain.Category
	product  *domain.Product
	customer *domain.Customer
}

func seedFixture(t *testing.T, s *Store) fixture {
	t.Helper()
	ctx := context.Background()

	user, err := s.CreateUser(ctx, domain.User{
		Name: "Gerente Loja", Email: "gerente@example.com", PasswordHash: "$2a$10$x", Role: domain.RoleManager, IsActive: true,
	})
	require.NoError(t, err)

	category, err := s.CreateCategory(ctx, domain.Category{Name: "Papelaria", CNAE: "46.47-8-01", IsActive: true})
	require.NoError(t, err)

	product, err := s.CreateProduct(ctx, domain.Product{
		Name:       "Caderno Universitário",
		Price:      decimal.RequireFromString("24.90"),
		Code:       "CAD-001",
		CategoryID: category.ID,
		IsActive:   true,
	}, domain.Inventory{Quantity: 10, MinStock: 2, Location: "A1"}, &domain.InventoryMovement{
		Type: domain.MovementIn, Quantity: 10, Reason: "estoque inicial", UserID: user.ID,
	})
	require.NoError(t, err)

	customer, err := s.CreateCustomer(ctx, domain.Customer{Name: "Maria Oliveira", Document: "52998224725", Type: domain.CustomerRetail, IsActive: true})
	require.NoError(t, err)

	return fixture{user: user, category: category, product: product, customer: customer}
}

func TestSaleLifecycleMovesStock(t *testing.T) {
	s := newContainerStore(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	require.NotNil(t, f.product.Inventory)
	assert.Equal(t, 10, f.product.Inventory.Quantity)
	assert.Equal(t, "Papelaria", f.product.CategoryName)

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerID: f.customer.ID,
		UserID:     f.user.ID,
		Status:     domain.SaleDraft,
		Discount:   decimal.Zero,
		Tax:        decimal.Zero,
		Items: []domain.SaleItem{{
			ProductID: f.product.ID,
			Quantity:  4,
			UnitPrice: f.product.Price,
			Discount:  decimal.Zero,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SaleNumber(sale.ID), sale.Number)
	assert.Equal(t, "99.60", sale.Total.StringFixed(2))
	assert.Equal(t, "Maria Oliveira", sale.CustomerName)

	_, err = s.AddSaleItem(ctx, sale.ID, domain.SaleItem{ProductID: f.product.ID, Quantity: 1, UnitPrice: f.product.Price})
	assert.ErrorIs(t, err, store.ErrConflict)

	now := time.Now().UTC()
	move := func(from, to domain.SaleStatus) *domain.Sale {
		t.Helper()
		updated, err := s.TransitionSale(ctx, domain.SaleTransition{
			SaleID: sale.ID, From: from, To: to, Stock: domain.EffectOf(from, to), UserID: f.user.ID, At: now,
		})
		require.NoError(t, err)
		return updated
	}

	move(domain.SaleDraft, domain.SalePending)
	move(domain.SalePending, domain.SaleConfirmed)
	inv, err := s.GetInventory(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, inv.Quantity)

	completed := move(domain.SaleConfirmed, domain.SaleCompleted)
	require.NotNil(t, completed.SaleDate)

	_, err = s.TransitionSale(ctx, domain.SaleTransition{SaleID: sale.ID, From: domain.SaleConfirmed, To: domain.SaleCompleted, At: now})
	assert.ErrorIs(t, err, store.ErrConflict)

	move(domain.SaleCompleted, domain.SaleRefunded)
	inv, err = s.GetInventory(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Quantity)

	movements, total, err := s.ListMovements(ctx, domain.MovementFilter{ProductID: f.product.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, movements, 3)
	assert.Equal(t, domain.MovementIn, movements[2].Type)
	assert.Equal(t, "Gerente Loja", movements[0].UserName)
	for _, m := range movements[:2] {
		require.NotNil(t, m.SaleID)
		assert.Equal(t, sale.ID, *m.SaleID)
	}

	lines, err := s.ListSaleLines(ctx, domain.SaleLineFilter{Statuses: []domain.SaleStatus{domain.SaleRefunded}})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
	assert.Equal(t, "Papelaria", lines[0].CategoryName)

	summary, err := s.SummarizeSales(ctx, domain.SaleFilter{Status: domain.SaleRefunded})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalSales)
	assert.Equal(t, 4, summary.TotalQuantity)
}

func TestConfirmShortageKeepsStock(t *testing.T) {
	s := newContainerStore(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	sale, err := s.CreateSale(ctx, domain.Sale{
		CustomerID: f.customer.ID,
		UserID:     f.user.ID,
		Status:     domain.SalePending,
		Items:      []domain.SaleItem{{ProductID: f.product.ID, Quantity: 25, UnitPrice: f.product.Price}},
	})
	require.NoError(t, err)

	_, err = s.TransitionSale(ctx, domain.SaleTransition{
		SaleID: sale.ID, From: domain.SalePending, To: domain.SaleConfirmed, Stock: domain.StockDecrement, At: time.Now(),
	})
	var shortage *store.StockShortage
	require.ErrorAs(t, err, &shortage)
	assert.Equal(t, 10, shortage.Available)

	got, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SalePending, got.Status)

	inv, err := s.GetInventory(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Quantity)
}

func TestUniqueConstraintsAreCaseInsensitive(t *testing.T) {
	s := newContainerStore(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	_, err := s.CreateCategory(ctx, domain.Category{Name: "PAPELARIA"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreateUser(ctx, domain.User{Name: "Outro", Email: "GERENTE@example.com", PasswordHash: "x", Role: domain.RoleSalesperson})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreateProduct(ctx, domain.Product{Name: "Outro caderno", Price: decimal.NewFromInt(5), Code: "cad-001", CategoryID: f.category.ID},
		domain.Inventory{}, nil)
	assert.ErrorIs(t, err, store.ErrConflict)

	found, err := s.GetProductByCode(ctx, "cad-001")
	require.NoError(t, err)
	assert.Equal(t, f.product.ID, found.ID)

	err = s.DeleteCategory(ctx, f.category.ID)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestListFiltersAndPaging(t *testing.T) {
	s := newContainerStore(t)
	f := seedFixture(t, s)
	ctx := context.Background()

	for _, code := range []string{"CAN-01", "CAN-02", "CAN-03"} {
		_, err := s.CreateProduct(ctx, domain.Product{
			Name: "Caneta " + code, Price: decimal.RequireFromString("2.50"), Code: code, CategoryID: f.category.ID, IsActive: true,
		}, domain.Inventory{Quantity: 0, MinStock: 5}, nil)
		require.NoError(t, err)
	}

	noStock := true
	products, total, err := s.ListProducts(ctx, domain.ProductFilter{
		Search:    "caneta",
		NoStock:   &noStock,
		ListQuery: domain.ListQuery{Page: 2, Limit: 2, SortBy: "code", SortOrder: "asc"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, products, 1)
	assert.Equal(t, "CAN-03", products[0].Code)

	low := true
	items, total, err := s.ListInventory(ctx, domain.InventoryFilter{LowStock: &low})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	for _, item := range items {
		assert.Equal(t, domain.StockOut, item.StockStatus)
	}

	category, err := s.GetCategory(ctx, f.category.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, category.ProductCount)
}
