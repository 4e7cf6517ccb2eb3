package store

import (
	"context"
	"errors"
	"time"

	"comercialpereira/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
)

// StockShortage is returned, wrapping ErrInsufficientStock, when a movement
// or transition would drive a product below zero.
type StockShortage struct {
	ProductID int64
	Available int
	Requested int
}

func (e *StockShortage) Error() string {
	return "insufficient stock"
}

func (e *StockShortage) Unwrap() error {
	return ErrInsufficientStock
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
	ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, int, error)
}

type CatalogStore interface {
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	GetCategory(ctx context.Context, id int64) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
	ListCategories(ctx context.Context, filter domain.CategoryFilter) ([]domain.Category, int, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (*domain.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, int, error)

	// CreateProduct inserts the product, its inventory row and the optional
	// opening movement atomically.
	CreateProduct(ctx context.Context, product domain.Product, inventory domain.Inventory, opening *domain.InventoryMovement) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductByCode(ctx context.Context, code string) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	ProductUsage(ctx context.Context, id int64) (saleItems int, movements int, err error)
}

type InventoryStore interface {
	GetInventory(ctx context.Context, productID int64) (*domain.Inventory, error)
	UpdateInventory(ctx context.Context, inventory domain.Inventory) (*domain.Inventory, error)
	// ApplyMovement locks the inventory row, shifts its quantity by delta and
	// records the movement in one transaction.
	ApplyMovement(ctx context.Context, movement domain.InventoryMovement, delta int) (*domain.Inventory, error)
	ListInventory(ctx context.Context, filter domain.InventoryFilter) ([]domain.Inventory, int, error)
	ListMovements(ctx context.Context, filter domain.MovementFilter) ([]domain.InventoryMovement, int, error)
}

type CustomerStore interface {
	CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id int64) (*domain.Customer, error)
	UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id int64) error
	ListCustomers(ctx context.Context, filter domain.CustomerFilter) ([]domain.Customer, int, error)
	CountCustomerSales(ctx context.Context, id int64) (int, error)
}

type SaleStore interface {
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSale(ctx context.Context, id int64) (*domain.Sale, error)
	UpdateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	AddSaleItem(ctx context.Context, saleID int64, item domain.SaleItem) (*domain.Sale, error)
	UpdateSaleItem(ctx context.Context, saleID int64, item domain.SaleItem) (*domain.Sale, error)
	RemoveSaleItem(ctx context.Context, saleID int64, itemID int64) (*domain.Sale, error)
	// TransitionSale moves the sale from t.From to t.To and applies the stock
	// effect in the same transaction. It fails with ErrConflict when the
	// stored status is no longer t.From.
	TransitionSale(ctx context.Context, t domain.SaleTransition) (*domain.Sale, error)
	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, int, error)
	SummarizeSales(ctx context.Context, filter domain.SaleFilter) (domain.SaleSummary, error)
	ListSaleLines(ctx context.Context, filter domain.SaleLineFilter) ([]domain.SaleLine, error)
}

type AuditStore interface {
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

type Repository interface {
	UserStore
	CatalogStore
	InventoryStore
	CustomerStore
	SaleStore
	AuditStore
}
