package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut || t == MovementAdjustment
}

type StockStatus string

const (
	StockOut       StockStatus = "out"
	StockCritical  StockStatus = "critical"
	StockLow       StockStatus = "low"
	StockOverstock StockStatus = "overstock"
	StockNormal    StockStatus = "normal"
)

type Inventory struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name,omitempty"`
	ProductCode  string          `json:"product_code,omitempty"`
	ProductPrice decimal.Decimal `json:"product_price"`
	CategoryID   int64           `json:"category_id,omitempty"`
	CategoryName string          `json:"category_name,omitempty"`
	SupplierID   *int64          `json:"supplier_id,omitempty"`
	IsActive     bool            `json:"product_active"`
	Quantity     int             `json:"quantity"`
	MinStock     int             `json:"min_stock"`
	MaxStock     *int            `json:"max_stock,omitempty"`
	Location     string          `json:"location,omitempty"`
	LastUpdate   time.Time       `json:"last_update"`
	StockStatus  StockStatus     `json:"stock_status,omitempty"`
}

func (i Inventory) Status() StockStatus {
	switch {
	case i.Quantity <= 0:
		return StockOut
	case i.Quantity <= i.MinStock/2:
		return StockCritical
	case i.Quantity <= i.MinStock:
		return StockLow
	case i.MaxStock != nil && i.Quantity > *i.MaxStock:
		return StockOverstock
	default:
		return StockNormal
	}
}

func (i Inventory) IsLowStock() bool {
	return i.Quantity <= i.MinStock
}

func (i Inventory) Value() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type InventoryMovement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"product_id"`
	ProductName string       `json:"product_name,omitempty"`
	ProductCode string       `json:"product_code,omitempty"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	Reason      string       `json:"reason"`
	UserID      int64        `json:"user_id"`
	UserName    string       `json:"user_name,omitempty"`
	SaleID      *int64       `json:"sale_id,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

type InventoryFilter struct {
	Search      string
	CategoryID  int64
	SupplierID  int64
	LowStock    *bool
	OutOfStock  *bool
	HasStock    *bool
	Location    string
	MinQuantity *int
	MaxQuantity *int
	ListQuery
}

var InventorySorts = []string{"quantity", "product_name", "last_update", "min_stock"}

type MovementFilter struct {
	ProductID int64
	Type      MovementType
	UserID    int64
	From      *time.Time
	To        *time.Time
	ListQuery
}

type InventoryUpdateRequest struct {
	MinStock *int    `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	MaxStock *int    `json:"max_stock,omitempty" validate:"omitempty,gt=0"`
	Location *string `json:"location,omitempty" validate:"omitempty,max=100"`
}

type StockAdjustRequest struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity" validate:"required,ne=0"`
	Reason    string `json:"reason" validate:"required,min=3,max=500"`
}

type MovementRequest struct {
	ProductID int64        `json:"product_id" validate:"required,gt=0"`
	Type      MovementType `json:"type" validate:"required,oneof=IN OUT"`
	Quantity  int          `json:"quantity" validate:"required,gt=0"`
	Reason    string       `json:"reason" validate:"required,min=3,max=500"`
}

type InventoryList struct {
	Data       []Inventory `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

type MovementList struct {
	Data       []InventoryMovement `json:"data"`
	Pagination Pagination          `json:"pagination"`
}

type InventoryStats struct {
	TotalProducts   int                 `json:"total_products"`
	TotalValue      decimal.Decimal     `json:"total_value"`
	LowStockCount   int                 `json:"low_stock_count"`
	OutOfStockCount int                 `json:"out_of_stock_count"`
	AverageStock    decimal.Decimal     `json:"average_stock"`
	TopByValue      []InventoryValue    `json:"top_by_value"`
	LowStock        []Inventory         `json:"low_stock"`
	RecentMovements []InventoryMovement `json:"recent_movements"`
}

type InventoryValue struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	Value       decimal.Decimal `json:"value"`
}

type StockCheck struct {
	ProductID  int64 `json:"product_id"`
	Available  bool  `json:"available"`
	Quantity   int   `json:"quantity"`
	IsLowStock bool  `json:"is_low_stock"`
}
