package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SaleStatus string

const (
	SaleDraft     SaleStatus = "DRAFT"
	SalePending   SaleStatus = "PENDING"
	SaleConfirmed SaleStatus = "CONFIRMED"
	SaleCompleted SaleStatus = "COMPLETED"
	SaleCancelled SaleStatus = "CANCELLED"
	SaleRefunded  SaleStatus = "REFUNDED"
)

var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleDraft:     {SalePending, SaleCancelled},
	SalePending:   {SaleConfirmed, SaleCancelled},
	SaleConfirmed: {SaleCompleted, SaleCancelled},
	SaleCompleted: {SaleRefunded},
}

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleDraft, SalePending, SaleConfirmed, SaleCompleted, SaleCancelled, SaleRefunded:
		return true
	}
	return false
}

func (s SaleStatus) CanTransition(to SaleStatus) bool {
	for _, next := range saleTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsEditable reports whether header fields and items may still change.
func (s SaleStatus) IsEditable() bool {
	return s == SaleDraft || s == SalePending
}

func (s SaleStatus) IsCancellable() bool {
	return s.CanTransition(SaleCancelled)
}

// StockEffect describes what a transition does to inventory.
type StockEffect int

const (
	StockUnchanged StockEffect = iota
	StockDecrement
	StockRestore
)

// EffectOf returns the inventory effect of moving a sale from one status to
// another. Only confirmed stock is ever given back.
func EffectOf(from SaleStatus, to SaleStatus) StockEffect {
	switch {
	case to == SaleConfirmed:
		return StockDecrement
	case to == SaleCancelled && from == SaleConfirmed:
		return StockRestore
	case to == SaleRefunded:
		return StockRestore
	default:
		return StockUnchanged
	}
}

var (
	MinSaleTotal = decimal.RequireFromString("0.01")
	MaxSaleTotal = decimal.RequireFromString("999999.99")
)

const (
	MinItemQuantity     = 1
	MaxItemQuantity     = 10000
	MaxDiscountPercent  = 100
	MaxSaleNotesLength  = 1000
	MaxSaleReasonLength = 200
	DefaultSaleLimit    = 10
)

func SaleNumber(id int64) string {
	return fmt.Sprintf("VD%06d", id)
}

type Sale struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name,omitempty"`
	UserID       int64           `json:"user_id"`
	UserName     string          `json:"user_name,omitempty"`
	Status       SaleStatus      `json:"status"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
	Notes        string          `json:"notes,omitempty"`
	SaleDate     *time.Time      `json:"sale_date,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Items        []SaleItem      `json:"items,omitempty"`
}

type SaleItem struct {
	ID          int64           `json:"id"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	ProductCode string          `json:"product_code,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Discount    decimal.Decimal `json:"discount"`
	Total       decimal.Decimal `json:"total"`
}

func ItemTotal(qty int, unitPrice decimal.Decimal, discount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty))).Sub(discount).Round(2)
}

// Recalculate refreshes every item total, the subtotal and the sale total.
func Recalculate(sale *Sale) {
	subtotal := decimal.Zero
	for i := range sale.Items {
		item := &sale.Items[i]
		item.Total = ItemTotal(item.Quantity, item.UnitPrice, item.Discount)
		subtotal = subtotal.Add(item.Total)
	}
	sale.Subtotal = subtotal
	sale.Total = subtotal.Sub(sale.Discount).Add(sale.Tax).Round(2)
}

func (s Sale) TotalQuantity() int {
	qty := 0
	for _, item := range s.Items {
		qty += item.Quantity
	}
	return qty
}

func (s Sale) HasProduct(productID int64) bool {
	for _, item := range s.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// DiscountAmount converts a discount expressed as a percentage or a fixed
// value into money off the given subtotal.
func DiscountAmount(subtotal decimal.Decimal, kind DiscountType, value decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("discount must not be negative")
	}
	switch kind {
	case DiscountPercentage:
		if value.GreaterThan(decimal.NewFromInt(MaxDiscountPercent)) {
			return decimal.Zero, fmt.Errorf("percentage discount must be between 0 and 100")
		}
		return subtotal.Mul(value).Div(decimal.NewFromInt(100)).Round(2), nil
	case DiscountFixed:
		return value, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown discount type %q", kind)
	}
}

// SaleTransition is a status change applied atomically with its stock effect.
type SaleTransition struct {
	SaleID int64
	From   SaleStatus
	To     SaleStatus
	Stock  StockEffect
	UserID int64
	Reason string
	At     time.Time
}

type SaleFilter struct {
	CustomerID int64
	UserID     int64
	Status     SaleStatus
	From       *time.Time
	To         *time.Time
	MinTotal   *decimal.Decimal
	MaxTotal   *decimal.Decimal
	Search     string
	ListQuery
}

var SaleSorts = []string{"sale_date", "total", "status", "created_at"}

type SaleSummary struct {
	TotalSales        int             `json:"total_sales"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	TotalQuantity     int             `json:"total_quantity"`
}

type SaleList struct {
	Data       []Sale      `json:"data"`
	Pagination Pagination  `json:"pagination"`
	Summary    SaleSummary `json:"summary"`
}

type SaleItemInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int              `json:"quantity" validate:"required,min=1,max=10000"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Discount  decimal.Decimal  `json:"discount"`
}

type SaleCreateRequest struct {
	CustomerID int64           `json:"customer_id" validate:"required,gt=0"`
	Notes      string          `json:"notes,omitempty" validate:"max=1000"`
	Discount   decimal.Decimal `json:"discount"`
	Tax        decimal.Decimal `json:"tax"`
	Items      []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

type SaleUpdateRequest struct {
	CustomerID *int64           `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Notes      *string          `json:"notes,omitempty" validate:"omitempty,max=1000"`
	Discount   *decimal.Decimal `json:"discount,omitempty"`
	Tax        *decimal.Decimal `json:"tax,omitempty"`
}

type SaleItemUpdateRequest struct {
	Quantity  *int             `json:"quantity,omitempty" validate:"omitempty,min=1,max=10000"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Discount  *decimal.Decimal `json:"discount,omitempty"`
}

type SaleCancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=200"`
}

type SaleRefundRequest struct {
	Reason     string `json:"reason" validate:"required,min=3,max=200"`
	ManagerPIN string `json:"manager_pin" validate:"required"`
}

type StockValidationRequest struct {
	Items []SaleItemInput `json:"items" validate:"required,min=1,dive"`
}

type StockValidationItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	IsValid     bool   `json:"is_valid"`
	Shortfall   int    `json:"shortfall"`
	Error       string `json:"error,omitempty"`
}

type StockValidationSummary struct {
	TotalItems   int    `json:"total_items"`
	ValidItems   int    `json:"valid_items"`
	InvalidItems int    `json:"invalid_items"`
	CanProceed   bool   `json:"can_proceed"`
	Message      string `json:"message"`
}

type StockValidation struct {
	Items   []StockValidationItem  `json:"items"`
	Summary StockValidationSummary `json:"summary"`
}

// SaleLine is one sale item flattened with its sale, product and customer
// attributes. Analytics aggregate over these rows.
type SaleLine struct {
	SaleID       int64
	Status       SaleStatus
	SaleDate     time.Time
	CreatedAt    time.Time
	CustomerID   int64
	CustomerName string
	CustomerType CustomerType
	State        string
	UserID       int64
	UserName     string
	ProductID    int64
	ProductName  string
	ProductCode  string
	CategoryID   int64
	CategoryName string
	SupplierID   int64
	Quantity     int
	UnitPrice    decimal.Decimal
	ItemDiscount decimal.Decimal
	LineTotal    decimal.Decimal
	SaleSubtotal decimal.Decimal
	SaleDiscount decimal.Decimal
	SaleTax      decimal.Decimal
	SaleTotal    decimal.Decimal
}

// SaleLineFilter selects sale lines by the date the sale was completed, or
// created when it has not been completed yet.
type SaleLineFilter struct {
	From       *time.Time
	To         *time.Time
	Statuses   []SaleStatus
	CustomerID int64
	UserID     int64
	ProductID  int64
	SupplierID int64
	CategoryID int64
}

func (l SaleLine) EffectiveDate() time.Time {
	if !l.SaleDate.IsZero() {
		return l.SaleDate
	}
	return l.CreatedAt
}
