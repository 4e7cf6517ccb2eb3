package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CustomerType string

const (
	CustomerRetail    CustomerType = "RETAIL"
	CustomerWholesale CustomerType = "WHOLESALE"
)

type Segment string

const (
	SegmentNew      Segment = "NEW"
	SegmentInactive Segment = "INACTIVE"
	SegmentVIP      Segment = "VIP"
	SegmentFrequent Segment = "FREQUENT"
	SegmentRegular  Segment = "REGULAR"
)

type Customer struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Document     string       `json:"document,omitempty"`
	Type         CustomerType `json:"type"`
	Address      string       `json:"address,omitempty"`
	Neighborhood string       `json:"neighborhood,omitempty"`
	City         string       `json:"city,omitempty"`
	State        string       `json:"state,omitempty"`
	ZipCode      string       `json:"zip_code,omitempty"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type CustomerFilter struct {
	Search      string
	Type        CustomerType
	City        string
	State       string
	IsActive    *bool
	HasEmail    *bool
	HasDocument *bool
	ListQuery
}

var CustomerSorts = []string{"name", "created_at", "updated_at", "city", "type"}

type CustomerCreateRequest struct {
	Name         string       `json:"name" validate:"required,min=2,max=255"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone        string       `json:"phone,omitempty" validate:"omitempty,br_phone"`
	Document     string       `json:"document,omitempty" validate:"omitempty,max=18"`
	Type         CustomerType `json:"type" validate:"omitempty,oneof=RETAIL WHOLESALE"`
	Address      string       `json:"address,omitempty" validate:"omitempty,min=5,max=255"`
	Neighborhood string       `json:"neighborhood,omitempty" validate:"omitempty,max=100"`
	City         string       `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	State        string       `json:"state,omitempty" validate:"omitempty,br_state"`
	ZipCode      string       `json:"zip_code,omitempty" validate:"omitempty,br_zip"`
	IsActive     *bool        `json:"is_active,omitempty"`
}

type CustomerUpdateRequest struct {
	Name         *string       `json:"name,omitempty" validate:"omitempty,min=2,max=255"`
	Email        *string       `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone        *string       `json:"phone,omitempty" validate:"omitempty,br_phone"`
	Document     *string       `json:"document,omitempty" validate:"omitempty,max=18"`
	Type         *CustomerType `json:"type,omitempty" validate:"omitempty,oneof=RETAIL WHOLESALE"`
	Address      *string       `json:"address,omitempty" validate:"omitempty,min=5,max=255"`
	Neighborhood *string       `json:"neighborhood,omitempty" validate:"omitempty,max=100"`
	City         *string       `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	State        *string       `json:"state,omitempty" validate:"omitempty,br_state"`
	ZipCode      *string       `json:"zip_code,omitempty" validate:"omitempty,br_zip"`
	IsActive     *bool         `json:"is_active,omitempty"`
}

type CustomerList struct {
	Data       []Customer `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type CategoryPreference struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Quantity     int             `json:"quantity"`
	Spent        decimal.Decimal `json:"spent"`
}

type CustomerInsight struct {
	TotalSpent          decimal.Decimal      `json:"total_spent"`
	PurchaseCount       int                  `json:"purchase_count"`
	AverageOrderValue   decimal.Decimal      `json:"average_order_value"`
	FirstPurchase       *time.Time           `json:"first_purchase,omitempty"`
	LastPurchase        *time.Time           `json:"last_purchase,omitempty"`
	DaysSinceLast       *int                 `json:"days_since_last_purchase,omitempty"`
	Frequency           float64              `json:"frequency"`
	FavouriteCategories []CategoryPreference `json:"favourite_categories"`
	Segment             Segment              `json:"segment"`
	Score               int                  `json:"score"`
}

type CustomerWithStats struct {
	Customer
	Stats       CustomerInsight `json:"stats"`
	RecentSales []Sale          `json:"recent_sales"`
}

type DocumentValidation struct {
	IsValid           bool   `json:"is_valid"`
	Type              string `json:"type,omitempty"`
	Document          string `json:"document"`
	FormattedDocument string `json:"formatted_document,omitempty"`
	Error             string `json:"error,omitempty"`
}

type DocumentValidationRequest struct {
	Document string `json:"document" validate:"required"`
}
