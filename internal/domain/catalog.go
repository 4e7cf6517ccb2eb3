package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	MinProductPrice = decimal.RequireFromString("0.01")
	MaxProductPrice = decimal.RequireFromString("999999.99")
)

const (
	DefaultMinStock  = 10
	MaxBulkImport    = 100
	MaxBulkSuppliers = 100
)

// CNAENames lists the activity codes a category may be tagged with.
var CNAENames = map[string]string{
	"46.49-4-99": "Equipamentos Domésticos",
	"46.86-9-02": "Embalagens",
	"47.72-5-00": "Cosméticos e Higiene",
	"46.41-9-02": "Cama, Mesa e Banho",
	"46.47-8-01": "Papelaria",
	"46.72-9-00": "Ferragens",
	"46.73-7-00": "Material Elétrico",
	"46.41-9-03": "Armarinho",
}

func ValidCNAE(code string) bool {
	_, ok := CNAENames[code]
	return ok
}

type Category struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description,omitempty"`
	CNAE               string    `json:"cnae,omitempty"`
	IsActive           bool      `json:"is_active"`
	ProductCount       int       `json:"product_count"`
	ActiveProductCount int       `json:"active_product_count"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type CategoryFilter struct {
	Search   string
	IsActive *bool
	HasCNAE  *bool
	ListQuery
}

var CategorySorts = []string{"name", "created_at", "product_count"}

type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	CNAE        string `json:"cnae,omitempty" validate:"omitempty,cnae"`
	IsActive    *bool  `json:"is_active,omitempty"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
	CNAE        *string `json:"cnae,omitempty" validate:"omitempty,cnae"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

type CategoryDetails struct {
	Category
	SalesCount   int             `json:"sales_count,omitempty"`
	Revenue      decimal.Decimal `json:"revenue,omitempty"`
	UnitsSold    int             `json:"units_sold,omitempty"`
	TopProducts  []ProductRank   `json:"top_products,omitempty"`
	CNAEActivity string          `json:"cnae_activity,omitempty"`
}

type CategoryList struct {
	Data       []Category `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type CategoryStats struct {
	Total              int               `json:"total"`
	Active             int               `json:"active"`
	Inactive           int               `json:"inactive"`
	WithCNAE           int               `json:"with_cnae"`
	WithoutCNAE        int               `json:"without_cnae"`
	ProductsByCategory map[string]int    `json:"products_by_category"`
	TopCategories      []CategoryRevenue `json:"top_categories"`
}

type CategoryRevenue struct {
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Revenue      decimal.Decimal `json:"revenue"`
	UnitsSold    int             `json:"units_sold"`
	SalesCount   int             `json:"sales_count"`
}

type Supplier struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	ZipCode       string    `json:"zip_code,omitempty"`
	CNPJ          string    `json:"cnpj,omitempty"`
	Website       string    `json:"website,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	IsActive      bool      `json:"is_active"`
	ProductCount  int       `json:"product_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SupplierFilter struct {
	Search   string
	IsActive *bool
	State    string
	HasCNPJ  *bool
	ListQuery
}

var SupplierSorts = []string{"name", "city", "state", "created_at", "updated_at"}

type SupplierCreateRequest struct {
	Name          string `json:"name" validate:"required,min=3,max=255"`
	ContactPerson string `json:"contact_person,omitempty" validate:"omitempty,min=3,max=100,person_name"`
	Email         string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,br_phone"`
	Address       string `json:"address,omitempty" validate:"omitempty,min=10,max=500"`
	City          string `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	State         string `json:"state,omitempty" validate:"omitempty,br_state"`
	ZipCode       string `json:"zip_code,omitempty" validate:"omitempty,br_zip"`
	CNPJ          string `json:"cnpj,omitempty"`
	Website       string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Notes         string `json:"notes,omitempty" validate:"max=1000"`
	IsActive      *bool  `json:"is_active,omitempty"`
}

type SupplierUpdateRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=3,max=255"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,min=3,max=100,person_name"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone         *string `json:"phone,omitempty" validate:"omitempty,br_phone"`
	Address       *string `json:"address,omitempty" validate:"omitempty,min=10,max=500"`
	City          *string `json:"city,omitempty" validate:"omitempty,min=2,max=100"`
	State         *string `json:"state,omitempty" validate:"omitempty,br_state"`
	ZipCode       *string `json:"zip_code,omitempty" validate:"omitempty,br_zip"`
	CNPJ          *string `json:"cnpj,omitempty"`
	Website       *string `json:"website,omitempty" validate:"omitempty,url,max=255"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

type SupplierBulkStatusRequest struct {
	IDs      []int64 `json:"ids" validate:"required,min=1,max=100,dive,gt=0"`
	IsActive *bool   `json:"is_active" validate:"required"`
}

type SupplierBulkStatusResponse struct {
	Updated []int64          `json:"updated"`
	Failed  map[int64]string `json:"failed,omitempty"`
}

type SupplierList struct {
	Data       []Supplier `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type SupplierWithProducts struct {
	Supplier
	Products []Product `json:"products"`
}

type SupplierStats struct {
	Total         int            `json:"total"`
	Active        int            `json:"active"`
	Inactive      int            `json:"inactive"`
	WithCNPJ      int            `json:"with_cnpj"`
	ByState       map[string]int `json:"by_state"`
	TopByProducts []Supplier     `json:"top_by_products"`
}

type SupplierPerformance struct {
	SupplierID     int64           `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name"`
	ProductCount   int             `json:"product_count"`
	ActiveProducts int             `json:"active_products"`
	UnitsSold      int             `json:"units_sold"`
	Revenue        decimal.Decimal `json:"revenue"`
	SalesCount     int             `json:"sales_count"`
	LastSaleDate   *time.Time      `json:"last_sale_date,omitempty"`
	TopProducts    []ProductRank   `json:"top_products"`
}

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Code         string          `json:"code"`
	Barcode      string          `json:"barcode,omitempty"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name,omitempty"`
	SupplierID   *int64          `json:"supplier_id,omitempty"`
	SupplierName string          `json:"supplier_name,omitempty"`
	ImageURL     string          `json:"image_url,omitempty"`
	ImageKey     string          `json:"-"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Inventory    *Inventory      `json:"inventory,omitempty"`
}

// Quantity returns the stock on hand, zero when no inventory row exists.
func (p Product) Quantity() int {
	if p.Inventory == nil {
		return 0
	}
	return p.Inventory.Quantity
}

type ProductFilter struct {
	Search     string
	CategoryID int64
	SupplierID int64
	IsActive   *bool
	HasStock   *bool
	LowStock   *bool
	NoStock    *bool
	HasBarcode *bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	ListQuery
}

var ProductSorts = []string{"name", "code", "price", "created_at", "updated_at", "stock"}

type ProductCreateRequest struct {
	Name         string          `json:"name" validate:"required,min=3,max=255"`
	Description  string          `json:"description,omitempty" validate:"omitempty,min=10,max=1000"`
	Price        decimal.Decimal `json:"price"`
	Code         string          `json:"code" validate:"required,product_code"`
	Barcode      string          `json:"barcode,omitempty" validate:"omitempty,barcode"`
	CategoryID   int64           `json:"category_id" validate:"required,gt=0"`
	SupplierID   *int64          `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	IsActive     *bool           `json:"is_active,omitempty"`
	InitialStock int             `json:"initial_stock,omitempty" validate:"gte=0"`
	MinStock     *int            `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	MaxStock     *int            `json:"max_stock,omitempty" validate:"omitempty,gt=0"`
	Location     string          `json:"location,omitempty" validate:"omitempty,min=2,max=100"`
}

type ProductUpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=3,max=255"`
	Description *string          `json:"description,omitempty" validate:"omitempty,min=10,max=1000"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Code        *string          `json:"code,omitempty" validate:"omitempty,product_code"`
	Barcode     *string          `json:"barcode,omitempty" validate:"omitempty,barcode"`
	CategoryID  *int64           `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	SupplierID  *int64           `json:"supplier_id,omitempty" validate:"omitempty,gt=0"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

type ProductList struct {
	Data       []Product      `json:"data"`
	Pagination Pagination     `json:"pagination"`
	Summary    ProductSummary `json:"summary"`
}

type ProductSummary struct {
	TotalProducts      int             `json:"total_products"`
	ActiveProducts     int             `json:"active_products"`
	InactiveProducts   int             `json:"inactive_products"`
	LowStockProducts   int             `json:"low_stock_products"`
	OutOfStockProducts int             `json:"out_of_stock_products"`
	TotalValue         decimal.Decimal `json:"total_value"`
}

type ProductRank struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
	SalesCount  int             `json:"sales_count"`
}

type ProductStats struct {
	ProductSummary
	AveragePrice       decimal.Decimal `json:"average_price"`
	TopSelling         []ProductRank   `json:"top_selling"`
	LowStock           []Inventory     `json:"low_stock"`
	ProductsByCategory map[string]int  `json:"products_by_category"`
	ProductsBySupplier map[string]int  `json:"products_by_supplier"`
	RecentProducts     []Product       `json:"recent_products"`
}

type BulkImportRequest struct {
	Products []ProductCreateRequest `json:"products" validate:"required,min=1,max=100"`
}

type BulkImportResult struct {
	Created []Product         `json:"created"`
	Errors  []BulkImportError `json:"errors"`
}

type BulkImportError struct {
	Index   int    `json:"index"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CodeAvailability struct {
	Code      string `json:"code"`
	Available bool   `json:"available"`
}

type ProductSelectOption struct {
	Value         int64           `json:"value"`
	Label         string          `json:"label"`
	Code          string          `json:"code"`
	Price         decimal.Decimal `json:"price"`
	HasStock      bool            `json:"has_stock"`
	StockQuantity int             `json:"stock_quantity"`
}
