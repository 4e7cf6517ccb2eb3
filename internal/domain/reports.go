package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Period string

const (
	PeriodToday   Period = "today"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
	PeriodYear    Period = "year"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodQuarter, PeriodYear:
		return true
	}
	return false
}

// Range returns the window covering the period that ends at now and the
// window of equal length right before it.
func (p Period) Range(now time.Time) (from time.Time, to time.Time, prevFrom time.Time) {
	now = now.UTC()
	to = now
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch p {
	case PeriodWeek:
		from = dayStart.AddDate(0, 0, -6)
	case PeriodMonth:
		from = dayStart.AddDate(0, -1, 0)
	case PeriodQuarter:
		from = dayStart.AddDate(0, -3, 0)
	case PeriodYear:
		from = dayStart.AddDate(-1, 0, 0)
	default:
		from = dayStart
	}
	prevFrom = from.Add(-to.Sub(from))
	return from, to, prevFrom
}

type MetricGrowth struct {
	Current  decimal.Decimal `json:"current"`
	Previous decimal.Decimal `json:"previous"`
	Growth   decimal.Decimal `json:"growth"`
}

type CustomerRank struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Purchases    int             `json:"purchases"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
}

type SellerPerformance struct {
	UserID            int64           `json:"user_id"`
	UserName          string          `json:"user_name"`
	SalesCount        int             `json:"sales_count"`
	Revenue           decimal.Decimal `json:"revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	UnitsSold         int             `json:"units_sold"`
}

type DailyTotal struct {
	Date       string          `json:"date"`
	SalesCount int             `json:"sales_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	Discounts  decimal.Decimal `json:"discounts"`
	Taxes      decimal.Decimal `json:"taxes"`
	Net        decimal.Decimal `json:"net"`
}

type DashboardOverview struct {
	Period         Period          `json:"period"`
	From           time.Time       `json:"from"`
	To             time.Time       `json:"to"`
	SalesCount     MetricGrowth    `json:"sales_count"`
	Revenue        MetricGrowth    `json:"revenue"`
	AverageTicket  MetricGrowth    `json:"average_ticket"`
	TotalProducts  int             `json:"total_products"`
	ActiveProducts int             `json:"active_products"`
	LowStock       int             `json:"low_stock"`
	OutOfStock     int             `json:"out_of_stock"`
	TotalCustomers int             `json:"total_customers"`
	NewCustomers   int             `json:"new_customers"`
	TopCustomers   []CustomerRank  `json:"top_customers"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

type LowStockAnalysis struct {
	LowStockCount   int             `json:"low_stock_count"`
	CriticalCount   int             `json:"critical_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	ValueAtRisk     decimal.Decimal `json:"value_at_risk"`
	Items           []Inventory     `json:"items"`
}

type ReportType string

const (
	ReportSales     ReportType = "sales"
	ReportProducts  ReportType = "products"
	ReportFinancial ReportType = "financial"
	ReportCustomers ReportType = "customers"
	ReportInventory ReportType = "inventory"
)

type ReportRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type SalesReport struct {
	ReportRange
	SalesCount        int                 `json:"sales_count"`
	Revenue           decimal.Decimal     `json:"revenue"`
	AverageOrderValue decimal.Decimal     `json:"average_order_value"`
	UnitsSold         int                 `json:"units_sold"`
	ByDay             []DailyTotal        `json:"by_day"`
	BySeller          []SellerPerformance `json:"by_seller"`
	ByCategory        []CategoryRevenue   `json:"by_category"`
	TopProducts       []ProductRank       `json:"top_products"`
	TopCustomers      []CustomerRank      `json:"top_customers"`
}

type ProductReportRow struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductCode  string          `json:"product_code"`
	CategoryName string          `json:"category_name"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	StockStatus  StockStatus     `json:"stock_status"`
	UnitsSold    int             `json:"units_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	IsActive     bool            `json:"is_active"`
}

type ProductReport struct {
	ReportRange
	Products []ProductReportRow `json:"products"`
}

type FinancialReport struct {
	ReportRange
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
	Discounts    decimal.Decimal `json:"discounts"`
	Taxes        decimal.Decimal `json:"taxes"`
	NetRevenue   decimal.Decimal `json:"net_revenue"`
	Refunded     decimal.Decimal `json:"refunded"`
	SalesCount   int             `json:"sales_count"`
	CashFlow     []DailyTotal    `json:"cash_flow"`
}

type CustomerReport struct {
	ReportRange
	ByType       map[CustomerType]int `json:"by_type"`
	ByState      map[string]int       `json:"by_state"`
	TopCustomers []CustomerRank       `json:"top_customers"`
	Segments     map[Segment]int      `json:"segments"`
}

type StockValueGroup struct {
	Name     string          `json:"name"`
	Products int             `json:"products"`
	Quantity int             `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

type InventoryReport struct {
	ReportRange
	TotalValue decimal.Decimal     `json:"total_value"`
	ByCategory []StockValueGroup   `json:"by_category"`
	ByLocation []StockValueGroup   `json:"by_location"`
	Movements  []InventoryMovement `json:"movements"`
}

type AlertType string

const (
	AlertLowStock   AlertType = "LOW_STOCK"
	AlertOutOfStock AlertType = "OUT_OF_STOCK"
)

func (t AlertType) Valid() bool {
	return t == AlertLowStock || t == AlertOutOfStock
}

type AlertPriority string

const (
	PriorityHigh   AlertPriority = "HIGH"
	PriorityMedium AlertPriority = "MEDIUM"
	PriorityLow    AlertPriority = "LOW"
)

func (p AlertPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities with HIGH first.
func (p AlertPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// StockAlert flags a product at or below its minimum stock. DaysUntilOut is
// NoSalesDays when the product sold nothing over the alert window.
type StockAlert struct {
	ID                string          `json:"id"`
	Type              AlertType       `json:"type"`
	Priority          AlertPriority   `json:"priority"`
	Title             string          `json:"title"`
	Message           string          `json:"message"`
	ProductID         int64           `json:"product_id"`
	ProductName       string          `json:"product_name"`
	ProductCode       string          `json:"product_code"`
	CurrentStock      int             `json:"current_stock"`
	MinStock          int             `json:"min_stock"`
	SoldInWindow      int             `json:"sold_last_30_days"`
	AverageDailySales decimal.Decimal `json:"average_daily_sales"`
	DaysUntilOut      int             `json:"days_until_out_of_stock"`
	CreatedAt         time.Time       `json:"created_at"`
}

const NoSalesDays = 999

type AlertQuery struct {
	Types    []AlertType
	Priority AlertPriority
	Limit    int
}

type ChartGranularity string

const (
	GroupByDay   ChartGranularity = "day"
	GroupByWeek  ChartGranularity = "week"
	GroupByMonth ChartGranularity = "month"
)

func (g ChartGranularity) Valid() bool {
	switch g {
	case GroupByDay, GroupByWeek, GroupByMonth:
		return true
	}
	return false
}

// SalesChartPoint is one bucket of completed sales. Date is the first day of
// the bucket: the day itself, the Monday of the week or the first of the month.
type SalesChartPoint struct {
	Date    string          `json:"date"`
	Sales   int             `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
	Units   int             `json:"units"`
}

type SalesChartQuery struct {
	Period  Period
	GroupBy ChartGranularity
	UserID  int64
}
