// Package analytics aggregates flattened sale lines and inventory rows into
// the figures shown on dashboards, reports and customer profiles.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
)

const (
	InactiveAfterDays  = 90
	VIPMinimumSpent    = 10000
	FavouriteLimit     = 5
	frequencyWindowDay = 30
)

var hundred = decimal.NewFromInt(100)

// SaleTotals is one sale rebuilt from its lines.
type SaleTotals struct {
	SaleID       int64
	Status       domain.SaleStatus
	Date         time.Time
	CustomerID   int64
	CustomerName string
	CustomerType domain.CustomerType
	State        string
	UserID       int64
	UserName     string
	Units        int
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// Sales collapses lines into one entry per sale ordered by date.
func Sales(lines []domain.SaleLine) []SaleTotals {
	index := make(map[int64]int)
	out := make([]SaleTotals, 0)
	for _, line := range lines {
		i, ok := index[line.SaleID]
		if !ok {
			index[line.SaleID] = len(out)
			out = append(out, SaleTotals{
				SaleID:       line.SaleID,
				Status:       line.Status,
				Date:         line.EffectiveDate(),
				CustomerID:   line.CustomerID,
				CustomerName: line.CustomerName,
				CustomerType: line.CustomerType,
				State:        line.State,
				UserID:       line.UserID,
				UserName:     line.UserName,
				Subtotal:     line.SaleSubtotal,
				Discount:     line.SaleDiscount,
				Tax:          line.SaleTax,
				Total:        line.SaleTotal,
			})
			i = len(out) - 1
		}
		out[i].Units += line.Quantity
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Date.Equal(out[b].Date) {
			return out[a].SaleID < out[b].SaleID
		}
		return out[a].Date.Before(out[b].Date)
	})
	return out
}

type Totals struct {
	SalesCount int
	Revenue    decimal.Decimal
	Discounts  decimal.Decimal
	Taxes      decimal.Decimal
	Units      int
}

func (t Totals) AverageOrderValue() decimal.Decimal {
	if t.SalesCount == 0 {
		return decimal.Zero
	}
	return t.Revenue.Div(decimal.NewFromInt(int64(t.SalesCount))).Round(2)
}

func Summarize(lines []domain.SaleLine) Totals {
	t := Totals{Revenue: decimal.Zero, Discounts: decimal.Zero, Taxes: decimal.Zero}
	for _, sale := range Sales(lines) {
		t.SalesCount++
		t.Revenue = t.Revenue.Add(sale.Total)
		t.Discounts = t.Discounts.Add(sale.Discount)
		t.Taxes = t.Taxes.Add(sale.Tax)
		t.Units += sale.Units
	}
	return t
}

// Growth returns the percentage change from previous to current, rounded to
// two places. A zero baseline yields 100 when current is positive.
func Growth(current decimal.Decimal, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		if current.IsPositive() {
			return hundred
		}
		return decimal.Zero
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2)
}

func NewGrowth(current decimal.Decimal, previous decimal.Decimal) domain.MetricGrowth {
	return domain.MetricGrowth{Current: current, Previous: previous, Growth: Growth(current, previous)}
}

func TopProducts(lines []domain.SaleLine, limit int) []domain.ProductRank {
	byProduct := make(map[int64]*domain.ProductRank)
	seen := make(map[int64]map[int64]struct{})
	for _, line := range lines {
		rank, ok := byProduct[line.ProductID]
		if !ok {
			rank = &domain.ProductRank{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				ProductCode: line.ProductCode,
				Revenue:     decimal.Zero,
			}
			byProduct[line.ProductID] = rank
			seen[line.ProductID] = make(map[int64]struct{})
		}
		rank.Quantity += line.Quantity
		rank.Revenue = rank.Revenue.Add(line.LineTotal)
		if _, dup := seen[line.ProductID][line.SaleID]; !dup {
			seen[line.ProductID][line.SaleID] = struct{}{}
			rank.SalesCount++
		}
	}

	out := make([]domain.ProductRank, 0, len(byProduct))
	for _, rank := range byProduct {
		out = append(out, *rank)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, limit)
}

func TopCustomers(lines []domain.SaleLine, limit int) []domain.CustomerRank {
	byCustomer := make(map[int64]*domain.CustomerRank)
	for _, sale := range Sales(lines) {
		rank, ok := byCustomer[sale.CustomerID]
		if !ok {
			rank = &domain.CustomerRank{CustomerID: sale.CustomerID, CustomerName: sale.CustomerName, TotalSpent: decimal.Zero}
			byCustomer[sale.CustomerID] = rank
		}
		rank.Purchases++
		rank.TotalSpent = rank.TotalSpent.Add(sale.Total)
	}

	out := make([]domain.CustomerRank, 0, len(byCustomer))
	for _, rank := range byCustomer {
		out = append(out, *rank)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalSpent.Equal(out[j].TotalSpent) {
			return out[i].TotalSpent.GreaterThan(out[j].TotalSpent)
		}
		return out[i].CustomerID < out[j].CustomerID
	})
	return truncate(out, limit)
}

func BySeller(lines []domain.SaleLine) []domain.SellerPerformance {
	bySeller := make(map[int64]*domain.SellerPerformance)
	for _, sale := range Sales(lines) {
		perf, ok := bySeller[sale.UserID]
		if !ok {
			perf = &domain.SellerPerformance{UserID: sale.UserID, UserName: sale.UserName, Revenue: decimal.Zero}
			bySeller[sale.UserID] = perf
		}
		perf.SalesCount++
		perf.Revenue = perf.Revenue.Add(sale.Total)
		perf.UnitsSold += sale.Units
	}

	out := make([]domain.SellerPerformance, 0, len(bySeller))
	for _, perf := range bySeller {
		perf.AverageOrderValue = perf.Revenue.Div(decimal.NewFromInt(int64(perf.SalesCount))).Round(2)
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func ByCategory(lines []domain.SaleLine) []domain.CategoryRevenue {
	byCategory := make(map[int64]*domain.CategoryRevenue)
	seen := make(map[int64]map[int64]struct{})
	for _, line := range lines {
		cat, ok := byCategory[line.CategoryID]
		if !ok {
			cat = &domain.CategoryRevenue{CategoryID: line.CategoryID, CategoryName: line.CategoryName, Revenue: decimal.Zero}
			byCategory[line.CategoryID] = cat
			seen[line.CategoryID] = make(map[int64]struct{})
		}
		cat.Revenue = cat.Revenue.Add(line.LineTotal)
		cat.UnitsSold += line.Quantity
		if _, dup := seen[line.CategoryID][line.SaleID]; !dup {
			seen[line.CategoryID][line.SaleID] = struct{}{}
			cat.SalesCount++
		}
	}

	out := make([]domain.CategoryRevenue, 0, len(byCategory))
	for _, cat := range byCategory {
		out = append(out, *cat)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Revenue.Equal(out[j].Revenue) {
			return out[i].Revenue.GreaterThan(out[j].Revenue)
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out
}

// ByDay buckets sales by UTC calendar day in ascending order.
func ByDay(lines []domain.SaleLine) []domain.DailyTotal {
	byDay := make(map[string]*domain.DailyTotal)
	days := make([]string, 0)
	for _, sale := range Sales(lines) {
		key := sale.Date.UTC().Format("2006-01-02")
		day, ok := byDay[key]
		if !ok {
			day = &domain.DailyTotal{Date: key, Revenue: decimal.Zero, Discounts: decimal.Zero, Taxes: decimal.Zero, Net: decimal.Zero}
			byDay[key] = day
			days = append(days, key)
		}
		day.SalesCount++
		day.Revenue = day.Revenue.Add(sale.Subtotal)
		day.Discounts = day.Discounts.Add(sale.Discount)
		day.Taxes = day.Taxes.Add(sale.Tax)
		day.Net = day.Net.Add(sale.Total)
	}
	sort.Strings(days)

	out := make([]domain.DailyTotal, 0, len(days))
	for _, key := range days {
		out = append(out, *byDay[key])
	}
	return out
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
