package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/domain"
)

const (
	dashboardTopLimit  = 5
	defaultTopProducts = 10
	defaultAlertLimit  = 10
	maxAlertLimit      = 50
)

var nonDraftStatuses = []domain.SaleStatus{
	domain.SalePending, domain.SaleConfirmed, domain.SaleCompleted, domain.SaleCancelled, domain.SaleRefunded,
}

func lineRevenue(lines []domain.SaleLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}
	return total
}

func parsePeriod(p domain.Period) (domain.Period, error) {
	if p == "" {
		return domain.PeriodMonth, nil
	}
	if !p.Valid() {
		return "", fieldError("period", "Must be one of: today week month quarter year")
	}
	return p, nil
}

func (s *Service) completedLines(ctx context.Context, from time.Time, to time.Time) ([]domain.SaleLine, error) {
	return s.repo.ListSaleLines(ctx, domain.SaleLineFilter{
		From:     &from,
		To:       &to,
		Statuses: []domain.SaleStatus{domain.SaleCompleted},
	})
}

// Overview compares the period ending now with the window of the same
// length right before it.
func (s *Service) Overview(ctx context.Context, period domain.Period) (domain.DashboardOverview, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.DashboardOverview{}, err
	}
	period, err := parsePeriod(period)
	if err != nil {
		return domain.DashboardOverview{}, err
	}

	return cached(ctx, s, "overview:"+string(period), func() (domain.DashboardOverview, error) {
		from, to, prevFrom := period.Range(s.now())
		current, err := s.completedLines(ctx, from, to)
		if err != nil {
			return domain.DashboardOverview{}, err
		}
		previous, err := s.completedLines(ctx, prevFrom, from)
		if err != nil {
			return domain.DashboardOverview{}, err
		}
		cur, prev := analytics.Summarize(current), analytics.Summarize(previous)

		out := domain.DashboardOverview{
			Period:        period,
			From:          from,
			To:            to,
			SalesCount:    analytics.NewGrowth(decimal.NewFromInt(int64(cur.SalesCount)), decimal.NewFromInt(int64(prev.SalesCount))),
			Revenue:       analytics.NewGrowth(cur.Revenue, prev.Revenue),
			AverageTicket: analytics.NewGrowth(cur.AverageOrderValue(), prev.AverageOrderValue()),
			TopCustomers:  analytics.TopCustomers(current, dashboardTopLimit),
			GeneratedAt:   s.now(),
		}

		_, totalProducts, err := s.repo.ListProducts(ctx, domain.ProductFilter{ListQuery: domain.ListQuery{Page: 1, Limit: 1}})
		if err != nil {
			return domain.DashboardOverview{}, err
		}
		rows, err := s.activeInventory(ctx)
		if err != nil {
			return domain.DashboardOverview{}, err
		}
		out.TotalProducts = totalProducts
		out.ActiveProducts = len(rows)
		out.LowStock, out.OutOfStock = analytics.CountStatus(rows)

		customers, total, err := s.repo.ListCustomers(ctx, domain.CustomerFilter{
			ListQuery: domain.ListQuery{SortBy: "created_at", SortOrder: "desc", Limit: -1},
		})
		if err != nil {
			return domain.DashboardOverview{}, err
		}
		out.TotalCustomers = total
		for _, c := range customers {
			if !c.CreatedAt.Before(from) && c.CreatedAt.Before(to) {
				out.NewCustomers++
			}
		}

		placed, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{From: &from, To: &to, Statuses: nonDraftStatuses})
		if err != nil {
			return domain.DashboardOverview{}, err
		}
		out.ConversionRate = conversionRate(analytics.Sales(placed))
		return out, nil
	})
}

// conversionRate is the share of non-draft sales that reached COMPLETED, as
// a percentage.
func conversionRate(sales []analytics.SaleTotals) decimal.Decimal {
	if len(sales) == 0 {
		return decimal.Zero
	}
	completed := 0
	for _, sale := range sales {
		if sale.Status == domain.SaleCompleted {
			completed++
		}
	}
	return decimal.NewFromInt(int64(completed)).
		Div(decimal.NewFromInt(int64(len(sales)))).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

func (s *Service) TopProducts(ctx context.Context, period domain.Period, limit int) ([]domain.ProductRank, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return nil, err
	}
	period, err := parsePeriod(period)
	if err != nil {
		return nil, err
	}
	limit = limitOr(limit, defaultTopProducts)
	key := "products:" + string(period) + ":" + strconv.Itoa(limit)
	return cached(ctx, s, key, func() ([]domain.ProductRank, error) {
		from, to, _ := period.Range(s.now())
		lines, err := s.completedLines(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return analytics.TopProducts(lines, limit), nil
	})
}

func (s *Service) UserPerformance(ctx context.Context, period domain.Period) ([]domain.SellerPerformance, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return nil, err
	}
	period, err := parsePeriod(period)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, "users:"+string(period), func() ([]domain.SellerPerformance, error) {
		from, to, _ := period.Range(s.now())
		lines, err := s.completedLines(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return analytics.BySeller(lines), nil
	})
}

func (s *Service) CategorySales(ctx context.Context, period domain.Period) ([]domain.CategoryRevenue, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return nil, err
	}
	period, err := parsePeriod(period)
	if err != nil {
		return nil, err
	}
	return cached(ctx, s, "categories:"+string(period), func() ([]domain.CategoryRevenue, error) {
		from, to, _ := period.Range(s.now())
		lines, err := s.completedLines(ctx, from, to)
		if err != nil {
			return nil, err
		}
		return analytics.ByCategory(lines), nil
	})
}

func (s *Service) LowStockAnalysis(ctx context.Context) (domain.LowStockAnalysis, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.LowStockAnalysis{}, err
	}
	return cached(ctx, s, "inventory", func() (domain.LowStockAnalysis, error) {
		rows, err := s.activeInventory(ctx)
		if err != nil {
			return domain.LowStockAnalysis{}, err
		}
		return analytics.LowStockAnalysis(rows), nil
	})
}

// StockAlerts ranks low and empty products by urgency, estimating days of
// stock left from the completed sales of the last 30 days.
func (s *Service) StockAlerts(ctx context.Context, q domain.AlertQuery) ([]domain.StockAlert, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return nil, err
	}
	for i, t := range q.Types {
		if !t.Valid() {
			return nil, fieldError(fmt.Sprintf("types[%d]", i), "Must be one of: LOW_STOCK OUT_OF_STOCK")
		}
	}
	if q.Priority != "" && !q.Priority.Valid() {
		return nil, fieldError("priority", "Must be one of: HIGH MEDIUM LOW")
	}
	if q.Limit == 0 {
		q.Limit = defaultAlertLimit
	}
	if q.Limit < 1 || q.Limit > maxAlertLimit {
		return nil, fieldError("limit", fmt.Sprintf("Must be between 1 and %d", maxAlertLimit))
	}

	types := make([]string, 0, len(q.Types))
	for _, t := range q.Types {
		types = append(types, string(t))
	}
	key := fmt.Sprintf("alerts:%s:%s:%d", strings.Join(types, ","), q.Priority, q.Limit)
	return cached(ctx, s, key, func() ([]domain.StockAlert, error) {
		rows, err := s.activeInventory(ctx)
		if err != nil {
			return nil, err
		}
		now := s.now()
		lines, err := s.completedLines(ctx, now.AddDate(0, 0, -analytics.AlertWindowDays), now)
		if err != nil {
			return nil, err
		}
		alerts := analytics.StockAlerts(rows, lines, now)
		return analytics.FilterAlerts(alerts, q.Types, q.Priority, q.Limit), nil
	})
}

// SalesChart buckets the period's completed sales by day, week or month,
// optionally for a single seller.
func (s *Service) SalesChart(ctx context.Context, q domain.SalesChartQuery) ([]domain.SalesChartPoint, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return nil, err
	}
	period, err := parsePeriod(q.Period)
	if err != nil {
		return nil, err
	}
	groupBy := q.GroupBy
	if groupBy == "" {
		groupBy = domain.GroupByDay
	}
	if !groupBy.Valid() {
		return nil, fieldError("groupBy", "Must be one of: day week month")
	}
	if q.UserID < 0 {
		return nil, fieldError("userId", "Must be a positive integer")
	}

	key := fmt.Sprintf("charts:sales:%s:%s:%d", period, groupBy, q.UserID)
	return cached(ctx, s, key, func() ([]domain.SalesChartPoint, error) {
		from, to, _ := period.Range(s.now())
		lines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{
			From:     &from,
			To:       &to,
			Statuses: []domain.SaleStatus{domain.SaleCompleted},
			UserID:   q.UserID,
		})
		if err != nil {
			return nil, err
		}
		return analytics.GroupSales(lines, groupBy), nil
	})
}
