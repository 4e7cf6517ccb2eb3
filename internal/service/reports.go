package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/domain"
)

const (
	defaultReportDays = 30
	maxReportDays     = 366
	reportTopLimit    = 10
)

// reportRange defaults to the last 30 days and rejects inverted or overly
// long windows.
func (s *Service) reportRange(from time.Time, to time.Time) (domain.ReportRange, error) {
	if to.IsZero() {
		to = s.now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultReportDays)
	}
	if !from.Before(to) {
		return domain.ReportRange{}, fieldError("from", "Must be before to")
	}
	if to.Sub(from) > maxReportDays*24*time.Hour {
		return domain.ReportRange{}, fieldError("from", "Report range must not exceed one year")
	}
	return domain.ReportRange{From: from.UTC(), To: to.UTC()}, nil
}

func (s *Service) SalesReport(ctx context.Context, from time.Time, to time.Time) (domain.SalesReport, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.SalesReport{}, err
	}
	rng, err := s.reportRange(from, to)
	if err != nil {
		return domain.SalesReport{}, err
	}
	lines, err := s.completedLines(ctx, rng.From, rng.To)
	if err != nil {
		return domain.SalesReport{}, err
	}

	totals := analytics.Summarize(lines)
	return domain.SalesReport{
		ReportRange:       rng,
		SalesCount:        totals.SalesCount,
		Revenue:           totals.Revenue,
		AverageOrderValue: totals.AverageOrderValue(),
		UnitsSold:         totals.Units,
		ByDay:             analytics.ByDay(lines),
		BySeller:          analytics.BySeller(lines),
		ByCategory:        analytics.ByCategory(lines),
		TopProducts:       analytics.TopProducts(lines, reportTopLimit),
		TopCustomers:      analytics.TopCustomers(lines, reportTopLimit),
	}, nil
}

func (s *Service) ProductReport(ctx context.Context, from time.Time, to time.Time) (domain.ProductReport, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.ProductReport{}, err
	}
	rng, err := s.reportRange(from, to)
	if err != nil {
		return domain.ProductReport{}, err
	}
	products, _, err := s.repo.ListProducts(ctx, domain.ProductFilter{
		ListQuery: domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return domain.ProductReport{}, err
	}
	lines, err := s.completedLines(ctx, rng.From, rng.To)
	if err != nil {
		return domain.ProductReport{}, err
	}

	sold := make(map[int64]domain.ProductRank)
	for _, rank := range analytics.TopProducts(lines, 0) {
		sold[rank.ProductID] = rank
	}
	rows := make([]domain.ProductReportRow, 0, len(products))
	for _, p := range products {
		row := domain.ProductReportRow{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductCode:  p.Code,
			CategoryName: p.CategoryName,
			Price:        p.Price,
			Quantity:     p.Quantity(),
			StockStatus:  domain.StockOut,
			Revenue:      decimal.Zero,
			IsActive:     p.IsActive,
		}
		if p.Inventory != nil {
			row.StockStatus = p.Inventory.Status()
		}
		if rank, ok := sold[p.ID]; ok {
			row.UnitsSold = rank.Quantity
			row.Revenue = rank.Revenue
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Revenue.Equal(rows[j].Revenue) {
			return rows[i].Revenue.GreaterThan(rows[j].Revenue)
		}
		return rows[i].ProductName < rows[j].ProductName
	})
	return domain.ProductReport{ReportRange: rng, Products: rows}, nil
}

// FinancialReport splits completed revenue into gross, discounts and taxes.
// Net revenue is gross minus discounts. Refunds in the range are reported
// separately since refunded sales are no longer completed.
func (s *Service) FinancialReport(ctx context.Context, from time.Time, to time.Time) (domain.FinancialReport, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.FinancialReport{}, err
	}
	rng, err := s.reportRange(from, to)
	if err != nil {
		return domain.FinancialReport{}, err
	}
	lines, err := s.completedLines(ctx, rng.From, rng.To)
	if err != nil {
		return domain.FinancialReport{}, err
	}
	refundedLines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{
		From:     &rng.From,
		To:       &rng.To,
		Statuses: []domain.SaleStatus{domain.SaleRefunded},
	})
	if err != nil {
		return domain.FinancialReport{}, err
	}

	report := domain.FinancialReport{
		ReportRange:  rng,
		GrossRevenue: decimal.Zero,
		Discounts:    decimal.Zero,
		Taxes:        decimal.Zero,
		Refunded:     decimal.Zero,
		CashFlow:     analytics.ByDay(lines),
	}
	for _, sale := range analytics.Sales(lines) {
		report.SalesCount++
		report.GrossRevenue = report.GrossRevenue.Add(sale.Subtotal)
		report.Discounts = report.Discounts.Add(sale.Discount)
		report.Taxes = report.Taxes.Add(sale.Tax)
	}
	for _, sale := range analytics.Sales(refundedLines) {
		report.Refunded = report.Refunded.Add(sale.Total)
	}
	report.NetRevenue = report.GrossRevenue.Sub(report.Discounts)
	return report, nil
}

func (s *Service) CustomerReport(ctx context.Context, from time.Time, to time.Time) (domain.CustomerReport, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.CustomerReport{}, err
	}
	rng, err := s.reportRange(from, to)
	if err != nil {
		return domain.CustomerReport{}, err
	}
	customers, _, err := s.repo.ListCustomers(ctx, domain.CustomerFilter{
		IsActive:  boolPtr(true),
		ListQuery: domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return domain.CustomerReport{}, err
	}
	lines, err := s.completedLines(ctx, rng.From, rng.To)
	if err != nil {
		return domain.CustomerReport{}, err
	}

	report := domain.CustomerReport{
		ReportRange: rng,
		ByType: map[domain.CustomerType]int{
			domain.CustomerRetail:    0,
			domain.CustomerWholesale: 0,
		},
		ByState:      make(map[string]int),
		TopCustomers: analytics.TopCustomers(lines, reportTopLimit),
	}
	known := make([]int64, 0, len(customers))
	for _, c := range customers {
		known = append(known, c.ID)
		report.ByType[c.Type]++
		state := c.State
		if state == "" {
			state = "N/A"
		}
		report.ByState[state]++
	}
	report.Segments = analytics.SegmentCounts(lines, known, s.now())
	return report, nil
}

func (s *Service) InventoryReport(ctx context.Context, from time.Time, to time.Time) (domain.InventoryReport, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.InventoryReport{}, err
	}
	rng, err := s.reportRange(from, to)
	if err != nil {
		return domain.InventoryReport{}, err
	}
	rows, err := s.activeInventory(ctx)
	if err != nil {
		return domain.InventoryReport{}, err
	}
	movements, _, err := s.repo.ListMovements(ctx, domain.MovementFilter{
		From:      &rng.From,
		To:        &rng.To,
		ListQuery: domain.ListQuery{SortBy: "created_at", SortOrder: "desc", Limit: -1},
	})
	if err != nil {
		return domain.InventoryReport{}, err
	}

	return domain.InventoryReport{
		ReportRange: rng,
		TotalValue:  analytics.TotalValue(rows),
		ByCategory: analytics.GroupValue(rows, func(inv domain.Inventory) string {
			return inv.CategoryName
		}),
		ByLocation: analytics.GroupValue(rows, func(inv domain.Inventory) string {
			if inv.Location == "" {
				return "N/A"
			}
			return inv.Location
		}),
		Movements: movements,
	}, nil
}
