package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
)

// AlertWindowDays is how far back sales are read to estimate consumption.
const AlertWindowDays = 30

// StockAlerts builds one alert per low or empty product. lines should hold the
// completed sales of the last AlertWindowDays. Alerts come back HIGH first,
// then by the fewest days of stock left.
func StockAlerts(rows []domain.Inventory, lines []domain.SaleLine, now time.Time) []domain.StockAlert {
	sold := make(map[int64]int)
	for _, line := range lines {
		sold[line.ProductID] += line.Quantity
	}

	out := make([]domain.StockAlert, 0)
	for _, row := range rows {
		if !row.IsLowStock() {
			continue
		}
		units := sold[row.ProductID]
		avg := decimal.NewFromInt(int64(units)).Div(decimal.NewFromInt(AlertWindowDays))
		days := domain.NoSalesDays
		if avg.IsPositive() {
			days = int(decimal.NewFromInt(int64(row.Quantity)).Div(avg).Floor().IntPart())
		}
		alert := domain.StockAlert{
			ProductID:         row.ProductID,
			ProductName:       row.ProductName,
			ProductCode:       row.ProductCode,
			CurrentStock:      row.Quantity,
			MinStock:          row.MinStock,
			SoldInWindow:      units,
			AverageDailySales: avg.Round(2),
			DaysUntilOut:      days,
			CreatedAt:         now,
		}
		if row.Quantity <= 0 {
			alert.ID = fmt.Sprintf("out-%d", row.ProductID)
			alert.Type = domain.AlertOutOfStock
			alert.Priority = domain.PriorityHigh
			alert.DaysUntilOut = 0
			alert.Title = "Out of stock: " + row.ProductName
			alert.Message = fmt.Sprintf("Product %s has no units left", row.ProductCode)
		} else {
			alert.ID = fmt.Sprintf("low-%d", row.ProductID)
			alert.Type = domain.AlertLowStock
			alert.Priority = lowStockPriority(days)
			alert.Title = "Low stock: " + row.ProductName
			alert.Message = fmt.Sprintf("%d units left, minimum is %d", row.Quantity, row.MinStock)
		}
		out = append(out, alert)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank(); ri != rj {
			return ri < rj
		}
		if out[i].DaysUntilOut != out[j].DaysUntilOut {
			return out[i].DaysUntilOut < out[j].DaysUntilOut
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

func lowStockPriority(daysLeft int) domain.AlertPriority {
	switch {
	case daysLeft <= 7:
		return domain.PriorityHigh
	case daysLeft <= 15:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// FilterAlerts keeps alerts of the given types and priority, then truncates.
// Empty types keep every type; an empty priority keeps every priority.
func FilterAlerts(alerts []domain.StockAlert, types []domain.AlertType, priority domain.AlertPriority, limit int) []domain.StockAlert {
	wanted := make(map[domain.AlertType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	out := make([]domain.StockAlert, 0, len(alerts))
	for _, alert := range alerts {
		if len(wanted) > 0 && !wanted[alert.Type] {
			continue
		}
		if priority != "" && alert.Priority != priority {
			continue
		}
		out = append(out, alert)
	}
	return truncate(out, limit)
}

// GroupSales buckets sales by UTC day, ISO week starting Monday, or month,
// in ascending order.
func GroupSales(lines []domain.SaleLine, by domain.ChartGranularity) []domain.SalesChartPoint {
	buckets := make(map[string]*domain.SalesChartPoint)
	keys := make([]string, 0)
	for _, sale := range Sales(lines) {
		key := bucketStart(sale.Date, by).Format("2006-01-02")
		point, ok := buckets[key]
		if !ok {
			point = &domain.SalesChartPoint{Date: key, Revenue: decimal.Zero}
			buckets[key] = point
			keys = append(keys, key)
		}
		point.Sales++
		point.Revenue = point.Revenue.Add(sale.Total)
		point.Units += sale.Units
	}
	sort.Strings(keys)

	out := make([]domain.SalesChartPoint, 0, len(keys))
	for _, key := range keys {
		out = append(out, *buckets[key])
	}
	return out
}

func bucketStart(t time.Time, by domain.ChartGranularity) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch by {
	case domain.GroupByWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.GroupByMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}
