package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
)

func TotalValue(rows []domain.Inventory) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Value())
	}
	return total
}

func AverageStock(rows []domain.Inventory) decimal.Decimal {
	if len(rows) == 0 {
		return decimal.Zero
	}
	sum := 0
	for _, row := range rows {
		sum += row.Quantity
	}
	return decimal.NewFromInt(int64(sum)).Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
}

func TopByValue(rows []domain.Inventory, limit int) []domain.InventoryValue {
	out := make([]domain.InventoryValue, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.InventoryValue{
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			ProductCode: row.ProductCode,
			Quantity:    row.Quantity,
			Value:       row.Value(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, limit)
}

// LowStock returns rows at or below their minimum, lowest quantity first.
func LowStock(rows []domain.Inventory, limit int) []domain.Inventory {
	out := make([]domain.Inventory, 0)
	for _, row := range rows {
		if row.IsLowStock() {
			row.StockStatus = row.Status()
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity < out[j].Quantity
		}
		return out[i].ProductID < out[j].ProductID
	})
	return truncate(out, limit)
}

func CountStatus(rows []domain.Inventory) (low int, out int) {
	for _, row := range rows {
		if row.Quantity == 0 {
			out++
		}
		if row.IsLowStock() {
			low++
		}
	}
	return low, out
}

// GroupValue sums quantity and value per key, highest value first.
func GroupValue(rows []domain.Inventory, key func(domain.Inventory) string) []domain.StockValueGroup {
	groups := make(map[string]*domain.StockValueGroup)
	for _, row := range rows {
		name := key(row)
		group, ok := groups[name]
		if !ok {
			group = &domain.StockValueGroup{Name: name, Value: decimal.Zero}
			groups[name] = group
		}
		group.Products++
		group.Quantity += row.Quantity
		group.Value = group.Value.Add(row.Value())
	}

	out := make([]domain.StockValueGroup, 0, len(groups))
	for _, group := range groups {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Value.Equal(out[j].Value) {
			return out[i].Value.GreaterThan(out[j].Value)
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func LowStockAnalysis(rows []domain.Inventory) domain.LowStockAnalysis {
	analysis := domain.LowStockAnalysis{ValueAtRisk: decimal.Zero}
	for _, row := range rows {
		switch row.Status() {
		case domain.StockOut:
			analysis.OutOfStockCount++
		case domain.StockCritical:
			analysis.CriticalCount++
		}
		if row.IsLowStock() {
			analysis.LowStockCount++
			deficit := row.MinStock - row.Quantity
			if deficit > 0 {
				analysis.ValueAtRisk = analysis.ValueAtRisk.Add(row.ProductPrice.Mul(decimal.NewFromInt(int64(deficit))))
			}
		}
	}
	analysis.Items = LowStock(rows, 0)
	return analysis
}
