package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comercialpereira/backend/internal/domain"
)

var now = time.Date(2026, 6, 30, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(saleID int64, customerID int64, productID int64, categoryID int64, qty int, lineTotal string, saleTotal string, at time.Time) domain.SaleLine {
	return domain.SaleLine{
		SaleID:       saleID,
		Status:       domain.SaleCompleted,
		SaleDate:     at,
		CustomerID:   customerID,
		CustomerName: "Cliente",
		UserID:       1,
		UserName:     "Vendedor",
		ProductID:    productID,
		ProductName:  "Produto",
		CategoryID:   categoryID,
		CategoryName: "Categoria",
		Quantity:     qty,
		LineTotal:    dec(lineTotal),
		SaleSubtotal: dec(saleTotal),
		SaleDiscount: decimal.Zero,
		SaleTax:      decimal.Zero,
		SaleTotal:    dec(saleTotal),
	}
}

func TestSummarizeCountsEachSaleOnce(t *testing.T) {
	day := now.AddDate(0, 0, -1)
	lines := []domain.SaleLine{
		line(1, 10, 100, 1, 2, "20", "50", day),
		line(1, 10, 101, 2, 4, "30", "50", day),
		line(2, 11, 100, 1, 1, "10", "10", day),
	}

	totals := Summarize(lines)
	assert.Equal(t, 2, totals.SalesCount)
	assert.True(t, totals.Revenue.Equal(dec("60")))
	assert.Equal(t, 7, totals.Units)
	assert.True(t, totals.AverageOrderValue().Equal(dec("30")))

	top := TopProducts(lines, 1)
	require.Len(t, top, 1)
	assert.Equal(t, int64(101), top[0].ProductID)
	assert.Equal(t, 4, top[0].Quantity)

	customers := TopCustomers(lines, 0)
	require.Len(t, customers, 2)
	assert.Equal(t, int64(10), customers[0].CustomerID)

	cats := ByCategory(lines)
	require.Len(t, cats, 2)
	assert.Equal(t, int64(1), cats[0].CategoryID)
	assert.Equal(t, 2, cats[0].SalesCount)

	days := ByDay(lines)
	require.Len(t, days, 1)
	assert.Equal(t, 2, days[0].SalesCount)
}

func TestGrowth(t *testing.T) {
	assert.True(t, Growth(dec("150"), dec("100")).Equal(dec("50")))
	assert.True(t, Growth(dec("50"), dec("100")).Equal(dec("-50")))
	assert.True(t, Growth(dec("10"), decimal.Zero).Equal(dec("100")))
	assert.True(t, Growth(decimal.Zero, decimal.Zero).IsZero())
}

func TestCustomerInsightNew(t *testing.T) {
	insight := CustomerInsight(nil, now)
	assert.Equal(t, domain.SegmentNew, insight.Segment)
	assert.Equal(t, 0, insight.Score)
	assert.Nil(t, insight.LastPurchase)
}

func TestCustomerInsightVIP(t *testing.T) {
	lines := []domain.SaleLine{
		line(1, 10, 100, 1, 1, "4000", "4000", now.AddDate(0, 0, -20)),
		line(2, 10, 100, 1, 1, "4000", "4000", now.AddDate(0, 0, -10)),
		line(3, 10, 101, 2, 5, "4000", "4000", now.AddDate(0, 0, -2)),
	}

	insight := CustomerInsight(lines, now)
	assert.Equal(t, 3, insight.PurchaseCount)
	assert.True(t, insight.TotalSpent.Equal(dec("12000")))
	assert.Equal(t, 3.0, insight.Frequency)
	assert.Equal(t, domain.SegmentVIP, insight.Segment)
	require.NotNil(t, insight.DaysSinceLast)
	assert.Equal(t, 2, *insight.DaysSinceLast)
	require.NotEmpty(t, insight.FavouriteCategories)
	assert.Equal(t, int64(2), insight.FavouriteCategories[0].CategoryID)
	// 40 + 30 + 6 + 9.93
	assert.Equal(t, 86, insight.Score)
}

func TestSegmentRules(t *testing.T) {
	assert.Equal(t, domain.SegmentInactive, Segment(5, 91, 50000, 5))
	assert.Equal(t, domain.SegmentFrequent, Segment(3, 10, 500, 1.5))
	assert.Equal(t, domain.SegmentRegular, Segment(1, 10, 500, 1))
	assert.Equal(t, domain.SegmentFrequent, Segment(4, 10, 20000, 2))
}

func TestScoreCapped(t *testing.T) {
	assert.Equal(t, 100, Score(1e9, 100, 100, 0))
	assert.Equal(t, 0, Score(0, 0, 0, 0))
	assert.Equal(t, 2+0, Score(0, 0, 1, 400))
}

func TestFrequency(t *testing.T) {
	assert.Equal(t, 2.0, Frequency(2, 10))
	assert.Equal(t, 1.0, Frequency(3, 90))
	assert.Equal(t, 0.0, Frequency(0, 90))
}

func TestSegmentCounts(t *testing.T) {
	lines := []domain.SaleLine{
		line(1, 10, 100, 1, 1, "100", "100", now.AddDate(0, 0, -200)),
		line(2, 11, 100, 1, 1, "100", "100", now.AddDate(0, 0, -5)),
	}
	counts := SegmentCounts(lines, []int64{10, 11, 12}, now)
	assert.Equal(t, 1, counts[domain.SegmentNew])
	assert.Equal(t, 1, counts[domain.SegmentInactive])
	assert.Equal(t, 1, counts[domain.SegmentRegular])
}

func TestInventoryAggregates(t *testing.T) {
	rows := []domain.Inventory{
		{ProductID: 1, ProductName: "A", ProductPrice: dec("10"), Quantity: 0, MinStock: 10, Location: "A1", CategoryName: "X"},
		{ProductID: 2, ProductName: "B", ProductPrice: dec("5"), Quantity: 4, MinStock: 10, Location: "A1", CategoryName: "X"},
		{ProductID: 3, ProductName: "C", ProductPrice: dec("2"), Quantity: 100, MinStock: 10, Location: "B2", CategoryName: "Y"},
	}

	assert.True(t, TotalValue(rows).Equal(dec("220")))
	assert.True(t, AverageStock(rows).Equal(dec("34.67")))

	low, out := CountStatus(rows)
	assert.Equal(t, 2, low)
	assert.Equal(t, 1, out)

	top := TopByValue(rows, 1)
	require.Len(t, top, 1)
	assert.Equal(t, int64(3), top[0].ProductID)

	alerts := LowStock(rows, 0)
	require.Len(t, alerts, 2)
	assert.Equal(t, int64(1), alerts[0].ProductID)
	assert.Equal(t, domain.StockOut, alerts[0].StockStatus)

	byLocation := GroupValue(rows, func(i domain.Inventory) string { return i.Location })
	require.Len(t, byLocation, 2)
	assert.Equal(t, "B2", byLocation[0].Name)

	analysis := LowStockAnalysis(rows)
	assert.Equal(t, 2, analysis.LowStockCount)
	assert.Equal(t, 1, analysis.CriticalCount)
	assert.Equal(t, 1, analysis.OutOfStockCount)
	// (10-0)*10 + (10-4)*5
	assert.True(t, analysis.ValueAtRisk.Equal(dec("130")))
}
