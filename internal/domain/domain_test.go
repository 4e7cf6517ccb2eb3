package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSaleStatusTransitions(t *testing.T) {
	allowed := map[SaleStatus][]SaleStatus{
		SaleDraft:     {SalePending, SaleCancelled},
		SalePending:   {SaleConfirmed, SaleCancelled},
		SaleConfirmed: {SaleCompleted, SaleCancelled},
		SaleCompleted: {SaleRefunded},
	}
	all := []SaleStatus{SaleDraft, SalePending, SaleConfirmed, SaleCompleted, SaleCancelled, SaleRefunded}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransition(to), "%s -> %s", from, to)
		}
	}

	assert.True(t, SaleDraft.IsEditable())
	assert.True(t, SalePending.IsEditable())
	assert.False(t, SaleConfirmed.IsEditable())
	assert.False(t, SaleCompleted.IsCancellable())
	assert.False(t, SaleCancelled.IsCancellable())
}

func TestEffectOf(t *testing.T) {
	assert.Equal(t, StockDecrement, EffectOf(SalePending, SaleConfirmed))
	assert.Equal(t, StockRestore, EffectOf(SaleConfirmed, SaleCancelled))
	assert.Equal(t, StockUnchanged, EffectOf(SaleDraft, SaleCancelled))
	assert.Equal(t, StockUnchanged, EffectOf(SalePending, SaleCancelled))
	assert.Equal(t, StockRestore, EffectOf(SaleCompleted, SaleRefunded))
	assert.Equal(t, StockUnchanged, EffectOf(SaleConfirmed, SaleCompleted))
}

func TestRecalculate(t *testing.T) {
	sale := Sale{
		Discount: dec("5.00"),
		Tax:      dec("2.50"),
		Items: []SaleItem{
			{ProductID: 1, Quantity: 2, UnitPrice: dec("10.00"), Discount: dec("1.00")},
			{ProductID: 2, Quantity: 3, UnitPrice: dec("4.99")},
		},
	}

	Recalculate(&sale)

	assert.True(t, sale.Items[0].Total.Equal(dec("19.00")))
	assert.True(t, sale.Items[1].Total.Equal(dec("14.97")))
	assert.True(t, sale.Subtotal.Equal(dec("33.97")), sale.Subtotal.String())
	assert.True(t, sale.Total.Equal(dec("31.47")), sale.Total.String())
	assert.Equal(t, 5, sale.TotalQuantity())
	assert.True(t, sale.HasProduct(2))
	assert.False(t, sale.HasProduct(3))
}

func TestDiscountAmount(t *testing.T) {
	amount, err := DiscountAmount(dec("200"), DiscountPercentage, dec("15"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("30")))

	amount, err = DiscountAmount(dec("200"), DiscountFixed, dec("12.5"))
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("12.5")))

	_, err = DiscountAmount(dec("200"), DiscountPercentage, dec("101"))
	assert.Error(t, err)

	_, err = DiscountAmount(dec("200"), DiscountFixed, dec("-1"))
	assert.Error(t, err)
}

func TestSaleNumber(t *testing.T) {
	assert.Equal(t, "VD000042", SaleNumber(42))
	assert.Equal(t, "VD1234567", SaleNumber(1234567))
}

func TestInventoryStatus(t *testing.T) {
	maxStock := 50
	cases := []struct {
		qty  int
		want StockStatus
	}{
		{0, StockOut},
		{5, StockCritical},
		{6, StockLow},
		{10, StockLow},
		{11, StockNormal},
		{50, StockNormal},
		{51, StockOverstock},
	}
	for _, tc := range cases {
		inv := Inventory{Quantity: tc.qty, MinStock: 10, MaxStock: &maxStock}
		assert.Equalf(t, tc.want, inv.Status(), "qty=%d", tc.qty)
	}
}

func TestListQueryNormalize(t *testing.T) {
	q := ListQuery{Page: 0, Limit: 500, SortBy: "password", SortOrder: "sideways"}.
		Normalize(20, "name", "asc", UserSorts...)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, MaxPageLimit, q.Limit)
	assert.Equal(t, "name", q.SortBy)
	assert.Equal(t, "asc", q.SortOrder)

	q = ListQuery{Page: 3, Limit: 10, SortBy: "email", SortOrder: "desc"}.Normalize(20, "name", "asc", UserSorts...)
	assert.Equal(t, 20, q.Offset())
	assert.True(t, q.Descending())

	p := NewPagination(q, 45)
	assert.Equal(t, 5, p.Pages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)
}

func TestPermissions(t *testing.T) {
	assert.True(t, HasPermission(RoleAdmin, PermManageUsers))
	assert.False(t, HasPermission(RoleManager, PermManageUsers))
	assert.True(t, HasPermission(RoleManager, PermViewReports))
	assert.True(t, HasPermission(RoleSalesperson, PermManageSales))
	assert.False(t, HasPermission(RoleSalesperson, PermManageInventory))
	assert.False(t, HasPermission(Role("GUEST"), PermViewProducts))
}

func TestPeriodRange(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 0, 0, 0, time.UTC)

	from, to, prev := PeriodToday.Range(now)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, now, to)
	assert.Equal(t, from.Add(-14*time.Hour), prev)

	from, _, _ = PeriodMonth.Range(now)
	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), from)
}
