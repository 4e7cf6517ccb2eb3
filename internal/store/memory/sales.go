package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

func cloneSale(src domain.Sale) domain.Sale {
	dup := src
	dup.Items = make([]domain.SaleItem, len(src.Items))
	copy(dup.Items, src.Items)
	return dup
}

func (s *Store) saleView(sale domain.Sale) domain.Sale {
	view := cloneSale(sale)
	view.Number = domain.SaleNumber(view.ID)
	if c, ok := s.customers[view.CustomerID]; ok {
		view.CustomerName = c.Name
	}
	if u, ok := s.users[view.UserID]; ok {
		view.UserName = u.Name
	}
	for i := range view.Items {
		if p, ok := s.products[view.Items[i].ProductID]; ok {
			view.Items[i].ProductName = p.Name
			view.Items[i].ProductCode = p.Code
		}
	}
	return view
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[sale.CustomerID]; !ok {
		return nil, store.ErrInvalidInput
	}
	seen := make(map[int64]struct{}, len(sale.Items))
	for _, item := range sale.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, store.ErrInvalidInput
		}
		if _, dup := seen[item.ProductID]; dup {
			return nil, store.ErrConflict
		}
		seen[item.ProductID] = struct{}{}
	}

	now := s.now()
	sale = cloneSale(sale)
	sale.ID = s.next("sale")
	sale.CreatedAt = now
	sale.UpdatedAt = now
	for i := range sale.Items {
		sale.Items[i].ID = s.next("sale_item")
		sale.Items[i].SaleID = sale.ID
	}
	domain.Recalculate(&sale)
	s.sales[sale.ID] = sale

	view := s.saleView(sale)
	return &view, nil
}

func (s *Store) GetSale(_ context.Context, id int64) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.saleView(sale)
	return &view, nil
}

func (s *Store) UpdateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[sale.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !existing.Status.IsEditable() {
		return nil, fmt.Errorf("sale %d is %s: %w", sale.ID, existing.Status, store.ErrConflict)
	}
	if _, ok := s.customers[sale.CustomerID]; !ok {
		return nil, store.ErrInvalidInput
	}

	existing.CustomerID = sale.CustomerID
	existing.Notes = sale.Notes
	existing.Discount = sale.Discount
	existing.Tax = sale.Tax
	existing.UpdatedAt = s.now()
	domain.Recalculate(&existing)
	s.sales[existing.ID] = existing

	view := s.saleView(existing)
	return &view, nil
}

// editSale runs fn against a copy of an editable sale and stores the result
// with recomputed totals.
func (s *Store) editSale(saleID int64, fn func(sale *domain.Sale) error) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.sales[saleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !existing.Status.IsEditable() {
		return nil, fmt.Errorf("sale %d is %s: %w", saleID, existing.Status, store.ErrConflict)
	}

	sale := cloneSale(existing)
	if err := fn(&sale); err != nil {
		return nil, err
	}
	sale.UpdatedAt = s.now()
	domain.Recalculate(&sale)
	s.sales[saleID] = sale

	view := s.saleView(sale)
	return &view, nil
}

func (s *Store) AddSaleItem(_ context.Context, saleID int64, item domain.SaleItem) (*domain.Sale, error) {
	return s.editSale(saleID, func(sale *domain.Sale) error {
		if _, ok := s.products[item.ProductID]; !ok {
			return store.ErrInvalidInput
		}
		if sale.HasProduct(item.ProductID) {
			return store.ErrConflict
		}
		item.ID = s.next("sale_item")
		item.SaleID = saleID
		sale.Items = append(sale.Items, item)
		return nil
	})
}

func (s *Store) UpdateSaleItem(_ context.Context, saleID int64, item domain.SaleItem) (*domain.Sale, error) {
	return s.editSale(saleID, func(sale *domain.Sale) error {
		for i := range sale.Items {
			if sale.Items[i].ID == item.ID {
				sale.Items[i].Quantity = item.Quantity
				sale.Items[i].UnitPrice = item.UnitPrice
				sale.Items[i].Discount = item.Discount
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (s *Store) RemoveSaleItem(_ context.Context, saleID int64, itemID int64) (*domain.Sale, error) {
	return s.editSale(saleID, func(sale *domain.Sale) error {
		for i := range sale.Items {
			if sale.Items[i].ID == itemID {
				sale.Items = append(sale.Items[:i], sale.Items[i+1:]...)
				return nil
			}
		}
		return store.ErrNotFound
	})
}

func (s *Store) TransitionSale(_ context.Context, t domain.SaleTransition) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[t.SaleID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sale.Status != t.From {
		return nil, fmt.Errorf("sale %d is %s, expected %s: %w", sale.ID, sale.Status, t.From, store.ErrConflict)
	}
	if !t.From.CanTransition(t.To) {
		return nil, fmt.Errorf("sale %d cannot move from %s to %s: %w", sale.ID, t.From, t.To, store.ErrInvalidInput)
	}

	number := domain.SaleNumber(sale.ID)
	saleID := sale.ID
	switch t.Stock {
	case domain.StockDecrement:
		// Check every row before touching any so a shortage leaves stock as it was.
		for _, item := range sale.Items {
			inv, ok := s.inventory[item.ProductID]
			if !ok || inv.Quantity < item.Quantity {
				available := 0
				if ok {
					available = inv.Quantity
				}
				return nil, &store.StockShortage{ProductID: item.ProductID, Available: available, Requested: item.Quantity}
			}
		}
		for _, item := range sale.Items {
			s.shiftStock(item.ProductID, -item.Quantity, domain.MovementOut, fmt.Sprintf("sale %s confirmed", number), t, &saleID)
		}
	case domain.StockRestore:
		for _, item := range sale.Items {
			if _, ok := s.inventory[item.ProductID]; !ok {
				return nil, fmt.Errorf("inventory for product %d: %w", item.ProductID, store.ErrNotFound)
			}
		}
		reason := fmt.Sprintf("sale %s %s", number, strings.ToLower(string(t.To)))
		for _, item := range sale.Items {
			s.shiftStock(item.ProductID, item.Quantity, domain.MovementIn, reason, t, &saleID)
		}
	}

	sale.Status = t.To
	sale.UpdatedAt = t.At
	if t.To == domain.SaleCompleted {
		at := t.At
		sale.SaleDate = &at
	}
	s.sales[sale.ID] = sale

	view := s.saleView(sale)
	return &view, nil
}

func (s *Store) shiftStock(productID int64, delta int, kind domain.MovementType, reason string, t domain.SaleTransition, saleID *int64) {
	inv := s.inventory[productID]
	inv.Quantity += delta
	inv.LastUpdate = t.At
	s.inventory[productID] = inv

	qty := delta
	if qty < 0 {
		qty = -qty
	}
	s.movements = append(s.movements, domain.InventoryMovement{
		ID:        s.next("movement"),
		ProductID: productID,
		Type:      kind,
		Quantity:  qty,
		Reason:    reason,
		UserID:    t.UserID,
		SaleID:    saleID,
		CreatedAt: t.At,
	})
}

func (s *Store) matchSale(sale domain.Sale, filter domain.SaleFilter) bool {
	if filter.CustomerID > 0 && sale.CustomerID != filter.CustomerID {
		return false
	}
	if filter.UserID > 0 && sale.UserID != filter.UserID {
		return false
	}
	if filter.Status != "" && sale.Status != filter.Status {
		return false
	}
	date := sale.CreatedAt
	if sale.SaleDate != nil {
		date = *sale.SaleDate
	}
	if filter.From != nil && date.Before(*filter.From) {
		return false
	}
	if filter.To != nil && !date.Before(*filter.To) {
		return false
	}
	if filter.MinTotal != nil && sale.Total.LessThan(*filter.MinTotal) {
		return false
	}
	if filter.MaxTotal != nil && sale.Total.GreaterThan(*filter.MaxTotal) {
		return false
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		customerName := ""
		if c, ok := s.customers[sale.CustomerID]; ok {
			customerName = c.Name
		}
		if !containsFold(sale.Notes, search) && !containsFold(customerName, search) && !containsFold(domain.SaleNumber(sale.ID), search) {
			return false
		}
	}
	return true
}

func (s *Store) ListSales(_ context.Context, filter domain.SaleFilter) ([]domain.Sale, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		if s.matchSale(sale, filter) {
			result = append(result, s.saleView(sale))
		}
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.Sale) int {
		var c int
		switch filter.SortBy {
		case "total":
			c = orderedDecimal(a.Total, b.Total, desc)
		case "status":
			c = ordered(a.Status, b.Status, desc)
		case "sale_date":
			c = orderedTime(saleDateOrCreated(a), saleDateOrCreated(b), desc)
		default:
			c = orderedTime(a.CreatedAt, b.CreatedAt, desc)
		}
		if c == 0 {
			return ordered(a.ID, b.ID, desc)
		}
		return c
	})

	return paginate(result, filter.ListQuery), len(result), nil
}

func (s *Store) SummarizeSales(_ context.Context, filter domain.SaleFilter) (domain.SaleSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SaleSummary{TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero}
	for _, sale := range s.sales {
		if !s.matchSale(sale, filter) {
			continue
		}
		summary.TotalSales++
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.Total)
		summary.TotalQuantity += sale.TotalQuantity()
	}
	if summary.TotalSales > 0 {
		summary.AverageOrderValue = summary.TotalRevenue.Div(decimal.NewFromInt(int64(summary.TotalSales))).Round(2)
	}
	return summary, nil
}

func (s *Store) ListSaleLines(_ context.Context, filter domain.SaleLineFilter) ([]domain.SaleLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]domain.SaleLine, 0)
	for _, sale := range s.sales {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, sale.Status) {
			continue
		}
		if filter.CustomerID > 0 && sale.CustomerID != filter.CustomerID {
			continue
		}
		if filter.UserID > 0 && sale.UserID != filter.UserID {
			continue
		}
		date := saleDateOrCreated(sale)
		if filter.From != nil && date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !date.Before(*filter.To) {
			continue
		}

		customer := s.customers[sale.CustomerID]
		user := s.users[sale.UserID]
		for _, item := range sale.Items {
			product := s.products[item.ProductID]
			if filter.ProductID > 0 && item.ProductID != filter.ProductID {
				continue
			}
			if filter.CategoryID > 0 && product.CategoryID != filter.CategoryID {
				continue
			}
			supplierID := int64(0)
			if product.SupplierID != nil {
				supplierID = *product.SupplierID
			}
			if filter.SupplierID > 0 && supplierID != filter.SupplierID {
				continue
			}
			line := domain.SaleLine{
				SaleID:       sale.ID,
				Status:       sale.Status,
				CreatedAt:    sale.CreatedAt,
				CustomerID:   sale.CustomerID,
				CustomerName: customer.Name,
				CustomerType: customer.Type,
				State:        customer.State,
				UserID:       sale.UserID,
				UserName:     user.Name,
				ProductID:    item.ProductID,
				ProductName:  product.Name,
				ProductCode:  product.Code,
				CategoryID:   product.CategoryID,
				CategoryName: s.categories[product.CategoryID].Name,
				SupplierID:   supplierID,
				Quantity:     item.Quantity,
				UnitPrice:    item.UnitPrice,
				ItemDiscount: item.Discount,
				LineTotal:    item.Total,
				SaleSubtotal: sale.Subtotal,
				SaleDiscount: sale.Discount,
				SaleTax:      sale.Tax,
				SaleTotal:    sale.Total,
			}
			if sale.SaleDate != nil {
				line.SaleDate = *sale.SaleDate
			}
			lines = append(lines, line)
		}
	}

	slices.SortFunc(lines, func(a, b domain.SaleLine) int {
		if c := a.EffectiveDate().Compare(b.EffectiveDate()); c != 0 {
			return c
		}
		if c := ordered(a.SaleID, b.SaleID, false); c != 0 {
			return c
		}
		return ordered(a.ProductID, b.ProductID, false)
	})
	return lines, nil
}

func saleDateOrCreated(sale domain.Sale) time.Time {
	if sale.SaleDate != nil {
		return *sale.SaleDate
	}
	return sale.CreatedAt
}
