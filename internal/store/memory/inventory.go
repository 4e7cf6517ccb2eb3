package memory

import (
	"context"
	"slices"
	"strings"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

func (s *Store) inventoryView(inv domain.Inventory) domain.Inventory {
	if p, ok := s.products[inv.ProductID]; ok {
		inv.ProductName = p.Name
		inv.ProductCode = p.Code
		inv.ProductPrice = p.Price
		inv.CategoryID = p.CategoryID
		inv.SupplierID = p.SupplierID
		inv.IsActive = p.IsActive
		if c, ok := s.categories[p.CategoryID]; ok {
			inv.CategoryName = c.Name
		}
	}
	inv.StockStatus = inv.Status()
	return inv
}

func (s *Store) movementView(m domain.InventoryMovement) domain.InventoryMovement {
	if p, ok := s.products[m.ProductID]; ok {
		m.ProductName = p.Name
		m.ProductCode = p.Code
	}
	if u, ok := s.users[m.UserID]; ok {
		m.UserName = u.Name
	}
	return m
}

func (s *Store) GetInventory(_ context.Context, productID int64) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.inventory[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.inventoryView(inv)
	return &view, nil
}

func (s *Store) UpdateInventory(_ context.Context, inventory domain.Inventory) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.inventory[inventory.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	existing.MinStock = inventory.MinStock
	existing.MaxStock = inventory.MaxStock
	existing.Location = inventory.Location
	existing.LastUpdate = s.now()
	s.inventory[existing.ProductID] = existing

	view := s.inventoryView(existing)
	return &view, nil
}

func (s *Store) ApplyMovement(_ context.Context, movement domain.InventoryMovement, delta int) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.inventory[movement.ProductID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if inv.Quantity+delta < 0 {
		return nil, &store.StockShortage{ProductID: inv.ProductID, Available: inv.Quantity, Requested: -delta}
	}

	now := s.now()
	inv.Quantity += delta
	inv.LastUpdate = now
	s.inventory[inv.ProductID] = inv

	movement.ID = s.next("movement")
	movement.CreatedAt = now
	s.movements = append(s.movements, movement)

	view := s.inventoryView(inv)
	return &view, nil
}

func (s *Store) ListInventory(_ context.Context, filter domain.InventoryFilter) ([]domain.Inventory, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	result := make([]domain.Inventory, 0, len(s.inventory))
	for _, inv := range s.inventory {
		view := s.inventoryView(inv)
		if search != "" && !containsFold(view.ProductName, search) && !containsFold(view.ProductCode, search) {
			continue
		}
		if filter.CategoryID > 0 && view.CategoryID != filter.CategoryID {
			continue
		}
		if filter.SupplierID > 0 && (view.SupplierID == nil || *view.SupplierID != filter.SupplierID) {
			continue
		}
		if !matchBool(filter.LowStock, view.IsLowStock()) {
			continue
		}
		if !matchBool(filter.OutOfStock, view.Quantity == 0) {
			continue
		}
		if !matchBool(filter.HasStock, view.Quantity > 0) {
			continue
		}
		if filter.Location != "" && !containsFold(view.Location, filter.Location) {
			continue
		}
		if filter.MinQuantity != nil && view.Quantity < *filter.MinQuantity {
			continue
		}
		if filter.MaxQuantity != nil && view.Quantity > *filter.MaxQuantity {
			continue
		}
		result = append(result, view)
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.Inventory) int {
		var c int
		switch filter.SortBy {
		case "product_name":
			c = ordered(strings.ToLower(a.ProductName), strings.ToLower(b.ProductName), desc)
		case "last_update":
			c = orderedTime(a.LastUpdate, b.LastUpdate, desc)
		case "min_stock":
			c = ordered(a.MinStock, b.MinStock, desc)
		default:
			c = ordered(a.Quantity, b.Quantity, desc)
		}
		if c == 0 {
			return ordered(a.ProductID, b.ProductID, false)
		}
		return c
	})

	return paginate(result, filter.ListQuery), len(result), nil
}

func (s *Store) ListMovements(_ context.Context, filter domain.MovementFilter) ([]domain.InventoryMovement, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.InventoryMovement, 0, len(s.movements))
	for _, m := range s.movements {
		if filter.ProductID > 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.UserID > 0 && m.UserID != filter.UserID {
			continue
		}
		if filter.From != nil && m.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !m.CreatedAt.Before(*filter.To) {
			continue
		}
		result = append(result, s.movementView(m))
	}

	slices.SortFunc(result, func(a, b domain.InventoryMovement) int {
		if c := orderedTime(a.CreatedAt, b.CreatedAt, true); c != 0 {
			return c
		}
		return ordered(a.ID, b.ID, true)
	})

	return paginate(result, filter.ListQuery), len(result), nil
}
