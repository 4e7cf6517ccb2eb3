package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

const (
	defaultInventoryLimit = 20
	defaultMovementLimit  = 20
	inventoryStatsLimit   = 10
)

func (s *Service) ListInventory(ctx context.Context, filter domain.InventoryFilter) (domain.InventoryList, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.InventoryList{}, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Location = strings.TrimSpace(filter.Location)
	if filter.MinQuantity != nil && filter.MaxQuantity != nil && *filter.MinQuantity > *filter.MaxQuantity {
		return domain.InventoryList{}, fieldError("min_quantity", "Must not exceed max_quantity")
	}
	filter.ListQuery = filter.ListQuery.Normalize(defaultInventoryLimit, "quantity", "asc", domain.InventorySorts...)

	rows, total, err := s.repo.ListInventory(ctx, filter)
	if err != nil {
		return domain.InventoryList{}, err
	}
	return domain.InventoryList{Data: rows, Pagination: domain.NewPagination(filter.ListQuery, total)}, nil
}

func (s *Service) GetInventory(ctx context.Context, productID int64) (domain.Inventory, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.Inventory{}, err
	}
	inv, err := s.repo.GetInventory(ctx, productID)
	if err != nil {
		return domain.Inventory{}, storeError(err, "inventory", "")
	}
	return *inv, nil
}

func (s *Service) UpdateInventory(ctx context.Context, productID int64, req domain.InventoryUpdateRequest) (domain.Inventory, error) {
	if _, err := s.authorize(ctx, domain.PermManageInventory); err != nil {
		return domain.Inventory{}, err
	}
	trimPtr(req.Location)
	if err := validateRequest(req); err != nil {
		return domain.Inventory{}, err
	}

	existing, err := s.repo.GetInventory(ctx, productID)
	if err != nil {
		return domain.Inventory{}, storeError(err, "inventory", "")
	}
	updated := *existing
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	if req.MaxStock != nil {
		updated.MaxStock = req.MaxStock
	}
	if req.Location != nil {
		updated.Location = *req.Location
	}
	if updated.MaxStock != nil && *updated.MaxStock <= updated.MinStock {
		return domain.Inventory{}, fieldError("max_stock", "Must be greater than min_stock")
	}

	saved, err := s.repo.UpdateInventory(ctx, updated)
	if err != nil {
		return domain.Inventory{}, storeError(err, "inventory", "")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "inventory_update", "inventory", productID,
		fmt.Sprintf("min=%d,location=%s", saved.MinStock, saved.Location))
	return *saved, nil
}

// AdjustStock shifts the quantity by a signed amount and records an
// ADJUSTMENT movement holding its absolute value.
func (s *Service) AdjustStock(ctx context.Context, req domain.StockAdjustRequest) (domain.Inventory, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.Inventory{}, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validateRequest(req); err != nil {
		return domain.Inventory{}, err
	}
	if err := s.requireActiveProduct(ctx, req.ProductID); err != nil {
		return domain.Inventory{}, err
	}

	units := req.Quantity
	if units < 0 {
		units = -units
	}
	inv, err := s.repo.ApplyMovement(ctx, domain.InventoryMovement{
		ProductID: req.ProductID,
		Type:      domain.MovementAdjustment,
		Quantity:  units,
		Reason:    req.Reason,
		UserID:    actor.UserID,
	}, req.Quantity)
	if errors.Is(err, store.ErrInsufficientStock) {
		return domain.Inventory{}, businessError(CodeBusiness, "adjustment would make stock negative")
	}
	if err != nil {
		return domain.Inventory{}, storeError(err, "inventory", "")
	}

	s.metrics.StockMoved(string(domain.MovementAdjustment), units)
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "stock_adjust", "inventory", req.ProductID,
		fmt.Sprintf("delta=%d,quantity=%d,reason=%s", req.Quantity, inv.Quantity, req.Reason))
	return *inv, nil
}

// ProcessMovement records a manual IN or OUT movement together with the
// quantity change.
func (s *Service) ProcessMovement(ctx context.Context, req domain.MovementRequest) (domain.Inventory, error) {
	actor, err := s.authorize(ctx, domain.PermManageInventory)
	if err != nil {
		return domain.Inventory{}, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	req.Type = domain.MovementType(strings.ToUpper(string(req.Type)))
	if err := validateRequest(req); err != nil {
		return domain.Inventory{}, err
	}
	if err := s.requireActiveProduct(ctx, req.ProductID); err != nil {
		return domain.Inventory{}, err
	}

	delta := req.Quantity
	if req.Type == domain.MovementOut {
		delta = -delta
	}
	inv, err := s.repo.ApplyMovement(ctx, domain.InventoryMovement{
		ProductID: req.ProductID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		UserID:    actor.UserID,
	}, delta)
	if err != nil {
		return domain.Inventory{}, storeError(err, "inventory", "")
	}

	s.metrics.StockMoved(string(req.Type), req.Quantity)
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "stock_movement", "inventory", req.ProductID,
		fmt.Sprintf("type=%s,quantity=%d,reason=%s", req.Type, req.Quantity, req.Reason))
	return *inv, nil
}

func (s *Service) requireActiveProduct(ctx context.Context, productID int64) error {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return storeError(err, "product", "")
	}
	if !product.IsActive {
		return businessError(CodeBusiness, "product is inactive")
	}
	return nil
}

func (s *Service) ListMovements(ctx context.Context, filter domain.MovementFilter) (domain.MovementList, error) {
	if _, err := s.authorize(ctx, domain.PermManageInventory); err != nil {
		return domain.MovementList{}, err
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return domain.MovementList{}, fieldError("type", "Must be one of: IN OUT ADJUSTMENT")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.MovementList{}, fieldError("from", "Must be before to")
	}
	filter.ListQuery = filter.ListQuery.Normalize(defaultMovementLimit, "created_at", "desc", "created_at")

	movements, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return domain.MovementList{}, err
	}
	return domain.MovementList{Data: movements, Pagination: domain.NewPagination(filter.ListQuery, total)}, nil
}

func (s *Service) ProductMovements(ctx context.Context, productID int64, query domain.ListQuery) (domain.MovementList, error) {
	if _, err := s.authorize(ctx, domain.PermManageInventory); err != nil {
		return domain.MovementList{}, err
	}
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return domain.MovementList{}, storeError(err, "product", "")
	}
	return s.ListMovements(ctx, domain.MovementFilter{ProductID: productID, ListQuery: query})
}

func (s *Service) InventoryStats(ctx context.Context) (domain.InventoryStats, error) {
	if _, err := s.authorize(ctx, domain.PermManageInventory); err != nil {
		return domain.InventoryStats{}, err
	}
	rows, err := s.activeInventory(ctx)
	if err != nil {
		return domain.InventoryStats{}, err
	}
	recent, _, err := s.repo.ListMovements(ctx, domain.MovementFilter{ListQuery: domain.ListQuery{Page: 1, Limit: inventoryStatsLimit}})
	if err != nil {
		return domain.InventoryStats{}, err
	}

	low, out := analytics.CountStatus(rows)
	return domain.InventoryStats{
		TotalProducts:   len(rows),
		TotalValue:      analytics.TotalValue(rows),
		LowStockCount:   low,
		OutOfStockCount: out,
		AverageStock:    analytics.AverageStock(rows),
		TopByValue:      analytics.TopByValue(rows, inventoryStatsLimit),
		LowStock:        analytics.LowStock(rows, inventoryStatsLimit),
		RecentMovements: recent,
	}, nil
}

func (s *Service) LowStockAlerts(ctx context.Context) ([]domain.Inventory, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return nil, err
	}
	rows, err := s.activeInventory(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.LowStock(rows, 0), nil
}

func (s *Service) OutOfStock(ctx context.Context) ([]domain.Inventory, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return nil, err
	}
	rows, _, err := s.repo.ListInventory(ctx, domain.InventoryFilter{
		OutOfStock: boolPtr(true),
		ListQuery:  domain.ListQuery{SortBy: "product_name", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return nil, err
	}
	active := rows[:0]
	for _, row := range rows {
		if row.IsActive {
			active = append(active, row)
		}
	}
	return active, nil
}

// CheckStock reports availability. A product without an inventory row is
// reported as unavailable rather than missing.
func (s *Service) CheckStock(ctx context.Context, productID int64) (domain.StockCheck, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.StockCheck{}, err
	}
	inv, err := s.repo.GetInventory(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.StockCheck{ProductID: productID}, nil
	}
	if err != nil {
		return domain.StockCheck{}, err
	}
	return domain.StockCheck{
		ProductID:  productID,
		Available:  inv.Quantity > 0,
		Quantity:   inv.Quantity,
		IsLowStock: inv.IsLowStock(),
	}, nil
}

func (s *Service) activeInventory(ctx context.Context) ([]domain.Inventory, error) {
	rows, _, err := s.repo.ListInventory(ctx, domain.InventoryFilter{
		ListQuery: domain.ListQuery{SortBy: "quantity", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return nil, err
	}
	active := rows[:0]
	for _, row := range rows {
		if row.IsActive {
			active = append(active, row)
		}
	}
	return active, nil
}
