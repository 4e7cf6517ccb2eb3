package memory

import (
	"context"
	"slices"
	"strings"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

func (s *Store) categoryView(c domain.Category) domain.Category {
	c.ProductCount, c.ActiveProductCount = 0, 0
	for _, p := range s.products {
		if p.CategoryID != c.ID {
			continue
		}
		c.ProductCount++
		if p.IsActive {
			c.ActiveProductCount++
		}
	}
	return c
}

func (s *Store) categoryConflict(c domain.Category) bool {
	for id, other := range s.categories {
		if id == c.ID {
			continue
		}
		if sameFold(other.Name, c.Name) || (c.CNAE != "" && other.CNAE == c.CNAE) {
			return true
		}
	}
	return false
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category.ID = 0
	if s.categoryConflict(category) {
		return nil, store.ErrConflict
	}
	now := s.now()
	category.ID = s.next("category")
	category.CreatedAt = now
	category.UpdatedAt = now
	s.categories[category.ID] = category

	view := s.categoryView(category)
	return &view, nil
}

func (s *Store) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.categoryView(category)
	return &view, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.categoryConflict(category) {
		return nil, store.ErrConflict
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = s.now()
	s.categories[category.ID] = category

	view := s.categoryView(category)
	return &view, nil
}

func (s *Store) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		if p.CategoryID == id {
			return store.ErrConflict
		}
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) ListCategories(_ context.Context, filter domain.CategoryFilter) ([]domain.Category, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	result := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if search != "" && !containsFold(c.Name, search) && !containsFold(c.Description, search) {
			continue
		}
		if !matchBool(filter.IsActive, c.IsActive) {
			continue
		}
		if !matchBool(filter.HasCNAE, c.CNAE != "") {
			continue
		}
		result = append(result, s.categoryView(c))
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.Category) int {
		var c int
		switch filter.SortBy {
		case "created_at":
			c = orderedTime(a.CreatedAt, b.CreatedAt, desc)
		case "product_count":
			c = ordered(a.ProductCount, b.ProductCount, desc)
		default:
			c = ordered(strings.ToLower(a.Name), strings.ToLower(b.Name), desc)
		}
		if c == 0 {
			return ordered(a.ID, b.ID, false)
		}
		return c
	})

	return paginate(result, filter.ListQuery), len(result), nil
}

func (s *Store) supplierView(sup domain.Supplier) domain.Supplier {
	sup.ProductCount = 0
	for _, p := range s.products {
		if p.SupplierID != nil && *p.SupplierID == sup.ID {
			sup.ProductCount++
		}
	}
	return sup
}

func (s *Store) supplierConflict(sup domain.Supplier) bool {
	for id, other := range s.suppliers {
		if id == sup.ID {
			continue
		}
		if sameFold(other.Email, sup.Email) || (sup.CNPJ != "" && other.CNPJ == sup.CNPJ) {
			return true
		}
	}
	return false
}

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	supplier.ID = 0
	if s.supplierConflict(supplier) {
		return nil, store.ErrConflict
	}
	now := s.now()
	supplier.ID = s.next("supplier")
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	s.suppliers[supplier.ID] = supplier

	view := s.supplierView(supplier)
	return &view, nil
}

func (s *Store) GetSupplier(_ context.Context, id int64) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	supplier, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.supplierView(supplier)
	return &view, nil
}

func (s *Store) UpdateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.suppliers[supplier.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.supplierConflict(supplier) {
		return nil, store.ErrConflict
	}
	supplier.CreatedAt = existing.CreatedAt
	supplier.UpdatedAt = s.now()
	s.suppliers[supplier.ID] = supplier

	view := s.supplierView(supplier)
	return &view, nil
}

func (s *Store) ListSuppliers(_ context.Context, filter domain.SupplierFilter) ([]domain.Supplier, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	result := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		if search != "" && !containsFold(sup.Name, search) && !containsFold(sup.ContactPerson, search) &&
			!containsFold(sup.Email, search) && !strings.Contains(sup.CNPJ, search) && !containsFold(sup.City, search) {
			continue
		}
		if !matchBool(filter.IsActive, sup.IsActive) {
			continue
		}
		if filter.State != "" && sup.State != filter.State {
			continue
		}
		if !matchBool(filter.HasCNPJ, sup.CNPJ != "") {
			continue
		}
		result = append(result, s.supplierView(sup))
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.Supplier) int {
		var c int
		switch filter.SortBy {
		case "city":
			c = ordered(a.City, b.City, desc)
		case "state":
			c = ordered(a.State, b.State, desc)
		case "created_at":
			c = orderedTime(a.CreatedAt, b.CreatedAt, desc)
		case "updated_at":
			c = orderedTime(a.UpdatedAt, b.UpdatedAt, desc)
		default:
			c = ordered(strings.ToLower(a.Name), strings.ToLower(b.Name), desc)
		}
		if c == 0 {
			return ordered(a.ID, b.ID, false)
		}
		return c
	})

	return paginate(result, filter.ListQuery), len(result), nil
}

func (s *Store) productView(p domain.Product) domain.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.CategoryName = c.Name
	}
	if p.SupplierID != nil {
		if sup, ok := s.suppliers[*p.SupplierID]; ok {
			p.SupplierName = sup.Name
		}
	}
	p.Inventory = nil
	if inv, ok := s.inventory[p.ID]; ok {
		view := s.inventoryView(inv)
		p.Inventory = &view
	}
	return p
}

func (s *Store) productConflict(p domain.Product) bool {
	for id, other := range s.products {
		if id == p.ID {
			continue
		}
		if strings.EqualFold(other.Code, p.Code) || (p.Barcode != "" && other.Barcode == p.Barcode) {
			return true
		}
	}
	return false
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, inventory domain.Inventory, opening *domain.InventoryMovement) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = 0
	if s.productConflict(product) {
		return nil, store.ErrConflict
	}
	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, store.ErrInvalidInput
	}
	if product.SupplierID != nil {
		if _, ok := s.suppliers[*product.SupplierID]; !ok {
			return nil, store.ErrInvalidInput
		}
	}

	now := s.now()
	product.ID = s.next("product")
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Inventory = nil
	s.products[product.ID] = product

	inventory.ID = s.next("inventory")
	inventory.ProductID = product.ID
	inventory.LastUpdate = now
	s.inventory[product.ID] = inventory

	if opening != nil {
		movement := *opening
		movement.ID = s.next("movement")
		movement.ProductID = product.ID
		movement.CreatedAt = now
		s.movements = append(s.movements, movement)
	}

	view := s.productView(product)
	return &view, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	view := s.productView(product)
	return &view, nil
}

func (s *Store) GetProductByCode(_ context.Context, code string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, product := range s.products {
		if strings.EqualFold(product.Code, code) {
			view := s.productView(product)
			return &view, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			result[id] = s.productView(product)
		}
	}
	return result, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.productConflict(product) {
		return nil, store.ErrConflict
	}
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.now()
	product.Inventory = nil
	s.products[product.ID] = product

	view := s.productView(product)
	return &view, nil
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	result := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if search != "" && !containsFold(p.Name, search) && !containsFold(p.Code, search) &&
			!containsFold(p.Description, search) && !strings.Contains(p.Barcode, search) {
			continue
		}
		if filter.CategoryID > 0 && p.CategoryID != filter.CategoryID {
			continue
		}
		if filter.SupplierID > 0 && (p.SupplierID == nil || *p.SupplierID != filter.SupplierID) {
			continue
		}
		if !matchBool(filter.IsActive, p.IsActive) {
			continue
		}
		if !matchBool(filter.HasBarcode, p.Barcode != "") {
			continue
		}
		if filter.MinPrice != nil && p.Price.LessThan(*filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && p.Price.GreaterThan(*filter.MaxPrice) {
			continue
		}
		view := s.productView(p)
		qty := view.Quantity()
		if !matchBool(filter.HasStock, qty > 0) {
			continue
		}
		if !matchBool(filter.NoStock, qty == 0) {
			continue
		}
		if filter.LowStock != nil && (view.Inventory == nil || view.Inventory.IsLowStock() != *filter.LowStock) {
			continue
		}
		result = append(result, view)
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.Product) int {
		var c int
		switch filter.SortBy {
		case "code":
			c = ordered(a.Code, b.Code, desc)
		case "price":
			c = orderedDecimal(a.Price, b.Price, desc)
		case "created_at":
			c = orderedTime(a.CreatedAt, b.CreatedAt, desc)
		case "updated_at":
			c = orderedTime(a.UpdatedAt, b.UpdatedAt, desc)
		case "stock":
			c = ordered(a.Quantity(), b.Quantity(), desc)
		default:
			c = ordered(strings.ToLower(a.Name), strings.ToLower(b.Name), desc)
		}
		if c == 0 {
			return ordered(a.ID, b.ID, false)
		}
		return c
	})

	return paginate(result, filter.ListQuery), len(result), nil
}

func (s *Store) ProductUsage(_ context.Context, id int64) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.products[id]; !ok {
		return 0, 0, store.ErrNotFound
	}
	saleItems := 0
	for _, sale := range s.sales {
		for _, item := range sale.Items {
			if item.ProductID == id {
				saleItems++
			}
		}
	}
	movements := 0
	for _, m := range s.movements {
		if m.ProductID == id {
			movements++
		}
	}
	return saleItems, movements, nil
}
