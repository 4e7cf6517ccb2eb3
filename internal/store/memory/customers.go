package memory

import (
	"context"
	"slices"
	"strings"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/store"
)

func (s *Store) customerConflict(c domain.Customer) bool {
	for id, other := range s.customers {
		if id == c.ID {
			continue
		}
		if sameFold(other.Email, c.Email) || (c.Document != "" && other.Document == c.Document) {
			return true
		}
	}
	return false
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	customer.ID = 0
	if s.customerConflict(customer) {
		return nil, store.ErrConflict
	}
	now := s.now()
	customer.ID = s.next("customer")
	customer.CreatedAt = now
	customer.UpdatedAt = now
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) GetCustomer(_ context.Context, id int64) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &customer, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.customers[customer.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.customerConflict(customer) {
		return nil, store.ErrConflict
	}
	customer.CreatedAt = existing.CreatedAt
	customer.UpdatedAt = s.now()
	s.customers[customer.ID] = customer
	return &customer, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[id]; !ok {
		return store.ErrNotFound
	}
	for _, sale := range s.sales {
		if sale.CustomerID == id {
			return store.ErrConflict
		}
	}
	delete(s.customers, id)
	return nil
}

func (s *Store) ListCustomers(_ context.Context, filter domain.CustomerFilter) ([]domain.Customer, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	result := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		if search != "" && !containsFold(c.Name, search) && !containsFold(c.Email, search) && !strings.Contains(c.Document, search) {
			continue
		}
		if filter.Type != "" && c.Type != filter.Type {
			continue
		}
		if filter.City != "" && !containsFold(c.City, filter.City) {
			continue
		}
		if filter.State != "" && c.State != filter.State {
			continue
		}
		if !matchBool(filter.IsActive, c.IsActive) {
			continue
		}
		if !matchBool(filter.HasEmail, c.Email != "") {
			continue
		}
		if !matchBool(filter.HasDocument, c.Document != "") {
			continue
		}
		result = append(result, c)
	}

	desc := filter.Descending()
	slices.SortFunc(result, func(a, b domain.Customer) int {
		var c int
		switch filter.SortBy {
		case "created_at":
			c = orderedTime(a.CreatedAt, b.CreatedAt, desc)
		case "updated_at":
			c = orderedTime(a.UpdatedAt, b.UpdatedAt, desc)
		case "city":
			c = ordered(a.City, b.City, desc)
		case "type":
			c = ordered(a.Type, b.Type, desc)
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

func (s *Store) CountCustomerSales(_ context.Context, id int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sale := range s.sales {
		if sale.CustomerID == id {
			count++
		}
	}
	return count, nil
}
