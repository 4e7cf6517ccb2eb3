package service

import (
	"context"
	"fmt"
	"strings"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/document"
	"comercialpereira/backend/internal/domain"
)

const (
	defaultCustomerLimit = 20
	recentSalesLimit     = 5
)

func (s *Service) ListCustomers(ctx context.Context, filter domain.CustomerFilter) (domain.CustomerList, error) {
	if _, err := s.authorize(ctx, domain.PermViewCustomers); err != nil {
		return domain.CustomerList{}, err
	}
	if filter.Type != "" && filter.Type != domain.CustomerRetail && filter.Type != domain.CustomerWholesale {
		return domain.CustomerList{}, fieldError("type", "Must be one of: RETAIL WHOLESALE")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.City = strings.TrimSpace(filter.City)
	filter.State = strings.ToUpper(strings.TrimSpace(filter.State))
	filter.ListQuery = filter.ListQuery.Normalize(defaultCustomerLimit, "name", "asc", domain.CustomerSorts...)

	customers, total, err := s.repo.ListCustomers(ctx, filter)
	if err != nil {
		return domain.CustomerList{}, err
	}
	return domain.CustomerList{Data: customers, Pagination: domain.NewPagination(filter.ListQuery, total)}, nil
}

// checkCustomer enforces the rules that span fields: the document must match
// the customer type and the address is either complete or absent.
func checkCustomer(c *domain.Customer) error {
	c.Document = document.Clean(c.Document)
	if c.Document != "" {
		res := document.Validate(c.Document)
		switch {
		case c.Type == domain.CustomerRetail && len(c.Document) != document.CPFLength:
			return fieldError("document", "Retail customers must have a CPF with 11 digits")
		case c.Type == domain.CustomerWholesale && len(c.Document) != document.CNPJLength:
			return fieldError("document", "Wholesale customers must have a CNPJ with 14 digits")
		case !res.Valid:
			return fieldError("document", fmt.Sprintf("Invalid %s", res.Kind))
		}
	}

	filled := 0
	for _, v := range []string{c.Address, c.City, c.State} {
		if v != "" {
			filled++
		}
	}
	if filled > 0 && filled < 3 {
		return fieldError("address", "Address, city and state must be provided together")
	}
	return nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	if _, err := s.authorize(ctx, domain.PermManageCustomers); err != nil {
		return domain.Customer{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Address = strings.TrimSpace(req.Address)
	req.City = strings.TrimSpace(req.City)
	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	if req.Type == "" {
		req.Type = domain.CustomerRetail
	}
	if err := validateRequest(req); err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Document:     req.Document,
		Type:         req.Type,
		Address:      req.Address,
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		City:         req.City,
		State:        req.State,
		ZipCode:      strings.TrimSpace(req.ZipCode),
		IsActive:     req.IsActive == nil || *req.IsActive,
	}
	if err := checkCustomer(&customer); err != nil {
		return domain.Customer{}, err
	}

	created, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, storeError(err, "customer", "document or email already in use")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "customer_create", "customer", created.ID, fmt.Sprintf("name=%s,type=%s", created.Name, created.Type))
	return *created, nil
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	if _, err := s.authorize(ctx, domain.PermViewCustomers); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, storeError(err, "customer", "")
	}
	return *customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if _, err := s.authorize(ctx, domain.PermManageCustomers); err != nil {
		return domain.Customer{}, err
	}
	trimPtr(req.Name)
	trimPtr(req.Phone)
	trimPtr(req.Address)
	trimPtr(req.Neighborhood)
	trimPtr(req.City)
	trimPtr(req.ZipCode)
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if req.State != nil {
		state := strings.ToUpper(strings.TrimSpace(*req.State))
		req.State = &state
	}
	if err := validateRequest(req); err != nil {
		return domain.Customer{}, err
	}

	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, storeError(err, "customer", "")
	}
	updated := *existing
	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&updated.Name, req.Name)
	assign(&updated.Email, req.Email)
	assign(&updated.Phone, req.Phone)
	assign(&updated.Document, req.Document)
	assign(&updated.Address, req.Address)
	assign(&updated.Neighborhood, req.Neighborhood)
	assign(&updated.City, req.City)
	assign(&updated.State, req.State)
	assign(&updated.ZipCode, req.ZipCode)
	if req.Type != nil {
		updated.Type = *req.Type
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if err := checkCustomer(&updated); err != nil {
		return domain.Customer{}, err
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, storeError(err, "customer", "document or email already in use")
	}
	s.logAudit(ctx, "customer_update", "customer", saved.ID, fmt.Sprintf("active=%t", saved.IsActive))
	return *saved, nil
}

// DeleteCustomer removes a customer without sales. Customers with sales
// history are deactivated instead and the returned flag is false.
func (s *Service) DeleteCustomer(ctx context.Context, id int64) (deleted bool, err error) {
	if _, err := s.authorize(ctx, domain.PermManageCustomers); err != nil {
		return false, err
	}
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return false, storeError(err, "customer", "")
	}
	sales, err := s.repo.CountCustomerSales(ctx, id)
	if err != nil {
		return false, err
	}

	if sales > 0 {
		customer.IsActive = false
		if _, err := s.repo.UpdateCustomer(ctx, *customer); err != nil {
			return false, storeError(err, "customer", "")
		}
		s.logAudit(ctx, "customer_deactivate", "customer", id, fmt.Sprintf("sales=%d", sales))
		return false, nil
	}

	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return false, storeError(err, "customer", "customer has sales")
	}
	s.invalidateDashboard(ctx)
	s.logAudit(ctx, "customer_delete", "customer", id, "")
	return true, nil
}

// CustomerWithStats returns the customer with purchase insight computed from
// completed sales and the most recent sales of any status.
func (s *Service) CustomerWithStats(ctx context.Context, id int64) (domain.CustomerWithStats, error) {
	if _, err := s.authorize(ctx, domain.PermViewCustomers); err != nil {
		return domain.CustomerWithStats{}, err
	}
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.CustomerWithStats{}, storeError(err, "customer", "")
	}

	lines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{
		CustomerID: id,
		Statuses:   []domain.SaleStatus{domain.SaleCompleted},
	})
	if err != nil {
		return domain.CustomerWithStats{}, err
	}
	recent, _, err := s.repo.ListSales(ctx, domain.SaleFilter{
		CustomerID: id,
		ListQuery:  domain.ListQuery{Page: 1, Limit: recentSalesLimit, SortBy: "created_at", SortOrder: "desc"},
	})
	if err != nil {
		return domain.CustomerWithStats{}, err
	}

	return domain.CustomerWithStats{
		Customer:    *customer,
		Stats:       analytics.CustomerInsight(lines, s.now()),
		RecentSales: recent,
	}, nil
}

func (s *Service) CustomerSales(ctx context.Context, id int64, query domain.ListQuery) (domain.SaleList, error) {
	if _, err := s.authorize(ctx, domain.PermViewCustomers); err != nil {
		return domain.SaleList{}, err
	}
	if _, err := s.repo.GetCustomer(ctx, id); err != nil {
		return domain.SaleList{}, storeError(err, "customer", "")
	}
	return s.ListSales(ctx, domain.SaleFilter{CustomerID: id, ListQuery: query})
}

// ValidateDocument reports whether raw is a valid CPF or CNPJ. An invalid
// document is a normal result, not an error.
func (s *Service) ValidateDocument(ctx context.Context, raw string) (domain.DocumentValidation, error) {
	if _, err := s.authorize(ctx, domain.PermViewCustomers); err != nil {
		return domain.DocumentValidation{}, err
	}
	res := document.Validate(raw)
	out := domain.DocumentValidation{
		IsValid:           res.Valid,
		Type:              string(res.Kind),
		Document:          res.Digits,
		FormattedDocument: res.Formatted,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out, nil
}
