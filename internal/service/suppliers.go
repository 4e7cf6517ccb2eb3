package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/document"
	"comercialpereira/backend/internal/domain"
)

const defaultSupplierLimit = 20

func (s *Service) ListSuppliers(ctx context.Context, filter domain.SupplierFilter) (domain.SupplierList, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.SupplierList{}, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.State = strings.ToUpper(strings.TrimSpace(filter.State))
	filter.ListQuery = filter.ListQuery.Normalize(defaultSupplierLimit, "name", "asc", domain.SupplierSorts...)

	suppliers, total, err := s.repo.ListSuppliers(ctx, filter)
	if err != nil {
		return domain.SupplierList{}, err
	}
	return domain.SupplierList{Data: suppliers, Pagination: domain.NewPagination(filter.ListQuery, total)}, nil
}

// normalizeCNPJ validates a supplier CNPJ and returns it as digits.
func normalizeCNPJ(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	res := document.Validate(raw)
	if res.Kind != document.KindCNPJ {
		return "", fieldError("cnpj", "CNPJ must have 14 digits")
	}
	if !res.Valid {
		return "", fieldError("cnpj", "Invalid CNPJ")
	}
	return res.Digits, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return domain.Supplier{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.ContactPerson = strings.TrimSpace(req.ContactPerson)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.State = strings.ToUpper(strings.TrimSpace(req.State))
	if err := validateRequest(req); err != nil {
		return domain.Supplier{}, err
	}
	cnpj, err := normalizeCNPJ(req.CNPJ)
	if err != nil {
		return domain.Supplier{}, err
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         strings.TrimSpace(req.Phone),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		State:         req.State,
		ZipCode:       strings.TrimSpace(req.ZipCode),
		CNPJ:          cnpj,
		Website:       strings.TrimSpace(req.Website),
		Notes:         strings.TrimSpace(req.Notes),
		IsActive:      req.IsActive == nil || *req.IsActive,
	})
	if err != nil {
		return domain.Supplier{}, storeError(err, "supplier", "supplier email or CNPJ already in use")
	}
	s.logAudit(ctx, "supplier_create", "supplier", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.Supplier{}, err
	}
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, storeError(err, "supplier", "")
	}
	return *supplier, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, req domain.SupplierUpdateRequest) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return domain.Supplier{}, err
	}
	for _, field := range []*string{req.Name, req.ContactPerson, req.Phone, req.Address, req.City, req.ZipCode, req.Website, req.Notes} {
		trimPtr(field)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &email
	}
	if req.State != nil {
		state := strings.ToUpper(strings.TrimSpace(*req.State))
		req.State = &state
	}
	if err := validateRequest(req); err != nil {
		return domain.Supplier{}, err
	}

	existing, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, storeError(err, "supplier", "")
	}
	updated := *existing
	assign := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&updated.Name, req.Name)
	assign(&updated.ContactPerson, req.ContactPerson)
	assign(&updated.Email, req.Email)
	assign(&updated.Phone, req.Phone)
	assign(&updated.Address, req.Address)
	assign(&updated.City, req.City)
	assign(&updated.State, req.State)
	assign(&updated.ZipCode, req.ZipCode)
	assign(&updated.Website, req.Website)
	assign(&updated.Notes, req.Notes)
	if req.CNPJ != nil {
		cnpj, err := normalizeCNPJ(*req.CNPJ)
		if err != nil {
			return domain.Supplier{}, err
		}
		updated.CNPJ = cnpj
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateSupplier(ctx, updated)
	if err != nil {
		return domain.Supplier{}, storeError(err, "supplier", "supplier email or CNPJ already in use")
	}
	s.logAudit(ctx, "supplier_update", "supplier", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.IsActive))
	return *saved, nil
}

// DeleteSupplier deactivates a supplier that no longer has products.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return err
	}
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return storeError(err, "supplier", "")
	}
	if supplier.ProductCount > 0 {
		return businessError(CodeBusiness, fmt.Sprintf("supplier has %d products and cannot be removed", supplier.ProductCount))
	}
	supplier.IsActive = false
	if _, err := s.repo.UpdateSupplier(ctx, *supplier); err != nil {
		return storeError(err, "supplier", "")
	}
	s.logAudit(ctx, "supplier_delete", "supplier", id, "")
	return nil
}

func (s *Service) SupplierWithProducts(ctx context.Context, id int64) (domain.SupplierWithProducts, error) {
	supplier, err := s.GetSupplier(ctx, id)
	if err != nil {
		return domain.SupplierWithProducts{}, err
	}
	products, _, err := s.repo.ListProducts(ctx, domain.ProductFilter{
		SupplierID: id,
		ListQuery:  domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return domain.SupplierWithProducts{}, err
	}
	return domain.SupplierWithProducts{Supplier: supplier, Products: products}, nil
}

func (s *Service) SupplierProducts(ctx context.Context, id int64, query domain.ListQuery) (domain.ProductList, error) {
	if _, err := s.GetSupplier(ctx, id); err != nil {
		return domain.ProductList{}, err
	}
	return s.ListProducts(ctx, domain.ProductFilter{SupplierID: id, ListQuery: query})
}

func (s *Service) SearchSuppliers(ctx context.Context, term string, limit int) ([]domain.SelectOption, error) {
	list, err := s.ListSuppliers(ctx, domain.SupplierFilter{
		Search:    term,
		IsActive:  boolPtr(true),
		ListQuery: domain.ListQuery{Limit: limitOr(limit, 10)},
	})
	if err != nil {
		return nil, err
	}
	options := make([]domain.SelectOption, 0, len(list.Data))
	for _, sup := range list.Data {
		options = append(options, domain.SelectOption{Value: sup.ID, Label: sup.Name, IsActive: sup.IsActive})
	}
	return options, nil
}

func (s *Service) ActiveSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.allSuppliers(ctx, domain.SupplierFilter{IsActive: boolPtr(true)})
}

func (s *Service) SuppliersByState(ctx context.Context, state string) ([]domain.Supplier, error) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if !ValidState(state) {
		return nil, fieldError("state", "Must be a valid state code (UF)")
	}
	return s.allSuppliers(ctx, domain.SupplierFilter{State: state, IsActive: boolPtr(true)})
}

// ExportSuppliers returns every supplier matching filter, unpaginated, for
// CSV export.
func (s *Service) ExportSuppliers(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return nil, err
	}
	return s.allSuppliers(ctx, filter)
}

func (s *Service) SupplierStats(ctx context.Context) (domain.SupplierStats, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return domain.SupplierStats{}, err
	}
	suppliers, err := s.allSuppliers(ctx, domain.SupplierFilter{})
	if err != nil {
		return domain.SupplierStats{}, err
	}

	stats := domain.SupplierStats{ByState: make(map[string]int)}
	for _, sup := range suppliers {
		stats.Total++
		if sup.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if sup.CNPJ != "" {
			stats.WithCNPJ++
		}
		state := sup.State
		if state == "" {
			state = "N/A"
		}
		stats.ByState[state]++
	}

	top := slices.Clone(suppliers)
	slices.SortStableFunc(top, func(a, b domain.Supplier) int {
		return b.ProductCount - a.ProductCount
	})
	if len(top) > 5 {
		top = top[:5]
	}
	stats.TopByProducts = top
	return stats, nil
}

func (s *Service) SupplierPerformance(ctx context.Context, id int64) (domain.SupplierPerformance, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.SupplierPerformance{}, err
	}
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.SupplierPerformance{}, storeError(err, "supplier", "")
	}
	products, _, err := s.repo.ListProducts(ctx, domain.ProductFilter{
		SupplierID: id,
		ListQuery:  domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return domain.SupplierPerformance{}, err
	}
	lines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{
		SupplierID: id,
		Statuses:   []domain.SaleStatus{domain.SaleCompleted},
	})
	if err != nil {
		return domain.SupplierPerformance{}, err
	}

	perf := domain.SupplierPerformance{
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		ProductCount: len(products),
		Revenue:      lineRevenue(lines),
		TopProducts:  analytics.TopProducts(lines, 5),
	}
	for _, p := range products {
		if p.IsActive {
			perf.ActiveProducts++
		}
	}
	totals := analytics.Summarize(lines)
	perf.UnitsSold = totals.Units
	perf.SalesCount = totals.SalesCount
	if sales := analytics.Sales(lines); len(sales) > 0 {
		last := sales[len(sales)-1].Date
		perf.LastSaleDate = &last
	}
	return perf, nil
}

func (s *Service) BulkSupplierStatus(ctx context.Context, req domain.SupplierBulkStatusRequest) (domain.SupplierBulkStatusResponse, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return domain.SupplierBulkStatusResponse{}, err
	}
	if err := validateRequest(req); err != nil {
		return domain.SupplierBulkStatusResponse{}, err
	}

	resp := domain.SupplierBulkStatusResponse{Updated: make([]int64, 0, len(req.IDs))}
	fail := func(id int64, reason string) {
		if resp.Failed == nil {
			resp.Failed = make(map[int64]string)
		}
		resp.Failed[id] = reason
	}
	for _, id := range req.IDs {
		supplier, err := s.repo.GetSupplier(ctx, id)
		if err != nil {
			fail(id, errorMessage(storeError(err, "supplier", "")))
			continue
		}
		supplier.IsActive = *req.IsActive
		if _, err := s.repo.UpdateSupplier(ctx, *supplier); err != nil {
			fail(id, errorMessage(storeError(err, "supplier", "supplier conflicts with another record")))
			continue
		}
		resp.Updated = append(resp.Updated, id)
	}
	s.logAudit(ctx, "supplier_bulk_status", "supplier", 0,
		fmt.Sprintf("active=%t,updated=%d,failed=%d", *req.IsActive, len(resp.Updated), len(resp.Failed)))
	return resp, nil
}

func (s *Service) allSuppliers(ctx context.Context, filter domain.SupplierFilter) ([]domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return nil, err
	}
	filter.ListQuery = domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1}
	suppliers, _, err := s.repo.ListSuppliers(ctx, filter)
	return suppliers, err
}
