package service

import (
	"context"
	"fmt"
	"strings"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/domain"
)

const (
	defaultCategoryLimit = 20
	topCategoriesLimit   = 5
)

func (s *Service) ListCategories(ctx context.Context, filter domain.CategoryFilter) (domain.CategoryList, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.CategoryList{}, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.ListQuery = filter.ListQuery.Normalize(defaultCategoryLimit, "name", "asc", domain.CategorySorts...)

	categories, total, err := s.repo.ListCategories(ctx, filter)
	if err != nil {
		return domain.CategoryList{}, err
	}
	return domain.CategoryList{Data: categories, Pagination: domain.NewPagination(filter.ListQuery, total)}, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	if _, err := s.authorize(ctx, domain.PermManageCategories); err != nil {
		return domain.Category{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.CNAE = strings.TrimSpace(req.CNAE)
	if err := validateRequest(req); err != nil {
		return domain.Category{}, err
	}

	category := domain.Category{
		Name:        req.Name,
		Description: req.Description,
		CNAE:        req.CNAE,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, storeError(err, "category", "category name or CNAE already in use")
	}
	s.logAudit(ctx, "category_create", "category", created.ID, "name="+created.Name)
	return *created, nil
}

// GetCategory returns the category with its product counts. Managers and
// admins also get sales figures from completed sales.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.CategoryDetails, error) {
	actor, err := s.authorize(ctx, domain.PermViewProducts)
	if err != nil {
		return domain.CategoryDetails{}, err
	}
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.CategoryDetails{}, storeError(err, "category", "")
	}

	details := domain.CategoryDetails{Category: *category, CNAEActivity: domain.CNAENames[category.CNAE]}
	if !domain.HasPermission(actor.Role, domain.PermViewReports) {
		return details, nil
	}

	lines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{
		CategoryID: id,
		Statuses:   []domain.SaleStatus{domain.SaleCompleted},
	})
	if err != nil {
		return domain.CategoryDetails{}, err
	}
	totals := analytics.Summarize(lines)
	details.SalesCount = totals.SalesCount
	details.UnitsSold = totals.Units
	details.Revenue = lineRevenue(lines)
	details.TopProducts = analytics.TopProducts(lines, 5)
	return details, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if _, err := s.authorize(ctx, domain.PermManageCategories); err != nil {
		return domain.Category{}, err
	}
	trimPtr(req.Name)
	trimPtr(req.Description)
	trimPtr(req.CNAE)
	if err := validateRequest(req); err != nil {
		return domain.Category{}, err
	}

	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, storeError(err, "category", "")
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.CNAE != nil {
		updated.CNAE = *req.CNAE
	}
	if req.IsActive != nil {
		if existing.IsActive && !*req.IsActive && existing.ActiveProductCount > 0 {
			return domain.Category{}, conflict(CodeConflict,
				fmt.Sprintf("category has %d active products", existing.ActiveProductCount))
		}
		updated.IsActive = *req.IsActive
	}

	saved, err := s.repo.UpdateCategory(ctx, updated)
	if err != nil {
		return domain.Category{}, storeError(err, "category", "category name or CNAE already in use")
	}
	s.logAudit(ctx, "category_update", "category", saved.ID, fmt.Sprintf("name=%s,active=%t", saved.Name, saved.IsActive))
	return *saved, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.authorize(ctx, domain.PermManageCategories); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return storeError(err, "category", "category still has products")
	}
	s.logAudit(ctx, "category_delete", "category", id, "")
	return nil
}

func (s *Service) CategoryProducts(ctx context.Context, id int64, query domain.ListQuery) (domain.ProductList, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.ProductList{}, err
	}
	if _, err := s.repo.GetCategory(ctx, id); err != nil {
		return domain.ProductList{}, storeError(err, "category", "")
	}
	return s.ListProducts(ctx, domain.ProductFilter{CategoryID: id, ListQuery: query})
}

func (s *Service) SearchCategories(ctx context.Context, term string, limit int) ([]domain.SelectOption, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return nil, err
	}
	categories, _, err := s.repo.ListCategories(ctx, domain.CategoryFilter{
		Search:    strings.TrimSpace(term),
		IsActive:  boolPtr(true),
		ListQuery: domain.ListQuery{Page: 1, Limit: limitOr(limit, 10), SortBy: "name", SortOrder: "asc"},
	})
	if err != nil {
		return nil, err
	}
	options := make([]domain.SelectOption, 0, len(categories))
	for _, c := range categories {
		options = append(options, domain.SelectOption{Value: c.ID, Label: c.Name, IsActive: c.IsActive})
	}
	return options, nil
}

func (s *Service) CategoryStats(ctx context.Context) (domain.CategoryStats, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.CategoryStats{}, err
	}
	categories, _, err := s.repo.ListCategories(ctx, domain.CategoryFilter{
		ListQuery: domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1},
	})
	if err != nil {
		return domain.CategoryStats{}, err
	}

	stats := domain.CategoryStats{ProductsByCategory: make(map[string]int, len(categories))}
	for _, c := range categories {
		stats.Total++
		if c.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		if c.CNAE != "" {
			stats.WithCNAE++
		} else {
			stats.WithoutCNAE++
		}
		stats.ProductsByCategory[c.Name] = c.ProductCount
	}

	lines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{Statuses: []domain.SaleStatus{domain.SaleCompleted}})
	if err != nil {
		return domain.CategoryStats{}, err
	}
	top := analytics.ByCategory(lines)
	if len(top) > topCategoriesLimit {
		top = top[:topCategoriesLimit]
	}
	stats.TopCategories = top
	return stats, nil
}

func trimPtr(v *string) {
	if v != nil {
		*v = strings.TrimSpace(*v)
	}
}
