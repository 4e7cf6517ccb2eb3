package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"comercialpereira/backend/internal/analytics"
	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/storage"
	"comercialpereira/backend/internal/store"
)

const (
	defaultProductLimit = 20
	MaxImageBytes       = 5 << 20
)

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) (domain.ProductList, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.ProductList{}, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.ListQuery = filter.ListQuery.Normalize(defaultProductLimit, "name", "asc", domain.ProductSorts...)
	if filter.MinPrice != nil && filter.MaxPrice != nil && filter.MinPrice.GreaterThan(*filter.MaxPrice) {
		return domain.ProductList{}, fieldError("min_price", "Must not exceed max_price")
	}

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return domain.ProductList{}, err
	}

	all := filter
	all.ListQuery = domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1}
	everything, _, err := s.repo.ListProducts(ctx, all)
	if err != nil {
		return domain.ProductList{}, err
	}

	return domain.ProductList{
		Data:       products,
		Pagination: domain.NewPagination(filter.ListQuery, total),
		Summary:    summarizeProducts(everything),
	}, nil
}

func summarizeProducts(products []domain.Product) domain.ProductSummary {
	summary := domain.ProductSummary{TotalValue: decimal.Zero}
	for _, p := range products {
		summary.TotalProducts++
		if p.IsActive {
			summary.ActiveProducts++
		} else {
			summary.InactiveProducts++
		}
		if p.Inventory == nil {
			summary.OutOfStockProducts++
			continue
		}
		if p.Inventory.Quantity == 0 {
			summary.OutOfStockProducts++
		}
		if p.Inventory.IsLowStock() {
			summary.LowStockProducts++
		}
		summary.TotalValue = summary.TotalValue.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Inventory.Quantity))))
	}
	return summary
}

func validatePrice(field string, price decimal.Decimal) error {
	if price.LessThan(domain.MinProductPrice) || price.GreaterThan(domain.MaxProductPrice) {
		return fieldError(field, fmt.Sprintf("Must be between %s and %s", domain.MinProductPrice, domain.MaxProductPrice))
	}
	if !price.Equal(price.Round(2)) {
		return fieldError(field, "Must have at most two decimal places")
	}
	return nil
}

// checkReferences makes sure the category and the optional supplier exist
// and are active.
func (s *Service) checkReferences(ctx context.Context, categoryID int64, supplierID *int64) error {
	category, err := s.repo.GetCategory(ctx, categoryID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !category.IsActive) {
		return fieldError("category_id", "Category not found or inactive")
	}
	if err != nil {
		return err
	}
	if supplierID == nil {
		return nil
	}
	supplier, err := s.repo.GetSupplier(ctx, *supplierID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !supplier.IsActive) {
		return fieldError("supplier_id", "Supplier not found or inactive")
	}
	return err
}

func normalizeProductRequest(req *domain.ProductCreateRequest) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Location = strings.TrimSpace(req.Location)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := s.authorize(ctx, domain.PermManageProducts)
	if err != nil {
		return domain.Product{}, err
	}
	return s.createProduct(ctx, actor, req)
}

func (s *Service) createProduct(ctx context.Context, actor domain.Actor, req domain.ProductCreateRequest) (domain.Product, error) {
	normalizeProductRequest(&req)
	if err := validateRequest(req); err != nil {
		return domain.Product{}, err
	}
	if err := validatePrice("price", req.Price); err != nil {
		return domain.Product{}, err
	}
	minStock := domain.DefaultMinStock
	if req.MinStock != nil {
		minStock = *req.MinStock
	}
	if req.MaxStock != nil && *req.MaxStock <= minStock {
		return domain.Product{}, fieldError("max_stock", "Must be greater than min_stock")
	}
	if err := s.checkReferences(ctx, req.CategoryID, req.SupplierID); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Code:        req.Code,
		Barcode:     req.Barcode,
		CategoryID:  req.CategoryID,
		SupplierID:  req.SupplierID,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	inventory := domain.Inventory{
		Quantity: req.InitialStock,
		MinStock: minStock,
		MaxStock: req.MaxStock,
		Location: req.Location,
	}
	var opening *domain.InventoryMovement
	if req.InitialStock > 0 {
		opening = &domain.InventoryMovement{
			Type:     domain.MovementIn,
			Quantity: req.InitialStock,
			Reason:   "initial stock",
			UserID:   actor.UserID,
		}
	}

	created, err := s.repo.CreateProduct(ctx, product, inventory, opening)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "product code or barcode already in use")
	}
	if opening != nil {
		s.metrics.StockMoved(string(domain.MovementIn), req.InitialStock)
		s.invalidateDashboard(ctx)
	}
	s.logAudit(ctx, "product_create", "product", created.ID,
		fmt.Sprintf("code=%s,price=%s,stock=%d", created.Code, created.Price, req.InitialStock))
	return *created, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "")
	}
	return *product, nil
}

func (s *Service) GetProductByCode(ctx context.Context, code string) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProductByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return domain.Product{}, storeError(err, "product", "")
	}
	return *product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return domain.Product{}, err
	}
	trimPtr(req.Name)
	trimPtr(req.Description)
	trimPtr(req.Barcode)
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		req.Code = &code
	}
	if err := validateRequest(req); err != nil {
		return domain.Product{}, err
	}
	if req.Price != nil {
		if err := validatePrice("price", *req.Price); err != nil {
			return domain.Product{}, err
		}
	}

	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "")
	}
	updated := *existing
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Description != nil {
		updated.Description = *req.Description
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.Code != nil {
		updated.Code = *req.Code
	}
	if req.Barcode != nil {
		updated.Barcode = *req.Barcode
	}
	if req.CategoryID != nil {
		updated.CategoryID = *req.CategoryID
	}
	if req.SupplierID != nil {
		updated.SupplierID = req.SupplierID
	}
	if req.IsActive != nil {
		updated.IsActive = *req.IsActive
	}
	if req.CategoryID != nil || req.SupplierID != nil {
		if err := s.checkReferences(ctx, updated.CategoryID, updated.SupplierID); err != nil {
			return domain.Product{}, err
		}
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "product code or barcode already in use")
	}
	if !existing.Price.Equal(saved.Price) {
		s.invalidateDashboard(ctx)
	}
	s.logAudit(ctx, "product_update", "product", saved.ID,
		fmt.Sprintf("code=%s,price=%s,active=%t", saved.Code, saved.Price, saved.IsActive))
	return *saved, nil
}

// DeleteProduct deactivates a product that was never sold or moved.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return storeError(err, "product", "")
	}
	saleItems, movements, err := s.repo.ProductUsage(ctx, id)
	if err != nil {
		return storeError(err, "product", "")
	}
	if saleItems > 0 || movements > 0 {
		return businessError(CodeBusiness,
			fmt.Sprintf("product is referenced by %d sale items and %d stock movements", saleItems, movements))
	}
	product.IsActive = false
	if _, err := s.repo.UpdateProduct(ctx, *product); err != nil {
		return storeError(err, "product", "")
	}
	s.logAudit(ctx, "product_delete", "product", id, "code="+product.Code)
	return nil
}

func (s *Service) SearchProducts(ctx context.Context, term string, limit int) ([]domain.Product, error) {
	list, err := s.ListProducts(ctx, domain.ProductFilter{
		Search:    term,
		IsActive:  boolPtr(true),
		ListQuery: domain.ListQuery{Limit: limitOr(limit, 10)},
	})
	return list.Data, err
}

func (s *Service) ActiveProducts(ctx context.Context) ([]domain.Product, error) {
	return s.allProducts(ctx, domain.ProductFilter{IsActive: boolPtr(true)})
}

func (s *Service) ProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	return s.allProducts(ctx, domain.ProductFilter{CategoryID: categoryID, IsActive: boolPtr(true)})
}

func (s *Service) ProductsBySupplier(ctx context.Context, supplierID int64) ([]domain.Product, error) {
	return s.allProducts(ctx, domain.ProductFilter{SupplierID: supplierID, IsActive: boolPtr(true)})
}

func (s *Service) ProductsForSelect(ctx context.Context, term string) ([]domain.ProductSelectOption, error) {
	products, err := s.allProducts(ctx, domain.ProductFilter{Search: strings.TrimSpace(term), IsActive: boolPtr(true)})
	if err != nil {
		return nil, err
	}
	options := make([]domain.ProductSelectOption, 0, len(products))
	for _, p := range products {
		qty := p.Quantity()
		options = append(options, domain.ProductSelectOption{
			Value:         p.ID,
			Label:         fmt.Sprintf("%s - %s", p.Code, p.Name),
			Code:          p.Code,
			Price:         p.Price,
			HasStock:      qty > 0,
			StockQuantity: qty,
		})
	}
	return options, nil
}

func (s *Service) CheckCodeAvailability(ctx context.Context, code string, excludeID int64) (domain.CodeAvailability, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return domain.CodeAvailability{}, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if !productCodePattern.MatchString(code) {
		return domain.CodeAvailability{}, fieldError("code", "Code must be 3 to 20 upper case letters, digits, - or _")
	}
	product, err := s.repo.GetProductByCode(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return domain.CodeAvailability{Code: code, Available: true}, nil
	}
	if err != nil {
		return domain.CodeAvailability{}, err
	}
	return domain.CodeAvailability{Code: code, Available: product.ID == excludeID}, nil
}

func (s *Service) ProductStats(ctx context.Context) (domain.ProductStats, error) {
	if _, err := s.authorize(ctx, domain.PermViewReports); err != nil {
		return domain.ProductStats{}, err
	}
	products, _, err := s.repo.ListProducts(ctx, domain.ProductFilter{
		ListQuery: domain.ListQuery{SortBy: "created_at", SortOrder: "desc", Limit: -1},
	})
	if err != nil {
		return domain.ProductStats{}, err
	}

	stats := domain.ProductStats{
		ProductSummary:     summarizeProducts(products),
		AveragePrice:       decimal.Zero,
		ProductsByCategory: make(map[string]int),
		ProductsBySupplier: make(map[string]int),
	}
	priceSum := decimal.Zero
	rows := make([]domain.Inventory, 0, len(products))
	for _, p := range products {
		priceSum = priceSum.Add(p.Price)
		stats.ProductsByCategory[p.CategoryName]++
		supplier := p.SupplierName
		if supplier == "" {
			supplier = "N/A"
		}
		stats.ProductsBySupplier[supplier]++
		if p.Inventory != nil && p.IsActive {
			rows = append(rows, *p.Inventory)
		}
	}
	if len(products) > 0 {
		stats.AveragePrice = priceSum.Div(decimal.NewFromInt(int64(len(products)))).Round(2)
	}
	stats.LowStock = analytics.LowStock(rows, 10)
	if len(products) > 5 {
		stats.RecentProducts = products[:5]
	} else {
		stats.RecentProducts = products
	}

	lines, err := s.repo.ListSaleLines(ctx, domain.SaleLineFilter{Statuses: []domain.SaleStatus{domain.SaleCompleted}})
	if err != nil {
		return domain.ProductStats{}, err
	}
	stats.TopSelling = analytics.TopProducts(lines, 10)
	return stats, nil
}

// BulkImport creates each product independently. A failing item is reported
// and does not stop the rest.
func (s *Service) BulkImport(ctx context.Context, req domain.BulkImportRequest) (domain.BulkImportResult, error) {
	actor, err := s.authorize(ctx, domain.PermManageProducts)
	if err != nil {
		return domain.BulkImportResult{}, err
	}
	if len(req.Products) == 0 || len(req.Products) > domain.MaxBulkImport {
		return domain.BulkImportResult{}, fieldError("products", fmt.Sprintf("Must contain between 1 and %d items", domain.MaxBulkImport))
	}

	result := domain.BulkImportResult{Created: []domain.Product{}, Errors: []domain.BulkImportError{}}
	for i, item := range req.Products {
		created, err := s.createProduct(ctx, actor, item)
		if err != nil {
			var svcErr *Error
			if !errors.As(err, &svcErr) {
				return result, err
			}
			result.Errors = append(result.Errors, domain.BulkImportError{
				Index:   i,
				Code:    strings.ToUpper(strings.TrimSpace(item.Code)),
				Message: bulkMessage(svcErr),
			})
			continue
		}
		result.Created = append(result.Created, created)
	}
	s.logAudit(ctx, "product_bulk_import", "product", 0,
		fmt.Sprintf("created=%d,failed=%d", len(result.Created), len(result.Errors)))
	return result, nil
}

func bulkMessage(e *Error) string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return strings.Join(parts, "; ")
}

func (s *Service) UploadProductImage(ctx context.Context, id int64, contentType string, body io.Reader, size int64) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return domain.Product{}, err
	}
	if s.images == nil {
		return domain.Product{}, &Error{Status: http.StatusServiceUnavailable, Code: "STORAGE_UNAVAILABLE", Message: "image storage is not configured"}
	}
	if !storage.AllowedImageType(contentType) {
		return domain.Product{}, fieldError("image", "Image must be JPEG, PNG, WEBP or GIF")
	}
	if size > MaxImageBytes {
		return domain.Product{}, fieldError("image", fmt.Sprintf("Image must be at most %d bytes", MaxImageBytes))
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "")
	}
	obj, err := s.images.Put(ctx, storage.ImageKey(id, contentType), contentType, body, size)
	if err != nil {
		return domain.Product{}, fmt.Errorf("store product image: %w", err)
	}

	previous := product.ImageKey
	product.ImageURL = obj.URL
	product.ImageKey = obj.Key
	saved, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		s.removeImage(ctx, obj.Key)
		return domain.Product{}, storeError(err, "product", "")
	}
	if previous != "" {
		s.removeImage(ctx, previous)
	}
	s.logAudit(ctx, "product_image_upload", "product", id, "key="+obj.Key)
	return *saved, nil
}

func (s *Service) DeleteProductImage(ctx context.Context, id int64) (domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermManageProducts); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "")
	}
	if product.ImageURL == "" && product.ImageKey == "" {
		return *product, nil
	}

	key := product.ImageKey
	product.ImageURL = ""
	product.ImageKey = ""
	saved, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return domain.Product{}, storeError(err, "product", "")
	}
	if key != "" {
		s.removeImage(ctx, key)
	}
	s.logAudit(ctx, "product_image_delete", "product", id, "key="+key)
	return *saved, nil
}

func (s *Service) removeImage(ctx context.Context, key string) {
	if s.images == nil {
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to delete product image")
	}
}

func (s *Service) allProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if _, err := s.authorize(ctx, domain.PermViewProducts); err != nil {
		return nil, err
	}
	filter.ListQuery = domain.ListQuery{SortBy: "name", SortOrder: "asc", Limit: -1}
	products, _, err := s.repo.ListProducts(ctx, filter)
	return products, err
}
