package httpapi

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"comercialpereira/backend/internal/domain"
	"comercialpereira/backend/internal/service"
)

func (a *API) routeCategories(mux *http.ServeMux) {
	view := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermViewProducts, h) }
	manage := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageCategories, h) }

	mux.HandleFunc("GET /api/categories", view(a.handleListCategories))
	mux.HandleFunc("POST /api/categories", manage(a.handleCreateCategory))
	mux.HandleFunc("GET /api/categories/stats", a.requirePermission(domain.PermViewReports, a.handleCategoryStats))
	mux.HandleFunc("GET /api/categories/search", view(a.handleSearchCategories))
	mux.HandleFunc("GET /api/categories/{id}", view(a.handleGetCategory))
	mux.HandleFunc("PUT /api/categories/{id}", manage(a.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", manage(a.handleDeleteCategory))
	mux.HandleFunc("GET /api/categories/{id}/products", view(a.handleCategoryProducts))
}

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.CategoryFilter{
		Search:    q.String("search"),
		IsActive:  q.Bool("is_active"),
		HasCNAE:   q.Bool("has_cnae"),
		ListQuery: q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListCategories(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := a.service.CreateCategory(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (a *API) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.CategoryStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleSearchCategories(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	options, err := a.service.SearchCategories(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": options})
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	details, err := a.service.GetCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.CategoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	category, err := a.service.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteCategory(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "category deleted"})
}

func (a *API) handleCategoryProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := newQueryReader(r.URL.Query())
	query := q.List()
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.CategoryProducts(r.Context(), id, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) routeSuppliers(mux *http.ServeMux) {
	view := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermViewProducts, h) }
	manage := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageSuppliers, h) }

	mux.HandleFunc("GET /api/suppliers", view(a.handleListSuppliers))
	mux.HandleFunc("POST /api/suppliers", manage(a.handleCreateSupplier))
	mux.HandleFunc("GET /api/suppliers/stats", manage(a.handleSupplierStats))
	mux.HandleFunc("GET /api/suppliers/active", view(a.handleActiveSuppliers))
	mux.HandleFunc("GET /api/suppliers/search", view(a.handleSearchSuppliers))
	mux.HandleFunc("GET /api/suppliers/by-state", view(a.handleSuppliersByState))
	mux.HandleFunc("GET /api/suppliers/export", manage(a.handleExportSuppliers))
	mux.HandleFunc("POST /api/suppliers/bulk", manage(a.handleBulkSupplierStatus))
	mux.HandleFunc("GET /api/suppliers/{id}", view(a.handleGetSupplier))
	mux.HandleFunc("PUT /api/suppliers/{id}", manage(a.handleUpdateSupplier))
	mux.HandleFunc("DELETE /api/suppliers/{id}", manage(a.handleDeleteSupplier))
	mux.HandleFunc("GET /api/suppliers/{id}/products", view(a.handleSupplierProducts))
	mux.HandleFunc("GET /api/suppliers/{id}/performance", a.requirePermission(domain.PermViewReports, a.handleSupplierPerformance))
}

func supplierFilter(q *queryReader) domain.SupplierFilter {
	return domain.SupplierFilter{
		Search:    q.String("search"),
		IsActive:  q.Bool("is_active"),
		State:     q.String("state"),
		HasCNPJ:   q.Bool("has_cnpj"),
		ListQuery: q.List(),
	}
}

func (a *API) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := supplierFilter(q)
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListSuppliers(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	supplier, err := a.service.CreateSupplier(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, supplier)
}

func (a *API) handleSupplierStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.SupplierStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleActiveSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := a.service.ActiveSuppliers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": suppliers})
}

func (a *API) handleSearchSuppliers(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	options, err := a.service.SearchSuppliers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": options})
}

func (a *API) handleSuppliersByState(w http.ResponseWriter, r *http.Request) {
	suppliers, err := a.service.SuppliersByState(r.Context(), r.URL.Query().Get("state"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": suppliers})
}

var supplierCSVHeader = []string{
	"id", "name", "contact_person", "email", "phone", "city", "state",
	"zip_code", "cnpj", "website", "is_active", "product_count", "created_at",
}

func (a *API) handleExportSuppliers(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := supplierFilter(q)
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	suppliers, err := a.service.ExportSuppliers(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rows := make([][]string, 0, len(suppliers))
	for _, s := range suppliers {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Name,
			s.ContactPerson,
			s.Email,
			s.Phone,
			s.City,
			s.State,
			s.ZipCode,
			s.CNPJ,
			s.Website,
			strconv.FormatBool(s.IsActive),
			strconv.Itoa(s.ProductCount),
			s.CreatedAt.Format(time.RFC3339),
		})
	}
	writeCSV(w, "suppliers.csv", supplierCSVHeader, rows)
}

func (a *API) handleBulkSupplierStatus(w http.ResponseWriter, r *http.Request) {
	var req domain.SupplierBulkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.BulkSupplierStatus(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleGetSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	supplier, err := a.service.SupplierWithProducts(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (a *API) handleUpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.SupplierUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	supplier, err := a.service.UpdateSupplier(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, supplier)
}

func (a *API) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteSupplier(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "supplier deactivated"})
}

func (a *API) handleSupplierProducts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := newQueryReader(r.URL.Query())
	query := q.List()
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.SupplierProducts(r.Context(), id, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleSupplierPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	perf, err := a.service.SupplierPerformance(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

func (a *API) routeProducts(mux *http.ServeMux) {
	view := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermViewProducts, h) }
	manage := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageProducts, h) }

	mux.HandleFunc("GET /api/products", view(a.handleListProducts))
	mux.HandleFunc("POST /api/products", manage(a.handleCreateProduct))
	mux.HandleFunc("GET /api/products/stats", a.requirePermission(domain.PermViewReports, a.handleProductStats))
	mux.HandleFunc("GET /api/products/active", view(a.handleActiveProducts))
	mux.HandleFunc("GET /api/products/search", view(a.handleSearchProducts))
	mux.HandleFunc("GET /api/products/select", view(a.handleProductsForSelect))
	mux.HandleFunc("GET /api/products/check-code", view(a.handleCheckCode))
	mux.HandleFunc("POST /api/products/bulk-import", manage(a.handleBulkImport))
	mux.HandleFunc("GET /api/products/code/{code}", view(a.handleProductByCode))
	mux.HandleFunc("GET /api/products/category/{id}", view(a.handleProductsByCategory))
	mux.HandleFunc("GET /api/products/supplier/{id}", view(a.handleProductsBySupplier))
	mux.HandleFunc("GET /api/products/{id}", view(a.handleGetProduct))
	mux.HandleFunc("PUT /api/products/{id}", manage(a.handleUpdateProduct))
	mux.HandleFunc("DELETE /api/products/{id}", manage(a.handleDeleteProduct))
	mux.HandleFunc("POST /api/products/{id}/image", manage(a.handleUploadProductImage))
	mux.HandleFunc("DELETE /api/products/{id}/image", manage(a.handleDeleteProductImage))
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.ProductFilter{
		Search:     q.String("search"),
		CategoryID: q.ID("category_id"),
		SupplierID: q.ID("supplier_id"),
		IsActive:   q.Bool("is_active"),
		HasStock:   q.Bool("has_stock"),
		LowStock:   q.Bool("low_stock"),
		NoStock:    q.Bool("no_stock"),
		HasBarcode: q.Bool("has_barcode"),
		MinPrice:   q.Decimal("min_price"),
		MaxPrice:   q.Decimal("max_price"),
		ListQuery:  q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleProductStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.ProductStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleActiveProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ActiveProducts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (a *API) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	products, err := a.service.SearchProducts(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (a *API) handleProductsForSelect(w http.ResponseWriter, r *http.Request) {
	options, err := a.service.ProductsForSelect(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": options})
}

func (a *API) handleCheckCode(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	code := q.String("code")
	excludeID := q.ID("exclude_id")
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.CheckCodeAvailability(r.Context(), code, excludeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleBulkImport(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.BulkImport(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleProductByCode(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProductByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	products, err := a.service.ProductsByCategory(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (a *API) handleProductsBySupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	products, err := a.service.ProductsBySupplier(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "product deactivated"})
}

// handleUploadProductImage reads the "image" part of a multipart form.
func (a *API) handleUploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := r.ParseMultipartForm(service.MaxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	defer file.Close()

	product, err := a.service.UploadProductImage(r.Context(), id, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleDeleteProductImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	product, err := a.service.DeleteProductImage(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func writeCSV(w http.ResponseWriter, filename string, header []string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write(header)
	_ = cw.WriteAll(rows)
}
