package httpapi

import (
	"net/http"

	"comercialpereira/backend/internal/domain"
)

func (a *API) routeInventory(mux *http.ServeMux) {
	view := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermViewProducts, h) }
	manage := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageInventory, h) }

	mux.HandleFunc("GET /api/inventory", view(a.handleListInventory))
	mux.HandleFunc("GET /api/inventory/stats", manage(a.handleInventoryStats))
	mux.HandleFunc("GET /api/inventory/alerts", view(a.handleLowStockAlerts))
	mux.HandleFunc("GET /api/inventory/out-of-stock", view(a.handleOutOfStock))
	mux.HandleFunc("POST /api/inventory/adjust", manage(a.handleAdjustStock))
	mux.HandleFunc("GET /api/inventory/movements", manage(a.handleListMovements))
	mux.HandleFunc("POST /api/inventory/movements", manage(a.handleProcessMovement))
	mux.HandleFunc("GET /api/inventory/movements/product/{productId}", manage(a.handleProductMovements))
	mux.HandleFunc("GET /api/inventory/check-stock/{productId}", view(a.handleCheckStock))
	mux.HandleFunc("GET /api/inventory/{productId}", view(a.handleGetInventory))
	mux.HandleFunc("PUT /api/inventory/{productId}", manage(a.handleUpdateInventory))
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.InventoryFilter{
		Search:      q.String("search"),
		CategoryID:  q.ID("category_id"),
		SupplierID:  q.ID("supplier_id"),
		LowStock:    q.Bool("low_stock"),
		OutOfStock:  q.Bool("out_of_stock"),
		HasStock:    q.Bool("has_stock"),
		Location:    q.String("location"),
		MinQuantity: q.IntPtr("min_quantity"),
		MaxQuantity: q.IntPtr("max_quantity"),
		ListQuery:   q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListInventory(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleInventoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.InventoryStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleLowStockAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.LowStockAlerts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) handleOutOfStock(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.OutOfStock(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (a *API) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := a.service.AdjustStock(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) handleListMovements(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.MovementFilter{
		ProductID: q.ID("product_id"),
		Type:      domain.MovementType(q.String("type")),
		UserID:    q.ID("user_id"),
		From:      q.Time("from", false),
		To:        q.Time("to", true),
		ListQuery: q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListMovements(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleProcessMovement(w http.ResponseWriter, r *http.Request) {
	var req domain.MovementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := a.service.ProcessMovement(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (a *API) handleProductMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
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
	list, err := a.service.ProductMovements(r.Context(), productID, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCheckStock(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	check, err := a.service.CheckStock(r.Context(), productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, check)
}

func (a *API) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := a.service.GetInventory(r.Context(), productID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "productId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.InventoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := a.service.UpdateInventory(r.Context(), productID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
