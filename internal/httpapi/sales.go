package httpapi

import (
	"context"
	"errors"
	"net/http"

	"comercialpereira/backend/internal/domain"
)

func (a *API) routeSales(mux *http.ServeMux) {
	sales := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageSales, h) }

	mux.HandleFunc("GET /api/sales", sales(a.handleListSales))
	mux.HandleFunc("POST /api/sales", sales(a.handleCreateSale))
	mux.HandleFunc("POST /api/sales/validate-stock", sales(a.handleValidateStock))
	mux.HandleFunc("GET /api/sales/{id}", sales(a.handleGetSale))
	mux.HandleFunc("PUT /api/sales/{id}", sales(a.handleUpdateSale))
	mux.HandleFunc("POST /api/sales/{id}/submit", sales(a.transitionHandler(a.service.SubmitSale)))
	mux.HandleFunc("POST /api/sales/{id}/confirm", sales(a.transitionHandler(a.service.ConfirmSale)))
	mux.HandleFunc("POST /api/sales/{id}/complete", sales(a.transitionHandler(a.service.CompleteSale)))
	mux.HandleFunc("POST /api/sales/{id}/cancel", sales(a.handleCancelSale))
	mux.HandleFunc("POST /api/sales/{id}/refund", sales(a.handleRefundSale))
	mux.HandleFunc("POST /api/sales/{id}/items", sales(a.handleAddSaleItem))
	mux.HandleFunc("PUT /api/sales/{id}/items/{itemId}", sales(a.handleUpdateSaleItem))
	mux.HandleFunc("DELETE /api/sales/{id}/items/{itemId}", sales(a.handleRemoveSaleItem))
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.SaleFilter{
		CustomerID: q.ID("customer_id"),
		UserID:     q.ID("user_id"),
		Status:     domain.SaleStatus(q.String("status")),
		From:       q.Time("from", false),
		To:         q.Time("to", true),
		MinTotal:   q.Decimal("min_total"),
		MaxTotal:   q.Decimal("max_total"),
		Search:     q.String("search"),
		ListQuery:  q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListSales(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.CreateSale(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *API) handleValidateStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockValidationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.ValidateStock(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.GetSale(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleUpdateSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.SaleUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.UpdateSale(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

// transitionHandler serves the status changes that take no request body.
func (a *API) transitionHandler(move func(ctx context.Context, id int64) (domain.Sale, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := move(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	}
}

func (a *API) handleCancelSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.SaleCancelRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	sale, err := a.service.CancelSale(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleRefundSale(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !a.pinLimiter.Allow("pin:refund:" + clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many manager PIN attempts"))
		return
	}
	var req domain.SaleRefundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !a.auth.ValidateManagerPIN(req.ManagerPIN) {
		writeError(w, http.StatusForbidden, errors.New("invalid manager PIN"))
		return
	}
	sale, err := a.service.RefundSale(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleAddSaleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.SaleItemInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.AddSaleItem(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (a *API) handleUpdateSaleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.SaleItemUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.UpdateSaleItem(r.Context(), id, itemID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleRemoveSaleItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.RemoveSaleItem(r.Context(), id, itemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}
