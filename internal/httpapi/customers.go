package httpapi

import (
	"net/http"

	"comercialpereira/backend/internal/domain"
)

func (a *API) routeCustomers(mux *http.ServeMux) {
	view := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermViewCustomers, h) }
	manage := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageCustomers, h) }

	mux.HandleFunc("GET /api/customers", view(a.handleListCustomers))
	mux.HandleFunc("POST /api/customers", manage(a.handleCreateCustomer))
	mux.HandleFunc("POST /api/customers/validate", view(a.handleValidateDocument))
	mux.HandleFunc("GET /api/customers/{id}", view(a.handleGetCustomer))
	mux.HandleFunc("PUT /api/customers/{id}", manage(a.handleUpdateCustomer))
	mux.HandleFunc("DELETE /api/customers/{id}", manage(a.handleDeleteCustomer))
	mux.HandleFunc("GET /api/customers/{id}/stats", view(a.handleCustomerStats))
	mux.HandleFunc("GET /api/customers/{id}/sales", view(a.handleCustomerSales))
}

func (a *API) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.CustomerFilter{
		Search:      q.String("search"),
		Type:        domain.CustomerType(q.String("type")),
		City:        q.String("city"),
		State:       q.String("state"),
		IsActive:    q.Bool("is_active"),
		HasEmail:    q.Bool("has_email"),
		HasDocument: q.Bool("has_document"),
		ListQuery:   q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	list, err := a.service.ListCustomers(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := a.service.CreateCustomer(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customer)
}

func (a *API) handleValidateDocument(w http.ResponseWriter, r *http.Request) {
	var req domain.DocumentValidationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.service.ValidateDocument(r.Context(), req.Document)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := a.service.GetCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (a *API) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.CustomerUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	customer, err := a.service.UpdateCustomer(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

// handleDeleteCustomer reports whether the row was removed or only
// deactivated because it has sales.
func (a *API) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	deleted, err := a.service.DeleteCustomer(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	message := "customer deleted"
	if !deleted {
		message = "customer has sales and was deactivated"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": message, "deleted": deleted})
}

func (a *API) handleCustomerStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	stats, err := a.service.CustomerWithStats(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleCustomerSales(w http.ResponseWriter, r *http.Request) {
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
	list, err := a.service.CustomerSales(r.Context(), id, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
