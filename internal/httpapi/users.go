package httpapi

import (
	"net/http"

	"comercialpereira/backend/internal/domain"
)

func (a *API) routeUsers(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.HandlerFunc { return a.requirePermission(domain.PermManageUsers, h) }

	mux.HandleFunc("GET /api/users", admin(a.handleListUsers))
	mux.HandleFunc("POST /api/users", admin(a.handleCreateUser))
	mux.HandleFunc("GET /api/users/stats", admin(a.handleUserStats))
	mux.HandleFunc("GET /api/users/active", admin(a.handleActiveUsers))
	mux.HandleFunc("GET /api/users/search", admin(a.handleSearchUsers))
	mux.HandleFunc("GET /api/users/roles/{role}", admin(a.handleUsersByRole))
	mux.HandleFunc("GET /api/users/{id}", admin(a.handleGetUser))
	mux.HandleFunc("PUT /api/users/{id}", admin(a.handleUpdateUser))
	mux.HandleFunc("DELETE /api/users/{id}", admin(a.handleDeleteUser))
	mux.HandleFunc("PATCH /api/users/{id}/status", admin(a.handleUserStatus))
	mux.HandleFunc("PUT /api/users/{id}/password", admin(a.handleResetPassword))
	mux.HandleFunc("GET /api/audit-logs", admin(a.handleAuditLogs))
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	filter := domain.UserFilter{
		Search:        q.String("search"),
		Role:          domain.Role(q.String("role")),
		IsActive:      q.Bool("is_active"),
		CreatedAfter:  q.Time("created_after", false),
		CreatedBefore: q.Time("created_before", true),
		ListQuery:     q.List(),
	}
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	list, err := a.service.ListUsers(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.UserStats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleActiveUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.ActiveUsers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": users})
}

func (a *API) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 50)
	users, err := a.service.SearchUsers(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": users})
}

func (a *API) handleUsersByRole(w http.ResponseWriter, r *http.Request) {
	users, err := a.service.UsersByRole(r.Context(), domain.Role(r.PathValue("role")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": users})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.GetUser(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.UpdateUser(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.DeleteUser(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "user deactivated"})
}

func (a *API) handleUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.UserStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.UpdateUserStatus(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.PasswordResetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.ResetPassword(r.Context(), id, req); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "password updated"})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := newQueryReader(r.URL.Query())
	from := q.TimeValue("from", false)
	to := q.TimeValue("to", true)
	if err := q.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), from, to, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": logs})
}
