package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleManager     Role = "MANAGER"
	RoleSalesperson Role = "SALESPERSON"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleSalesperson:
		return true
	}
	return false
}

type Permission string

const (
	PermManageUsers      Permission = "manage_users"
	PermManageProducts   Permission = "manage_products"
	PermViewProducts     Permission = "view_products"
	PermManageCategories Permission = "manage_categories"
	PermManageSuppliers  Permission = "manage_suppliers"
	PermManageInventory  Permission = "manage_inventory"
	PermManageSales      Permission = "manage_sales"
	PermViewCustomers    Permission = "view_customers"
	PermManageCustomers  Permission = "manage_customers"
	PermViewReports      Permission = "view_reports"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermManageUsers, PermManageProducts, PermViewProducts, PermManageCategories,
		PermManageSuppliers, PermManageInventory, PermManageSales, PermViewCustomers,
		PermManageCustomers, PermViewReports,
	},
	RoleManager: {
		PermManageProducts, PermViewProducts, PermManageCategories, PermManageSuppliers,
		PermManageInventory, PermManageSales, PermViewCustomers, PermManageCustomers,
		PermViewReports,
	},
	RoleSalesperson: {
		PermViewProducts, PermManageSales, PermViewCustomers, PermManageCustomers,
	},
}

func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

func PermissionsFor(role Role) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// Actor is the authenticated user carried through the request context.
type Actor struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// CanSeeAllSales reports whether the actor may read sales owned by other users.
func (a Actor) CanSeeAllSales() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

const (
	DefaultPage  = 1
	MaxPageLimit = 100
)

type ListQuery struct {
	Page      int    `json:"page"`
	Limit     int    `json:"limit"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Normalize clamps page and limit and falls back to the given sort when the
// requested one is not allowed. A zero Limit on the result never happens;
// callers that want every row set Limit to -1 after normalizing.
func (q ListQuery) Normalize(defaultLimit int, defaultSort string, defaultOrder string, allowedSorts ...string) ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	allowed := false
	for _, s := range allowedSorts {
		if q.SortBy == s {
			allowed = true
			break
		}
	}
	if !allowed {
		q.SortBy = defaultSort
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		q.SortOrder = defaultOrder
	}
	return q
}

func (q ListQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

// Unbounded reports whether the query asks for every row.
func (q ListQuery) Unbounded() bool {
	return q.Limit < 1
}

func (q ListQuery) Descending() bool {
	return q.SortOrder == "desc"
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

func NewPagination(q ListQuery, total int) Pagination {
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return Pagination{
		Page:    q.Page,
		Limit:   q.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: q.Page < pages,
		HasPrev: q.Page > 1,
	}
}

type SelectOption struct {
	Value    int64  `json:"value"`
	Label    string `json:"label"`
	IsActive bool   `json:"is_active"`
}

type AuditLog struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id,omitempty"`
	UserRole   Role      `json:"user_role,omitempty"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   int64     `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   string       `json:"expires_at"`
	User        User         `json:"user"`
	Permissions []Permission `json:"permissions"`
}
