package domain

import "time"

type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserFilter struct {
	Search        string
	Role          Role
	IsActive      *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ListQuery
}

var UserSorts = []string{"name", "email", "role", "created_at", "updated_at"}

type UserCreateRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100,person_name"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128,strong_password"`
	Role     Role   `json:"role" validate:"omitempty,oneof=ADMIN MANAGER SALESPERSON"`
}

type UserUpdateRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=3,max=100,person_name"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=ADMIN MANAGER SALESPERSON"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type PasswordResetRequest struct {
	Password        string `json:"password" validate:"required,min=8,max=128,strong_password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type UserStatusRequest struct {
	IsActive *bool  `json:"is_active" validate:"required"`
	Reason   string `json:"reason,omitempty" validate:"omitempty,min=10,max=500"`
}

type UserList struct {
	Data       []User     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type UserStats struct {
	Total    int          `json:"total"`
	Active   int          `json:"active"`
	Inactive int          `json:"inactive"`
	ByRole   map[Role]int `json:"by_role"`
	Recent   []User       `json:"recent"`
}
