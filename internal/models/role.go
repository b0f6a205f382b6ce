package models

import "time"

type Role struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"createdat"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updatedat"`
}

type CreateRoleRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=50"`
	Description *string `json:"description" binding:"omitempty,max=200"`
}

type UpdateRoleRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=50"`
	Description *string `json:"description" binding:"omitempty,max=200"`
}

// RoleList mirrors the paged shape the role endpoints have always returned.
type RoleList struct {
	Roles        []Role `json:"roles"`
	CurrentPage  int    `json:"currentPage"`
	TotalRecords int64  `json:"totalRecords"`
	TotalPages   int    `json:"totalPages"`
}
