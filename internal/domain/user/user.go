package user

import (
	"time"
)

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBranchManager Role = "branch_manager"
	RoleOfficer       Role = "officer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBranchManager, RoleOfficer:
		return true
	}
	return false
}

// User is a back-office account. BranchID is nil for admins, who see all
// branches; managers and officers are scoped to one branch.
type User struct {
	UserID       int64     `json:"userId"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Role         Role      `json:"role"`
	BranchID     *int64    `json:"branchId,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
