package user

import (
	"time"

	"github.com/frahmantamala/licensestore/internal"
	userdm "github.com/frahmantamala/licensestore/internal/core/datamodel/user"
)

type User struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone"`
	IsActive    bool       `json:"is_active"`
	Roles       []string   `json:"roles"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type ListFilter struct {
	Search   string
	Role     string
	IsActive *bool
	Limit    int
	Offset   int
}

type Repository interface {
	GetByID(userID int64) (*userdm.User, error)
	GetRoles(userID int64) ([]string, error)
	RolesFor(userIDs []int64) (map[int64][]string, error)
	List(filter ListFilter) ([]userdm.User, int64, error)
	UpdateProfile(userID int64, fullName, phone string) error
	UpdatePassword(userID int64, hash string) error
	SetActive(userID int64, active bool) error
}

var (
	ErrNotFound       = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)
	ErrWrongPassword  = internal.NewValidationError("Current password is incorrect", internal.ErrCodeInvalidCredentials)
	ErrSelfDeactivate = internal.NewValidationError("You cannot deactivate your own account", internal.ErrCodeInvalidValue)
)

func FromDataModel(u *userdm.User, roles []string) *User {
	if roles == nil {
		roles = []string{}
	}
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Phone:       u.Phone,
		IsActive:    u.IsActive,
		Roles:       roles,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
