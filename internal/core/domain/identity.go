package domain

import "time"

// AdminUserType is the user type name granted administrative access.
const AdminUserType = "admin"

// Account mirrors the persisted representation in the users table joined with its user type.
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	UserTypeID   int64
	UserType     string
	Permissions  map[string]bool
	Lockout      LockoutState
	Active       bool
	Deleted      bool
	LastLogin    *time.Time
	CreatedBy    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanAuthenticate reports whether the account may hold sessions.
func (a Account) CanAuthenticate() bool {
	return a.Active && !a.Deleted
}

// Principal returns the authenticated view of the account without credentials or lockout bookkeeping.
func (a Account) Principal() Principal {
	permissions := make(map[string]bool, len(a.Permissions))
	for name, granted := range a.Permissions {
		permissions[name] = granted
	}

	return Principal{
		AccountID:   a.ID,
		Username:    a.Username,
		FirstName:   a.FirstName,
		LastName:    a.LastName,
		Phone:       a.Phone,
		UserType:    a.UserType,
		Permissions: permissions,
		LastLogin:   a.LastLogin,
		CreatedAt:   a.CreatedAt,
	}
}

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	AccountID   string
	Username    string
	FirstName   string
	LastName    string
	Phone       *string
	UserType    string
	Permissions map[string]bool
	LastLogin   *time.Time
	CreatedAt   time.Time
}

// HasPermission reports whether the capability is granted in the principal's permission set.
func (p Principal) HasPermission(capability string) bool {
	if p.Permissions == nil {
		return false
	}
	return p.Permissions[capability]
}

// IsAdmin reports whether the principal belongs to the admin user type.
func (p Principal) IsAdmin() bool {
	return p.UserType == AdminUserType
}
