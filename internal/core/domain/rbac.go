package domain

// UserType groups accounts under a named permission set.
type UserType struct {
	ID          int64
	Name        string
	Description *string
	Permissions map[string]bool
}
