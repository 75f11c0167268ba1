package auth

// UserContext is the caller identity resolved by the authentication layer.
// It is trusted as already verified.
type UserContext struct {
	UserID       string
	TenantID     string
	RoleName     string
	DepartmentID string
	EmployeeID   string
	Email        string
}
