package authapi

// Auth endpoint paths, relative to the API base URL
const (
	PathLogin    = "/auth/login"
	PathRefresh  = "/auth/refresh"
	PathLogout   = "/auth/logout"
	PathRegister = "/auth/register"
)

// ExemptPaths returns the endpoints that must never carry a bearer token or trigger a refresh
func ExemptPaths() []string {
	return []string{PathLogin, PathRefresh, PathLogout, PathRegister}
}
