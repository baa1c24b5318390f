// config/security_config.go
package config

import "assettracker-backend/internal/domain"

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityUser                        // Access token with role USER
	SecurityAdmin                       // Access token with role ADMIN
)

// RouteSecurityConfig maps "METHOD path-template" to the required security level.
// Templates match the gorilla/mux route definitions.
var RouteSecurityConfig = map[string]SecurityLevel{
	// Auth - Public
	"POST /api/auth/register": SecurityPublic,
	"POST /api/auth/login":    SecurityPublic,

	// Operational - Public
	"GET /healthz": SecurityPublic,
	"GET /metrics": SecurityPublic,

	// Assets
	"POST /api/assets":   SecurityAdmin,
	"GET /api/assets":    SecurityAdmin,
	"GET /api/assets/my": SecurityUser,

	// Requests
	"POST /api/requests":                     SecurityUser,
	"GET /api/requests/my":                   SecurityUser,
	"PATCH /api/requests/return/{requestId}": SecurityUser,
	"GET /api/requests":                      SecurityAdmin,
	"PATCH /api/requests/{requestId}":        SecurityAdmin,
}

// GetSecurityLevel returns the security level for a route
func GetSecurityLevel(method, pathTemplate string) SecurityLevel {
	if level, exists := RouteSecurityConfig[method+" "+pathTemplate]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAdmin
}

// RequiredRole returns the role a route demands, or "" for public routes.
func (l SecurityLevel) RequiredRole() domain.Role {
	switch l {
	case SecurityPublic:
		return ""
	case SecurityUser:
		return domain.RoleUser
	default:
		return domain.RoleAdmin
	}
}
