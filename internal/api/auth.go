// Package api implements HTTP handlers and helpers for the route
// optimization service.
package api

import (
	"net/http"
)

type Principal struct {
	Tenant string
	Role   string // admin, dispatcher, viewer
}

// getPrincipal extracts tenant and role from request headers. Defaults keep
// the dev experience friction-free; production deployments sit behind a
// gateway that sets these.
func (s *Server) getPrincipal(r *http.Request) Principal {
	tenant := r.Header.Get("X-Tenant-Id")
	role := r.Header.Get("X-Role")
	if tenant == "" {
		tenant = "t_demo"
	}
	if role == "" {
		role = "admin"
	}
	return Principal{Tenant: tenant, Role: role}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == "admin" }

// CanOptimize reports whether the principal may run optimizations.
func (p Principal) CanOptimize() bool { return p.Role == "admin" || p.Role == "dispatcher" }
