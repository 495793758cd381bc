// Package rbac holds the route-to-role table shared by the request gate and
// any caller that needs to answer "may this role open this path".
package rbac

import (
	"sort"
	"strings"

	"homecare/portal/internal/models"
)

const SignInPath = "/signin"

type route struct {
	prefix string
	role   models.Role
}

// RouteTable maps path prefixes to the role required to open them. It is
// immutable once built and safe for concurrent use.
type RouteTable struct {
	routes []route
}

func DefaultRoutes() map[string]string {
	return map[string]string{
		"/admin-dashboard":      string(models.RoleAdmin),
		"/client-dashboard":     string(models.RoleClient),
		"/employee-dashboard":   string(models.RoleEmployee),
		"/contractor-dashboard": string(models.RoleContractor),
	}
}

// NewRouteTable builds a table from prefix/role pairs. Entries with an unknown
// role or a prefix not starting with "/" are skipped and returned as invalid.
func NewRouteTable(entries map[string]string) (*RouteTable, []string) {
	t := &RouteTable{}
	var invalid []string
	for prefix, roleName := range entries {
		role, ok := models.ParseRole(roleName)
		prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
		if !ok || !strings.HasPrefix(prefix, "/") {
			invalid = append(invalid, prefix)
			continue
		}
		t.routes = append(t.routes, route{prefix: prefix, role: role})
	}
	// longest prefix first so nested sections can override their parent
	sort.Slice(t.routes, func(i, j int) bool {
		if len(t.routes[i].prefix) != len(t.routes[j].prefix) {
			return len(t.routes[i].prefix) > len(t.routes[j].prefix)
		}
		return t.routes[i].prefix < t.routes[j].prefix
	})
	sort.Strings(invalid)
	return t, invalid
}

func MustDefault() *RouteTable {
	t, _ := NewRouteTable(DefaultRoutes())
	return t
}

// IsPublic reports whether path is reachable without any role or MFA state.
func IsPublic(path string) bool {
	return path == "/" || strings.HasPrefix(path, SignInPath)
}

// RequiredRole returns the role guarding path. A prefix matches the path
// itself or any path below it, never a sibling sharing the same characters.
func (t *RouteTable) RequiredRole(path string) (models.Role, bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.routes {
		if path == r.prefix || strings.HasPrefix(path, r.prefix+"/") {
			return r.role, true
		}
	}
	return "", false
}

// CanAccess applies the same rules as the gate minus the MFA requirement.
func (t *RouteTable) CanAccess(path string, role models.Role) bool {
	if IsPublic(path) {
		return true
	}
	required, ok := t.RequiredRole(path)
	if !ok {
		return true
	}
	return role == required
}

// DashboardFor returns the landing prefix for role, if the table has one.
func (t *RouteTable) DashboardFor(role models.Role) (string, bool) {
	if t == nil {
		return "", false
	}
	best := ""
	for _, r := range t.routes {
		if r.role == role && (best == "" || len(r.prefix) < len(best)) {
			best = r.prefix
		}
	}
	return best, best != ""
}

// SafeNext returns next when it is a local absolute path, otherwise
// fallback. Scheme-relative ("//host") and backslash tricks are rejected.
func SafeNext(next string, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n") {
		return fallback
	}
	return next
}
