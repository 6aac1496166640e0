// Package routes decides whether the current session may open a page.
package routes

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/smartsim-dev/smartsim/internal/models"
)

// Navigation surface
const (
	PathSignIn         = "/"
	PathSignUp         = "/signup"
	PathForgotPassword = "/forgot-password"
	PathDashboard      = "/dashboard"
	PathProfile        = "/profile"
	PathUpdateUser     = "/update-user"
)

// ErrUnknownRoute is returned by Resolve for a path outside the table
var ErrUnknownRoute = errors.New("unknown route")

// Policy is how the role gate treats admins on pages that don't require admin
type Policy int

const (
	// PolicyStrict allows a page only when its admin requirement equals the session role
	PolicyStrict Policy = iota
	// PolicyAdminInherits also lets admins open pages that don't require admin
	PolicyAdminInherits
)

// ParsePolicy maps "strict" and "inherit" to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "strict":
		return PolicyStrict, nil
	case "inherit":
		return PolicyAdminInherits, nil
	default:
		return PolicyStrict, fmt.Errorf("invalid route policy '%s', must be one of: strict, inherit", s)
	}
}

func (p Policy) String() string {
	if p == PolicyAdminInherits {
		return "inherit"
	}
	return "strict"
}

// Decision is the outcome of a gate: allow, or redirect to a path
type Decision struct {
	Redirect string
}

// Allowed reports whether the navigation may proceed
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

func (d Decision) String() string {
	if d.Allowed() {
		return "allow"
	}
	return "redirect " + d.Redirect
}

// Allow is the decision that lets navigation proceed
func Allow() Decision { return Decision{} }

// RedirectTo is the decision that sends the visitor to path instead
func RedirectTo(path string) Decision { return Decision{Redirect: path} }

// AuthorizeRole is the role gate. Signed-out visitors count as non-admin.
func AuthorizeRole(requiresAdmin bool, s models.Session, p Policy) Decision {
	isAdmin := s.IsAdmin()

	if requiresAdmin == isAdmin {
		return Allow()
	}
	if requiresAdmin {
		return RedirectTo(PathSignIn)
	}
	if p == PolicyAdminInherits {
		return Allow()
	}
	return RedirectTo(PathDashboard)
}

// AuthorizePrivate is the sign-in gate: private pages need a session,
// public-only pages (sign-in, sign-up) are skipped once signed in.
func AuthorizePrivate(requiresAuth bool, s models.Session) Decision {
	signedIn := s.Authenticated()

	if requiresAuth == signedIn {
		return Allow()
	}
	if requiresAuth {
		return RedirectTo(PathSignIn)
	}
	return RedirectTo(PathDashboard)
}

// Route is one page of the navigation surface
type Route struct {
	Path    string
	Title   string
	Private bool
	Admin   bool
	// RoleGated routes also pass the role gate; others only the sign-in gate
	RoleGated bool
}

// Table is the set of known routes plus the role policy
type Table struct {
	routes map[string]Route
	policy Policy
}

// NewTable builds a table from routes
func NewTable(policy Policy, routes ...Route) *Table {
	t := &Table{routes: make(map[string]Route, len(routes)), policy: policy}
	for _, r := range routes {
		t.routes[r.Path] = r
	}
	return t
}

// DefaultTable returns the application's navigation surface
func DefaultTable(policy Policy) *Table {
	return NewTable(policy,
		Route{Path: PathSignIn, Title: "Sign in"},
		Route{Path: PathSignUp, Title: "Create account"},
		Route{Path: PathForgotPassword, Title: "Forgot password"},
		Route{Path: PathDashboard, Title: "Dashboard", Private: true},
		Route{Path: PathProfile, Title: "Profile", Private: true},
		Route{Path: PathUpdateUser, Title: "Customer SMS key", Private: true, Admin: true, RoleGated: true},
	)
}

// Policy returns the table's role policy
func (t *Table) Policy() Policy {
	return t.policy
}

// Lookup returns the route registered for path
func (t *Table) Lookup(path string) (Route, bool) {
	r, ok := t.routes[normalize(path)]
	return r, ok
}

// Routes returns every route sorted by path
func (t *Table) Routes() []Route {
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Resolve runs the sign-in gate, then the role gate for role-gated routes
func (t *Table) Resolve(path string, s models.Session) (Route, Decision, error) {
	r, ok := t.Lookup(path)
	if !ok {
		return Route{}, Decision{}, fmt.Errorf("%w: %s", ErrUnknownRoute, path)
	}

	if d := AuthorizePrivate(r.Private, s); !d.Allowed() {
		return r, d, nil
	}
	if r.RoleGated {
		return r, AuthorizeRole(r.Admin, s, t.policy), nil
	}
	return r, Allow(), nil
}

func normalize(path string) string {
	if path == "" {
		return PathSignIn
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}
