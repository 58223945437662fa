package library

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// GuardState is the outcome of evaluating a guarded route.
type GuardState int

const (
	Allowed GuardState = iota
	Redirecting
)

func (s GuardState) String() string {
	if s == Redirecting {
		return "redirecting"
	}
	return "allowed"
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Decision says whether to render a view or where to send the visitor instead.
type Decision struct {
	State    GuardState
	Target   string
	Identity *Identity
}

// Guard decides, per navigation, whether a view may render. It re-reads the
// session every time because a sign-out may have happened since the last call.
type Guard struct {
	session *SessionStore
}

func NewGuard(session *SessionStore) *Guard {
	return &Guard{session: session}
}

// Evaluate checks req against the persisted session. Anonymous visitors to a
// protected view go to the login view; signed-in users who lack the admin role
// go home.
func (g *Guard) Evaluate(req Requirement) Decision {
	identity := g.session.Load()
	if req == RequireNone {
		return Decision{State: Allowed, Identity: identity}
	}
	if !CanAccess(identity, RequireAuth) {
		return Decision{State: Redirecting, Target: LoginPath}
	}
	if !CanAccess(identity, req) {
		return Decision{State: Redirecting, Target: HomePath, Identity: identity}
	}
	return Decision{State: Allowed, Identity: identity}
}

// View names the screen a route renders.
type View string

const (
	ViewHome       View = "home"
	ViewLogin      View = "login"
	ViewRegister   View = "register"
	ViewBooks      View = "books"
	ViewBookDetail View = "book-detail"
	ViewAddBook    View = "add-book"
	ViewEditBook   View = "edit-book"
	ViewLoans      View = "loans"
	ViewProfile    View = "profile"
	ViewAdminUsers View = "admin-users"
)

// Route binds a path pattern to a view and its access requirement. Pattern
// segments starting with ':' capture a parameter.
type Route struct {
	Pattern     string
	View        View
	Requirement Requirement
}

// DefaultRoutes is the client's route table. Literal routes are listed before
// parameterised ones that would also match.
var DefaultRoutes = []Route{
	{Pattern: "/", View: ViewHome, Requirement: RequireNone},
	{Pattern: "/login", View: ViewLogin, Requirement: RequireNone},
	{Pattern: "/register", View: ViewRegister, Requirement: RequireNone},
	{Pattern: "/books", View: ViewBooks, Requirement: RequireNone},
	{Pattern: "/books/add", View: ViewAddBook, Requirement: RequireAdmin},
	{Pattern: "/books/:id", View: ViewBookDetail, Requirement: RequireNone},
	{Pattern: "/books/:id/edit", View: ViewEditBook, Requirement: RequireAdmin},
	{Pattern: "/loans", View: ViewLoans, Requirement: RequireAuth},
	{Pattern: "/profile", View: ViewProfile, Requirement: RequireAuth},
	{Pattern: "/admin/users", View: ViewAdminUsers, Requirement: RequireAdmin},
}

// ErrRouteNotFound is returned by Resolve for paths no route matches.
var ErrRouteNotFound = errors.New("no such page")

// Match is a resolved navigation.
type Match struct {
	Route    Route
	Params   map[string]string
	Decision Decision
}

// Router resolves paths against the route table and runs the guard on each.
type Router struct {
	guard  *Guard
	routes []Route
}

func NewRouter(guard *Guard, routes []Route) *Router {
	if routes == nil {
		routes = DefaultRoutes
	}
	return &Router{guard: guard, routes: slices.Clone(routes)}
}

// Resolve finds the first route matching path and evaluates its guard.
func (r *Router) Resolve(path string) (*Match, error) {
	segments := splitPath(path)
	for _, route := range r.routes {
		params, ok := matchPattern(splitPath(route.Pattern), segments)
		if !ok {
			continue
		}
		return &Match{
			Route:    route,
			Params:   params,
			Decision: r.guard.Evaluate(route.Requirement),
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
}

func splitPath(path string) []string {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func matchPattern(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segments[i] == "" {
				return nil, false
			}
			params[p[1:]] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, false
		}
	}
	return params, true
}
