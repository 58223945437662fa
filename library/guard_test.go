package library

import (
	"errors"
	"testing"
)

func TestGuardEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		identity   *Identity
		req        Requirement
		wantState  GuardState
		wantTarget string
	}{
		{"public anonymous", nil, RequireNone, Allowed, ""},
		{"protected anonymous", nil, RequireAuth, Redirecting, LoginPath},
		{"admin-only anonymous", nil, RequireAdmin, Redirecting, LoginPath},
		{"protected user", &alice, RequireAuth, Allowed, ""},
		{"admin-only user", &alice, RequireAdmin, Redirecting, HomePath},
		{"admin-only admin", &admin, RequireAdmin, Allowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewSessionStore(NewMemoryStorage(), nil)
			if tt.identity != nil {
				if err := store.Set(*tt.identity, "t"); err != nil {
					t.Fatalf("set: %v", err)
				}
			}
			d := NewGuard(store).Evaluate(tt.req)
			if d.State != tt.wantState || d.Target != tt.wantTarget {
				t.Fatalf("want %s %q, got %s %q", tt.wantState, tt.wantTarget, d.State, d.Target)
			}
		})
	}
}

// TestGuardRereadsStorage covers a sign-out made through another store sharing
// the same storage.
func TestGuardRereadsStorage(t *testing.T) {
	storage := NewMemoryStorage()
	store := NewSessionStore(storage, nil)
	if err := store.Set(alice, "t"); err != nil {
		t.Fatalf("set: %v", err)
	}
	guard := NewGuard(store)
	if d := guard.Evaluate(RequireAuth); d.State != Allowed {
		t.Fatalf("want allowed, got %s", d.State)
	}

	if err := NewSessionStore(storage, nil).Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if d := guard.Evaluate(RequireAuth); d.State != Redirecting || d.Target != LoginPath {
		t.Fatalf("want redirect to login, got %s %q", d.State, d.Target)
	}
}

func TestRouterResolve(t *testing.T) {
	store := NewSessionStore(NewMemoryStorage(), nil)
	if err := store.Set(alice, "t"); err != nil {
		t.Fatalf("set: %v", err)
	}
	router := NewRouter(NewGuard(store), nil)

	tests := []struct {
		path      string
		view      View
		id        string
		wantState GuardState
	}{
		{"/", ViewHome, "", Allowed},
		{"", ViewHome, "", Allowed},
		{"/books", ViewBooks, "", Allowed},
		{"books/", ViewBooks, "", Allowed},
		{"/books/add", ViewAddBook, "", Redirecting},
		{"/books/42", ViewBookDetail, "42", Allowed},
		{"/books/42/edit", ViewEditBook, "42", Redirecting},
		{"/loans", ViewLoans, "", Allowed},
		{"/profile", ViewProfile, "", Allowed},
		{"/admin/users", ViewAdminUsers, "", Redirecting},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			m, err := router.Resolve(tt.path)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if m.Route.View != tt.view {
				t.Fatalf("want view %s, got %s", tt.view, m.Route.View)
			}
			if m.Params["id"] != tt.id {
				t.Fatalf("want id %q, got %q", tt.id, m.Params["id"])
			}
			if m.Decision.State != tt.wantState {
				t.Fatalf("want %s, got %s", tt.wantState, m.Decision.State)
			}
		})
	}
}

func TestRouterNotFound(t *testing.T) {
	router := NewRouter(NewGuard(NewSessionStore(NewMemoryStorage(), nil)), nil)
	for _, path := range []string{"/nope", "/books/1/2/3", "/admin"} {
		if _, err := router.Resolve(path); !errors.Is(err, ErrRouteNotFound) {
			t.Errorf("%s: want ErrRouteNotFound, got %v", path, err)
		}
	}
}

func TestRouterKeepsItsOwnTable(t *testing.T) {
	routes := []Route{{Pattern: "/", View: ViewHome}}
	router := NewRouter(NewGuard(NewSessionStore(NewMemoryStorage(), nil)), routes)
	routes[0].Pattern = "/elsewhere"

	if _, err := router.Resolve("/"); err != nil {
		t.Fatalf("router shares caller's table: %v", err)
	}
}
