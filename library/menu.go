package library

import "slices"

// MenuItem is one navigable destination.
type MenuItem struct {
	Path        string
	Label       string
	Requirement Requirement
}

// DefaultMenu is the static menu descriptor, in display order.
var DefaultMenu = []MenuItem{
	{Path: "/", Label: "Home", Requirement: RequireNone},
	{Path: "/books", Label: "Books", Requirement: RequireNone},
	{Path: "/loans", Label: "Loans", Requirement: RequireAuth},
	{Path: "/books/add", Label: "+ Add Book", Requirement: RequireAdmin},
	{Path: "/admin/users", Label: "Admin Panel", Requirement: RequireAdmin},
}

// ComposeMenu keeps the entries identity may access, preserving order.
func ComposeMenu(descriptor []MenuItem, identity *Identity) []MenuItem {
	visible := make([]MenuItem, 0, len(descriptor))
	for _, item := range descriptor {
		if CanAccess(identity, item.Requirement) {
			visible = append(visible, item)
		}
	}
	return visible
}

// Navigator recomposes the menu from whatever identity the session holds right now,
// so a sign-in or sign-out shows up on the next call.
type Navigator struct {
	session    *SessionStore
	descriptor []MenuItem
}

func NewNavigator(session *SessionStore, descriptor []MenuItem) *Navigator {
	if descriptor == nil {
		descriptor = DefaultMenu
	}
	return &Navigator{session: session, descriptor: slices.Clone(descriptor)}
}

// Items returns the menu for the current identity.
func (n *Navigator) Items() []MenuItem {
	return ComposeMenu(n.descriptor, n.session.Current())
}
