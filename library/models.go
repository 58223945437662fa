package library

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role gates administrative views and actions.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts both the short form and the backend's ROLE_ prefixed form.
func ParseRole(s string) (Role, error) {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "ROLE_")) {
	case "USER":
		return RoleUser, nil
	case "ADMIN":
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// UnmarshalJSON normalises ROLE_USER / ROLE_ADMIN. Unknown values decode to the
// empty role so callers can decide whether that is acceptable.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		*r = ""
		return nil
	}
	*r = parsed
	return nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Identity is the signed-in user's profile, held for the session's duration.
type Identity struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Role    Role   `json:"role"`
}

// DisplayName prefers the name and falls back to the email.
func (i *Identity) DisplayName() string {
	if i == nil {
		return ""
	}
	if i.Name != "" {
		return i.Name
	}
	return i.Email
}

// authResponse is what /users/login and /users return: the identity plus the
// server-issued bearer token.
type authResponse struct {
	Identity
	Token string `json:"token"`
}

// Book is a catalog entry mirrored from the backend.
type Book struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Content         string `json:"content,omitempty"`
	PublicationYear int    `json:"publicationYear"`
	Available       bool   `json:"available"`
}

// User is a registered member as listed by the admin endpoint.
type User struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Role    Role   `json:"role"`
}

type LoanStatus string

const (
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
)

// LoanBook and LoanUser are the summaries embedded in loan listings.
type LoanBook struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

type LoanUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Loan records a book borrowed by a user.
type Loan struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"userId"`
	BookID     int64      `json:"bookId"`
	LoanDate   string     `json:"loanDate"`
	ReturnDate string     `json:"returnDate,omitempty"`
	Status     LoanStatus `json:"status"`
	Book       *LoanBook  `json:"book,omitempty"`
	User       *LoanUser  `json:"user,omitempty"`
}

// BorrowerID resolves the owning user from either the flat or embedded field.
func (l Loan) BorrowerID() int64 {
	if l.UserID != 0 {
		return l.UserID
	}
	if l.User != nil {
		return l.User.ID
	}
	return 0
}

// Title returns the embedded book title or a placeholder.
func (l Loan) Title() string {
	if l.Book != nil && l.Book.Title != "" {
		return l.Book.Title
	}
	return "Unknown Book"
}

// LoanStats counts a user's loans by status.
type LoanStats struct {
	Borrowed int `json:"borrowed"`
	Returned int `json:"returned"`
	Total    int `json:"total"`
}

// UserWithStats is a User annotated with loan statistics for the admin panel.
type UserWithStats struct {
	User
	Stats LoanStats `json:"loanStats"`
}

// FormatDate renders backend timestamps as "Jan 2, 2006". Unparseable input is
// returned as is.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	layouts := []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return s
}
