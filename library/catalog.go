package library

import (
	"strings"
	"time"
)

// Catalog is the book list a view is showing. It is filled from one fetch and
// changed afterwards only when the server has confirmed a change.
type Catalog struct {
	books []Book
}

func NewCatalog(books []Book) *Catalog {
	return &Catalog{books: append([]Book(nil), books...)}
}

// Books returns the full list.
func (c *Catalog) Books() []Book { return append([]Book(nil), c.books...) }

// Len returns the number of books held.
func (c *Catalog) Len() int { return len(c.books) }

// BookFilter narrows a catalog listing.
type BookFilter struct {
	Query         string
	OnlyAvailable bool
}

// Filter returns books whose title contains the query (case-insensitive) and,
// when asked, only the available ones. Order is preserved.
func (c *Catalog) Filter(f BookFilter) []Book {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]Book, 0, len(c.books))
	for _, b := range c.books {
		if q != "" && !strings.Contains(strings.ToLower(b.Title), q) {
			continue
		}
		if f.OnlyAvailable && !b.Available {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Find returns the book with id, if held.
func (c *Catalog) Find(id int64) (Book, bool) {
	for _, b := range c.books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

func (c *Catalog) remove(id int64) {
	for i, b := range c.books {
		if b.ID == id {
			c.books = append(c.books[:i], c.books[i+1:]...)
			return
		}
	}
}

func (c *Catalog) upsert(book Book) {
	for i, b := range c.books {
		if b.ID == book.ID {
			c.books[i] = book
			return
		}
	}
	c.books = append(c.books, book)
}

// LoanBoard is the loan list a view is showing, already narrowed to what the
// viewer may see.
type LoanBoard struct {
	loans []Loan
}

func NewLoanBoard(loans []Loan) *LoanBoard {
	return &LoanBoard{loans: append([]Loan(nil), loans...)}
}

func (b *LoanBoard) Loans() []Loan { return append([]Loan(nil), b.loans...) }

// Active and Returned split the board by status.
func (b *LoanBoard) Active() []Loan   { return b.byStatus(LoanActive) }
func (b *LoanBoard) Returned() []Loan { return b.byStatus(LoanReturned) }

func (b *LoanBoard) byStatus(status LoanStatus) []Loan {
	var out []Loan
	for _, l := range b.loans {
		if l.Status == status {
			out = append(out, l)
		}
	}
	return out
}

// Find returns the loan with id, if held.
func (b *LoanBoard) Find(id int64) (Loan, bool) {
	for _, l := range b.loans {
		if l.ID == id {
			return l, true
		}
	}
	return Loan{}, false
}

func (b *LoanBoard) markReturned(id int64) {
	for i := range b.loans {
		if b.loans[i].ID == id {
			b.loans[i].Status = LoanReturned
			if b.loans[i].ReturnDate == "" {
				b.loans[i].ReturnDate = time.Now().Format("2006-01-02")
			}
			return
		}
	}
}

func (b *LoanBoard) add(loan Loan) { b.loans = append(b.loans, loan) }

// FilterLoansByRole gives admins every loan and everyone else only their own.
func FilterLoansByRole(loans []Loan, identity *Identity) []Loan {
	if CanAccess(identity, RequireAdmin) {
		return loans
	}
	if identity == nil {
		return nil
	}
	out := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if l.BorrowerID() == identity.ID {
			out = append(out, l)
		}
	}
	return out
}

// UserLoanStats counts userID's loans by status.
func UserLoanStats(userID int64, loans []Loan) LoanStats {
	var s LoanStats
	for _, l := range loans {
		if l.BorrowerID() != userID {
			continue
		}
		switch l.Status {
		case LoanActive:
			s.Borrowed++
		case LoanReturned:
			s.Returned++
		}
	}
	s.Total = s.Borrowed + s.Returned
	return s
}

// UsersWithStats annotates each user with their loan counts.
func UsersWithStats(users []User, loans []Loan) []UserWithStats {
	out := make([]UserWithStats, len(users))
	for i, u := range users {
		out[i] = UserWithStats{User: u, Stats: UserLoanStats(u.ID, loans)}
	}
	return out
}

// FilterUsers matches the search term against name, surname and email.
func FilterUsers(users []UserWithStats, term string) []UserWithStats {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return users
	}
	var out []UserWithStats
	for _, u := range users {
		for _, field := range []string{u.Name, u.Surname, u.Email} {
			if strings.Contains(strings.ToLower(field), term) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

// Totals sums loan stats across users, as shown in the admin panel header.
func Totals(users []UserWithStats) LoanStats {
	var t LoanStats
	for _, u := range users {
		t.Borrowed += u.Stats.Borrowed
		t.Returned += u.Stats.Returned
		t.Total += u.Stats.Total
	}
	return t
}
