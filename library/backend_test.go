package library

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeBackend is an in-memory catalog server for client and manager tests.
type fakeBackend struct {
	mu       sync.Mutex
	books    []Book
	loans    []Loan
	users    []User
	accounts map[string]account // by email
	tokens   map[string]int64   // bearer token -> user id
	fail     map[string]int     // "METHOD /path" -> forced status
	paged    bool               // wrap list responses in {content: [...]}
	noToken  bool               // omit the token from auth responses
	requests []recordedRequest
	nextID   int64

	srv *httptest.Server
}

type account struct {
	password string
	user     User
}

type recordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{
		accounts: make(map[string]account),
		tokens:   make(map[string]int64),
		fail:     make(map[string]int),
		nextID:   100,
	}
	b.addAccount(User{ID: 1, Name: "Ada", Surname: "Admin", Email: "ada@example.com", Role: RoleAdmin}, "secret1")
	b.addAccount(User{ID: 7, Name: "Alice", Surname: "Reader", Email: "alice@example.com", City: "Oslo", Role: RoleUser}, "secret7")
	b.books = []Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965, Available: true},
		{ID: 2, Title: "Emma", Author: "Jane Austen", Available: false},
		{ID: 3, Title: "Dune Messiah", Author: "Frank Herbert", Available: true},
	}
	b.loans = []Loan{
		{ID: 10, UserID: 7, BookID: 2, LoanDate: "2024-03-01T10:00:00", Status: LoanActive, Book: &LoanBook{ID: 2, Title: "Emma"}},
		{ID: 11, UserID: 1, BookID: 1, LoanDate: "2024-01-05", ReturnDate: "2024-01-20", Status: LoanReturned},
		{ID: 12, User: &LoanUser{ID: 7, Name: "Alice"}, BookID: 3, Status: LoanReturned},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /users/login", b.login)
	mux.HandleFunc("POST /users", b.register)
	mux.HandleFunc("GET /users", b.adminOnly(func(w http.ResponseWriter, r *http.Request) { b.list(w, b.users) }))
	mux.HandleFunc("GET /books", func(w http.ResponseWriter, r *http.Request) { b.list(w, b.books) })
	mux.HandleFunc("GET /books/{id}", b.getBook)
	mux.HandleFunc("POST /books", b.adminOnly(b.saveBook))
	mux.HandleFunc("PUT /books/{id}", b.adminOnly(b.saveBook))
	mux.HandleFunc("DELETE /books/{id}", b.adminOnly(b.deleteBook))
	mux.HandleFunc("POST /loans/borrow", b.borrow)
	mux.HandleFunc("POST /loans/return/{id}", b.returnLoan)
	mux.HandleFunc("GET /loans", func(w http.ResponseWriter, r *http.Request) { b.list(w, b.loans) })

	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: string(body)})
		status, failing := b.fail[r.Method+" "+r.URL.Path]
		b.mu.Unlock()

		if failing {
			writeJSON(w, status, map[string]string{"message": "forced failure"})
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) URL() string { return b.srv.URL }

func (b *fakeBackend) addAccount(u User, password string) {
	b.users = append(b.users, u)
	b.accounts[u.Email] = account{password: password, user: u}
}

func (b *fakeBackend) last() recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[len(b.requests)-1]
}

func (b *fakeBackend) count(method, path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, r := range b.requests {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *fakeBackend) list(w http.ResponseWriter, v any) {
	if b.paged {
		writeJSON(w, http.StatusOK, map[string]any{"content": v, "totalElements": 0})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (b *fakeBackend) caller(r *http.Request) (User, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return User{}, false
	}
	id, ok := b.tokens[token]
	if !ok {
		return User{}, false
	}
	for _, u := range b.users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

func (b *fakeBackend) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := b.caller(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
			return
		}
		if u.Role != RoleAdmin {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}
		next(w, r)
	}
}

func (b *fakeBackend) authResponse(w http.ResponseWriter, status int, u User) {
	token := ""
	if !b.noToken {
		token = fmt.Sprintf("tok-%d", u.ID)
		b.tokens[token] = u.ID
	}
	writeJSON(w, status, map[string]any{
		"id": u.ID, "name": u.Name, "surname": u.Surname, "email": u.Email,
		"address": u.Address, "city": u.City, "role": "ROLE_" + string(u.Role),
		"token": token,
	})
}

func (b *fakeBackend) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Email, Password string }
	_ = json.NewDecoder(r.Body).Decode(&req)
	acc, ok := b.accounts[req.Email]
	if !ok || acc.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	}
	b.authResponse(w, http.StatusOK, acc.user)
}

func (b *fakeBackend) register(w http.ResponseWriter, r *http.Request) {
	var req struct{ Name, Surname, Email, Password, Address, City string }
	_ = json.NewDecoder(r.Body).Decode(&req)
	if _, exists := b.accounts[req.Email]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	b.nextID++
	u := User{ID: b.nextID, Name: req.Name, Surname: req.Surname, Email: req.Email, Address: req.Address, City: req.City, Role: RoleUser}
	b.addAccount(u, req.Password)
	b.authResponse(w, http.StatusCreated, u)
}

func (b *fakeBackend) bookIndex(r *http.Request) int {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	for i, bk := range b.books {
		if bk.ID == id {
			return i
		}
	}
	return -1
}

func (b *fakeBackend) getBook(w http.ResponseWriter, r *http.Request) {
	i := b.bookIndex(r)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
		return
	}
	writeJSON(w, http.StatusOK, b.books[i])
}

func (b *fakeBackend) saveBook(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	_ = json.NewDecoder(r.Body).Decode(&in)
	book := Book{Title: in.Title, Author: in.Author, ISBN: in.ISBN, PublicationYear: in.PublicationYear, Content: in.Content, Available: in.Available}

	if r.Method == http.MethodPut {
		i := b.bookIndex(r)
		if i < 0 {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
			return
		}
		book.ID = b.books[i].ID
		b.books[i] = book
		writeJSON(w, http.StatusOK, book)
		return
	}
	b.nextID++
	book.ID = b.nextID
	b.books = append(b.books, book)
	writeJSON(w, http.StatusCreated, book)
}

func (b *fakeBackend) deleteBook(w http.ResponseWriter, r *http.Request) {
	i := b.bookIndex(r)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
		return
	}
	b.books = append(b.books[:i], b.books[i+1:]...)
	w.WriteHeader(http.StatusNoContent)
}

func (b *fakeBackend) borrow(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.caller(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
		return
	}
	var req BorrowRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	for i, bk := range b.books {
		if bk.ID != req.BookID {
			continue
		}
		if !bk.Available {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Book is not available"})
			return
		}
		b.books[i].Available = false
		b.nextID++
		loan := Loan{
			ID: b.nextID, UserID: req.UserID, BookID: bk.ID, LoanDate: "2024-05-01T09:30:00",
			Status: LoanActive, Book: &LoanBook{ID: bk.ID, Title: bk.Title, Author: bk.Author},
		}
		b.loans = append(b.loans, loan)
		writeJSON(w, http.StatusCreated, loan)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
}

func (b *fakeBackend) returnLoan(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
	for i, l := range b.loans {
		if l.ID == id {
			b.loans[i].Status = LoanReturned
			b.loans[i].ReturnDate = "2024-05-02"
			writeJSON(w, http.StatusOK, b.loans[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Loan not found"})
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
