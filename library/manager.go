package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotSignedIn is returned by actions that need an identity when there is none.
	ErrNotSignedIn = errors.New("you need to log in first")
	// ErrForbidden is returned by admin actions attempted by a non-admin.
	ErrForbidden = errors.New("admin access required")
)

// Options configures a LibraryManager.
type Options struct {
	// SessionPath is the SQLite file holding the session record. Ignored when
	// Storage is set.
	SessionPath string
	Storage     Storage
	BaseURL     string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// LibraryManager is a thin façade over the REST client and the session, keeping
// CLI code simple. Every action checks access through CanAccess against the
// persisted session and changes local state only after the server agrees.
type LibraryManager struct {
	db        *Database
	session   *SessionStore
	client    *Client
	validator *FormValidator
	guard     *Guard
	router    *Router
	navigator *Navigator
	logger    *slog.Logger
}

// NewLibraryManager opens the session store and builds the client.
func NewLibraryManager(opts Options) (*LibraryManager, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lm := &LibraryManager{logger: logger, validator: NewFormValidator()}

	storage := opts.Storage
	if storage == nil {
		db, err := NewDatabase(opts.SessionPath)
		if err != nil {
			return nil, err
		}
		lm.db = db
		storage = db
	}

	lm.session = NewSessionStore(storage, logger)
	client, err := NewClient(opts.BaseURL, opts.Timeout, lm.session, logger)
	if err != nil {
		lm.Close()
		return nil, err
	}
	lm.client = client
	lm.guard = NewGuard(lm.session)
	lm.router = NewRouter(lm.guard, nil)
	lm.navigator = NewNavigator(lm.session, nil)

	lm.session.Load()
	return lm, nil
}

// Close closes the underlying database, if the manager opened one.
func (lm *LibraryManager) Close() error {
	if lm.db == nil {
		return nil
	}
	return lm.db.Close()
}

func (lm *LibraryManager) Session() *SessionStore { return lm.session }
func (lm *LibraryManager) Router() *Router         { return lm.router }
func (lm *LibraryManager) Navigator() *Navigator   { return lm.navigator }
func (lm *LibraryManager) Validator() *FormValidator {
	return lm.validator
}

// authorize re-reads the session and checks req.
func (lm *LibraryManager) authorize(req Requirement) (*Identity, error) {
	identity := lm.session.Load()
	if CanAccess(identity, req) {
		return identity, nil
	}
	if identity == nil {
		return nil, ErrNotSignedIn
	}
	return nil, ErrForbidden
}

// ------------------ Session ------------------

// Login validates the form, signs in, and stores the session. A failure at any
// step leaves the previous session untouched.
func (lm *LibraryManager) Login(ctx context.Context, req LoginRequest) (*Identity, error) {
	if err := lm.validator.Validate(req); err != nil {
		return nil, err
	}
	identity, token, err := lm.client.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := lm.adopt(identity, token); err != nil {
		return nil, err
	}
	lm.logger.Info("signed in", "user_id", identity.ID, "role", identity.Role)
	return lm.session.Current(), nil
}

// Register creates the account and signs the new user in.
func (lm *LibraryManager) Register(ctx context.Context, req RegisterRequest) (*Identity, error) {
	if err := lm.validator.Validate(req); err != nil {
		return nil, err
	}
	identity, token, err := lm.client.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := lm.adopt(identity, token); err != nil {
		return nil, err
	}
	lm.logger.Info("registered", "user_id", identity.ID)
	return lm.session.Current(), nil
}

func (lm *LibraryManager) adopt(identity *Identity, token string) error {
	if identity == nil || identity.ID <= 0 {
		return fmt.Errorf("server returned no identity")
	}
	if !identity.Role.Valid() {
		return fmt.Errorf("server returned an unknown role for user %d", identity.ID)
	}
	if token == "" {
		lm.logger.Warn("server issued no session token; requests will be sent without credentials", "user_id", identity.ID)
	}
	if err := lm.session.Set(*identity, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout clears the session.
func (lm *LibraryManager) Logout() error {
	if err := lm.session.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	lm.logger.Info("signed out")
	return nil
}

// Whoami returns the persisted identity, or nil.
func (lm *LibraryManager) Whoami() *Identity { return lm.session.Load() }

// ------------------ Book helpers ------------------

// LoadCatalog fetches every book.
func (lm *LibraryManager) LoadCatalog(ctx context.Context) (*Catalog, error) {
	books, err := lm.client.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	return NewCatalog(books), nil
}

func (lm *LibraryManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	return lm.client.GetBook(ctx, id)
}

// AddBook creates a book. Admin only.
func (lm *LibraryManager) AddBook(ctx context.Context, catalog *Catalog, in BookInput) (*Book, error) {
	if _, err := lm.authorize(RequireAdmin); err != nil {
		return nil, err
	}
	if err := lm.validator.Validate(in); err != nil {
		return nil, err
	}
	book, err := lm.client.CreateBook(ctx, in)
	if err != nil {
		return nil, err
	}
	if catalog != nil {
		catalog.upsert(*book)
	}
	return book, nil
}

// EditBook replaces a book's details. Admin only.
func (lm *LibraryManager) EditBook(ctx context.Context, catalog *Catalog, id int64, in BookInput) (*Book, error) {
	if _, err := lm.authorize(RequireAdmin); err != nil {
		return nil, err
	}
	if err := lm.validator.Validate(in); err != nil {
		return nil, err
	}
	book, err := lm.client.UpdateBook(ctx, id, in)
	if err != nil {
		return nil, err
	}
	if catalog != nil {
		catalog.upsert(*book)
	}
	return book, nil
}

// DeleteBook removes a book on the server and then from catalog. Admin only.
func (lm *LibraryManager) DeleteBook(ctx context.Context, catalog *Catalog, id int64) error {
	if _, err := lm.authorize(RequireAdmin); err != nil {
		return err
	}
	if err := lm.client.DeleteBook(ctx, id); err != nil {
		return err
	}
	if catalog != nil {
		catalog.remove(id)
	}
	lm.logger.Info("book deleted", "book_id", id)
	return nil
}

// ------------------ Circulation ------------------

// Borrow lends bookID to the signed-in user. On success the book is marked
// unavailable in catalog and the loan joins board.
func (lm *LibraryManager) Borrow(ctx context.Context, catalog *Catalog, board *LoanBoard, bookID int64) (*Loan, error) {
	identity, err := lm.authorize(RequireAuth)
	if err != nil {
		return nil, err
	}
	loan, err := lm.client.Borrow(ctx, BorrowRequest{UserID: identity.ID, BookID: bookID})
	if err != nil {
		return nil, err
	}
	if catalog != nil {
		if book, ok := catalog.Find(bookID); ok {
			book.Available = false
			catalog.upsert(book)
		}
	}
	if board != nil {
		board.add(*loan)
	}
	return loan, nil
}

// ReturnLoan returns a loan and then marks it RETURNED in board.
func (lm *LibraryManager) ReturnLoan(ctx context.Context, board *LoanBoard, loanID int64) error {
	if _, err := lm.authorize(RequireAuth); err != nil {
		return err
	}
	if err := lm.client.ReturnLoan(ctx, loanID); err != nil {
		return err
	}
	if board != nil {
		board.markReturned(loanID)
	}
	return nil
}

// MyLoans lists the loans the signed-in user may see: all of them for admins,
// their own otherwise.
func (lm *LibraryManager) MyLoans(ctx context.Context) (*LoanBoard, error) {
	identity, err := lm.authorize(RequireAuth)
	if err != nil {
		return nil, err
	}
	loans, err := lm.client.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	return NewLoanBoard(FilterLoansByRole(loans, identity)), nil
}

// UsersWithStats loads users and loans together for the admin panel. Either
// request failing fails the whole view.
func (lm *LibraryManager) UsersWithStats(ctx context.Context) ([]UserWithStats, error) {
	if _, err := lm.authorize(RequireAdmin); err != nil {
		return nil, err
	}

	var (
		users []User
		loans []Loan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = lm.client.ListUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		loans, err = lm.client.ListLoans(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return UsersWithStats(users, loans), nil
}
