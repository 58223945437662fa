package library

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// APIError is a non-success response from the backend.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// TokenSource yields the bearer credential for outgoing requests.
type TokenSource interface {
	Token() string
}

// Client talks to the catalog REST backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// NewClient builds a client for baseURL (e.g. http://localhost:8080/api). A zero
// timeout means requests wait as long as the server takes.
func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     logger,
	}, nil
}

// ------------------ Auth ------------------

// LoginRequest is the sign-in form.
type LoginRequest struct {
	Email    string `json:"email" label:"Email" validate:"required,email"`
	Password string `json:"password" label:"Password" validate:"required,min=6"`
}

// RegisterRequest is the registration form. ConfirmPassword never leaves the client.
type RegisterRequest struct {
	Name            string `json:"name" label:"First name" validate:"required"`
	Surname         string `json:"surname" label:"Last name" validate:"required"`
	Email           string `json:"email" label:"Email" validate:"required,email"`
	Password        string `json:"password" label:"Password" validate:"required,min=6"`
	ConfirmPassword string `json:"-" label:"Confirm password" validate:"eqfield=Password"`
	Address         string `json:"address" label:"Address" validate:"required"`
	City            string `json:"city" label:"City" validate:"required"`
}

// Login exchanges credentials for an identity and the server-issued token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*Identity, string, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/users/login", req, &resp); err != nil {
		return nil, "", err
	}
	return &resp.Identity, resp.Token, nil
}

// Register creates an account; the backend signs the new user in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Identity, string, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/users", req, &resp); err != nil {
		return nil, "", err
	}
	return &resp.Identity, resp.Token, nil
}

// ListUsers returns every registered user. Admin only on the server side.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.getList(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ------------------ Books ------------------

func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	var books []Book
	if err := c.getList(ctx, "/books", &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id int64) (*Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/books/%d", id), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// BookInput is the add/edit book form.
type BookInput struct {
	Title           string `json:"title" label:"Title" validate:"required,max=255"`
	Author          string `json:"author" label:"Author" validate:"required,max=255"`
	ISBN            string `json:"isbn" label:"ISBN" validate:"omitempty,max=32"`
	PublicationYear int    `json:"publicationYear" label:"Publication year" validate:"omitempty,min=0,max=9999"`
	Content         string `json:"content,omitempty"`
	Available       bool   `json:"available"`
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (*Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPost, "/books", in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) UpdateBook(ctx context.Context, id int64, in BookInput) (*Book, error) {
	var book Book
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/books/%d", id), in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *Client) DeleteBook(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/books/%d", id), nil, nil)
}

// ------------------ Loans ------------------

// BorrowRequest is the canonical loan-creation body.
type BorrowRequest struct {
	UserID int64 `json:"userId"`
	BookID int64 `json:"bookId"`
}

func (c *Client) Borrow(ctx context.Context, req BorrowRequest) (*Loan, error) {
	var loan Loan
	if err := c.do(ctx, http.MethodPost, "/loans/borrow", req, &loan); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (c *Client) ReturnLoan(ctx context.Context, loanID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/loans/return/%d", loanID), nil, nil)
}

func (c *Client) ListLoans(ctx context.Context) ([]Loan, error) {
	var loans []Loan
	if err := c.getList(ctx, "/loans", &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// ------------------ Transport ------------------

// getList decodes either a bare JSON array or a page object with a content array.
func (c *Client) getList(ctx context.Context, path string, out any) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	var page struct {
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if len(page.Content) == 0 {
		return nil
	}
	return json.Unmarshal(page.Content, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request complete",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// errorMessage pulls {"message": "..."} or {"error": "..."} out of an error body.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
