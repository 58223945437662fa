package library

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func validRegistration() RegisterRequest {
	return RegisterRequest{
		Name: "Bo", Surname: "Lind", Email: "bo@example.com",
		Password: "hunter22", ConfirmPassword: "hunter22",
		Address: "1 Main St", City: "Bergen",
	}
}

func TestValidateRegisterFirstFailure(t *testing.T) {
	v := NewFormValidator()

	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
		want   string
	}{
		{"first name", func(r *RegisterRequest) { r.Name = "" }, "First name is required"},
		{"last name", func(r *RegisterRequest) { r.Surname = "" }, "Last name is required"},
		{"email missing", func(r *RegisterRequest) { r.Email = "" }, "Email is required"},
		{"email format", func(r *RegisterRequest) { r.Email = "bo@" }, "Please enter a valid email"},
		{"short password", func(r *RegisterRequest) { r.Password, r.ConfirmPassword = "abc", "abc" }, "Password must be at least 6 characters"},
		{"mismatch", func(r *RegisterRequest) { r.ConfirmPassword = "hunter23" }, "Passwords do not match"},
		{"address", func(r *RegisterRequest) { r.Address = "" }, "Address is required"},
		{"city", func(r *RegisterRequest) { r.City = "" }, "City is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)
			err := v.Validate(req)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("want %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateReportsFieldsInOrder(t *testing.T) {
	err := NewFormValidator().Validate(RegisterRequest{Email: "nope", Password: "abc", ConfirmPassword: "abd"})

	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("want *FormError, got %T", err)
	}
	want := []string{
		"First name is required",
		"Last name is required",
		"Please enter a valid email",
		"Password must be at least 6 characters",
		"Passwords do not match",
		"Address is required",
		"City is required",
	}
	if got := formErr.Messages(); !reflect.DeepEqual(got, want) {
		t.Fatalf("want %v\ngot  %v", want, got)
	}
	if formErr.Fields[0].Field != "Name" {
		t.Fatalf("want struct field Name, got %s", formErr.Fields[0].Field)
	}
}

func TestValidateValidForms(t *testing.T) {
	v := NewFormValidator()
	forms := []any{
		validRegistration(),
		LoginRequest{Email: "a@b.co", Password: "123456"},
		BookInput{Title: "Dune", Author: "Frank Herbert"},
		BookInput{Title: "Dune", Author: "Frank Herbert", ISBN: "9780441013593", PublicationYear: 1965},
	}
	for _, f := range forms {
		if err := v.Validate(f); err != nil {
			t.Errorf("%T: unexpected error %v", f, err)
		}
	}
}

func TestValidateBookInput(t *testing.T) {
	v := NewFormValidator()
	tests := []struct {
		in   BookInput
		want string
	}{
		{BookInput{Author: "A"}, "Title is required"},
		{BookInput{Title: "T"}, "Author is required"},
		{BookInput{Title: strings.Repeat("x", 256), Author: "A"}, "Title must be no more than 255 characters"},
		{BookInput{Title: "T", Author: "A", PublicationYear: 12345}, "Publication year must be at most 9999"},
	}
	for _, tt := range tests {
		err := v.Validate(tt.in)
		if err == nil || err.Error() != tt.want {
			t.Errorf("want %q, got %v", tt.want, err)
		}
	}
}
