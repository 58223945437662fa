package output

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	return NewPrinter(out, errOut, false), out, errOut
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{"auto", ColorAuto, false},
		{"", ColorAuto, false},
		{"always", ColorAlways, false},
		{"never", ColorNever, false},
		{"sometimes", ColorAuto, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseColorMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveColors(t *testing.T) {
	buf := new(bytes.Buffer)
	assert.True(t, ResolveColors(ColorAlways, false, buf))
	assert.False(t, ResolveColors(ColorNever, true, buf))
	// A buffer is not a terminal.
	assert.False(t, ResolveColors(ColorAuto, true, buf))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(ColorAuto, true, buf))
}

func TestPrinter_PlainPrefixes(t *testing.T) {
	p, out, errOut := newTestPrinter()

	p.Success("signed in as %s", "ada")
	p.Info("3 books")
	p.Warning("no token")
	p.Error("boom")

	assert.Contains(t, out.String(), "[OK] signed in as ada")
	assert.Contains(t, out.String(), "3 books")
	assert.Contains(t, errOut.String(), "[WARN] no token")
	assert.Contains(t, errOut.String(), "[ERROR] boom")
}

func TestPrinter_Header(t *testing.T) {
	p, out, _ := newTestPrinter()
	p.Header("Books")
	assert.Equal(t, "\nBooks\n-----\n", out.String())
}

func TestPrinter_Badges(t *testing.T) {
	p, _, _ := newTestPrinter()
	assert.Equal(t, "Available", p.Availability(true))
	assert.Equal(t, "Not Available", p.Availability(false))
	assert.Equal(t, "ACTIVE", p.LoanStatus("ACTIVE"))
	assert.Equal(t, "x", p.Bold("x"))
	assert.Equal(t, "x", p.Dim("x"))
}

func TestFormatError(t *testing.T) {
	p, _, errOut := newTestPrinter()
	p.FormatError(&CLIError{
		Summary:    "Not signed in",
		Detail:     "this page needs an account",
		Suggestion: "run 'library-catalog login'",
		ExitCode:   ExitAuthError,
	})

	assert.Contains(t, errOut.String(), "[ERROR] Not signed in")
	assert.Contains(t, errOut.String(), "Cause: this page needs an account")
	assert.Contains(t, errOut.String(), "Suggestion: run 'library-catalog login'")

	errOut.Reset()
	p.FormatError(errors.New("plain"))
	assert.Equal(t, "[ERROR] plain\n", errOut.String())
}

func TestExitCodeOf(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeOf(nil))
	assert.Equal(t, ExitGeneral, ExitCodeOf(errors.New("x")))
	wrapped := fmt.Errorf("wrap: %w", &CLIError{Summary: "s", ExitCode: ExitAPIError})
	assert.Equal(t, ExitAPIError, ExitCodeOf(wrapped))
}

func TestTable_Render(t *testing.T) {
	buf := new(bytes.Buffer)
	table := NewTable(buf, []string{"ID", "TITLE"})
	table.AddRow("1", "Dune")
	table.AddRow("2", "Emma")
	require.NoError(t, table.Render())

	assert.Equal(t, 2, table.Len())
	assert.Contains(t, buf.String(), "Dune")
	assert.Contains(t, buf.String(), "Emma")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Dune", Truncate("Dune", 10))
	assert.Equal(t, "Harry P...", Truncate("Harry Potter and the Chamber of Secrets", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "Ångst...", Truncate("Ångström units", 8))
}
