package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"library-catalog/internal/output"
)

func main() {
	if err := Execute(); err != nil {
		p := printer
		if p == nil {
			p = output.NewPrinter(os.Stdout, os.Stderr, false)
		}
		p.FormatError(err)
		os.Exit(output.ExitCodeOf(err))
	}
}

// prompter reads answers line by line from in. Passwords are read without echo
// when in is a terminal.
type prompter struct {
	in  io.Reader
	out io.Writer
	sc  *bufio.Scanner
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: in, out: out, sc: bufio.NewScanner(in)}
}

// ask prints label and returns the trimmed answer. ok is false at end of input.
func (p *prompter) ask(label string) (string, bool) {
	fmt.Fprint(p.out, label)
	if !p.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.sc.Text()), true
}

// askDefault is ask with a value kept when the answer is empty.
func (p *prompter) askDefault(label, current string) (string, bool) {
	if current != "" {
		label = fmt.Sprintf("%s [%s]: ", strings.TrimSuffix(label, ": "), current)
	}
	answer, ok := p.ask(label)
	if answer == "" {
		answer = current
	}
	return answer, ok
}

func (p *prompter) askInt(label string) (int64, bool, error) {
	answer, ok := p.ask(label)
	if !ok || answer == "" {
		return 0, ok, nil
	}
	n, err := strconv.ParseInt(answer, 10, 64)
	if err != nil {
		return 0, true, fmt.Errorf("invalid number: %s", answer)
	}
	return n, true, nil
}

func (p *prompter) confirm(label string) bool {
	answer, _ := p.ask(label + " [y/N]: ")
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// readPassword securely reads a password with masking
func (p *prompter) readPassword(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(p.out, label)
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(p.out) // Add newline after password input
		return strings.TrimSpace(string(bytePassword)), nil
	}
	answer, ok := p.ask(label)
	if !ok {
		return "", io.ErrUnexpectedEOF
	}
	return answer, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, &output.CLIError{
			Summary:  fmt.Sprintf("Invalid ID: %s", s),
			ExitCode: output.ExitUsageError,
		}
	}
	return id, nil
}

