// Package prompt asks the user for missing command input on a terminal.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when input is needed but stdin is not a terminal
var ErrNotInteractive = errors.New("stdin is not a terminal")

// Prompter reads command input from the user
type Prompter interface {
	Interactive() bool
	Text(label string, validate func(string) error) (string, error)
	Password(label string) (string, error)
}

// Terminal prompts on the process's stdin
type Terminal struct {
	in  *os.File
	out io.Writer
}

// NewTerminal returns a prompter over stdin, echoing labels to out
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{in: os.Stdin, out: out}
}

// Interactive reports whether stdin is a terminal (not piped)
func (t *Terminal) Interactive() bool {
	return term.IsTerminal(int(t.in.Fd()))
}

// Text shows a single-line prompt
func (t *Terminal) Text(label string, validate func(string) error) (string, error) {
	if !t.Interactive() {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), ErrNotInteractive)
	}

	p := promptui.Prompt{
		Label:    label,
		Validate: validate,
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . }}: ",
			Valid:   "{{ . | green }}: ",
			Invalid: "{{ . | red }}: ",
			Success: "{{ . }}: ",
		},
	}

	value, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("%s cancelled: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(value), nil
}

// Password reads a secret without echoing it
func (t *Terminal) Password(label string) (string, error) {
	if !t.Interactive() {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), ErrNotInteractive)
	}

	fmt.Fprintf(t.out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(t.in.Fd()))
	fmt.Fprintln(t.out) // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

// NotEmpty is a Text validator rejecting blank input
func NotEmpty(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", label)
		}
		return nil
	}
}
