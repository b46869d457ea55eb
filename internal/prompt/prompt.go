// Package prompt reads operator answers: confirmations, passphrases and
// "press Enter" pauses.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/systmms/ykvc/internal/errors"
)

// Prompter is what the commands need from the operator.
type Prompter interface {
	// Confirm asks a yes/no question. The default answer is no.
	Confirm(message string) (bool, error)
	// Secret reads a line without echoing it when input is a terminal.
	Secret(message string) (string, error)
	// Wait blocks until the operator presses Enter.
	Wait(message string) error
}

// Terminal prompts on Out and reads answers from In.
type Terminal struct {
	In  io.Reader
	Out io.Writer
	// NonInteractive refuses confirmations and skips pauses.
	NonInteractive bool

	reader *bufio.Reader
}

var _ Prompter = (*Terminal)(nil)

// NewTerminal returns a prompter bound to the process stdio.
func NewTerminal(nonInteractive bool) *Terminal {
	return &Terminal{
		In:             os.Stdin,
		Out:            os.Stderr,
		NonInteractive: nonInteractive,
	}
}

func (t *Terminal) Confirm(message string) (bool, error) {
	if t.NonInteractive {
		return false, errors.Cancelled()
	}

	fmt.Fprintf(t.Out, "%s [y/N]: ", message)
	line, err := t.readLine()
	if err != nil && line == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (t *Terminal) Secret(message string) (string, error) {
	fmt.Fprintf(t.Out, "%s: ", message)

	if f, ok := t.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(t.Out)
		if err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return string(b), nil
	}

	line, err := t.readLine()
	if err != nil && line == "" && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (t *Terminal) Wait(message string) error {
	if t.NonInteractive {
		return nil
	}

	fmt.Fprintf(t.Out, "%s...", message)
	_, err := t.readLine()
	if err == io.EOF {
		return nil
	}
	return err
}

func (t *Terminal) readLine() (string, error) {
	if t.reader == nil {
		in := t.In
		if in == nil {
			in = os.Stdin
		}
		t.reader = bufio.NewReader(in)
	}
	return t.reader.ReadString('\n')
}
