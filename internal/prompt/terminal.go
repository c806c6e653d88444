// Package prompt implements the operator interaction port on a line-based
// terminal: numbered choice lists and yes/no questions read from stdin.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Terminal asks questions on an output writer and reads answers line by
// line from an input reader.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal creates a prompter bound to stdin/stdout.
func NewTerminal() *Terminal {
	return NewTerminalWithIO(os.Stdin, os.Stdout)
}

// NewTerminalWithIO creates a prompter with explicit streams, used in tests.
func NewTerminalWithIO(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// AskChoice prints the prompt and a numbered option list, then reads
// answers until the operator enters a valid option number. Returns the
// zero-based index of the selection.
func (t *Terminal) AskChoice(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("no options to choose from")
	}

	fmt.Fprintf(t.out, "%s\n", prompt)
	for i, option := range options {
		fmt.Fprintf(t.out, "  %d. %s\n", i+1, option)
	}

	for {
		fmt.Fprintf(t.out, "Enter choice [1-%d]: ", len(options))
		line, err := t.readLine()
		if err != nil {
			return 0, err
		}

		choice, err := strconv.Atoi(line)
		if err != nil || choice < 1 || choice > len(options) {
			fmt.Fprintf(t.out, "Please enter a number between 1 and %d.\n", len(options))
			continue
		}
		return choice - 1, nil
	}
}

// AskYesNo asks a yes/no question and reads answers until the operator
// enters one of y/yes/n/no (case insensitive).
func (t *Terminal) AskYesNo(prompt string) (bool, error) {
	for {
		fmt.Fprintf(t.out, "%s [y/n]: ", prompt)
		line, err := t.readLine()
		if err != nil {
			return false, err
		}

		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprintln(t.out, "Please answer y or n.")
		}
	}
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading operator input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
