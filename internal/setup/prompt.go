// Package setup implements the interactive first-run wizard that guides users
// through authenticating with a calendar provider and writing the calsync
// configuration file.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Prompter reads interactive answers line by line. Production code hands it
// os.Stdin and os.Stdout; tests inject buffers.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter creates a Prompter over the given reader and writer.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// readLine returns the next trimmed input line. The second return is false
// once the input is exhausted.
func (p *Prompter) readLine() (string, bool) {
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// String asks for a text value. Enter on an empty line yields fallback; with
// no fallback the question repeats until something is typed.
func (p *Prompter) String(label, fallback string) string {
	for {
		if fallback == "" {
			fmt.Fprintf(p.out, "  %s: ", label)
		} else {
			fmt.Fprintf(p.out, "  %s [%s]: ", label, fallback)
		}

		line, ok := p.readLine()
		if !ok || line == "" {
			if fallback != "" || !ok {
				return fallback
			}
			fmt.Fprintln(p.out, "  (a value is required here)")
			continue
		}
		return line
	}
}

// Optional asks for a value the user may skip entirely.
func (p *Prompter) Optional(label string) string {
	fmt.Fprintf(p.out, "  %s (optional): ", label)
	line, _ := p.readLine()
	return line
}

// Confirm asks a yes/no question; a bare Enter answers with defaultYes.
func (p *Prompter) Confirm(label string, defaultYes bool) bool {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}
	fmt.Fprintf(p.out, "  %s [%s]: ", label, hint)

	line, ok := p.readLine()
	if !ok || line == "" {
		return defaultYes
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Select shows a numbered menu and returns the zero-based index of the pick.
func (p *Prompter) Select(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("selecting %q: no options", label)
	}

	fmt.Fprintf(p.out, "  %s:\n", label)
	for i, opt := range options {
		fmt.Fprintf(p.out, "    %d) %s\n", i+1, opt)
	}

	for {
		fmt.Fprintf(p.out, "  Choice [1-%d]: ", len(options))
		line, ok := p.readLine()
		if !ok {
			return -1, fmt.Errorf("selecting %q: input closed", label)
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(options) {
			fmt.Fprintf(p.out, "  (pick a number between 1 and %d)\n", len(options))
			continue
		}
		return n - 1, nil
	}
}
