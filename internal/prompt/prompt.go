// Package prompt asks the user questions on a line-oriented terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// ErrAborted is returned when input ends before a question is answered.
var ErrAborted = errors.New("input closed")

// Prompter asks questions. Indices refer to positions in choices.
type Prompter interface {
	// Select returns the index of the chosen item. def is preselected.
	Select(title string, choices []string, def int) (int, error)
	// MultiSelect returns the selection state of every choice, starting from
	// selected.
	MultiSelect(title string, choices []string, selected []bool) ([]bool, error)
	// Input reads a line of text. An empty answer returns def.
	Input(title, def string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(title string, def bool) (bool, error)
	// Info prints a message.
	Info(format string, args ...any)
}

// Terminal is a Prompter reading answers line by line from in.
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminal returns a prompter reading from in and writing to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f any) bool {
	file, ok := f.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Info implements Prompter.
func (t *Terminal) Info(format string, args ...any) {
	_, _ = fmt.Fprintf(t.out, format+"\n", args...)
}

// Select implements Prompter.
func (t *Terminal) Select(title string, choices []string, def int) (int, error) {
	if len(choices) == 0 {
		return 0, errors.New("select: no choices")
	}
	if def < 0 || def >= len(choices) {
		def = 0
	}
	for {
		_, _ = fmt.Fprintf(t.out, "%s\n", title)
		for i, c := range choices {
			marker := " "
			if i == def {
				marker = ">"
			}
			_, _ = fmt.Fprintf(t.out, "%s %d) %s\n", marker, i+1, c)
		}
		_, _ = fmt.Fprintf(t.out, "Choice [%d]: ", def+1)

		line, err := t.readLine()
		if err != nil {
			return 0, err
		}
		if line == "" {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil && n >= 1 && n <= len(choices) {
			return n - 1, nil
		}
		_, _ = fmt.Fprintf(t.out, "Please enter a number between 1 and %d.\n", len(choices))
	}
}

// MultiSelect implements Prompter. Each answer toggles the listed numbers
// or ranges ("1,3-5"); "a" selects all, "n" clears, an empty line confirms.
func (t *Terminal) MultiSelect(title string, choices []string, selected []bool) ([]bool, error) {
	state := make([]bool, len(choices))
	copy(state, selected)

	for {
		_, _ = fmt.Fprintf(t.out, "%s\n", title)
		for i, c := range choices {
			box := "[ ]"
			if state[i] {
				box = "[x]"
			}
			_, _ = fmt.Fprintf(t.out, "  %s %d) %s\n", box, i+1, c)
		}
		_, _ = fmt.Fprint(t.out, "Toggle (e.g. 1,3-5; a=all, n=none; enter to confirm): ")

		line, err := t.readLine()
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(line) {
		case "":
			return state, nil
		case "a", "all":
			for i := range state {
				state[i] = true
			}
			continue
		case "n", "none":
			for i := range state {
				state[i] = false
			}
			continue
		}

		indices, err := ParseIndices(line, len(choices))
		if err != nil {
			_, _ = fmt.Fprintf(t.out, "%v\n", err)
			continue
		}
		for _, i := range indices {
			state[i] = !state[i]
		}
	}
}

// Input implements Prompter.
func (t *Terminal) Input(title, def string) (string, error) {
	if def != "" {
		_, _ = fmt.Fprintf(t.out, "%s [%s]: ", title, def)
	} else {
		_, _ = fmt.Fprintf(t.out, "%s: ", title)
	}
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(title string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		_, _ = fmt.Fprintf(t.out, "%s [%s]: ", title, hint)
		line, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

// ParseIndices parses 1-based numbers and ranges separated by commas or
// spaces into 0-based indices below n.
func ParseIndices(s string, n int) ([]int, error) {
	var out []int
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	for _, f := range fields {
		lo, hi := f, f
		if i := strings.Index(f, "-"); i > 0 {
			lo, hi = f[:i], f[i+1:]
		}
		a, errA := strconv.Atoi(lo)
		b, errB := strconv.Atoi(hi)
		if errA != nil || errB != nil || a < 1 || b > n || a > b {
			return nil, fmt.Errorf("invalid selection %q (choose between 1 and %d)", f, n)
		}
		for i := a; i <= b; i++ {
			out = append(out, i-1)
		}
	}
	return out, nil
}
