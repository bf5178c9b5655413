package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command runs an external comparator as
//
//	argv... <prev-hash> <prev-log> <cur-hash> <cur-log> <output>
//
// A non-zero exit is reported as a *Error of KindCommand carrying the tail
// of the program's stderr.
type Command struct {
	argv []string
}

// NewCommand returns a Command for argv. argv[0] must be resolvable on PATH.
func NewCommand(argv []string) (*Command, error) {
	if len(argv) == 0 {
		return nil, errors.New("compare: empty command")
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, fmt.Errorf("compare: %w", err)
	}
	return &Command{argv: append([]string(nil), argv...)}, nil
}

func (c *Command) Compare(ctx context.Context, r Request) error {
	args := append(append([]string(nil), c.argv[1:]...),
		r.PreviousHash, r.PreviousLog, r.CurrentHash, r.CurrentLog, r.Output)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &Error{Kind: KindCommand, Log: r.CurrentLog, Err: fmt.Errorf("%w: %s", err, lastLine(stderr.String()))}
	}
	if err != nil {
		return fmt.Errorf("compare: run %s: %w", c.argv[0], err)
	}
	return nil
}

// lastLine returns the last non-empty line of s, which for Python tracebacks
// is the exception message.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
