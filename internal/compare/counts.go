package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"artifactsync/internal/format"
)

// Results are the DejaGnu outcome prefixes Counts tallies, in report order.
var Results = []string{"PASS", "FAIL", "XPASS", "XFAIL", "UNRESOLVED", "UNSUPPORTED", "UNTESTED"}

var errEmptyLog = errors.New("log is empty")

// Tally maps a result prefix to its line count.
type Tally map[string]int

// CountResults tallies the lines of data that start with "<RESULT>: ".
// Lines have no length limit; the log is already in memory.
func CountResults(data []byte) Tally {
	t := Tally{}
	for line := range bytes.Lines(data) {
		prefix, _, ok := bytes.Cut(line, []byte(": "))
		if !ok {
			continue
		}
		for _, r := range Results {
			if string(prefix) == r {
				t[r]++
				break
			}
		}
	}
	return t
}

// Counts is the built-in comparator. It does not diff individual tests: it
// tallies result lines in both logs and writes a Markdown table of the
// counts and their change.
type Counts struct{}

func (Counts) Compare(ctx context.Context, r Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	prev, err := readLog(r.PreviousLog)
	if err != nil {
		return err
	}
	cur, err := readLog(r.CurrentLog)
	if err != nil {
		return err
	}

	before, after := CountResults(prev), CountResults(cur)

	var b strings.Builder
	fmt.Fprintf(&b, "# Testsuite summary: %s\n\n", strings.TrimSuffix(filepath.Base(r.CurrentLog), ".log"))
	if r.IsSelfBaseline() {
		fmt.Fprintf(&b, "No baseline available; current results are shown against themselves.\n\n")
	}
	fmt.Fprintf(&b, "- Previous: `%s` (%s)\n", r.PreviousHash, filepath.Base(r.PreviousLog))
	fmt.Fprintf(&b, "- Current: `%s` (%s)\n\n", r.CurrentHash, filepath.Base(r.CurrentLog))

	tb := format.NewTable(format.Markdown)
	tb.Header("Result", "Previous", "Current", "Delta")
	for _, res := range Results {
		if before[res] == 0 && after[res] == 0 {
			continue
		}
		tb.Row(res, before[res], after[res], format.FmtDelta(after[res]-before[res]))
	}
	tb.AlignRight(2, 3, 4)
	if tb.Len() == 0 {
		b.WriteString("No DejaGnu result lines found.\n")
	} else {
		b.WriteString(tb.String())
		b.WriteString("\n")
	}

	if err := os.MkdirAll(filepath.Dir(r.Output), 0o755); err != nil {
		return fmt.Errorf("compare: %w", err)
	}
	if err := os.WriteFile(r.Output, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("compare: write summary: %w", err)
	}
	return nil
}

func readLog(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: KindUnreadable, Log: path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &Error{Kind: KindMalformed, Log: path, Err: errEmptyLog}
	}
	return data, nil
}
