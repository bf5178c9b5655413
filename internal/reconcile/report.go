package reconcile

import (
	"fmt"
	"strings"
	"time"

	"artifactsync/internal/format"
	"artifactsync/internal/target"
)

// Status is the final state of one target in a run.
type Status int

const (
	StatusCompared        Status = iota // compared against a previous log
	StatusNoBaseline                    // compared against itself
	StatusFetched                       // previous log in place, comparison skipped
	StatusBuildFailed                   // no archive, no log
	StatusTestsuiteFailed               // archive without a report log
	StatusCompareFailed                 // comparator rejected the logs
	StatusFetchFailed                   // previous artifact could not be fetched
)

var statusNames = [...]string{
	StatusCompared:        "compared",
	StatusNoBaseline:      "no-baseline",
	StatusFetched:         "fetched",
	StatusBuildFailed:     "build-failed",
	StatusTestsuiteFailed: "testsuite-failed",
	StatusCompareFailed:   "compare-failed",
	StatusFetchFailed:     "fetch-failed",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Failed reports whether s is one of the failure states.
func (s Status) Failed() bool { return s >= StatusBuildFailed }

// Outcome is the result for one target.
type Outcome struct {
	Target      target.ID
	Status      Status
	PreviousLog string // path, empty without a baseline
	Summary     string // path, empty when no comparison ran
	Digest      string // BLAKE3 of the fetched previous archive, hex
	Err         error
}

// Report collects the outcomes of a run in target order.
type Report struct {
	RunID    string
	Started  time.Time
	Elapsed  time.Duration
	Outcomes []Outcome
}

// Count returns the number of outcomes with status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the outcomes in a failure state.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Render formats the report as a table in mode m.
func (r *Report) Render(m format.Mode) string {
	tb := format.NewTable(m)
	tb.Header("#", "Target", "Status", "Previous", "Digest", "Detail")
	for i, o := range r.Outcomes {
		detail := ""
		if o.Err != nil {
			detail = format.Truncate(oneLine(o.Err.Error()), 80)
		} else if o.Summary != "" {
			detail = o.Summary
		}
		tb.Row(i+1, o.Target.String(), o.Status.String(), baseName(o.PreviousLog), shortDigest(o.Digest), detail)
	}
	tb.AlignRight(1)

	var counts []string
	for s := StatusCompared; s <= StatusFetchFailed; s++ {
		if n := r.Count(s); n > 0 {
			counts = append(counts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	tb.Footer("", fmt.Sprintf("%d targets", len(r.Outcomes)), strings.Join(counts, " "), "", "", format.FmtDuration(r.Elapsed))

	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	b.WriteString(tb.String())
	b.WriteString("\n")
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
