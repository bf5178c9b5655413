// Package compare defines the log comparator collaborator and two
// implementations: an external command and a built-in result counter.
package compare

import (
	"context"
	"fmt"
	"strings"
)

// NoBaselineSuffix marks both hashes of a self-comparison made when no
// previous log exists.
const NoBaselineSuffix = "-no-baseline"

// Request is one comparison of a previous log against a current log.
type Request struct {
	PreviousHash string
	PreviousLog  string
	CurrentHash  string
	CurrentLog   string
	Output       string // summary path, overwritten
}

// SelfBaseline returns the degenerate request used when no previous log is
// available: the current log compared against itself under a sentinel hash.
func SelfBaseline(currentHash, currentLog, output string) Request {
	h := currentHash + NoBaselineSuffix
	return Request{
		PreviousHash: h,
		PreviousLog:  currentLog,
		CurrentHash:  h,
		CurrentLog:   currentLog,
		Output:       output,
	}
}

// IsSelfBaseline reports whether r was built by SelfBaseline.
func (r Request) IsSelfBaseline() bool {
	return r.PreviousLog == r.CurrentLog && strings.HasSuffix(r.CurrentHash, NoBaselineSuffix)
}

// Comparator writes a summary for r to r.Output. Rejections of the logs
// themselves are returned as *Error; any other error is an environment
// problem the caller should not absorb.
type Comparator interface {
	Compare(ctx context.Context, r Request) error
}

// Kind classifies a comparator rejection.
type Kind int

const (
	KindMalformed  Kind = iota // log content unusable
	KindUnreadable             // log could not be read
	KindCommand                // external comparator exited non-zero
)

func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "malformed log"
	case KindUnreadable:
		return "unreadable log"
	default:
		return "comparator failed"
	}
}

// Error is a per-target comparison failure.
type Error struct {
	Kind Kind
	Log  string
	Err  error
}

func (e *Error) Error() string {
	if e.Log != "" {
		return fmt.Sprintf("%s %s: %v", e.Kind, e.Log, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
