// Package failures appends per-target failure records to the pipe-delimited
// failed_build.txt and failed_testsuite.txt logs.
package failures

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Category selects the failure log a record goes to.
type Category int

const (
	// Build means the toolchain build produced no artifact.
	Build Category = iota
	// Testsuite means the testsuite did not complete or its log was rejected.
	Testsuite
)

func (c Category) String() string {
	if c == Build {
		return "build"
	}
	return "testsuite"
}

// FileName returns the log file name for c.
func (c Category) FileName() string {
	if c == Build {
		return "failed_build.txt"
	}
	return "failed_testsuite.txt"
}

// Reasons written by the classifier.
const (
	ReasonBuild          = "Check logs"
	ReasonMissingTestLog = "Cannot find testsuite artifact. Likely caused by testsuite timeout."
)

// Record is one line of a failure log.
type Record struct {
	Category Category
	Name     string
	Reason   string
}

// Line renders r as written to disk. Newlines in the reason are flattened so
// a record always occupies one line.
func (r Record) Line() string {
	reason := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(r.Reason)
	return r.Name + "|" + reason + "\n"
}

// Log appends records under dir. Appends are serialized within the process by
// a mutex and across processes by an advisory lock file.
type Log struct {
	dir string
	mu  sync.Mutex
}

// New returns a Log writing into dir, creating it if needed.
func New(dir string) (*Log, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failures: create %s: %w", dir, err)
	}
	return &Log{dir: dir}, nil
}

// Path returns the file records of category c are appended to.
func (l *Log) Path(c Category) string {
	return filepath.Join(l.dir, c.FileName())
}

// Append writes r to its category's log. Records are never deduplicated.
func (l *Log) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path := l.Path(r.Category)
	lock := flock.New(filepath.Join(l.dir, "."+r.Category.FileName()+".lock"))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failures: lock %s: %w", path, err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failures: open %s: %w", path, err)
	}
	if _, err := f.WriteString(r.Line()); err != nil {
		f.Close()
		return fmt.Errorf("failures: append %s: %w", path, err)
	}
	return f.Close()
}

// Read returns the records of category c in file order. A missing log reads
// as empty.
func (l *Log) Read(c Category) ([]Record, error) {
	f, err := os.Open(l.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failures: read %s: %w", c.FileName(), err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		name, reason, _ := strings.Cut(line, "|")
		out = append(out, Record{Category: c, Name: name, Reason: reason})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failures: scan %s: %w", c.FileName(), err)
	}
	return out, nil
}
