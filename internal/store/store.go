// Package store holds flat collections of named artifact files: current logs,
// previous logs, summaries, and the download staging area.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNotExist is returned (wrapped) when a named entry is absent.
var ErrNotExist = fs.ErrNotExist

// ErrBadName is returned for names that are not a single path element.
var ErrBadName = errors.New("store: bad name")

// Store is a flat namespace of files addressed by name.
type Store interface {
	// List returns entry names in lexical order. A non-empty pattern filters
	// names with doublestar glob syntax.
	List(ctx context.Context, pattern string) ([]string, error)
	Has(ctx context.Context, name string) (bool, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Put creates or replaces name with the contents of r.
	Put(ctx context.Context, name string, r io.Reader) error
	Delete(ctx context.Context, name string) error
	// Path returns a location the entry can be read from by other programs.
	Path(name string) string
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

func matches(pattern, name string) (bool, error) {
	if pattern == "" {
		return true, nil
	}
	ok, err := doublestar.Match(pattern, name)
	if err != nil {
		return false, fmt.Errorf("store: pattern %q: %w", pattern, err)
	}
	return ok, nil
}
