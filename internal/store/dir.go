package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dir implements Store on a directory. Subdirectories and dotfiles are not
// entries.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: create %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory backing d.
func (d *Dir) Root() string { return d.root }

func (d *Dir) List(_ context.Context, pattern string) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", d.root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ok, err := matches(pattern, e.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (d *Dir) Has(_ context.Context, name string) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	info, err := os.Stat(d.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: stat %s: %w", name, err)
	}
	return !info.IsDir(), nil
}

func (d *Dir) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(d.Path(name))
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", name, err)
	}
	return f, nil
}

// Put writes to a temporary file in the same directory and renames it into
// place, so readers never observe a partial entry.
func (d *Dir) Put(_ context.Context, name string, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.root, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: put %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), d.Path(name)); err != nil {
		return fmt.Errorf("store: rename %s: %w", name, err)
	}
	return nil
}

func (d *Dir) Delete(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.Remove(d.Path(name)); err != nil {
		return fmt.Errorf("store: delete %s: %w", name, err)
	}
	return nil
}

func (d *Dir) Path(name string) string {
	return filepath.Join(d.root, name)
}
