package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	d, err := NewDir(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{"dir": d, "mem": NewMem("logs")}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"b-report.log", "a-report.log", "failed_build.txt"} {
				if err := s.Put(ctx, n, strings.NewReader("content of "+n)); err != nil {
					t.Fatalf("Put(%s): %v", n, err)
				}
			}

			all, err := s.List(ctx, "")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"a-report.log", "b-report.log", "failed_build.txt"}, all); diff != "" {
				t.Errorf("List mismatch:\n%s", diff)
			}

			logs, err := s.List(ctx, "*-report.log")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]string{"a-report.log", "b-report.log"}, logs); diff != "" {
				t.Errorf("filtered List mismatch:\n%s", diff)
			}

			rc, err := s.Open(ctx, "a-report.log")
			if err != nil {
				t.Fatal(err)
			}
			data, _ := io.ReadAll(rc)
			rc.Close()
			if string(data) != "content of a-report.log" {
				t.Errorf("content = %q", data)
			}

			if err := s.Delete(ctx, "a-report.log"); err != nil {
				t.Fatal(err)
			}
			ok, err := s.Has(ctx, "a-report.log")
			if err != nil || ok {
				t.Errorf("Has after Delete = %v, %v", ok, err)
			}
			if _, err := s.Open(ctx, "a-report.log"); !errors.Is(err, ErrNotExist) {
				t.Errorf("Open after Delete err = %v, want ErrNotExist", err)
			}
		})
	}
}

func TestStore_RejectsPaths(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"", "..", "../escape.log", "sub/file.log"} {
				if err := s.Put(ctx, n, strings.NewReader("x")); !errors.Is(err, ErrBadName) {
					t.Errorf("Put(%q) err = %v, want ErrBadName", n, err)
				}
			}
		})
	}
}

func TestDir_SkipsDirsAndTempFiles(t *testing.T) {
	ctx := context.Background()
	d, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(d.Root(), "extract"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(d.Root(), ".partial.tmp"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Put(ctx, "x.log", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	names, err := d.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"x.log"}, names); diff != "" {
		t.Errorf("List mismatch:\n%s", diff)
	}
	if ok, _ := d.Has(ctx, "extract"); ok {
		t.Error("directory reported as entry")
	}
}
