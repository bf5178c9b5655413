package reconcile

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"artifactsync/internal/failures"
	"artifactsync/internal/store"
	"artifactsync/internal/target"
)

func newClassifier(t *testing.T) (*Classifier, *store.Mem, *store.Mem, *failures.Log) {
	t.Helper()
	staging, current := store.NewMem("temp"), store.NewMem("current_logs")
	fl, err := failures.New(t.TempDir())
	if err != nil {
		t.Fatalf("failures.New: %v", err)
	}
	return &Classifier{Staging: staging, Current: current, Failures: fl}, staging, current, fl
}

func mustParse(t *testing.T, name string) target.ID {
	t.Helper()
	id, err := target.Parse(name)
	if err != nil {
		t.Fatalf("Parse(%q): %v", name, err)
	}
	return id
}

func readRecords(t *testing.T, fl *failures.Log, c failures.Category) []failures.Record {
	t.Helper()
	recs, err := fl.Read(c)
	if err != nil {
		t.Fatalf("Read %v: %v", c, err)
	}
	return recs
}

func TestClassify(t *testing.T) {
	id := mustParse(t, "gcc-linux-rv64gc-lp64d-abc123-multilib")
	tests := []struct {
		name       string
		archive    bool
		log        bool
		wantUsable bool
		wantBuild  int
		wantSuite  int
	}{
		{"neither is a build failure", false, false, false, 1, 0},
		{"archive without log is a testsuite failure", true, false, false, 0, 1},
		{"archive and log are usable", true, true, true, 0, 0},
		{"log without archive is usable", false, true, true, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, staging, current, fl := newClassifier(t)
			if tt.archive {
				staging.PutString(id.Archive(), "zip")
			}
			if tt.log {
				current.PutString(id.ReportLog(), "PASS: x\n")
			}

			got, err := c.Classify(context.Background(), id)
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got.Usable != tt.wantUsable {
				t.Errorf("Usable = %v, want %v", got.Usable, tt.wantUsable)
			}
			if (got.Failure == nil) != tt.wantUsable {
				t.Errorf("Failure = %+v with Usable = %v", got.Failure, got.Usable)
			}
			if n := len(readRecords(t, fl, failures.Build)); n != tt.wantBuild {
				t.Errorf("build records = %d, want %d", n, tt.wantBuild)
			}
			if n := len(readRecords(t, fl, failures.Testsuite)); n != tt.wantSuite {
				t.Errorf("testsuite records = %d, want %d", n, tt.wantSuite)
			}
		})
	}
}

func TestClassify_RecordContent(t *testing.T) {
	id := mustParse(t, "gcc-newlib-rv32gcv-ilp32d-abc123-non-multilib")
	c, staging, _, fl := newClassifier(t)
	staging.PutString(id.Archive(), "zip")

	if _, err := c.Classify(context.Background(), id); err != nil {
		t.Fatalf("Classify: %v", err)
	}

	want := []failures.Record{{
		Category: failures.Testsuite,
		Name:     "gcc-newlib-rv32gcv-ilp32d-abc123-non-multilib",
		Reason:   failures.ReasonMissingTestLog,
	}}
	if diff := cmp.Diff(want, readRecords(t, fl, failures.Testsuite)); diff != "" {
		t.Errorf("testsuite records mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_RerunAppendsAgain(t *testing.T) {
	id := mustParse(t, "gcc-linux-rv64gc-lp64d-abc123-multilib")
	c, _, _, fl := newClassifier(t)
	for range 2 {
		if _, err := c.Classify(context.Background(), id); err != nil {
			t.Fatalf("Classify: %v", err)
		}
	}
	rec := failures.Record{Category: failures.Build, Name: id.String(), Reason: failures.ReasonBuild}
	if diff := cmp.Diff([]failures.Record{rec, rec}, readRecords(t, fl, failures.Build)); diff != "" {
		t.Errorf("build records mismatch (-want +got):\n%s", diff)
	}
}
