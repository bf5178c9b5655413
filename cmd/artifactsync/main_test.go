package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flag variables outlive a single Execute.
	rootFlags.config, rootFlags.report = "", "ascii"
	matrixFlags.hash, matrixFlags.excluded = "", false
	compareFlags.hash, compareFlags.phash = "", ""
	downloadFlags.token, downloadFlags.phash, downloadFlags.noCompare = "", "", false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writeConfig points every working directory into a fresh temp dir.
func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	yml := fmt.Sprintf(`paths:
  current_logs: %[1]s/current_logs
  previous_logs: %[1]s/previous_logs
  summaries: %[1]s/summaries
  staging: %[1]s/temp
log:
  level: warn
`, root)
	p := filepath.Join(root, "artifactsync.yaml")
	writeFile(t, p, yml)
	return p, root
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "artifactsync dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestMatrix_PrintsBoundTargets(t *testing.T) {
	out, err := execute(t, "matrix", "--hash", "abc123")
	if err != nil {
		t.Fatalf("matrix: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 16 {
		t.Errorf("got %d targets, want 16:\n%s", len(lines), out)
	}
	if !slices.Contains(lines, "gcc-linux-rv64gc-lp64d-abc123-multilib") {
		t.Errorf("rv64gc multilib target missing:\n%s", out)
	}
	if slices.Contains(lines, "gcc-linux-rv32gc-ilp32d-abc123-multilib") {
		t.Errorf("excluded rv32gc multilib target listed:\n%s", out)
	}
}

func TestMatrix_Excluded(t *testing.T) {
	out, err := execute(t, "matrix", "--excluded", "--report", "markdown")
	if err != nil {
		t.Fatalf("matrix --excluded: %v", err)
	}
	for _, want := range []string{"arch-mode", "| Combination"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCompare_NoBaseline(t *testing.T) {
	cfgPath, root := writeConfig(t)
	log := "gcc-linux-rv64gc-lp64d-abc123-multilib-report.log"
	writeFile(t, filepath.Join(root, "current_logs", log), "PASS: a\nFAIL: b\n")

	out, err := execute(t, "compare", "--config", cfgPath, "--report", "ascii")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(out, "no-baseline") {
		t.Errorf("report missing no-baseline:\n%s", out)
	}

	summary, err := os.ReadFile(filepath.Join(root, "summaries", "gcc-linux-rv64gc-lp64d-abc123-multilib-report-summary.md"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !strings.Contains(string(summary), "abc123-no-baseline") {
		t.Errorf("summary missing self-baseline hash:\n%s", summary)
	}
}

func TestDownload_RequiresToken(t *testing.T) {
	cfgPath, _ := writeConfig(t)
	t.Setenv("GITHUB_TOKEN", "")
	_, err := execute(t, "download", "--config", cfgPath, "--hash", "abc123")
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Errorf("err = %v, want a missing token error", err)
	}
}

func TestRoot_RejectsBadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.yaml")
	writeFile(t, p, "parallel: 0\n")
	_, err := execute(t, "compare", "--config", p)
	if err == nil || !strings.Contains(err.Error(), "parallel") {
		t.Errorf("err = %v, want a parallel validation error", err)
	}
}
