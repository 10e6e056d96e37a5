package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/contextweaver/internal/report"
	"github.com/phobologic/contextweaver/internal/wizard"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func createSampleRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "models.py", `class User:
    def __init__(self, name: str) -> None:
        self.name = name
`)
	writeTestFile(t, dir, "main.py", `from models import User

def greet(user: User) -> str:
    return f"Hello, {user.name}"
`)
	return dir
}

// runCLI runs the command line with stdin, returning stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	return exitErr.Code
}

func TestRunAnalyzeMarkdown(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, stderr, err := runCLI(t, "", "analyze", dir)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}

	data, err := os.ReadFile(filepath.Join(dir, defaultAnalyzeOutput))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	out := string(data)
	for _, want := range []string{
		"# Code Context Report: " + filepath.Base(dir),
		"# Hotspot Analysis",
		"File: main.py",
		"File: models.py",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
	if !strings.Contains(stderr, "wrote ") {
		t.Errorf("expected a summary line on stderr, got %q", stderr)
	}
}

func TestRunAnalyzeTOONStdout(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out, stderr, err := runCLI(t, "", "analyze", "-f", "toon", "-o", "-", dir)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	if !strings.HasPrefix(out, "name: ") {
		t.Errorf("toon output should start with name:, got:\n%s", out)
	}
	if !strings.Contains(out, "files[2]{") {
		t.Errorf("expected 2 files, got:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(dir, defaultAnalyzeOutput)); err == nil {
		t.Error("stdout output should not write a file")
	}
}

func TestRunAnalyzeDirFlag(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	if _, stderr, err := runCLI(t, "", "analyze", "-d", dir, "-o", "out/report.json", "-f", "json"); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "report.json")); err != nil {
		t.Errorf("report not written below the analyzed directory: %v", err)
	}
}

func TestRunMaxFiles(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out, _, err := runCLI(t, "", "analyze", "-n", "1", "-f", "toon", "-o", "-", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "files[1]{") {
		t.Errorf("expected 1 file, got:\n%s", out)
	}
}

func TestRunSections(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	out, _, err := runCLI(t, "", "analyze", "--sections", "tree", "-o", "-", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "# Directory Tree") {
		t.Error("missing requested section")
	}
	if strings.Contains(out, "# Hotspot Analysis") {
		t.Error("unrequested section rendered")
	}

	out, _, err = runCLI(t, "", "analyze", "--exclude-sections", "hotspots", "-o", "-", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out, "# Hotspot Analysis") {
		t.Error("excluded section rendered")
	}
}

func TestRunUnknownSection(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, _, err := runCLI(t, "", "analyze", "--sections", "bogus", dir)
	if code := exitCodeOf(t, err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunUnknownFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, _, err := runCLI(t, "", "analyze", "-f", "xml", dir)
	if code := exitCodeOf(t, err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if _, err := os.Stat(filepath.Join(dir, defaultAnalyzeOutput)); err == nil {
		t.Error("no report should be written for an unknown format")
	}
}

func TestRunFocusNoMatch(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, _, err := runCLI(t, "", "analyze", "--focus", "Nonexistent", "-o", "-", dir)
	if err == nil || !strings.Contains(err.Error(), "Nonexistent") {
		t.Errorf("expected a focus error, got %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	out, _, err := runCLI(t, "", "--version")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "contextweaver "+version) {
		t.Errorf("version output: %q", out)
	}
}

func TestRunNoFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "notes.txt", "nothing here")

	_, _, err := runCLI(t, "", "analyze", dir)
	if err == nil || !strings.Contains(err.Error(), "no files") {
		t.Errorf("expected no files error, got %v", err)
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "file.py")
	writeTestFile(t, dir, "file.py", "x = 1\n")

	_, _, err := runCLI(t, "", "analyze", path)
	if code := exitCodeOf(t, err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)
	writeTestFile(t, dir, "big.py", "x = 1\n"+strings.Repeat("# padding\n", 500))

	out, stderr, err := runCLI(t, "", "--log-level", "warn", "analyze", "--max-file-size", "1000", "-f", "toon", "-o", "-", dir)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out, "big.py") {
		t.Error("large file should be skipped")
	}
	if !strings.Contains(stderr, "skipping large file") {
		t.Errorf("expected a warning on stderr, got %q", stderr)
	}
}

func TestRunInvalidLogLevel(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, _, err := runCLI(t, "", "--log-level", "loud", "analyze", dir)
	if code := exitCodeOf(t, err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestRunWizardFlagsOnly(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, stderr, err := runCLI(t, "", "--all", "--sections", "tree", "-f", "json", "-o", "report.json", dir)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr)
	}
	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), report.DirectoryTreeName) {
		t.Errorf("json report should list the enabled section:\n%s", data)
	}
}

func TestRunWizardAnswers(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	// Select all sections, then confirm the preselected list.
	out, stderr, err := runCLI(t, "2\n\n", "--all", "-f", "markdown", "-o", "out.md", dir)
	if err != nil {
		t.Fatalf("run: %v\nstdout: %s\nstderr: %s", err, out, stderr)
	}
	if !strings.Contains(out, "Summary") {
		t.Errorf("expected the summary on stdout, got:\n%s", out)
	}
	data, err := os.ReadFile(filepath.Join(dir, "out.md"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(data), "# Hotspot Analysis") {
		t.Error("report missing optional sections")
	}
}

func TestRunWizardClosedInput(t *testing.T) {
	t.Parallel()
	dir := createSampleRepo(t)

	_, _, err := runCLI(t, "", "--all", "-f", "markdown", "-o", "out.md", dir)
	if code := exitCodeOf(t, err); code != 130 {
		t.Errorf("exit code = %d, want 130", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.md")); err == nil {
		t.Error("a cancelled wizard must not write a report")
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"cancelled", wizard.ErrCancelled, 130},
		{"interrupted", context.Canceled, 130},
		{"format", report.CheckFormat("xml"), 2},
		{"explicit", &ExitError{Code: 3, Message: "x"}, 3},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := exitCodeOf(t, exitCode(tt.err)); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
	if exitCode(nil) != nil {
		t.Error("nil error should stay nil")
	}
}
