package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTestDirMissing aborts a harness run before anything is compiled.
var ErrTestDirMissing = errors.New("test directory not found")

// HarnessSettings locates the project and describes how tests are built.
// Relative directories resolve against ProjectRoot.
type HarnessSettings struct {
	ProjectRoot string
	SrcDir      string
	TestDir     string
	BuildDir    string
	LogFile     string
	TestExt     string
	Compiler    string
	CFlags      []string
	LDFlags     []string
	Timeout     time.Duration // 0 disables
}

// DefaultHarnessSettings mirrors the project's C test layout.
func DefaultHarnessSettings() HarnessSettings {
	return HarnessSettings{
		ProjectRoot: ".",
		SrcDir:      "src",
		TestDir:     "tests",
		BuildDir:    filepath.Join("build", "tests"),
		LogFile:     "test_report.log",
		TestExt:     ".c",
		Compiler:    "gcc",
		CFlags:      []string{"-Wall", "-Wextra", "-O2", "-g"},
		LDFlags:     []string{"-lm", "-lpthread", "-lssl", "-lcrypto"},
	}
}

func (s HarnessSettings) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.ProjectRoot, p)
}

// LogBook accumulates the harness log in order. Every line is mirrored to the
// echo writer immediately; the file is written once by Flush.
type LogBook struct {
	lines []string
	echo  io.Writer
}

// NewLogBook returns an empty log mirrored to echo (which may be nil).
func NewLogBook(echo io.Writer) *LogBook {
	return &LogBook{echo: echo}
}

func (l *LogBook) Log(msg string) {
	l.lines = append(l.lines, msg)
	if l.echo != nil {
		fmt.Fprintln(l.echo, msg)
	}
}

func (l *LogBook) Logf(format string, args ...any) {
	l.Log(fmt.Sprintf(format, args...))
}

// Lines returns a copy of the accumulated lines.
func (l *LogBook) Lines() []string {
	return append([]string(nil), l.lines...)
}

func (l *LogBook) String() string {
	if len(l.lines) == 0 {
		return ""
	}
	return strings.Join(l.lines, "\n") + "\n"
}

// Flush writes the whole log to path, replacing earlier contents.
func (l *LogBook) Flush(path string) error {
	if err := os.WriteFile(path, []byte(l.String()), 0o644); err != nil {
		return fmt.Errorf("error writing log %s: %w", path, err)
	}
	return nil
}

// Harness discovers, compiles and runs the project's test programs.
type Harness struct {
	Settings  HarnessSettings
	Toolchain Toolchain
	Runner    ProcessRunner
	Log       *LogBook
	// Select optionally narrows the discovered tests; nil keeps all of them.
	Select   func(tests []string) ([]string, error)
	Revision string
	Now      func() time.Time
	NewRunID func() string
}

// NewHarness wires the harness to real child processes.
func NewHarness(s HarnessSettings, log *LogBook) *Harness {
	proc := execProcess{Timeout: s.Timeout}
	return &Harness{
		Settings:  s,
		Toolchain: proc,
		Runner:    proc,
		Log:       log,
		Now:       time.Now,
		NewRunID:  uuid.NewString,
	}
}

// Run truncates the log, compiles every discovered test, runs every test that
// compiled and writes the log. Only a missing test directory (or an unwritable
// log) is an error; per-test failures are recorded in the summary.
func (h *Harness) Run(ctx context.Context) (summary HarnessSummary, err error) {
	logPath := h.Settings.resolve(h.Settings.LogFile)
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		return summary, fmt.Errorf("error truncating log %s: %w", logPath, err)
	}
	defer func() {
		if flushErr := h.Log.Flush(logPath); flushErr != nil && err == nil {
			err = flushErr
		}
	}()

	summary.RunID = h.runID()
	h.banner(summary.RunID)

	testDir := h.Settings.resolve(h.Settings.TestDir)
	if info, statErr := os.Stat(testDir); statErr != nil || !info.IsDir() {
		h.Log.Logf("Test directory not found: %s", testDir)
		return summary, fmt.Errorf("%w: %s", ErrTestDirMissing, testDir)
	}

	buildDir := h.Settings.resolve(h.Settings.BuildDir)
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return summary, fmt.Errorf("error creating build directory %s: %w", buildDir, err)
	}

	tests, err := h.Discover()
	if err != nil {
		return summary, err
	}
	if len(tests) > 0 && h.Select != nil {
		picked, selErr := h.Select(tests)
		if selErr != nil {
			return summary, fmt.Errorf("test selection failed: %w", selErr)
		}
		h.Log.Logf("Selected %d of %d tests", len(picked), len(tests))
		tests = picked
	}
	summary.Discovered = len(tests)

	if len(tests) == 0 {
		h.Log.Logf("Warning: no test files (*%s) found in %s", h.Settings.TestExt, testDir)
	} else {
		h.Log.Logf("Discovered tests: %d\n", len(tests))
	}

	var compiled []string
	for _, src := range tests {
		out := h.Compile(ctx, src)
		summary.Compiles = append(summary.Compiles, out)
		if out.OK {
			compiled = append(compiled, out.Executable)
		}
	}
	summary.Compiled = len(compiled)

	if len(compiled) > 0 {
		h.Log.Logf("\nRunning %d tests...\n", len(compiled))
	}
	for _, exe := range compiled {
		res := h.RunTest(ctx, exe)
		summary.Runs = append(summary.Runs, res)
		summary.Run++
		if res.Passed {
			summary.Passed++
		}
	}

	h.footer(summary, logPath)
	return summary, nil
}

// Discover lists test sources directly under the test directory, sorted.
func (h *Harness) Discover() ([]string, error) {
	testDir := h.Settings.resolve(h.Settings.TestDir)
	entries, err := os.ReadDir(testDir)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", testDir, err)
	}
	var tests []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), h.Settings.TestExt) {
			continue
		}
		tests = append(tests, filepath.Join(testDir, e.Name()))
	}
	sort.Strings(tests)
	return tests, nil
}

// Compile builds one test source into BuildDir/<stem>.
func (h *Harness) Compile(ctx context.Context, source string) CompileOutcome {
	name := filepath.Base(source)
	target := filepath.Join(h.Settings.resolve(h.Settings.BuildDir), strings.TrimSuffix(name, filepath.Ext(name)))
	inv := Invocation{
		Compiler:  h.Settings.Compiler,
		Flags:     h.Settings.CFlags,
		Source:    source,
		Output:    target,
		LinkFlags: h.Settings.LDFlags,
	}

	h.Log.Logf("Compiling: %s", name)
	start := time.Now()
	res, err := h.Toolchain.Invoke(ctx, inv)
	out := CompileOutcome{
		Source:      source,
		ExitCode:    res.ExitCode,
		Diagnostics: res.Stderr,
		TimedOut:    res.TimedOut,
		Duration:    time.Since(start),
	}
	switch {
	case err != nil:
		out.Diagnostics = strings.TrimSpace(res.Stderr + "\n" + err.Error())
		h.Log.Logf("Compilation failed: %s", name)
		h.Log.Log(out.Diagnostics)
	case res.TimedOut:
		h.Log.Logf("Compilation timed out: %s (after %s)", name, h.Settings.Timeout)
	case res.ExitCode != 0:
		h.Log.Logf("Compilation failed: %s (exit code %d):", name, res.ExitCode)
		h.Log.Log(res.Stderr)
	default:
		out.OK = true
		out.Executable = target
		h.Log.Logf("Compiled: %s", target)
	}
	return out
}

// RunTest executes one compiled test; exit code 0 passes.
func (h *Harness) RunTest(ctx context.Context, executable string) RunOutcome {
	name := filepath.Base(executable)
	h.Log.Logf("\nRunning test: %s", name)

	start := time.Now()
	res, err := h.Runner.Execute(ctx, executable)
	out := RunOutcome{
		Executable: executable,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		TimedOut:   res.TimedOut,
		Duration:   time.Since(start),
	}
	switch {
	case err != nil:
		h.Log.Logf("Test %s could not run: %v", name, err)
	case res.TimedOut:
		h.Log.Logf("Test %s timed out after %s", name, h.Settings.Timeout)
	case res.ExitCode == 0:
		out.Passed = true
		h.Log.Logf("Test %s passed (%s)", name, out.Duration.Round(time.Millisecond))
	default:
		h.Log.Logf("Test %s failed (exit code %d)", name, res.ExitCode)
	}

	if s := strings.TrimSpace(res.Stdout); s != "" {
		h.Log.Log("--- STDOUT ---")
		h.Log.Log(s)
	}
	if s := strings.TrimSpace(res.Stderr); s != "" {
		h.Log.Log("--- STDERR ---")
		h.Log.Log(s)
	}
	return out
}

func (h *Harness) runID() string {
	if h.NewRunID == nil {
		return uuid.NewString()
	}
	return h.NewRunID()
}

func (h *Harness) banner(runID string) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	h.Log.Log(strings.Repeat("=", 80))
	h.Log.Logf("Test run %s", now().Format("2006-01-02 15:04:05"))
	h.Log.Logf("Run ID: %s", runID)
	if h.Revision != "" {
		h.Log.Logf("Revision: %s", h.Revision)
	}
	h.Log.Logf("Sources: %s", h.Settings.resolve(h.Settings.SrcDir))
	h.Log.Log(strings.Repeat("=", 80) + "\n")
}

func (h *Harness) footer(s HarnessSummary, logPath string) {
	h.Log.Log("\n" + strings.Repeat("=", 60))
	h.Log.Logf("Discovered: %d, compiled: %d, run: %d, passed: %d", s.Discovered, s.Compiled, s.Run, s.Passed)
	h.Log.Logf("Passed: %d/%d tests", s.Passed, s.Compiled)
	h.Log.Log(strings.Repeat("=", 60) + "\n")
	h.Log.Logf("Log saved to: %s", logPath)
}
