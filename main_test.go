package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReportSettings(t *testing.T, root string) ReportSettings {
	t.Helper()
	s := reportSettingsFrom(newTestViper(t), root)
	s.LanguageSearch = []string{t.TempDir()}
	return s
}

func TestRunReport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", []byte("1\n2\n3\n"))
	writeFile(t, root, "b.exe", []byte("binary-ish\n"))
	writeFile(t, root, "node_modules/c.py", []byte("print(1)\n"))

	var stdout bytes.Buffer
	require.NoError(t, runReport(testReportSettings(t, root), &stdout))

	reportPath := filepath.Join(root, defaultReportName)
	b, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	report := string(b)

	assert.Contains(t, report, "├── a.py (3 lines)\n")
	assert.Contains(t, report, "\nTotal lines: 3\n")
	assert.Contains(t, report, "Files included: 1\n")
	assert.Contains(t, report, "  Python: 3\n")
	assert.Contains(t, report, "# File: a.py\n1\n2\n3\n")
	assert.NotContains(t, report, "b.exe")
	assert.NotContains(t, report, "c.py")

	out := stdout.String()
	assert.Contains(t, out, "Project analysis: "+root)
	assert.Contains(t, out, "├── a.py (3 lines)\n\nTotal lines: 3\n")
	assert.Contains(t, out, "Report saved to: "+reportPath)
	assert.NotContains(t, out, "FILE CONTENTS", "contents go to the file unless --print is set")
}

func TestRunReport_RerunDoesNotIncludeOldReport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.c", []byte("int main(void) { return 0; }\n"))
	s := testReportSettings(t, root)

	require.NoError(t, runReport(s, &bytes.Buffer{}))
	first, err := os.ReadFile(filepath.Join(root, defaultReportName))
	require.NoError(t, err)

	require.NoError(t, runReport(s, &bytes.Buffer{}))
	second, err := os.ReadFile(filepath.Join(root, defaultReportName))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.NotContains(t, string(second), "# File: "+defaultReportName)
}

func TestRunReport_PrintAndCustomFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.go", []byte("package x\n"))
	s := testReportSettings(t, root)
	s.Print = true
	s.ReportFile = filepath.Join(t.TempDir(), "custom.txt")

	var stdout bytes.Buffer
	require.NoError(t, runReport(s, &stdout))

	assert.FileExists(t, s.ReportFile)
	assert.NoFileExists(t, filepath.Join(root, defaultReportName))
	assert.Contains(t, stdout.String(), "FILE CONTENTS")
	assert.Contains(t, stdout.String(), "# File: x.go\npackage x\n")
}

func TestRunReport_PDF(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.c", []byte("#include <stdio.h>\nint main(void) {\n\tputs(\"hi\");\n}\n"))
	s := testReportSettings(t, root)
	s.PDFFile = filepath.Join(root, "report.pdf")

	var stdout bytes.Buffer
	require.NoError(t, runReport(s, &stdout))

	info, err := os.Stat(s.PDFFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.Contains(t, stdout.String(), "PDF saved to: "+s.PDFFile)
}

func TestRunReport_MissingRoot(t *testing.T) {
	s := testReportSettings(t, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, runReport(s, &bytes.Buffer{}))
}

func TestRunTests_MissingTestDir(t *testing.T) {
	s := DefaultHarnessSettings()
	s.ProjectRoot = t.TempDir()

	_, err := runTests(context.Background(), s, false, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrTestDirMissing)
}
