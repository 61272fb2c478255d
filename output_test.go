package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseContents splits the contents section of a report back into files.
// A file's text ends right before the next "\n\n# File: " header, or at the
// final newline of the report.
func parseContents(t *testing.T, report string) map[string]string {
	t.Helper()
	sep := strings.Repeat("=", separatorWidth)
	marker := sep + "\n" + contentsBanner + "\n" + sep + "\n"
	i := strings.Index(report, marker)
	require.GreaterOrEqual(t, i, 0, "contents banner missing")
	rest := report[i+len(marker):]

	out := make(map[string]string)
	header := "\n" + fileHeaderPrefix
	for strings.HasPrefix(rest, header) {
		rest = rest[len(header):]
		nl := strings.IndexByte(rest, '\n')
		require.GreaterOrEqual(t, nl, 0)
		name := rest[:nl]
		rest = rest[nl+1:]

		end := strings.Index(rest, "\n"+header)
		if end < 0 {
			require.True(t, strings.HasSuffix(rest, "\n"))
			out[name] = rest[:len(rest)-1]
			break
		}
		out[name] = rest[:end]
		rest = rest[end+1:]
	}
	return out
}

func TestCompose_RoundTripsFileContents(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.c":          "int main(void) {\n\treturn 0;\n}\n",
		"b.txt":        "no trailing newline",
		"docs/c.md":    "# Title\n\nParagraph with a blank line above.\n",
		"docs/empty.h": "",
	}
	for rel, content := range files {
		writeFile(t, root, rel, []byte(content))
	}

	res, err := Walk(root, WalkOptions{})
	require.NoError(t, err)

	got := parseContents(t, Compose(res, ComposeOptions{}))
	assert.Equal(t, files, got)
}

func TestCompose_Layout(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.c", []byte("int x;\nint y;\n"))
	writeFile(t, root, "README.md", []byte("hello\n"))

	res, err := Walk(root, WalkOptions{})
	require.NoError(t, err)

	report := Compose(res, ComposeOptions{Revision: "main@abc1234"})
	sep := strings.Repeat("=", separatorWidth)
	want := "Project analysis: " + res.Root + "\n" +
		"Revision: main@abc1234\n" +
		"\n" +
		"├── README.md (1 lines)\n" +
		"src/\n" +
		"│   ├── main.c (2 lines)\n" +
		"\n" +
		"Total lines: 3\n" +
		"\n" + sep + "\n" + contentsBanner + "\n" + sep + "\n" +
		"\n# File: README.md\nhello\n\n" +
		"\n# File: src/main.c\nint x;\nint y;\n\n"
	assert.Equal(t, want, report)
}

func TestCompose_OnlyIncludedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", []byte("package keep\n"))
	writeFile(t, root, "drop.png", []byte("not really an image\n"))
	writeFile(t, root, "blob.dat", []byte{0x00, 0x01, 0x02})

	res, err := Walk(root, WalkOptions{})
	require.NoError(t, err)

	report := Compose(res, ComposeOptions{})
	assert.Contains(t, report, "# File: keep.go\n")
	assert.NotContains(t, report, "drop.png")
	assert.NotContains(t, report, "blob.dat")
}

func TestReadFileContent_InvalidUTF8IsReplaced(t *testing.T) {
	p := writeFile(t, t.TempDir(), "latin1.txt", []byte("caf\xe9 ok"))
	assert.Equal(t, "caf� ok", readFileContent(p))
}

func TestReadFileContent_ErrorIsInline(t *testing.T) {
	got := readFileContent(filepath.Join(t.TempDir(), "missing.txt"))
	assert.True(t, strings.HasPrefix(got, "read error: "), got)
}

func TestFormatSummary(t *testing.T) {
	s := Summary{
		TotalFiles: 3,
		TotalSize:  2048,
		ByLanguage: map[string]int{"Go": 10, "C": 40, "Other": 10},
	}
	want := "Files included: 3\n" +
		"Total size: 2.0 kB\n" +
		"Lines by language:\n" +
		"  C: 40\n" +
		"  Go: 10\n" +
		"  Other: 10\n"
	assert.Equal(t, want, formatSummary(s))

	s.TokensCounted = true
	s.TotalTokens = 99
	assert.Contains(t, formatSummary(s), "Total tokens: 99\n")
}

type wordCounter struct{}

func (wordCounter) CountTokens(text string) int { return len(strings.Fields(text)) }

func TestSummarize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.c", []byte("int a;\nint b;\n"))
	writeFile(t, root, "b.py", []byte("x = 1\n"))
	writeFile(t, root, "notes.txt", []byte("just words\n"))

	res, err := Walk(root, WalkOptions{})
	require.NoError(t, err)
	ld, err := loadLanguageData(nil)
	require.NoError(t, err)

	s := summarize(res, ld, wordCounter{})
	assert.Equal(t, 3, s.TotalFiles)
	assert.Equal(t, int64(14+6+11), s.TotalSize)
	assert.Equal(t, 4, s.TotalLines)
	assert.True(t, s.TokensCounted)
	assert.Equal(t, 4+3+2, s.TotalTokens)
	assert.Equal(t, map[string]int{"C": 2, "Python": 1, "Other": 1}, s.ByLanguage)

	s = summarize(res, nil, nil)
	assert.False(t, s.TokensCounted)
	assert.Nil(t, s.ByLanguage)
}

func TestWriteReport_Overwrites(t *testing.T) {
	p := filepath.Join(t.TempDir(), defaultReportName)
	require.NoError(t, os.WriteFile(p, []byte("an older and much longer report\n"), 0o644))

	require.NoError(t, writeReport(p, "new\n"))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(b))

	assert.Error(t, writeReport(filepath.Join(t.TempDir(), "no", "such", "dir", "r.txt"), "x"))
}
