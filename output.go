package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/encoding/unicode"
)

const (
	defaultReportName = "project_report.txt"
	separatorWidth    = 80
	contentsBanner    = "FILE CONTENTS"
	fileHeaderPrefix  = "# File: "
)

// ComposeOptions carries the optional parts of a report.
type ComposeOptions struct {
	Revision string   // e.g. "main@1a2b3c4"; omitted when empty
	Summary  *Summary // omitted when nil
}

// Compose renders the report: banner, tree, total, summary, then the full
// contents of every included file in walk order. It does no filtering of its own.
func Compose(res *WalkResult, opts ComposeOptions) string {
	var b strings.Builder
	b.WriteString(reportHead(res, opts))

	sep := strings.Repeat("=", separatorWidth)
	b.WriteString("\n" + sep + "\n" + contentsBanner + "\n" + sep + "\n")
	for _, f := range res.Files {
		b.WriteString("\n" + fileHeaderPrefix + f.Path + "\n")
		b.WriteString(readFileContent(f.AbsPath))
		b.WriteString("\n")
	}
	return b.String()
}

// reportHead renders everything before the contents section.
func reportHead(res *WalkResult, opts ComposeOptions) string {
	var b strings.Builder
	b.WriteString(analysisBanner(res.Root) + "\n")
	if opts.Revision != "" {
		b.WriteString("Revision: " + opts.Revision + "\n")
	}
	b.WriteString("\n")
	for _, line := range res.Lines {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + totalLine(res.Total) + "\n")
	if opts.Summary != nil {
		b.WriteString(formatSummary(*opts.Summary))
	}
	return b.String()
}

func analysisBanner(root string) string {
	return "Project analysis: " + root
}

func formatSummary(s Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Files included: %d\n", s.TotalFiles))
	b.WriteString(fmt.Sprintf("Total size: %s\n", humanize.Bytes(uint64(s.TotalSize))))
	if s.TokensCounted {
		b.WriteString(fmt.Sprintf("Total tokens: %d\n", s.TotalTokens))
	}
	if len(s.ByLanguage) > 0 {
		b.WriteString("Lines by language:\n")
		langs := sortedKeys(s.ByLanguage)
		sort.SliceStable(langs, func(i, j int) bool {
			return s.ByLanguage[langs[i]] > s.ByLanguage[langs[j]]
		})
		for _, lang := range langs {
			b.WriteString(fmt.Sprintf("  %s: %d\n", lang, s.ByLanguage[lang]))
		}
	}
	return b.String()
}

// summarize aggregates the included files. Token counting runs only when tk is non-nil.
func summarize(res *WalkResult, ld *LoadedLanguageData, tk Tokenizer) Summary {
	s := Summary{TotalLines: res.Total, TokensCounted: tk != nil}
	for _, f := range res.Files {
		s.TotalFiles++
		s.TotalSize += f.Size
		if tk != nil {
			s.TotalTokens += tk.CountTokens(readFileContent(f.AbsPath))
		}
	}
	if ld != nil {
		s.ByLanguage = lineCountsByLanguage(res.Files, ld)
	}
	return s
}

// readFileContent reads a whole file, replacing invalid UTF-8 with U+FFFD.
// Read failures are rendered inline rather than returned.
func readFileContent(filePath string) string {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Sprintf("read error: %v", err)
	}
	decoded, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "�")
	}
	return string(decoded)
}

// writeReport replaces any previous report at reportPath with text.
func writeReport(reportPath, text string) error {
	if err := os.WriteFile(reportPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("error writing report %s: %w", reportPath, err)
	}
	return nil
}
