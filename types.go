package main

import (
	"io/fs"
	"time"
)

// Classification records why a file did or did not make it into a walk.
type Classification int

const (
	Included Classification = iota
	ExcludedByExtension
	ExcludedByBinarySniff
	ExcludedByDirectory
	ExcludedByFilter // not in the caller's extension allow-list
	ExcludedBySize
	ExcludedByIgnore // matched the root .gitignore
)

func (c Classification) String() string {
	switch c {
	case Included:
		return "included"
	case ExcludedByExtension:
		return "excluded-by-extension"
	case ExcludedByBinarySniff:
		return "excluded-by-binary-sniff"
	case ExcludedByDirectory:
		return "excluded-by-directory"
	case ExcludedByFilter:
		return "excluded-by-filter"
	case ExcludedBySize:
		return "excluded-by-size"
	case ExcludedByIgnore:
		return "excluded-by-ignore"
	default:
		return "unknown"
	}
}

// FileEntry holds information about a file visited during a walk.
type FileEntry struct {
	Path           string // relative to the walk root, forward slashes
	AbsPath        string
	Size           int64
	Mode           fs.FileMode
	Lines          int   // valid only when Err is nil
	Err            error // line counting failed
	Classification Classification
}

// WalkResult is what a single Tree Walker pass produces.
type WalkResult struct {
	Root  string      // absolute walk root
	Lines []string    // rendered tree lines, depth-first
	Files []FileEntry // included files in the same order as Lines
	Total int         // sum of Lines over Files without errors

	// Excluded records skipped files and denylisted directories.
	Excluded []FileEntry
}

// Summary holds aggregated information about the included files.
type Summary struct {
	TotalFiles    int
	TotalSize     int64
	TotalLines    int
	TotalTokens   int
	TokensCounted bool // false when token counting was disabled
	ByLanguage    map[string]int
}

// CompileOutcome is the result of compiling one test source.
type CompileOutcome struct {
	Source      string
	Executable  string // set only when OK
	OK          bool
	ExitCode    int
	Diagnostics string // compiler stderr
	TimedOut    bool
	Duration    time.Duration
}

// RunOutcome is the result of executing one compiled test.
type RunOutcome struct {
	Executable string
	ExitCode   int
	Stdout     string
	Stderr     string
	Passed     bool
	TimedOut   bool
	Duration   time.Duration
}

// HarnessSummary counts a harness run.
type HarnessSummary struct {
	RunID      string
	Discovered int
	Compiled   int
	Run        int
	Passed     int
	Compiles   []CompileOutcome
	Runs       []RunOutcome
}
