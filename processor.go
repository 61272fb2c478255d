package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	gitignore "github.com/monochromegane/go-gitignore"
)

const (
	treeIndent     = "│   "
	treeBranch     = "├── "
	noAccessMarker = "no access:"
)

// WalkOptions configures a Tree Walker pass.
type WalkOptions struct {
	Classifier *Classifier
	// KeepExcludedDirs disables directory exclusion; denylisted directories are walked.
	KeepExcludedDirs bool
	// Gitignore honors the .gitignore at the walk root.
	Gitignore bool
	// Skip lists absolute paths that are never included (e.g. the report being written).
	Skip []string
	// Echo mirrors every tree line and the root total as they are produced.
	Echo io.Writer
}

type walker struct {
	opts   WalkOptions
	cls    *Classifier
	ignore gitignore.IgnoreMatcher
	skip   map[string]struct{}
	result *WalkResult
}

// Walk recursively walks root depth-first in lexicographic order, rendering the
// tree and collecting every included file.
func Walk(root string, opts WalkOptions) (*WalkResult, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("error resolving path %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	w := &walker{
		opts:   opts,
		cls:    opts.Classifier,
		skip:   make(map[string]struct{}, len(opts.Skip)),
		result: &WalkResult{Root: absRoot},
	}
	if w.cls == nil {
		w.cls = NewClassifier(DefaultClassifierConfig())
	}
	for _, p := range opts.Skip {
		if abs, err := filepath.Abs(p); err == nil {
			w.skip[abs] = struct{}{}
		}
	}
	if opts.Gitignore {
		gitIgnorePath := filepath.Join(absRoot, ".gitignore")
		if _, err := os.Stat(gitIgnorePath); err == nil {
			matcher, err := gitignore.NewGitIgnore(gitIgnorePath, absRoot)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not parse .gitignore file %s: %v\n", gitIgnorePath, err)
			} else {
				w.ignore = matcher
			}
		}
	}

	w.result.Total = w.walkDir(absRoot, "", 0)
	return w.result, nil
}

// walkDir renders one directory level and returns the lines counted beneath it.
func (w *walker) walkDir(dir, rel string, depth int) int {
	indent := strings.Repeat(treeIndent, depth)
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.emit(fmt.Sprintf("%s%s %s", indent, noAccessMarker, dir))
		return 0
	}

	total := 0
	for _, e := range entries {
		name := e.Name()
		p := filepath.Join(dir, name)
		childRel := path.Join(rel, name)

		// Stat follows symlinks; broken links are neither files nor directories.
		info, err := os.Stat(p)
		if err != nil {
			continue
		}

		if info.IsDir() {
			if !w.opts.KeepExcludedDirs && w.cls.ExcludedDir(name) {
				w.exclude(FileEntry{Path: childRel, AbsPath: p, Mode: info.Mode(), Classification: ExcludedByDirectory})
				continue
			}
			if w.ignored(p, true) {
				continue
			}
			if e.Type()&fs.ModeSymlink != 0 {
				w.emit(fmt.Sprintf("%s%s/ (symlink, not followed)", indent, name))
				continue
			}
			w.emit(fmt.Sprintf("%s%s/", indent, name))
			total += w.walkDir(p, childRel, depth+1)
			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}
		if _, skip := w.skip[p]; skip {
			continue
		}
		entry := FileEntry{Path: childRel, AbsPath: p, Size: info.Size(), Mode: info.Mode()}
		if w.ignored(p, false) {
			entry.Classification = ExcludedByIgnore
			w.exclude(entry)
			continue
		}
		if entry.Classification = w.cls.ClassifyFile(p, info.Size()); entry.Classification != Included {
			w.exclude(entry)
			continue
		}

		entry.Lines, entry.Err = countLines(p)
		if entry.Err != nil {
			w.emit(fmt.Sprintf("%s%s%s (read error: %v)", indent, treeBranch, name, entry.Err))
		} else {
			w.emit(fmt.Sprintf("%s%s%s (%d lines)", indent, treeBranch, name, entry.Lines))
			total += entry.Lines
		}
		w.result.Files = append(w.result.Files, entry)
	}

	if depth == 0 && w.opts.Echo != nil {
		fmt.Fprintf(w.opts.Echo, "\n%s\n", totalLine(total))
	}
	return total
}

func (w *walker) emit(line string) {
	w.result.Lines = append(w.result.Lines, line)
	if w.opts.Echo != nil {
		fmt.Fprintln(w.opts.Echo, line)
	}
}

func (w *walker) exclude(e FileEntry) {
	w.result.Excluded = append(w.result.Excluded, e)
}

func (w *walker) ignored(absPath string, isDir bool) bool {
	return w.ignore != nil && w.ignore.Match(absPath, isDir)
}

func totalLine(total int) string {
	return fmt.Sprintf("Total lines: %d", total)
}

// countLines counts newline-terminated lines plus a final unterminated one.
func countLines(filePath string) (int, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	buf := make([]byte, 32*1024)
	lines := 0
	var last byte
	seen := false
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, b := range buf[:n] {
				if b == '\n' {
					lines++
				}
			}
			last = buf[n-1]
			seen = true
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if seen && last != '\n' {
		lines++
	}
	return lines, nil
}

// joinRel joins a slash-separated relative path onto root.
func joinRel(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}
