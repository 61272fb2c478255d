package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
)

// errSelectionAborted is returned when the user leaves the picker without choosing.
var errSelectionAborted = errors.New("selection aborted")

// pickTests lets the user choose which discovered tests to compile and run.
// The preview pane shows the head of the highlighted source.
func pickTests(tests []string) ([]string, error) {
	idx, err := fuzzyfinder.FindMulti(
		tests,
		func(i int) string {
			return filepath.Base(tests[i])
		},
		fuzzyfinder.WithPromptString("tests> "),
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return "Tab selects several tests, Enter confirms."
			}
			return previewSource(tests[i], h)
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return nil, errSelectionAborted
	}
	if err != nil {
		return nil, fmt.Errorf("fuzzy finder error: %w", err)
	}

	picked := make([]string, len(idx))
	for i, n := range idx {
		picked[i] = tests[n]
	}
	return picked, nil
}

func previewSource(p string, maxLines int) string {
	b, err := os.ReadFile(p)
	if err != nil {
		return fmt.Sprintf("%s\nError reading file: %v", p, err)
	}
	lines := strings.Split(string(b), "\n")
	if maxLines > 1 && len(lines) > maxLines-1 {
		lines = lines[:maxLines-1]
	}
	return p + "\n" + strings.Join(lines, "\n")
}
