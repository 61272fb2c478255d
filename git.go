package main

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
)

// describeRevision returns "<branch>@<short-commit>" for the repository that
// contains dir, searching parent directories. A detached HEAD yields just the
// short commit. Directories outside any repository return "".
func describeRevision(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open repository at %s: %w", dir, err)
	}
	head, err := repo.Head()
	if err != nil {
		// A fresh repository has no HEAD commit yet.
		return "", nil
	}
	short := head.Hash().String()[:7]
	if head.Name().IsBranch() {
		return head.Name().Short() + "@" + short, nil
	}
	return short, nil
}
