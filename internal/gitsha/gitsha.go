// Package gitsha resolves the source revision a report is attributed to.
package gitsha

import (
	"log/slog"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/google/uuid"
)

// Resolve returns the sha identifying the current source state, in order of
// preference: the HAPPO_CURRENT_SHA override, the HEAD commit of the
// enclosing git repository, or a generated placeholder for source trees that
// are not repositories (dev mode).
func Resolve(dir string) string {
	if sha := os.Getenv("HAPPO_CURRENT_SHA"); sha != "" {
		return sha
	}

	if sha, err := headSHA(dir); err == nil {
		return sha
	} else {
		slog.Debug("Could not resolve git sha, generating placeholder", "dir", dir, "error", err)
	}

	return "dev-" + uuid.NewString()
}

func headSHA(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", err
	}
	return ref.Hash().String(), nil
}
