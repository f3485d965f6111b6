package imagestore

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/storage/memory"
)

const (
	repoCacheDirName = "winix"
	repoCacheSubDir  = "repos"
)

// GitSource resolves an image by reading a file at Path out of a ref (tag,
// branch, or commit) of a git repository. The name passed to [Load] is
// interpreted as the ref; Path stays fixed for a given GitSource, mirroring
// how source.GitManager scopes one repository per manager instance.
type GitSource struct {
	RepoURL string
	Path    string
	InMem   bool
}

// Load clones (or opens a cached clone of) RepoURL, checks out ref, and
// returns the bytes of the file at Path.
func (g GitSource) Load(ref string) ([]byte, error) {
	repo, err := g.resolveRepo()
	if err != nil {
		return nil, fmt.Errorf("failed resolving repository %s: %w", g.RepoURL, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("failed resolving ref %q in %s: %w", ref, g.RepoURL, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed loading commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed loading tree for commit %s: %w", hash, err)
	}
	file, err := tree.File(g.Path)
	if err != nil {
		return nil, fmt.Errorf("failed finding %s in %s@%s: %w", g.Path, g.RepoURL, ref, err)
	}
	r, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed opening blob for %s: %w", g.Path, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g GitSource) resolveRepo() (*git.Repository, error) {
	if g.InMem {
		return git.Clone(memory.NewStorage(), nil, &git.CloneOptions{
			URL: g.RepoURL,
		})
	}

	fp := filepath.Join(repoCacheLocation(), encodedCacheName(g.RepoURL))
	if _, err := os.Stat(fp); err != nil {
		if err := os.MkdirAll(repoCacheLocation(), 0777); err != nil {
			return nil, fmt.Errorf("failed ensuring repo cache dir: %w", err)
		}
		return git.PlainClone(fp, false, &git.CloneOptions{URL: g.RepoURL})
	}

	repo, err := git.PlainOpen(fp)
	if err != nil {
		return nil, fmt.Errorf("failed opening cached repo at %s: %w", fp, err)
	}
	if err := repo.Fetch(&git.FetchOptions{RemoteURL: g.RepoURL}); err != nil {
		if err != git.NoErrAlreadyUpToDate {
			return nil, fmt.Errorf("failed updating cached repo: %w", err)
		}
	}
	return repo, nil
}

func repoCacheLocation() string {
	return filepath.Join(xdg.CacheHome, repoCacheDirName, repoCacheSubDir)
}

func encodedCacheName(url string) string {
	return base64.StdEncoding.EncodeToString([]byte(url))
}
