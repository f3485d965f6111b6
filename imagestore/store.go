// Package imagestore resolves the byte image a WINIX user process is built
// from — the "lines" argument to start_user_proc/exec in the original
// kernel — from a handful of external sources: a literal in-memory blob, a
// path inside a git repository, or a GitHub release asset. It is the one
// place in the repository that talks to git or GitHub; the kernel package
// itself only knows its own small ImageSource interface, which [Source]
// matches.
package imagestore

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	// CacheDirName is the subdirectory of the XDG cache home WINIX uses to
	// store resolved image manifests.
	CacheDirName     = "winix"
	CacheManifestDir = "images"
	ManifestFileName = "manifest.gob"
)

// Source resolves a named image to its bytes. It satisfies
// kernel.ImageSource without the kernel package importing this one.
type Source interface {
	Load(name string) ([]byte, error)
}

// Entry records a resolved image in the on-disk manifest, so repeated
// resolutions of the same name avoid a network round trip.
type Entry struct {
	Name      string
	Bytes     []byte
	CachedAt  time.Time
	SourceTag string
}

// Store is a Source that fans out to a list of underlying sources in order,
// caching the first hit to an XDG cache directory, gob-encoded the same
// way a resolved process snapshot would be.
type Store struct {
	Sources  []Source
	cacheDir string
	manifest map[string]Entry
}

// Config configures a Store. CacheDir defaults to
// $XDG_CACHE_HOME/winix/images when empty.
type Config struct {
	CacheDir string
}

// New returns a Store backed by the given sources, tried in order. The
// manifest cache is loaded eagerly; a missing or corrupt cache is treated
// as empty rather than an error.
func New(conf Config, sources ...Source) *Store {
	dir := conf.CacheDir
	if dir == "" {
		dir = filepath.Join(xdg.CacheHome, CacheDirName, CacheManifestDir)
	}
	s := &Store{
		Sources:  sources,
		cacheDir: dir,
		manifest: map[string]Entry{},
	}
	s.loadManifest()
	return s
}

// Load implements [Source]. It first checks the cached manifest, then tries
// each configured source in turn, caching the first successful resolution.
func (s *Store) Load(name string) ([]byte, error) {
	if e, ok := s.manifest[name]; ok {
		return e.Bytes, nil
	}
	var lastErr error
	for _, src := range s.Sources {
		b, err := src.Load(name)
		if err != nil {
			lastErr = err
			continue
		}
		s.manifest[name] = Entry{Name: name, Bytes: b, CachedAt: time.Time{}}
		s.saveManifest()
		return b, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no image source configured")
	}
	return nil, fmt.Errorf("failed resolving image %q: %w", name, lastErr)
}

func (s *Store) manifestPath() string {
	return filepath.Join(s.cacheDir, ManifestFileName)
}

func (s *Store) loadManifest() {
	f, err := os.Open(s.manifestPath())
	if err != nil {
		return
	}
	defer f.Close()
	var m map[string]Entry
	if err := gob.NewDecoder(f).Decode(&m); err != nil {
		return
	}
	s.manifest = m
}

func (s *Store) saveManifest() error {
	if err := os.MkdirAll(s.cacheDir, 0777); err != nil {
		return fmt.Errorf("failed ensuring image cache dir exists: %w", err)
	}
	f, err := os.Create(s.manifestPath())
	if err != nil {
		return fmt.Errorf("failed creating image manifest: %w", err)
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(s.manifest)
}

// MemSource is a Source backed by a fixed in-memory table, used in tests.
type MemSource map[string][]byte

func (m MemSource) Load(name string) ([]byte, error) {
	b, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("image %q not found", name)
	}
	return b, nil
}
