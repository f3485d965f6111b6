package imagestore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLoadFromMemSource(t *testing.T) {
	cacheDir := t.TempDir()
	mem := MemSource{"init": []byte{0xDE, 0xAD, 0xBE, 0xEF}}
	s := New(Config{CacheDir: cacheDir}, mem)

	b, err := s.Load("init")
	if err != nil {
		t.Fatalf("failed loading image: %s", err)
	}
	if len(b) != 4 {
		t.Fatalf("unexpected image length. expected: %d, actual: %d", 4, len(b))
	}

	if _, err := os.Stat(filepath.Join(cacheDir, ManifestFileName)); err != nil {
		t.Fatalf("expected manifest to be persisted to cache dir: %s", err)
	}
}

func TestStoreLoadUnknownImageFails(t *testing.T) {
	s := New(Config{CacheDir: t.TempDir()}, MemSource{})
	if _, err := s.Load("missing"); err == nil {
		t.Fatalf("expected an error resolving an unknown image")
	}
}

func TestStoreLoadCachesAcrossInstances(t *testing.T) {
	cacheDir := t.TempDir()
	mem := MemSource{"a": []byte("hello")}
	s1 := New(Config{CacheDir: cacheDir}, mem)
	if _, err := s1.Load("a"); err != nil {
		t.Fatalf("failed priming cache: %s", err)
	}

	// a fresh Store backed by no sources at all should still resolve "a"
	// from the persisted manifest.
	s2 := New(Config{CacheDir: cacheDir})
	b, err := s2.Load("a")
	if err != nil {
		t.Fatalf("expected cached manifest to satisfy load: %s", err)
	}
	if string(b) != "hello" {
		t.Fatalf("unexpected cached bytes: %q", b)
	}
}
