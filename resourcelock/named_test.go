package resourcelock_test

import (
	"path/filepath"
	"testing"

	"pkt.systems/usbswitch/resourcelock"
)

func TestPathDerivationIsPure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := resourcelock.NewMutex(resourcelock.CacheFile, resourcelock.WithDirectory(dir))
	if err != nil {
		t.Fatalf("NewMutex: %v", err)
	}
	b, err := resourcelock.NewMutex(resourcelock.CacheFile, resourcelock.WithDirectory(dir))
	if err != nil {
		t.Fatalf("NewMutex: %v", err)
	}
	if a.Path() != b.Path() {
		t.Fatalf("same name resolved to different paths: %q vs %q", a.Path(), b.Path())
	}
	want := filepath.Join(dir, "cache_file.lock")
	if a.Path() != want {
		t.Fatalf("unexpected lock path %q, want %q", a.Path(), want)
	}
}

func TestLockOrderCoversEveryLockOnce(t *testing.T) {
	t.Parallel()

	seen := make(map[resourcelock.NamedLock]int)
	for _, name := range resourcelock.LockOrder {
		if !name.Valid() {
			t.Fatalf("LockOrder contains invalid lock %v", name)
		}
		seen[name]++
	}
	for name, count := range seen {
		if count != 1 {
			t.Fatalf("lock %s appears %d times in LockOrder", name, count)
		}
	}
	if len(seen) != 5 {
		t.Fatalf("expected 5 locks in LockOrder, got %d", len(seen))
	}
}

func TestParseNamedLock(t *testing.T) {
	t.Parallel()

	for _, name := range resourcelock.LockOrder {
		parsed, err := resourcelock.ParseNamedLock(name.String())
		if err != nil {
			t.Fatalf("ParseNamedLock(%q): %v", name, err)
		}
		if parsed != name {
			t.Fatalf("ParseNamedLock(%q) = %v, want %v", name, parsed, name)
		}
	}
	if _, err := resourcelock.ParseNamedLock("no_such_lock"); err == nil {
		t.Fatal("expected an error for an unknown lock name")
	}
}

func TestFilenameCarriesExtension(t *testing.T) {
	t.Parallel()

	if got, want := resourcelock.General.Filename(), "general"+resourcelock.LockFileExtension; got != want {
		t.Fatalf("Filename() = %q, want %q", got, want)
	}
}
