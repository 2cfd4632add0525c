package gapfill

import (
	"testing"

	"github.com/gofrs/flock"
)

func newTestLock(t *testing.T, path string) func() {
	t.Helper()
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("acquire test lock: %v", err)
	}
	return func() { _ = lock.Unlock() }
}
