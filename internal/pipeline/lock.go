package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/SyntaxAsSpiral/Collectivist/internal/store"
)

// ErrCollectionBusy is returned when a run is already working on the
// same collection root.
var ErrCollectionBusy = errors.New("collection is busy with another run")

// runLocks guards concurrent runs against the same collection. The
// in-process map handles callers sharing a Pipeline (the MCP server);
// the marker file handles separate processes pointed at the same root.
type runLocks struct {
	mu    sync.Mutex
	roots map[string]bool
}

func newRunLocks() *runLocks {
	return &runLocks{roots: make(map[string]bool)}
}

// acquire claims the collection root, returning a release func. The
// marker file is created with O_EXCL so two processes cannot both win.
func (l *runLocks) acquire(root string) (func(), error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	if l.roots[abs] {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCollectionBusy, abs)
	}
	l.roots[abs] = true
	l.mu.Unlock()

	release := func() {
		l.mu.Lock()
		delete(l.roots, abs)
		l.mu.Unlock()
	}

	markerDir := filepath.Join(abs, store.DirName)
	if err := os.MkdirAll(markerDir, 0o755); err != nil {
		release()
		return nil, err
	}
	marker := filepath.Join(markerDir, store.LockFile)
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		release()
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: lock file %s exists", ErrCollectionBusy, marker)
		}
		return nil, err
	}
	fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	_ = f.Close()

	return func() {
		_ = os.Remove(marker)
		release()
	}, nil
}
