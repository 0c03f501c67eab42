package staging

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/harborlabs/stevedore/internal/record"
)

// LocalDir serves payloads straight from a directory on disk. Used by the
// CLI, which selects local files instead of staged uploads. Payloads are
// keyed by record name, registered at selection time: the record's Path
// field is rewritten to the server-assigned path after upload and can no
// longer locate the local file.
type LocalDir struct {
	root string

	mu    sync.RWMutex
	paths map[string]string
}

func NewLocalDir(root string) *LocalDir {
	return &LocalDir{root: root, paths: make(map[string]string)}
}

// Register maps a record name to its root-relative path.
func (l *LocalDir) Register(name, rel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths[name] = rel
}

// Open returns the local file registered for the record's name.
func (l *LocalDir) Open(_ context.Context, rec record.FileRecord) (io.ReadCloser, error) {
	l.mu.RLock()
	rel, ok := l.paths[rec.Name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no payload registered for %s", rec.Name)
	}
	f, err := os.Open(filepath.Join(l.root, rel))
	if err != nil {
		return nil, fmt.Errorf("open payload %s: %w", rec.Name, err)
	}
	return f, nil
}
