package storage

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jmlee-dev/godex/pkg/dex/engine"
)

// NopWAL discards every event. Used when the write-ahead log is
// disabled.
type NopWAL struct{}

func NewNopWAL() *NopWAL          { return &NopWAL{} }
func (w *NopWAL) Append(_ string) {}

// FileWAL appends one timestamped line per order-entry event. It is a
// human-readable audit trail, not a recovery log; recovery state lives
// in Pebble.
type FileWAL struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWAL{f: f}, nil
}

func (w *FileWAL) Append(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.f, "%s %s\n", time.Now().Format(time.RFC3339), line)
}

func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

var _ engine.WAL = (*NopWAL)(nil)
var _ engine.WAL = (*FileWAL)(nil)
