package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// RotatingWriter appends to one of three files chosen by the day of the
// month (<name>-0.log for days 1-9, -1 for 10-19, -2 for 20-31). Switching
// to a slot removes the file of the slot that follows it, so at most two
// periods of history are kept.
type RotatingWriter struct {
	dir, name string
	now       func() time.Time

	mu   sync.Mutex
	slot int
	file *os.File
}

// NewRotatingWriter returns a writer logging to dir/name-N.log.
func NewRotatingWriter(dir, name string) *RotatingWriter {
	if dir == "" {
		dir = "log"
	}
	if name == "" {
		name = "qrlabel"
	}
	return &RotatingWriter{dir: dir, name: name, now: time.Now, slot: -1}
}

func daySlot(day int) int {
	switch {
	case day <= 9:
		return 0
	case day <= 19:
		return 1
	default:
		return 2
	}
}

func (w *RotatingWriter) path(slot int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%d.log", w.name, slot))
}

func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	slot := daySlot(w.now().Day())
	if w.file == nil || slot != w.slot {
		if err := w.rotate(slot); err != nil {
			return 0, err
		}
	}
	return w.file.Write(p)
}

func (w *RotatingWriter) rotate(slot int) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	// The slot after the current one holds the oldest entries.
	stale := w.path((slot + 1) % 3)
	if err := os.Remove(stale); err != nil && !os.IsNotExist(err) {
		return err
	}
	f, err := os.OpenFile(w.path(slot), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file = f
	w.slot = slot
	return nil
}

func (w *RotatingWriter) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	return w.file.Sync()
}

// Close closes the current file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
