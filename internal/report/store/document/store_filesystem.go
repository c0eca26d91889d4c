// Package document stores confirmation documents on the filesystem. A
// document is written once at reconciliation time and never regenerated;
// submission transactions reference it by path.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Filesystem struct {
	dir   string
	clock func() time.Time
}

type Option func(*Filesystem)

// WithClock overrides the timestamp source for tests.
func WithClock(clock func() time.Time) Option {
	return func(f *Filesystem) { f.clock = clock }
}

func NewFilesystem(dir string, opts ...Option) (*Filesystem, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	f := &Filesystem{dir: dir, clock: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Save writes the document and returns its path. The short uuid suffix keeps
// two confirmations saved within the same second apart.
func (f *Filesystem) Save(_ context.Context, data []byte) (string, error) {
	name := fmt.Sprintf("confirmation_%s_%s.pdf",
		f.clock().Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save confirmation document: %w", err)
	}
	return path, nil
}
