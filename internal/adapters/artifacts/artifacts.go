// Package artifacts keeps uploaded solution files for the grader.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// ErrNotFound is returned when no file was stored for a submission.
var ErrNotFound = errors.New("artifact not found")

// Ref identifies a stored file.
type Ref struct {
	SubmissionID string
	TaskID       int
	Filename     string
}

// Name is the on-disk name, e.g. task2_bob_1f3c.py.
func (r Ref) Name() string {
	return "task" + strconv.Itoa(r.TaskID) + "_" + r.SubmissionID + filepath.Ext(r.Filename)
}

// Sink stores and retrieves uploaded files.
type Sink interface {
	Save(ctx context.Context, ref Ref, content []byte) error
	Open(ctx context.Context, ref Ref) ([]byte, error)
}

// Memory keeps files in process memory.
type Memory struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemory creates an empty in-memory sink.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, ref Ref, content []byte) error {
	buf := make([]byte, len(content))
	copy(buf, content)
	m.mu.Lock()
	m.files[ref.Name()] = buf
	m.mu.Unlock()
	return nil
}

func (m *Memory) Open(_ context.Context, ref Ref) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.files[ref.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.SubmissionID)
	}
	return b, nil
}

// Dir writes files under a directory.
type Dir struct {
	root string
}

// NewDir creates root if needed and returns a sink writing into it.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) Save(_ context.Context, ref Ref, content []byte) error {
	path := filepath.Join(d.root, ref.Name())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o640); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

func (d *Dir) Open(_ context.Context, ref Ref) ([]byte, error) {
	b, err := os.ReadFile(filepath.Join(d.root, ref.Name()))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ref.SubmissionID)
	}
	return b, err
}
