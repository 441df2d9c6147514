package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/everkeep/internal/filex"
)

type window struct {
	Count int64 `json:"count"`
	Start int64 `json:"start"`
}

// FileStore keeps one small JSON file per key in dir. A process-wide mutex
// serialises read-modify-write; separate processes sharing dir can still
// under-count.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rate limit dir: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, "everkeep_rl_"+key)
}

func (s *FileStore) Hit(_ context.Context, key string, now, windowSeconds int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := window{Start: now}
	if raw, err := os.ReadFile(s.path(key)); err == nil {
		// unreadable counters start a fresh window
		if json.Unmarshal(raw, &w) != nil {
			w = window{Start: now}
		}
	}

	if now-w.Start >= windowSeconds {
		w = window{Start: now}
	}
	w.Count++

	raw, err := json.Marshal(w)
	if err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(s.dir, "everkeep_rl_*.tmp")
	if err != nil {
		return 0, fmt.Errorf("write counter: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write counter: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write counter: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return 0, fmt.Errorf("write counter: %w", err)
	}

	return w.Count, nil
}
