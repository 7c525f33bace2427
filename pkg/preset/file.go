package preset

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/diagramflow/pkg/errors"
)

// FileStore keeps each preset in <dir>/<id>.json.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates a store rooted at dir. An empty dir defaults to
// ~/.config/diagramflow/presets/.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".config", "diagramflow", "presets")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preset dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) string { return filepath.Join(f.dir, id+".json") }

func (f *FileStore) Put(ctx context.Context, p *Preset) error {
	if err := errors.ValidatePresetID(p.ID); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if old, err := f.read(p.ID); err == nil {
		p.CreatedAt = old.CreatedAt
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preset: %w", err)
	}
	return os.WriteFile(f.path(p.ID), data, 0o644)
}

func (f *FileStore) Get(ctx context.Context, id string) (*Preset, error) {
	if err := errors.ValidatePresetID(id); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.read(id)
}

func (f *FileStore) read(id string) (*Preset, error) {
	data, err := os.ReadFile(f.path(id))
	if os.IsNotExist(err) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "preset %q is corrupt", id)
	}
	return &p, nil
}

func (f *FileStore) List(ctx context.Context) ([]Info, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read preset dir: %w", err)
	}
	var out []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		p, err := f.read(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		out = append(out, Info{ID: p.ID, Name: p.Name, Nodes: len(p.Scene.Nodes), UpdatedAt: p.UpdatedAt})
	}
	sortInfos(out)
	return out, nil
}

func (f *FileStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidatePresetID(id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove preset: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// Dir returns the preset directory.
func (f *FileStore) Dir() string { return f.dir }

// sortInfos orders newest first, then by id.
func sortInfos(infos []Info) {
	slices.SortFunc(infos, func(a, b Info) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

var _ Store = (*FileStore)(nil)
