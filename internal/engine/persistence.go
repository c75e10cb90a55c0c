package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Persistence handles the disk I/O for the MemStore: one <name>.json file per collection.
type Persistence struct {
	DataDir string
	mu      sync.Mutex // serializes filesystem writes
}

// NewPersistence ensures dir exists and returns a handler for it.
func NewPersistence(dir string) (*Persistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Persistence{DataDir: dir}, nil
}

func (p *Persistence) path(name string) string {
	return filepath.Join(p.DataDir, name+".json")
}

// SaveCollection writes a collection atomically: temp file first, then rename over
// the old file, so a crash leaves either the old or the new content.
func (p *Persistence) SaveCollection(name string, data []byte) error {
	if !ValidName(name) {
		return ErrInvalidCollectionName
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	filePath := p.path(name)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tempPath, err)
	}
	return os.Rename(tempPath, filePath)
}

// DeleteCollection removes a collection file; a missing file is not an error.
func (p *Persistence) DeleteCollection(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Stamp identifies one version of a collection file.
type Stamp struct {
	ModTime time.Time
	Size    int64
}

// Stat returns the stamp of a collection file; ok is false when the file does not exist.
func (p *Persistence) Stat(name string) (stamp Stamp, ok bool, err error) {
	info, err := os.Stat(p.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return Stamp{}, false, nil
	}
	if err != nil {
		return Stamp{}, false, err
	}
	return Stamp{ModTime: info.ModTime(), Size: info.Size()}, true, nil
}

// LoadCollection reads one collection file as stored on disk.
func (p *Persistence) LoadCollection(name string) ([]byte, error) {
	if !ValidName(name) {
		return nil, ErrInvalidCollectionName
	}
	return os.ReadFile(p.path(name))
}

// Names lists the collections that have a file in the data directory.
func (p *Persistence) Names() ([]string, error) {
	files, err := os.ReadDir(p.DataDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}
		name := strings.TrimSuffix(file.Name(), ".json")
		if ValidName(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// LoadAll reads every collection file in the data directory.
// Unreadable files are skipped with a warning so one bad file cannot keep the console down.
func (p *Persistence) LoadAll() (map[string][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	names, err := p.Names()
	if err != nil {
		return nil, err
	}

	all := make(map[string][]byte)
	for _, name := range names {
		content, err := p.LoadCollection(name)
		if err != nil {
			slog.Warn("could not read collection file", slog.String("collection", name), slog.String("error", err.Error()))
			continue
		}
		all[name] = content
	}
	return all, nil
}
