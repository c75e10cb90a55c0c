package engine

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
)

// MemStore keeps every collection in memory as compact JSON and, when given a
// Persistence, saves each change to disk in the background.
//
// With a Persistence, the data directory may be shared with other processes. Reads
// compare the collection file against the last version this store loaded or saved
// and reload it when another process has replaced it. A collection with a local
// write still being flushed is never reloaded.
type MemStore struct {
	mu        sync.RWMutex
	data      map[string][]byte
	stamps    map[string]Stamp
	pending   map[string]int
	persister *Persistence
	logger    *slog.Logger
	wg        sync.WaitGroup
	flushMu   sync.Mutex
}

// NewMemStore initializes a store from existing data (usually Persistence.LoadAll).
// p may be nil for a purely in-memory store. Initial collections are compacted;
// invalid JSON is dropped with a warning.
func NewMemStore(initialData map[string][]byte, p *Persistence) *MemStore {
	m := &MemStore{
		data:      make(map[string][]byte, len(initialData)),
		stamps:    make(map[string]Stamp),
		pending:   make(map[string]int),
		persister: p,
		logger:    slog.Default(),
	}
	for name, raw := range initialData {
		payload, err := compactJSON(raw)
		if err != nil {
			m.logger.Warn("skipping invalid collection", slog.String("collection", name))
			continue
		}
		m.data[name] = payload
		if p != nil {
			if stamp, ok, err := p.Stat(name); err == nil && ok {
				m.stamps[name] = stamp
			}
		}
	}
	return m
}

func compactJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, ErrInvalidJSON
	}
	return buf.Bytes(), nil
}

// SetLogger replaces the logger used for background persistence failures.
func (m *MemStore) SetLogger(l *slog.Logger) {
	if l != nil {
		m.logger = l
	}
}

// Wait blocks until all background persistence tasks have completed.
func (m *MemStore) Wait() {
	m.wg.Wait()
}

// Read returns a copy of the collection's JSON.
func (m *MemStore) Read(name string) ([]byte, error) {
	m.refresh(name)

	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.data[name]
	if !ok {
		return nil, ErrCollectionNotFound
	}
	return bytes.Clone(raw), nil
}

// refresh reloads name from disk when its file no longer matches the version this
// store knows about.
func (m *MemStore) refresh(name string) {
	if m.persister == nil || !ValidName(name) {
		return
	}
	stamp, exists, err := m.persister.Stat(name)
	if err != nil {
		m.logger.Warn("could not stat collection file", slog.String("collection", name), slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending[name] > 0 {
		return
	}
	known, tracked := m.stamps[name]
	if !exists {
		if tracked {
			delete(m.data, name)
			delete(m.stamps, name)
		}
		return
	}
	if tracked && known == stamp {
		return
	}

	// Recorded even when the file is unusable, so a bad file is reported once per version.
	m.stamps[name] = stamp
	raw, err := m.persister.LoadCollection(name)
	if err != nil {
		m.logger.Warn("could not reload collection file", slog.String("collection", name), slog.String("error", err.Error()))
		return
	}
	payload, err := compactJSON(raw)
	if err != nil {
		m.logger.Warn("ignoring invalid collection file", slog.String("collection", name))
		return
	}
	m.data[name] = payload
}

// Write replaces the collection with data, which must be valid JSON.
func (m *MemStore) Write(name string, data []byte) error {
	if !ValidName(name) {
		return ErrInvalidCollectionName
	}
	payload, err := compactJSON(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data[name] = payload
	m.markPending(name)
	m.mu.Unlock()

	m.persist(name)
	return nil
}

// Delete removes the collection. Deleting a missing collection is not an error.
func (m *MemStore) Delete(name string) error {
	m.refresh(name)

	m.mu.Lock()
	_, existed := m.data[name]
	delete(m.data, name)
	if existed {
		m.markPending(name)
	}
	m.mu.Unlock()

	if existed {
		m.persist(name)
	}
	return nil
}

// Collections lists the collection names in lexical order, including collections
// another process has created in the data directory.
func (m *MemStore) Collections() ([]string, error) {
	if m.persister != nil {
		onDisk, err := m.persister.Names()
		if err != nil {
			return nil, err
		}
		m.mu.RLock()
		names := append([]string(nil), onDisk...)
		for name := range m.data {
			names = append(names, name)
		}
		m.mu.RUnlock()
		for _, name := range names {
			m.refresh(name)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]string, 0, len(m.data))
	for name := range m.data {
		list = append(list, name)
	}
	sort.Strings(list)
	return list, nil
}

// markPending must be called with m.mu held.
func (m *MemStore) markPending(name string) {
	if m.persister != nil {
		m.pending[name]++
	}
}

// persist flushes one collection in the background. Each flush writes whatever the
// collection holds when it runs, under flushMu, so the last flush always leaves the
// newest state on disk regardless of goroutine order.
func (m *MemStore) persist(name string) {
	if m.persister == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.flushMu.Lock()
		defer m.flushMu.Unlock()

		m.mu.RLock()
		data, ok := m.data[name]
		m.mu.RUnlock()

		var err error
		if ok {
			err = m.persister.SaveCollection(name, data)
		} else {
			err = m.persister.DeleteCollection(name)
		}
		if err != nil {
			m.logger.Warn("background persistence failed",
				slog.String("collection", name),
				slog.String("error", err.Error()))
		}
		stamp, exists, statErr := m.persister.Stat(name)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.pending[name]--
		if m.pending[name] <= 0 {
			delete(m.pending, name)
		}
		switch {
		case statErr != nil:
		case exists:
			m.stamps[name] = stamp
		default:
			delete(m.stamps, name)
		}
	}()
}
