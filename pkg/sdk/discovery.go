package sdk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/celerix-dev/celerix-console/internal/engine"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// Options selects the store a console process works against.
type Options struct {
	// Addr is a remote store daemon. When set, the embedded drivers are not used.
	Addr       string
	DisableTLS bool
	// Fallback opens the embedded store when Addr cannot be reached.
	Fallback bool

	Driver     string // DriverFile (default) or DriverSQLite
	DataDir    string
	SQLitePath string

	Logger *slog.Logger
}

// Store is an opened collection store and the means to release it.
type Store struct {
	CollectionStore
	Mode  string
	close func() error
}

// Close flushes pending writes and releases the store.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open returns the store described by opts.
// Callers use the returned CollectionStore and need not care if it is local or remote.
func Open(opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.Addr != "" {
		client, err := Connect(opts.Addr, WithTLS(!opts.DisableTLS), WithClientLogger(logger))
		if err == nil {
			return &Store{CollectionStore: client, Mode: "remote", close: client.Close}, nil
		}
		if !opts.Fallback {
			return nil, fmt.Errorf("connect to store %s: %w", opts.Addr, err)
		}
		logger.Warn("remote store unreachable, falling back to embedded store",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	switch opts.Driver {
	case "", DriverFile:
		p, err := engine.NewPersistence(dataDir)
		if err != nil {
			return nil, err
		}
		allData, err := p.LoadAll()
		if err != nil {
			return nil, err
		}
		ms := engine.NewMemStore(allData, p)
		ms.SetLogger(logger)
		return &Store{CollectionStore: ms, Mode: DriverFile, close: func() error {
			ms.Wait()
			return nil
		}}, nil

	case DriverSQLite:
		path := opts.SQLitePath
		if path == "" {
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return nil, err
			}
			path = filepath.Join(dataDir, "console.db")
		}
		s, err := engine.OpenSQLStore(path)
		if err != nil {
			return nil, err
		}
		return &Store{CollectionStore: s, Mode: DriverSQLite, close: s.Close}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
