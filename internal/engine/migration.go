package engine

import "fmt"

// Source is the read side of a store taking part in a migration.
type Source interface {
	Read(name string) ([]byte, error)
	Collections() ([]string, error)
}

// Destination is the write side of a store taking part in a migration.
type Destination interface {
	Write(name string, data []byte) error
}

// Migrate copies every collection from src to dst, overwriting same-named collections.
// It works in any direction: file store to SQLite, embedded to remote, and back.
func Migrate(src Source, dst Destination) (int, error) {
	names, err := src.Collections()
	if err != nil {
		return 0, fmt.Errorf("failed to list collections: %w", err)
	}

	copied := 0
	for _, name := range names {
		data, err := src.Read(name)
		if err != nil {
			return copied, fmt.Errorf("failed to read collection %s: %w", name, err)
		}
		if err := dst.Write(name, data); err != nil {
			return copied, fmt.Errorf("failed to write collection %s: %w", name, err)
		}
		copied++
	}
	return copied, nil
}
