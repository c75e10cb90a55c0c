// Package engine implements the shared collection store the console reads and writes.
//
// A collection is a named JSON array. Writers always replace the whole collection;
// readers always get the whole collection. There is no locking across a read and the
// write that follows it: the last writer wins.
package engine

import "errors"

var (
	// ErrCollectionNotFound is returned when a collection has never been written.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrInvalidCollectionName is returned for names that cannot be stored or sent over the wire.
	ErrInvalidCollectionName = errors.New("invalid collection name")
	// ErrInvalidJSON is returned when a write payload is not valid JSON.
	ErrInvalidJSON = errors.New("invalid json payload")
)

// ValidName reports whether name can be used as a collection name: non-empty,
// at most 64 bytes of ASCII letters, digits, '_' or '-'.
func ValidName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
