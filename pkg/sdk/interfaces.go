// Package sdk is the client-side library of the console: the collection-store contract,
// typed helpers over it, a remote store client speaking the TCP protocol, store discovery,
// and a client for the console's HTTP API.
package sdk

import "github.com/celerix-dev/celerix-console/internal/engine"

// ErrCollectionNotFound is returned when a collection has never been written.
var ErrCollectionNotFound = engine.ErrCollectionNotFound

// --- Functional Interfaces (Interface Segregation) ---

// CollectionReader reads whole collections as JSON.
type CollectionReader interface {
	Read(name string) ([]byte, error)
}

// CollectionWriter replaces or removes whole collections.
type CollectionWriter interface {
	Write(name string, data []byte) error
	Delete(name string) error
}

// CollectionEnumeration lists the collections present in a store.
type CollectionEnumeration interface {
	Collections() ([]string, error)
}

// --- Composite Interfaces ---

// CollectionStore is the shared store as the console sees it. The embedded engine
// stores, the SQLite store and the remote Client all implement it.
type CollectionStore interface {
	CollectionReader
	CollectionWriter
	CollectionEnumeration
}
