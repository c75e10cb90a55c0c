package sdk

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ReadAll decodes the named collection into a slice of T.
// A collection that was never written reads as empty.
func ReadAll[T any](s CollectionReader, name string) ([]T, error) {
	raw, err := s.Read(name)
	if errors.Is(err, ErrCollectionNotFound) {
		return []T{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode collection %s: %w", name, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// WriteAll encodes records and replaces the named collection with them.
func WriteAll[T any](s CollectionWriter, name string, records []T) error {
	if records == nil {
		records = []T{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode collection %s: %w", name, err)
	}
	return s.Write(name, raw)
}

// Count returns the number of records in a collection without decoding them.
func Count(s CollectionReader, name string) (int, error) {
	raw, err := s.Read(name)
	if errors.Is(err, ErrCollectionNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, fmt.Errorf("decode collection %s: %w", name, err)
	}
	return len(records), nil
}
