package schema

import (
	"encoding/json"
	"fmt"
	"io"
)

// Marshal serializes a snapshot to indented JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("schema: marshal nil snapshot")
	}
	return json.MarshalIndent(s, "", "  ")
}

// Unmarshal parses and validates a snapshot from JSON.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("schema: decode snapshot: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode writes a snapshot as JSON to w.
func Encode(w io.Writer, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads and validates a snapshot from r.
func Decode(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("schema: read snapshot: %w", err)
	}
	return Unmarshal(data)
}
