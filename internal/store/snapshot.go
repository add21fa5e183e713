// ABOUTME: Whole-store export and confirmed, validated import
// ABOUTME: Import checks every collection key is an array before overwriting anything

package store

import (
	"bytes"
	"context"
	"encoding/json"
)

// ExportSnapshot returns all collections as one indented JSON document.
func (s *Store) ExportSnapshot() ([]byte, error) {
	doc := make(map[Collection][]Record, len(Collections))
	for _, c := range Collections {
		doc[c] = s.data[c]
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ImportSnapshot replaces every collection with the contents of blob, then
// saves. It does nothing unless confirmed is true. A document that does not
// parse, or lacks any collection as a JSON array, is rejected with a
// *FormatError and the current data is left untouched.
func (s *Store) ImportSnapshot(ctx context.Context, blob []byte, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(blob, &doc); err != nil {
		return &FormatError{Reason: "not a JSON object: " + err.Error()}
	}

	imported := make(map[Collection][]Record, len(Collections))
	for _, c := range Collections {
		raw, ok := doc[string(c)]
		if !ok {
			return &FormatError{Key: string(c), Reason: "is missing"}
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
			return &FormatError{Key: string(c), Reason: "is not an array"}
		}
		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return &FormatError{Key: string(c), Reason: "has malformed records: " + err.Error()}
		}
		if records == nil {
			records = []Record{}
		}
		seen := make(map[string]bool, len(records))
		for _, r := range records {
			if r == nil {
				return &FormatError{Key: string(c), Reason: "contains a null record"}
			}
			s.normalizeID(r)
			if seen[r.ID()] {
				return &FormatError{Key: string(c), Reason: "has duplicate id " + r.ID()}
			}
			seen[r.ID()] = true
		}
		imported[c] = records
	}

	previous := s.data
	s.data = imported

	if err := s.Save(ctx); err != nil {
		if s.policy == RollbackOnSaveFailure {
			s.data = previous
		}
		return err
	}

	s.logger.Info("snapshot imported", "counts", s.Counts())
	return nil
}
