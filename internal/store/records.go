// ABOUTME: Add, update, delete and read operations on record collections
// ABOUTME: Every mutation validates, escapes text fields and then saves

package store

import (
	"context"
	"errors"
	"fmt"
)

// Validator checks a candidate record and returns nil or the reason it is invalid.
type Validator func(Record) error

func (s *Store) collection(c Collection) ([]Record, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, c)
	}
	return s.data[c], nil
}

func validate(c Collection, validator Validator, r Record) error {
	if validator == nil {
		return nil
	}
	err := validator(r)
	if err == nil {
		return nil
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		if ve.Collection == "" {
			ve.Collection = c
		}
		return ve
	}
	return &ValidationError{Collection: c, Reason: err.Error()}
}

// Add validates candidate, escapes its string fields, assigns a fresh id and
// appends it to the collection, then saves.
//
// The returned record is nil if nothing was added. Under KeepOnSaveFailure a
// save error comes back together with the added record.
func (s *Store) Add(ctx context.Context, c Collection, candidate Record, validator Validator) (Record, error) {
	if _, err := s.collection(c); err != nil {
		return nil, err
	}
	if err := validate(c, validator, candidate); err != nil {
		return nil, err
	}

	rec := make(Record, len(candidate)+1)
	for k, v := range candidate {
		rec[k] = sanitizeValue(v)
	}
	rec["id"] = s.newID()

	before := s.data[c]
	s.data[c] = append(before, rec)

	if err := s.Save(ctx); err != nil {
		if s.policy == RollbackOnSaveFailure {
			s.data[c] = before[:len(before):len(before)]
			return nil, err
		}
		return rec.clone(), err
	}

	s.logger.Debug("record added", "collection", c, "id", rec.ID())
	return rec.clone(), nil
}

// Update merges fields into the record with the given id. The merged record is
// validated before anything changes; an "id" entry in fields is ignored.
func (s *Store) Update(ctx context.Context, c Collection, id string, fields Record, validator Validator) (Record, error) {
	records, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}

	current := records[idx]
	merged := current.clone()
	for k, v := range fields {
		if k == "id" {
			continue
		}
		merged[k] = v
	}
	if err := validate(c, validator, merged); err != nil {
		return nil, err
	}

	previous := current.clone()
	for k, v := range fields {
		if k == "id" {
			continue
		}
		current[k] = sanitizeValue(v)
	}

	if err := s.Save(ctx); err != nil {
		if s.policy == RollbackOnSaveFailure {
			records[idx] = previous
			return nil, err
		}
		return current.clone(), err
	}

	s.logger.Debug("record updated", "collection", c, "id", id)
	return current.clone(), nil
}

// Delete removes the first record with the given id, then saves.
func (s *Store) Delete(ctx context.Context, c Collection, id string) error {
	records, err := s.collection(c)
	if err != nil {
		return err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}

	remaining := make([]Record, 0, len(records)-1)
	remaining = append(remaining, records[:idx]...)
	remaining = append(remaining, records[idx+1:]...)
	s.data[c] = remaining

	if err := s.Save(ctx); err != nil {
		if s.policy == RollbackOnSaveFailure {
			s.data[c] = records
		}
		return err
	}

	s.logger.Debug("record deleted", "collection", c, "id", id)
	return nil
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(c Collection, id string) (Record, error) {
	records, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	idx := indexOf(records, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, c, id)
	}
	return records[idx].clone(), nil
}

// List returns copies of every record in insertion order.
func (s *Store) List(c Collection) ([]Record, error) {
	records, err := s.collection(c)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}
	return out, nil
}

// Counts returns the number of records per collection.
func (s *Store) Counts() map[Collection]int {
	counts := make(map[Collection]int, len(Collections))
	for _, c := range Collections {
		counts[c] = len(s.data[c])
	}
	return counts
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
