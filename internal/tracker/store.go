package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/percent-page-viewed/internal/clock"
)

// RecordTTL is how long a written record stays readable.
const RecordTTL = time.Hour

// RecordPath scopes the record to the whole origin.
const RecordPath = "/"

// RecordStore keeps a single Progress record under one storage key.
type RecordStore struct {
	storage Storage
	key     string
	clock   clock.Clock
}

// NewRecordStore creates a RecordStore over storage.
func NewRecordStore(storage Storage, key string, clk clock.Clock) *RecordStore {
	return &RecordStore{storage: storage, key: key, clock: clk}
}

// Read returns the stored record. Absent or malformed records read as the
// zero Progress; only backend failures return an error.
func (s *RecordStore) Read(ctx context.Context) (Progress, error) {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return Progress{}, fmt.Errorf("read record %q: %w", s.key, err)
	}
	if !ok {
		return Progress{}, nil
	}
	p, ok := Decode(raw)
	if !ok {
		return Progress{}, nil
	}
	return p, nil
}

// Write persists (percent, location) when force is set or percent exceeds
// the stored value. It reports whether anything was written.
func (s *RecordStore) Write(ctx context.Context, percent int, location string, force bool) (bool, error) {
	current, err := s.Read(ctx)
	if err != nil {
		return false, err
	}
	if !force && percent <= current.ScrollPercent {
		return false, nil
	}
	value := Encode(Progress{ScrollPercent: percent, DocumentLocation: location})
	opts := SetOptions{Path: RecordPath, Expires: s.clock.Now().Add(RecordTTL)}
	if err := s.storage.Set(ctx, s.key, value, opts); err != nil {
		return false, fmt.Errorf("write record %q: %w", s.key, err)
	}
	return true, nil
}

// Clear force-resets the record to the zero Progress.
func (s *RecordStore) Clear(ctx context.Context) error {
	_, err := s.Write(ctx, 0, "", true)
	return err
}
