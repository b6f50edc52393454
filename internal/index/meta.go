package index

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const lastRescoreKey = "last_rescore"

// LastRescoreTime returns when the last rescore pass completed. The zero
// time means no pass has ever run.
func (s *Store) LastRescoreTime(ctx context.Context) (time.Time, error) {
	raw, found, err := s.getDoc(ctx, s.metaIndex(), lastRescoreKey)
	if err != nil || !found {
		return time.Time{}, err
	}
	var doc metaDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return time.Time{}, fmt.Errorf("decode meta %s: %w", lastRescoreKey, err)
	}
	return timeVal(doc.Datetime), nil
}

// SetLastRescoreTime records the completion time of a rescore pass.
func (s *Store) SetLastRescoreTime(ctx context.Context, t time.Time) error {
	if err := s.writable(); err != nil {
		return err
	}
	return s.indexDoc(ctx, s.metaIndex(), lastRescoreKey, metaDoc{
		Key:      lastRescoreKey,
		Datetime: timePtr(t.UTC()),
	})
}
