// Package snapshot keeps the most recent captured market summary.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/rs/xid"

	"p2pquotes/internal/aggregate"
)

// ErrNotFound is returned by Latest before anything was saved.
var ErrNotFound = errors.New("no snapshot")

// Snapshot is a summary captured at a point in time.
type Snapshot struct {
	ID      string             `json:"id"`
	TakenAt time.Time          `json:"takenAt"`
	Summary *aggregate.Summary `json:"summary"`
}

// New stamps a summary with a fresh id.
func New(s *aggregate.Summary, at time.Time) Snapshot {
	return Snapshot{ID: xid.NewWithTime(at).String(), TakenAt: at, Summary: s}
}

// Store holds a single latest snapshot. Save replaces it.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Latest(ctx context.Context) (Snapshot, error)
}
