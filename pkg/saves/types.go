package saves

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a save record does not exist.
var ErrNotFound = errors.New("save data not found")

// Record is one save slot.
type Record struct {
	ID                 string    `json:"id"`
	ProfileName        string    `json:"profile_name"`
	Created            time.Time `json:"created"`
	LastUpdated        time.Time `json:"last_updated"`
	LastLevelCompleted string    `json:"last_level_completed,omitempty"`
}

// Clone returns a copy of r.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// Store persists save records.
type Store interface {
	Upsert(ctx context.Context, r *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	HealthCheck(ctx context.Context) error
	Close() error
}
