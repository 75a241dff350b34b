package saves

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// System is the app system that owns the in-memory save records and the
// record selected for the current session.
type System struct {
	store  Store
	bus    *signals.Bus
	logger *telemetry.Logger
	now    func() time.Time

	records  []*Record
	current  *Record
	complete bool
}

// NewSystem creates a save system backed by store. bus may be nil.
func NewSystem(store Store, bus *signals.Bus, logger *telemetry.Logger) *System {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &System{
		store:  store,
		bus:    bus,
		logger: logger.NewComponentLogger("saves"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// OneTimeSetup loads every persisted record.
func (s *System) OneTimeSetup(ctx context.Context) error {
	records, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load save data: %w", err)
	}
	s.records = records
	s.complete = true
	s.logger.Infof("loaded %d save records", len(records))
	return nil
}

// OneTimeTeardown flushes every record.
func (s *System) OneTimeTeardown(ctx context.Context) error {
	s.complete = false
	return s.FlushAll(ctx)
}

// IsSetupComplete reports whether the records have been loaded.
func (s *System) IsSetupComplete() bool {
	return s.complete
}

// CreateSaveData creates and persists a new record for profile.
func (s *System) CreateSaveData(ctx context.Context, profile string) (*Record, error) {
	if profile == "" {
		return nil, fmt.Errorf("profile name is required")
	}
	now := s.now()
	r := &Record{
		ID:          uuid.New().String(),
		ProfileName: profile,
		Created:     now,
		LastUpdated: now,
	}
	if err := s.store.Upsert(ctx, r); err != nil {
		return nil, err
	}
	s.records = append(s.records, r)
	s.logger.WithSaveID(r.ID).WithField("profile", profile).Info("save data created")
	return r, nil
}

// GetLastUpdatedSaveData returns the record with the newest LastUpdated.
func (s *System) GetLastUpdatedSaveData() (*Record, error) {
	var last *Record
	for _, r := range s.records {
		if last == nil || r.LastUpdated.After(last.LastUpdated) {
			last = r
		}
	}
	if last == nil {
		return nil, ErrNotFound
	}
	return last, nil
}

// SetCurrent selects r for the running session.
func (s *System) SetCurrent(r *Record) {
	s.current = r
}

// UnsetCurrent clears the current record.
func (s *System) UnsetCurrent() {
	s.current = nil
}

// Current returns the current record, or nil.
func (s *System) Current() *Record {
	return s.current
}

// HasCurrent reports whether a record is selected.
func (s *System) HasCurrent() bool {
	return s.current != nil
}

// List returns the records, most recently updated first.
func (s *System) List() []*Record {
	out := append([]*Record(nil), s.records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastUpdated.After(out[j].LastUpdated)
	})
	return out
}

// Delete removes r from memory and from the store.
func (s *System) Delete(ctx context.Context, r *Record) error {
	if err := s.store.Delete(ctx, r.ID); err != nil {
		return err
	}
	for i, existing := range s.records {
		if existing.ID == r.ID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}
	if s.current != nil && s.current.ID == r.ID {
		s.current = nil
	}
	return nil
}

// DeleteAll removes every record.
func (s *System) DeleteAll(ctx context.Context) error {
	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return err
	}
	s.records = nil
	s.current = nil
	s.logger.Infof("deleted %d save records", n)
	return nil
}

// FlushCurrent persists the current record and fires save.updated.
func (s *System) FlushCurrent(ctx context.Context) error {
	if s.current == nil {
		s.logger.Warn("no current save data to flush")
		return nil
	}
	s.current.LastUpdated = s.now()
	if err := s.store.Upsert(ctx, s.current); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Fire(signals.SaveUpdated, map[string]any{"save": s.current.ID})
	}
	return nil
}

// FlushAll persists every record as is.
func (s *System) FlushAll(ctx context.Context) error {
	for _, r := range s.records {
		if err := s.store.Upsert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
