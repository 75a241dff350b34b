package saves

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/gamecore/pkg/signals"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := Open(context.Background(), Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err == nil {
		t.Error("Migrate() before Init() should fail")
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}
	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Error("NewSQLiteStore() without path should fail")
	}
}

func TestRecordCRUD(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC)
	r := &Record{
		ID:          "save-1",
		ProfileName: "alice",
		Created:     created,
		LastUpdated: created,
	}
	if err := store.Upsert(ctx, r); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	r.LastLevelCompleted = "B"
	r.LastUpdated = created.Add(time.Hour)
	if err := store.Upsert(ctx, r); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}

	got, err := store.Get(ctx, "save-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("Get() mismatch (-want +got):\n%s", diff)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Delete(ctx, "save-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "save-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestListOrdersByLastUpdated(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	offsets := []struct {
		id     string
		offset time.Duration
	}{
		{"old", 0},
		{"new", 2 * time.Hour},
		{"mid", time.Hour},
	}
	for _, o := range offsets {
		if err := store.Upsert(ctx, &Record{ID: o.id, ProfileName: "p", Created: base, LastUpdated: base.Add(o.offset)}); err != nil {
			t.Fatal(err)
		}
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]string{"new", "mid", "old"}, ids); diff != "" {
		t.Errorf("List() order mismatch (-want +got):\n%s", diff)
	}

	n, err := store.DeleteAll(ctx)
	if err != nil || n != 3 {
		t.Errorf("DeleteAll() = %d, %v; want 3, nil", n, err)
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saves.db")
	ctx := context.Background()

	store, err := Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	now := time.Now().UTC()
	if err := store.Upsert(ctx, &Record{ID: "x", ProfileName: "p", Created: now, LastUpdated: now}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = Open(ctx, Config{Path: path})
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer store.Close()
	if _, err := store.Get(ctx, "x"); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestSystem(t *testing.T) (*System, *SQLiteStore, *signals.Bus) {
	t.Helper()
	store := setupTestStore(t)
	bus := signals.NewBus(nil, nil)
	sys := NewSystem(store, bus, nil)
	clock := &fakeClock{t: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	sys.now = clock.now
	return sys, store, bus
}

func TestSystemSetupLoadsRecords(t *testing.T) {
	sys, store, _ := newTestSystem(t)
	ctx := context.Background()
	now := time.Now().UTC()
	if err := store.Upsert(ctx, &Record{ID: "a", ProfileName: "p", Created: now, LastUpdated: now}); err != nil {
		t.Fatal(err)
	}

	if sys.IsSetupComplete() {
		t.Fatal("complete before setup")
	}
	if err := sys.OneTimeSetup(ctx); err != nil {
		t.Fatalf("OneTimeSetup() error = %v", err)
	}
	if !sys.IsSetupComplete() {
		t.Fatal("not complete after setup")
	}
	if len(sys.List()) != 1 {
		t.Errorf("List() len = %d, want 1", len(sys.List()))
	}
}

func TestSystemLastUpdated(t *testing.T) {
	sys, _, _ := newTestSystem(t)
	ctx := context.Background()
	if err := sys.OneTimeSetup(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := sys.GetLastUpdatedSaveData(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetLastUpdatedSaveData() on empty error = %v, want ErrNotFound", err)
	}

	first, err := sys.CreateSaveData(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	second, err := sys.CreateSaveData(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}

	last, err := sys.GetLastUpdatedSaveData()
	if err != nil || last.ID != second.ID {
		t.Fatalf("GetLastUpdatedSaveData() = %v, %v; want %s", last, err, second.ID)
	}

	sys.SetCurrent(first)
	if err := sys.FlushCurrent(ctx); err != nil {
		t.Fatal(err)
	}
	last, _ = sys.GetLastUpdatedSaveData()
	if last.ID != first.ID {
		t.Errorf("after flush last updated = %s, want %s", last.ID, first.ID)
	}
}

func TestSystemFlushCurrentFiresSignal(t *testing.T) {
	sys, store, bus := newTestSystem(t)
	ctx := context.Background()
	if err := sys.OneTimeSetup(ctx); err != nil {
		t.Fatal(err)
	}

	var fired []string
	bus.Subscribe(signals.SaveUpdated, func(e signals.Event) { fired = append(fired, e.String("save")) })

	// Without a current record nothing is written.
	if err := sys.FlushCurrent(ctx); err != nil {
		t.Fatal(err)
	}
	if len(fired) != 0 {
		t.Fatal("save.updated fired without current save")
	}

	r, err := sys.CreateSaveData(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	sys.SetCurrent(r)
	r.LastLevelCompleted = "A"
	if err := sys.FlushCurrent(ctx); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{r.ID}, fired); diff != "" {
		t.Errorf("save.updated mismatch (-want +got):\n%s", diff)
	}
	stored, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastLevelCompleted != "A" {
		t.Errorf("stored LastLevelCompleted = %q, want A", stored.LastLevelCompleted)
	}
}

func TestSystemDelete(t *testing.T) {
	sys, _, _ := newTestSystem(t)
	ctx := context.Background()
	if err := sys.OneTimeSetup(ctx); err != nil {
		t.Fatal(err)
	}

	a, _ := sys.CreateSaveData(ctx, "a")
	b, _ := sys.CreateSaveData(ctx, "b")
	sys.SetCurrent(a)

	if err := sys.Delete(ctx, a); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if sys.HasCurrent() {
		t.Error("deleting the current record should unset it")
	}
	if got := sys.List(); len(got) != 1 || got[0].ID != b.ID {
		t.Errorf("List() after delete = %v", got)
	}

	sys.SetCurrent(b)
	if err := sys.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll() error = %v", err)
	}
	if sys.HasCurrent() || len(sys.List()) != 0 {
		t.Error("DeleteAll() left records behind")
	}
}

func TestSystemCreateRequiresProfile(t *testing.T) {
	sys, _, _ := newTestSystem(t)
	if _, err := sys.CreateSaveData(context.Background(), ""); err == nil {
		t.Error("CreateSaveData(\"\") should fail")
	}
}

func TestSystemTeardownFlushes(t *testing.T) {
	sys, store, _ := newTestSystem(t)
	ctx := context.Background()
	if err := sys.OneTimeSetup(ctx); err != nil {
		t.Fatal(err)
	}
	r, _ := sys.CreateSaveData(ctx, "a")
	r.LastLevelCompleted = "C"

	if err := sys.OneTimeTeardown(ctx); err != nil {
		t.Fatalf("OneTimeTeardown() error = %v", err)
	}
	if sys.IsSetupComplete() {
		t.Error("still complete after teardown")
	}
	stored, err := store.Get(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.LastLevelCompleted != "C" {
		t.Errorf("teardown did not flush, LastLevelCompleted = %q", stored.LastLevelCompleted)
	}
}
