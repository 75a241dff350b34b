package audio

import (
	"context"
	"testing"

	"github.com/openfroyo/gamecore/pkg/pool"
	"github.com/openfroyo/gamecore/pkg/scheduler"
)

func newPlayer(t *testing.T, opts pool.Options) (*Player, *scheduler.Scheduler) {
	t.Helper()
	sched := scheduler.New(nil, nil)
	p := NewPlayer(sched, func() float64 { return 0.5 }, opts, nil, nil)
	if err := p.OneTimeSetup(context.Background()); err != nil {
		t.Fatalf("OneTimeSetup() error = %v", err)
	}
	return p, sched
}

func tick(t *testing.T, s *scheduler.Scheduler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
	}
}

func TestPlaySoundUsesWarmVoices(t *testing.T) {
	p, _ := newPlayer(t, pool.Options{WarmCount: 2, Capacity: 4})

	if got := p.Stats(); got.Inactive != 2 || got.Active != 0 {
		t.Fatalf("Stats() after warm = %+v", got)
	}

	v, err := p.PlaySound("jump", 3)
	if err != nil {
		t.Fatalf("PlaySound() error = %v", err)
	}
	if !v.Playing || v.Clip != "jump" || v.Volume != 0.5 {
		t.Errorf("voice = %+v", v)
	}
	if v.Serial > 2 {
		t.Errorf("voice serial = %d, want a warm voice", v.Serial)
	}
}

func TestVoicesRecycleWhenFinished(t *testing.T) {
	p, sched := newPlayer(t, pool.Options{WarmCount: 0, Capacity: 4})

	short, _ := p.PlaySound("click", 1)
	if _, err := p.PlaySound("music", 3); err != nil {
		t.Fatal(err)
	}

	// The advance task was enqueued during setup and runs from the first tick.
	tick(t, sched, 1)
	if short.Playing {
		t.Error("one-tick voice still playing after a tick")
	}
	if got := p.Stats(); got.Active != 1 || got.Inactive != 1 {
		t.Errorf("Stats() = %+v, want 1 active 1 inactive", got)
	}

	tick(t, sched, 2)
	if got := p.Stats(); got.Active != 0 || got.Inactive != 2 {
		t.Errorf("Stats() = %+v, want all voices parked", got)
	}

	again, _ := p.PlaySound("click", 1)
	if again != short {
		t.Error("parked voice not reused")
	}
}

func TestPlaySoundValidation(t *testing.T) {
	p := NewPlayer(scheduler.New(nil, nil), nil, pool.DefaultOptions(), nil, nil)
	if _, err := p.PlaySound("x", 1); err == nil {
		t.Error("PlaySound() before setup should fail")
	}
	if err := p.OneTimeSetup(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := p.PlaySound("x", 0); err == nil {
		t.Error("PlaySound() with zero ticks should fail")
	}
}

func TestTeardownStopsVoicesAndTask(t *testing.T) {
	p, sched := newPlayer(t, pool.Options{WarmCount: 1, Capacity: 2})
	if _, err := p.PlaySound("loop", 100); err != nil {
		t.Fatal(err)
	}

	if err := p.OneTimeTeardown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := p.Stats(); got.Active != 0 {
		t.Errorf("Active = %d after teardown, want 0", got.Active)
	}

	tick(t, sched, 1)
	if sched.Pending() != 0 {
		t.Errorf("Pending() = %d after teardown tick, want 0", sched.Pending())
	}
}

func TestSetupRejectsBadPoolOptions(t *testing.T) {
	p := NewPlayer(scheduler.New(nil, nil), nil, pool.Options{Capacity: 0}, nil, nil)
	if err := p.OneTimeSetup(context.Background()); err == nil {
		t.Error("OneTimeSetup() with zero capacity should fail")
	}
}
