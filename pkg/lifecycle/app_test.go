package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/openfroyo/gamecore/pkg/capability"
	"github.com/openfroyo/gamecore/pkg/scene"
	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// slowSystem completes setup after a fixed number of scheduler ticks.
type slowSystem struct {
	name   string
	ticks  int
	sched  *scheduler.Scheduler
	log    *[]string
	done   bool
	checks int
	err    error
}

func (s *slowSystem) OneTimeSetup(context.Context) error {
	*s.log = append(*s.log, "setup:"+s.name)
	if s.err != nil {
		return s.err
	}
	if s.ticks == 0 {
		s.done = true
		return nil
	}
	remaining := s.ticks
	s.sched.Go(s.name, scheduler.TaskFunc(func(context.Context) (bool, error) {
		remaining--
		if remaining > 0 {
			return false, nil
		}
		s.done = true
		return true, nil
	}))
	return nil
}

func (s *slowSystem) OneTimeTeardown(context.Context) error {
	*s.log = append(*s.log, "teardown:"+s.name)
	return nil
}

func (s *slowSystem) IsSetupComplete() bool {
	s.checks++
	return s.done
}

// fakeLoader records loads. Handles complete when the test says so, unless
// instant is set.
type fakeLoader struct {
	instant bool
	scenes  []string
	handles []*fakeHandle
}

type fakeHandle struct{ done bool }

func (h *fakeHandle) IsDone() bool { return h.done }

func (l *fakeLoader) BeginLoad(sceneID string) scene.LoadHandle {
	l.scenes = append(l.scenes, sceneID)
	if l.instant {
		return scene.DoneHandle(sceneID)
	}
	h := &fakeHandle{}
	l.handles = append(l.handles, h)
	return h
}

type appHarness struct {
	sched  *scheduler.Scheduler
	bus    *signals.Bus
	loader *fakeLoader
	log    []string
	fired  int
}

func newAppHarness(t *testing.T) *appHarness {
	t.Helper()
	logger := telemetry.NopLogger()
	h := &appHarness{
		sched:  scheduler.New(logger, nil),
		bus:    signals.NewBus(logger, nil),
		loader: &fakeLoader{instant: true},
	}
	h.bus.Subscribe(signals.AppSetupCompleted, func(signals.Event) { h.fired++ })
	return h
}

func (h *appHarness) deps() Deps {
	return Deps{Scheduler: h.sched, Loader: h.loader, Bus: h.bus}
}

func (h *appHarness) system(name string, ticks int) *slowSystem {
	return &slowSystem{name: name, ticks: ticks, sched: h.sched, log: &h.log}
}

func (h *appHarness) controller(t *testing.T, systems ...*slowSystem) *AppController {
	t.Helper()
	refs := make([]capability.SystemRef, len(systems))
	for i, s := range systems {
		refs[i] = capability.BehaviorRef(s.name, s)
	}
	app, err := NewAppController(AppConfig{LobbyScene: "lobby", Systems: refs}, h.deps())
	if err != nil {
		t.Fatalf("NewAppController failed: %v", err)
	}
	return app
}

func (h *appHarness) tick(t *testing.T) {
	t.Helper()
	if err := h.sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick %d failed: %v", h.sched.Frame()+1, err)
	}
}

func TestAppReadyAfterSlowestSystem(t *testing.T) {
	h := newAppHarness(t)
	a, b, c := h.system("a", 1), h.system("b", 2), h.system("c", 3)
	app := h.controller(t, a, b, c)

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if app.Phase() != AppPhaseWaitingForReady {
		t.Fatalf("phase after Start = %s, want %s", app.Phase(), AppPhaseWaitingForReady)
	}

	for tick := 1; tick <= 2; tick++ {
		h.tick(t)
		if app.IsReady() || h.fired != 0 {
			t.Fatalf("ready after tick %d, want tick 3", tick)
		}
	}
	h.tick(t)
	if !app.IsReady() {
		t.Fatalf("phase after tick 3 = %s, want ready", app.Phase())
	}

	for i := 0; i < 5; i++ {
		h.tick(t)
	}
	if h.fired != 1 {
		t.Errorf("app.setup_completed fired %d times, want 1", h.fired)
	}
	if diff := cmp.Diff([]string{"lobby"}, h.loader.scenes); diff != "" {
		t.Errorf("loaded scenes mismatch (-want +got):\n%s", diff)
	}

	// Readiness is checked once in Start and at most once per tick after.
	if c.checks > 4 {
		t.Errorf("system c polled %d times over 3 ticks", c.checks)
	}
}

func TestAppFastPath(t *testing.T) {
	h := newAppHarness(t)
	app := h.controller(t, h.system("a", 0), h.system("b", 0))

	if err := app.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !app.IsReady() {
		t.Fatalf("phase = %s, want ready before any tick", app.Phase())
	}
	if h.fired != 1 {
		t.Errorf("app.setup_completed fired %d times, want 1", h.fired)
	}
	if len(h.loader.scenes) != 0 {
		t.Errorf("fast path loaded %v, want no scene load", h.loader.scenes)
	}
	if h.sched.Pending() != 0 {
		t.Errorf("pending tasks = %d, want 0", h.sched.Pending())
	}
}

func TestAppWaitsForLobbyLoad(t *testing.T) {
	h := newAppHarness(t)
	h.loader.instant = false
	app := h.controller(t, h.system("a", 1))

	if err := app.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.tick(t)
	if app.Phase() != AppPhaseLoadingLobby {
		t.Fatalf("phase = %s, want %s", app.Phase(), AppPhaseLoadingLobby)
	}
	h.tick(t)
	if app.IsReady() {
		t.Fatal("ready before the lobby finished loading")
	}

	h.loader.handles[0].done = true
	h.tick(t)
	if !app.IsReady() || h.fired != 1 {
		t.Fatalf("phase = %s fired = %d, want ready and one signal", app.Phase(), h.fired)
	}
}

func TestAppStalledSystemNeverReady(t *testing.T) {
	h := newAppHarness(t)
	stalled := h.system("stalled", 0)
	stalled.ticks = 1 << 30
	app := h.controller(t, h.system("a", 0), stalled)

	if err := app.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 50; i++ {
		h.tick(t)
	}
	if app.IsReady() || h.fired != 0 {
		t.Fatal("app became ready with a stalled system")
	}
	if app.Phase() != AppPhaseWaitingForReady {
		t.Errorf("phase = %s, want %s", app.Phase(), AppPhaseWaitingForReady)
	}
}

func TestAppBadReferenceFailsBeforeSetup(t *testing.T) {
	h := newAppHarness(t)
	good := h.system("good", 0)

	_, err := NewAppController(AppConfig{
		LobbyScene: "lobby",
		Systems: []capability.SystemRef{
			capability.BehaviorRef("good", good),
			capability.BehaviorRef("bogus", struct{}{}),
		},
	}, h.deps())
	if !IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.System != "bogus" || e.Code != ErrCodeInvalidRef {
		t.Errorf("error = %#v, want system bogus with code %s", e, ErrCodeInvalidRef)
	}
	if len(h.log) != 0 {
		t.Errorf("setup ran before validation: %v", h.log)
	}
}

func TestAppMissingDependencies(t *testing.T) {
	h := newAppHarness(t)

	tests := []struct {
		name string
		deps Deps
	}{
		{"no scheduler", Deps{Loader: h.loader, Bus: h.bus}},
		{"no loader", Deps{Scheduler: h.sched, Bus: h.bus}},
		{"no bus", Deps{Scheduler: h.sched, Loader: h.loader}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAppController(AppConfig{LobbyScene: "lobby"}, tt.deps)
			if !errors.Is(err, &Error{Class: ErrorClassConfiguration, Code: ErrCodeMissingDependency}) {
				t.Errorf("expected missing dependency error, got %v", err)
			}
		})
	}
}

func TestAppDoubleStart(t *testing.T) {
	h := newAppHarness(t)
	app := h.controller(t, h.system("a", 0))
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	err := app.Start(ctx)
	if !errors.Is(err, &Error{Class: ErrorClassPrecondition, Code: ErrCodeAlreadyStarted}) {
		t.Fatalf("second Start = %v, want already started", err)
	}
	if h.fired != 1 {
		t.Errorf("app.setup_completed fired %d times, want 1", h.fired)
	}
}

func TestAppSetupFailure(t *testing.T) {
	h := newAppHarness(t)
	broken := h.system("broken", 0)
	broken.err = errors.New("disk on fire")
	app := h.controller(t, h.system("a", 0), broken, h.system("c", 0))

	err := app.Start(context.Background())
	if !IsExternal(err) {
		t.Fatalf("expected external error, got %v", err)
	}
	if diff := cmp.Diff([]string{"setup:a", "setup:broken"}, h.log); diff != "" {
		t.Errorf("setup order mismatch (-want +got):\n%s", diff)
	}
	if h.fired != 0 {
		t.Error("app.setup_completed fired after a failed setup")
	}
}

func TestAppShutdownReverseOrder(t *testing.T) {
	h := newAppHarness(t)
	app := h.controller(t, h.system("a", 0), h.system("b", 0), h.system("c", 0))
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("second Shutdown failed: %v", err)
	}

	want := []string{
		"setup:a", "setup:b", "setup:c",
		"teardown:c", "teardown:b", "teardown:a",
	}
	if diff := cmp.Diff(want, h.log); diff != "" {
		t.Errorf("lifecycle order mismatch (-want +got):\n%s", diff)
	}
	if app.Phase() != AppPhaseShutdown {
		t.Errorf("phase = %s, want shutdown", app.Phase())
	}
}

func TestAppShutdownWhileWaiting(t *testing.T) {
	h := newAppHarness(t)
	app := h.controller(t, h.system("a", 3))
	ctx := context.Background()

	if err := app.Start(ctx); err != nil {
		t.Fatal(err)
	}
	h.tick(t)
	if err := app.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		h.tick(t)
	}
	if h.fired != 0 || len(h.loader.scenes) != 0 {
		t.Errorf("setup continued after shutdown: fired=%d loads=%v", h.fired, h.loader.scenes)
	}
}

func TestAppShutdownBeforeStart(t *testing.T) {
	h := newAppHarness(t)
	app := h.controller(t, h.system("a", 0))

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.log) != 0 {
		t.Errorf("teardown ran for systems never set up: %v", h.log)
	}
	if err := app.Start(context.Background()); !IsPrecondition(err) {
		t.Errorf("Start after Shutdown = %v, want precondition error", err)
	}
}
