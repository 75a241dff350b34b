package capability

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type appOnly struct {
	done bool
}

func (a *appOnly) OneTimeSetup(context.Context) error    { a.done = true; return nil }
func (a *appOnly) OneTimeTeardown(context.Context) error { return nil }
func (a *appOnly) IsSetupComplete() bool                 { return a.done }

type sessionSystem struct {
	BaseSystem
	setups int
}

func (s *sessionSystem) Setup(context.Context) error {
	s.setups++
	return nil
}

type notASystem struct{}

func TestResolveBehavior(t *testing.T) {
	sys := &appOnly{}
	got, err := Resolve[Initializable](BehaviorRef("saves", sys))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != Initializable(sys) {
		t.Error("expected the registered behavior back")
	}
}

func TestResolveData(t *testing.T) {
	sys := &sessionSystem{}
	got, err := Resolve[SessionScoped](DataRef("hud", sys))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if err := got.Setup(context.Background()); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if sys.setups != 1 {
		t.Errorf("expected one setup, got %d", sys.setups)
	}
}

func TestResolveFailures(t *testing.T) {
	var typedNil *appOnly

	tests := []struct {
		name string
		ref  SystemRef
	}{
		{name: "nil behavior", ref: BehaviorRef("a", nil)},
		{name: "typed nil behavior", ref: BehaviorRef("a", typedNil)},
		{name: "nil data", ref: DataRef("a", nil)},
		{name: "behavior without capability", ref: BehaviorRef("a", &notASystem{})},
		{name: "unknown source", ref: SystemRef{Name: "a", Source: "prefab", Behavior: &appOnly{}}},
		{name: "data source ignores behavior", ref: SystemRef{Name: "a", Source: SourceData, Behavior: &appOnly{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve[Initializable](tt.ref)
			var re *ResolveError
			if !errors.As(err, &re) {
				t.Fatalf("expected ResolveError, got %v", err)
			}
			if re.Name != "a" {
				t.Errorf("expected name a, got %s", re.Name)
			}
		})
	}
}

func TestResolveSessionScopedRejectsAppOnly(t *testing.T) {
	_, err := Resolve[SessionScoped](BehaviorRef("pause", &appOnly{}))
	if err == nil {
		t.Fatal("expected capability mismatch")
	}
}

func TestResolveAllStopsAtFirstFailure(t *testing.T) {
	refs := []SystemRef{
		BehaviorRef("ok", &appOnly{}),
		BehaviorRef("bad", &notASystem{}),
		BehaviorRef("never", nil),
	}

	_, err := ResolveAll[Initializable](refs)
	var re *ResolveError
	if !errors.As(err, &re) || re.Name != "bad" {
		t.Fatalf("expected failure on bad, got %v", err)
	}
}

func TestRegistryRefs(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterBehavior("session", &appOnly{}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterData("pause", &sessionSystem{}); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterData("pause", &sessionSystem{}); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	if _, err := Resolve[Initializable](r.Ref("session", SourceBehavior)); err != nil {
		t.Errorf("expected session to resolve: %v", err)
	}
	if _, err := Resolve[Initializable](r.Ref("session", SourceData)); err == nil {
		t.Error("expected session registered as behavior to be absent from data")
	}
	if _, err := Resolve[Initializable](r.Ref("missing", SourceBehavior)); err == nil {
		t.Error("expected missing name to fail")
	}

	want := map[SourceKind][]string{
		SourceBehavior: {"session"},
		SourceData:     {"pause"},
	}
	if diff := cmp.Diff(want, r.Names()); diff != "" {
		t.Errorf("Names mismatch (-want +got):\n%s", diff)
	}
}

func TestBaseSystemLifecycle(t *testing.T) {
	var b BaseSystem
	ctx := context.Background()

	if b.IsSetupComplete() {
		t.Fatal("expected incomplete before setup")
	}
	_ = b.OneTimeSetup(ctx)
	if !b.IsSetupComplete() {
		t.Fatal("expected complete after setup")
	}
	_ = b.OneTimeTeardown(ctx)
	if b.IsSetupComplete() {
		t.Fatal("expected incomplete after teardown")
	}
}
