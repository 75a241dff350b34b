// Package pause tracks whether a running session is paused.
package pause

import (
	"context"

	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// System is the app system holding the pause state. Pausing is only
// possible while a session is active, and every session enter or exit
// resets it.
type System struct {
	bus    *signals.Bus
	logger *telemetry.Logger

	// AffectTimeScale makes TimeScale report 0 while paused.
	AffectTimeScale bool

	inSession func() bool
	paused    bool
	complete  bool
	subs      []*signals.Subscription
}

// NewSystem creates a pause system listening on bus. inSession reports
// whether a session is active; the session controller owns that state.
func NewSystem(bus *signals.Bus, inSession func() bool, logger *telemetry.Logger) *System {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &System{
		bus:       bus,
		inSession: inSession,
		logger:    logger.NewComponentLogger("pause"),
	}
}

// OneTimeSetup subscribes to session signals and resets state.
func (s *System) OneTimeSetup(context.Context) error {
	s.subs = append(s.subs,
		s.bus.Subscribe(signals.GameEntered, func(signals.Event) { s.reset() }),
		s.bus.Subscribe(signals.GameExited, func(signals.Event) { s.reset() }),
	)
	s.reset()
	s.complete = true
	return nil
}

// OneTimeTeardown unsubscribes and resets state.
func (s *System) OneTimeTeardown(context.Context) error {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.subs = nil
	s.reset()
	s.complete = false
	return nil
}

// IsSetupComplete reports whether the system is listening.
func (s *System) IsSetupComplete() bool {
	return s.complete
}

// IsPaused reports the pause state.
func (s *System) IsPaused() bool {
	return s.paused
}

// TimeScale is 0 while paused when AffectTimeScale is set, otherwise 1.
func (s *System) TimeScale() float64 {
	if s.AffectTimeScale && s.paused {
		return 0
	}
	return 1
}

// TogglePause flips the pause state.
func (s *System) TogglePause() {
	s.SetPause(!s.paused)
}

// SetPause sets the pause state. It is a no-op outside a session or when
// the state is unchanged.
func (s *System) SetPause(paused bool) {
	if !s.inSession() || s.paused == paused {
		return
	}
	s.paused = paused
	s.logger.WithField("paused", paused).Info("pause changed")
	s.bus.Fire(signals.PauseChanged, map[string]any{"paused": paused})
}

func (s *System) reset() {
	if !s.paused {
		return
	}
	s.paused = false
	s.bus.Fire(signals.PauseChanged, map[string]any{"paused": false})
}
