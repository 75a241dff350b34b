package lifecycle

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/gamecore/pkg/capability"
	"github.com/openfroyo/gamecore/pkg/progression"
	"github.com/openfroyo/gamecore/pkg/saves"
	"github.com/openfroyo/gamecore/pkg/scene"
	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// SaveStore is the save-data collaborator of the SessionController.
type SaveStore interface {
	CreateSaveData(ctx context.Context, profile string) (*saves.Record, error)

	// GetLastUpdatedSaveData returns saves.ErrNotFound when no record exists.
	GetLastUpdatedSaveData() (*saves.Record, error)

	SetCurrent(r *saves.Record)
	UnsetCurrent()

	// FlushCurrent persists the current record.
	FlushCurrent(ctx context.Context) error
}

// SessionConfig configures the SessionController.
type SessionConfig struct {
	// LobbyScene is loaded when a session exits.
	LobbyScene string

	// DefaultProfile names the save created by EnterGame when none exists.
	DefaultProfile string

	// Systems are the session systems in setup order.
	Systems []capability.SystemRef
}

type sessionSystem struct {
	name string
	sys  capability.SessionScoped
}

type transition string

const (
	transitionEnter transition = "enter"
	transitionSwap  transition = "swap"
	transitionExit  transition = "exit"
)

// SessionController runs sessions: entering a level, swapping levels and
// exiting back to the lobby. It is itself an app system.
type SessionController struct {
	deps    Deps
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	levels  *progression.Store
	store   SaveStore
	lobby   string
	profile string
	systems []sessionSystem

	setupRequested bool

	phase     SessionPhase
	inSession bool
	level     progression.LevelData
	hasLevel  bool
	save      *saves.Record

	// pending describes the load in flight, if any.
	pending struct {
		kind   transition
		level  progression.LevelData
		handle scene.LoadHandle
		span   trace.Span
	}
}

// NewSessionController resolves every session system reference and checks
// the level catalog.
func NewSessionController(cfg SessionConfig, levels *progression.Store, store SaveStore, deps Deps) (*SessionController, error) {
	const op = "session.new"
	if err := deps.validate(op); err != nil {
		return nil, err
	}
	if levels == nil || levels.Len() == 0 {
		return nil, NewConfigurationError("level catalog is empty", nil).
			WithOperation(op).WithCode(ErrCodeEmptyProgression)
	}
	if store == nil {
		return nil, NewConfigurationError("save store is required", nil).
			WithOperation(op).WithCode(ErrCodeMissingDependency)
	}
	if cfg.LobbyScene == "" {
		return nil, NewConfigurationError("lobby scene is required", nil).WithOperation(op)
	}
	if cfg.DefaultProfile == "" {
		return nil, NewConfigurationError("default profile is required", nil).WithOperation(op)
	}

	resolved, err := capability.ResolveAll[capability.SessionScoped](cfg.Systems)
	if err != nil {
		var re *capability.ResolveError
		e := NewConfigurationError("cannot resolve session system", err).
			WithOperation(op).WithCode(ErrCodeInvalidRef)
		if errors.As(err, &re) {
			e = e.WithSystem(re.Name)
		}
		return nil, e
	}

	systems := make([]sessionSystem, len(resolved))
	for i, sys := range resolved {
		systems[i] = sessionSystem{name: cfg.Systems[i].Name, sys: sys}
	}

	tel := deps.telemetry()
	return &SessionController{
		deps:    deps,
		tel:     tel,
		logger:  tel.Logger.NewComponentLogger("session"),
		levels:  levels,
		store:   store,
		lobby:   cfg.LobbyScene,
		profile: cfg.DefaultProfile,
		systems: systems,
		phase:   SessionPhaseIdle,
	}, nil
}

// OneTimeSetup issues OneTimeSetup to every session system.
func (c *SessionController) OneTimeSetup(ctx context.Context) error {
	c.setupRequested = true
	for _, s := range c.systems {
		if err := s.sys.OneTimeSetup(ctx); err != nil {
			return c.fail(NewExternalError("one-time setup failed", err).
				WithOperation("session.one_time_setup").WithSystem(s.name).
				WithCode(ErrCodeSystemSetupFailed))
		}
	}
	return nil
}

// IsSetupComplete reports whether setup was requested and every session
// system has finished it.
func (c *SessionController) IsSetupComplete() bool {
	if !c.setupRequested {
		return false
	}
	for _, s := range c.systems {
		if !s.sys.IsSetupComplete() {
			return false
		}
	}
	return true
}

// OneTimeTeardown tears down a running session's systems, then issues
// OneTimeTeardown to every session system in reverse order.
func (c *SessionController) OneTimeTeardown(ctx context.Context) error {
	const op = "session.one_time_teardown"
	var errs []error

	if c.inSession {
		errs = append(errs, c.teardownSystems(ctx, op))
	}
	if c.inSession || c.save != nil {
		c.clearSession()
	}
	if c.pending.span != nil {
		c.pending.span.End()
	}
	c.pending.handle = nil
	c.pending.span = nil
	c.phase = SessionPhaseIdle

	for i := len(c.systems) - 1; i >= 0; i-- {
		s := c.systems[i]
		if err := s.sys.OneTimeTeardown(ctx); err != nil {
			errs = append(errs, c.fail(NewExternalError("one-time teardown failed", err).
				WithOperation(op).WithSystem(s.name).WithCode(ErrCodeSystemTeardownFail)))
		}
	}
	c.setupRequested = false
	return errors.Join(errs...)
}

// Phase returns the current phase.
func (c *SessionController) Phase() SessionPhase {
	return c.phase
}

// InSession reports whether a session is active. It stays true while
// swapping levels and while unloading.
func (c *SessionController) InSession() bool {
	return c.inSession
}

// LoadInFlight reports whether a scene load is pending.
func (c *SessionController) LoadInFlight() bool {
	return c.pending.handle != nil
}

// CurrentLevel returns the level of the running session.
func (c *SessionController) CurrentLevel() (progression.LevelData, bool) {
	return c.level, c.hasLevel
}

// CurrentSave returns the save record of the running session, or nil.
func (c *SessionController) CurrentSave() *saves.Record {
	return c.save
}

// Levels returns the level catalog.
func (c *SessionController) Levels() *progression.Store {
	return c.levels
}

// EnterGame continues the most recently updated save, or creates one for the
// default profile when there is none.
func (c *SessionController) EnterGame(ctx context.Context) error {
	if err := c.guardIdle("session.enter_game"); err != nil {
		return err
	}
	save, err := c.store.GetLastUpdatedSaveData()
	if errors.Is(err, saves.ErrNotFound) {
		return c.CreateNewGame(ctx, c.profile)
	}
	if err != nil {
		return c.fail(NewExternalError("cannot read save data", err).
			WithOperation("session.enter_game").WithCode(ErrCodeSaveStoreFailed))
	}
	return c.EnterGameForSaveData(ctx, save)
}

// CreateNewGame creates a save for profile and enters it.
func (c *SessionController) CreateNewGame(ctx context.Context, profile string) error {
	const op = "session.create_new_game"
	if err := c.guardIdle(op); err != nil {
		return err
	}
	save, err := c.store.CreateSaveData(ctx, profile)
	if err != nil {
		return c.fail(NewExternalError("cannot create save data", err).
			WithOperation(op).WithCode(ErrCodeSaveStoreFailed))
	}
	return c.EnterGameForSaveData(ctx, save)
}

// EnterLastUpdatedGame enters the most recently updated save.
func (c *SessionController) EnterLastUpdatedGame(ctx context.Context) error {
	const op = "session.enter_last_updated_game"
	if err := c.guardIdle(op); err != nil {
		return err
	}
	save, err := c.store.GetLastUpdatedSaveData()
	if errors.Is(err, saves.ErrNotFound) {
		return c.fail(NewNotFoundError("no save data to continue", err).
			WithOperation(op).WithCode(ErrCodeNoSaveData))
	}
	if err != nil {
		return c.fail(NewExternalError("cannot read save data", err).
			WithOperation(op).WithCode(ErrCodeSaveStoreFailed))
	}
	return c.EnterGameForSaveData(ctx, save)
}

// EnterGameForSaveData makes save current and loads its starting level: the
// record's last completed level when it is still in the catalog, otherwise
// the first level.
func (c *SessionController) EnterGameForSaveData(ctx context.Context, save *saves.Record) error {
	const op = "session.enter_game_for_save_data"
	if err := c.guardIdle(op); err != nil {
		return err
	}
	if save == nil {
		return c.fail(NewPreconditionError("save record is nil", nil).
			WithOperation(op).WithCode(ErrCodeNoCurrentSave))
	}

	c.store.SetCurrent(save)
	c.save = save

	level := c.levels.FirstLevel()
	if save.LastLevelCompleted != "" {
		if l, ok := c.levels.TryGetLevel(save.LastLevelCompleted); ok {
			level = l
		} else {
			c.logger.WithLevel(save.LastLevelCompleted).Warn("last completed level not in catalog, starting from the first level")
		}
	}

	c.beginLoad(ctx, transitionEnter, level, level.Scene)
	return nil
}

// GoToLevelData swaps the running session to level without exiting.
// Session systems are not set up again.
func (c *SessionController) GoToLevelData(ctx context.Context, level progression.LevelData) error {
	const op = "session.go_to_level"
	if err := c.guardActive(op); err != nil {
		return err
	}
	if c.save == nil {
		return c.fail(NewPreconditionError("no current save data", nil).
			WithOperation(op).WithCode(ErrCodeNoCurrentSave))
	}
	if _, ok := c.levels.TryGetLevel(level.Symbol); !ok {
		return c.fail(NewPreconditionError("level is not in the catalog", nil).
			WithOperation(op).WithCode(ErrCodeUnknownLevel).
			WithDetail("level", level.Symbol))
	}
	c.beginLoad(ctx, transitionSwap, level, level.Scene)
	return nil
}

// CompleteLevel records the current level as completed and loads the next
// one. After the last level the save's progress is cleared and the session
// exits.
func (c *SessionController) CompleteLevel(ctx context.Context) error {
	const op = "session.complete_level"
	if err := c.guardActive(op); err != nil {
		return err
	}
	if !c.hasLevel {
		return c.fail(NewPreconditionError("no current level", nil).
			WithOperation(op).WithCode(ErrCodeNoCurrentLevel))
	}
	if c.save == nil {
		return c.fail(NewPreconditionError("no current save data", nil).
			WithOperation(op).WithCode(ErrCodeNoCurrentSave))
	}

	next, ok := c.levels.TryGetNextLevel(c.level)
	if ok {
		c.save.LastLevelCompleted = c.level.Symbol
	} else {
		c.save.LastLevelCompleted = ""
	}
	if err := c.store.FlushCurrent(ctx); err != nil {
		return c.fail(NewExternalError("cannot save progress", err).
			WithOperation(op).WithCode(ErrCodeSaveStoreFailed))
	}

	if !ok {
		c.logger.WithLevel(c.level.Symbol).Info("last level completed, progress reset")
		return c.ExitGame(ctx)
	}
	c.beginLoad(ctx, transitionSwap, next, next.Scene)
	return nil
}

// ExitGame unloads the session and returns to the lobby.
func (c *SessionController) ExitGame(ctx context.Context) error {
	if err := c.guardActive("session.exit_game"); err != nil {
		return err
	}
	c.beginLoad(ctx, transitionExit, c.level, c.lobby)
	return nil
}

func (c *SessionController) beginLoad(ctx context.Context, kind transition, level progression.LevelData, sceneID string) {
	spanCtx, span := c.tel.Tracer.StartSessionSpan(ctx, string(kind), level.Symbol)
	if c.save != nil {
		span.SetAttributes(telemetry.AttrSaveID.String(c.save.ID))
	}
	c.logger.WithTrace(spanCtx).WithLevel(level.Symbol).
		WithField("transition", string(kind)).Debug("session load started")

	c.pending.kind = kind
	c.pending.level = level
	c.pending.span = span

	if kind == transitionExit {
		c.setPhase(SessionPhaseUnloading)
	} else {
		c.setPhase(SessionPhaseLoading)
		c.deps.Bus.Fire(signals.GameLoadingStarted, map[string]any{"level": level.Symbol})
	}

	c.pending.handle = c.deps.Loader.BeginLoad(sceneID)
	c.deps.Scheduler.Go("session-"+string(kind), scheduler.TaskFunc(c.poll))
}

func (c *SessionController) poll(ctx context.Context) (bool, error) {
	if c.pending.handle == nil {
		// Torn down while loading.
		return true, nil
	}
	if !c.pending.handle.IsDone() {
		return false, nil
	}

	kind, level, span := c.pending.kind, c.pending.level, c.pending.span
	c.pending.handle = nil
	c.pending.span = nil

	var err error
	switch kind {
	case transitionEnter:
		err = c.finishEnter(ctx, level)
	case transitionSwap:
		c.level = level
		c.hasLevel = true
		c.setPhase(SessionPhaseActive)
		c.deps.Bus.Fire(signals.LevelLoaded, map[string]any{"level": level.Symbol})
	case transitionExit:
		err = c.finishExit(ctx)
	}

	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.RecordSuccess(span)
	}
	span.End()
	return true, err
}

func (c *SessionController) finishEnter(ctx context.Context, level progression.LevelData) error {
	for i, s := range c.systems {
		if err := s.sys.Setup(ctx); err != nil {
			errs := []error{c.fail(NewExternalError("session setup failed", err).
				WithOperation("session.enter").WithSystem(s.name).
				WithCode(ErrCodeSystemSetupFailed))}
			// Undo the systems already set up.
			for j := i - 1; j >= 0; j-- {
				prev := c.systems[j]
				if terr := prev.sys.Teardown(ctx); terr != nil {
					errs = append(errs, c.fail(NewExternalError("session teardown failed", terr).
						WithOperation("session.enter").WithSystem(prev.name).
						WithCode(ErrCodeSystemTeardownFail)))
				}
			}
			c.clearSession()
			c.setPhase(SessionPhaseIdle)
			return errors.Join(errs...)
		}
	}
	c.setPhase(SessionPhaseActive)
	c.inSession = true
	c.level = level
	c.hasLevel = true

	data := map[string]any{"level": level.Symbol}
	if c.save != nil {
		data["save"] = c.save.ID
	}
	c.logger.WithLevel(level.Symbol).Info("game entered")
	c.deps.Bus.Fire(signals.GameEntered, data)
	return nil
}

func (c *SessionController) finishExit(ctx context.Context) error {
	err := c.teardownSystems(ctx, "session.exit")
	c.clearSession()
	c.setPhase(SessionPhaseIdle)
	c.logger.Info("game exited")
	c.deps.Bus.Fire(signals.GameExited, nil)
	return err
}

func (c *SessionController) teardownSystems(ctx context.Context, op string) error {
	var errs []error
	for _, s := range c.systems {
		if err := s.sys.Teardown(ctx); err != nil {
			errs = append(errs, c.fail(NewExternalError("session teardown failed", err).
				WithOperation(op).WithSystem(s.name).WithCode(ErrCodeSystemTeardownFail)))
		}
	}
	return errors.Join(errs...)
}

func (c *SessionController) clearSession() {
	c.inSession = false
	c.level = progression.LevelData{}
	c.hasLevel = false
	c.save = nil
	c.store.UnsetCurrent()
}

func (c *SessionController) guardIdle(op string) error {
	if !c.IsSetupComplete() {
		return c.fail(NewPreconditionError("session controller is not set up", nil).
			WithOperation(op).WithCode(ErrCodeNotSetUp))
	}
	if c.inSession {
		return c.fail(NewPreconditionError("already in a session", nil).
			WithOperation(op).WithCode(ErrCodeAlreadyInSession))
	}
	if c.pending.handle != nil {
		return c.fail(NewPreconditionError("a scene load is already in flight", nil).
			WithOperation(op).WithCode(ErrCodeLoadInFlight).
			WithDetail("phase", string(c.phase)))
	}
	return nil
}

func (c *SessionController) guardActive(op string) error {
	if !c.inSession {
		return c.fail(NewPreconditionError("not in a session", nil).
			WithOperation(op).WithCode(ErrCodeNotInSession))
	}
	if c.pending.handle != nil {
		return c.fail(NewPreconditionError("a scene load is already in flight", nil).
			WithOperation(op).WithCode(ErrCodeLoadInFlight).
			WithDetail("phase", string(c.phase)))
	}
	return nil
}

func (c *SessionController) setPhase(next SessionPhase) {
	prev := c.phase
	if prev == next {
		return
	}
	c.phase = next
	c.tel.Metrics.RecordTransition("session", string(prev), string(next), next.Ordinal())
	c.logger.WithField("from", string(prev)).WithField("to", string(next)).Info("session phase changed")
}

func (c *SessionController) fail(e *Error) *Error {
	c.tel.Metrics.RecordError(string(e.Class))
	c.logger.WithError(e).Error("session lifecycle error")
	return e
}
