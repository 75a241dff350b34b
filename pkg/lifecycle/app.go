package lifecycle

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/trace"

	"github.com/openfroyo/gamecore/pkg/capability"
	"github.com/openfroyo/gamecore/pkg/scene"
	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Deps are the collaborators shared by both controllers.
type Deps struct {
	Scheduler *scheduler.Scheduler
	Loader    scene.Loader
	Bus       *signals.Bus

	// Telemetry may be nil.
	Telemetry *telemetry.Telemetry
}

func (d Deps) validate(op string) error {
	switch {
	case d.Scheduler == nil:
		return NewConfigurationError("scheduler is required", nil).
			WithOperation(op).WithCode(ErrCodeMissingDependency)
	case d.Loader == nil:
		return NewConfigurationError("scene loader is required", nil).
			WithOperation(op).WithCode(ErrCodeMissingDependency)
	case d.Bus == nil:
		return NewConfigurationError("signal bus is required", nil).
			WithOperation(op).WithCode(ErrCodeMissingDependency)
	}
	return nil
}

func (d Deps) telemetry() *telemetry.Telemetry {
	if d.Telemetry == nil {
		return telemetry.NewNoop()
	}
	return d.Telemetry
}

// AppConfig configures the AppController.
type AppConfig struct {
	// LobbyScene is loaded once every system has finished setup.
	LobbyScene string

	// Systems are the app systems in setup order.
	Systems []capability.SystemRef
}

type appSystem struct {
	name string
	sys  capability.Initializable
}

// AppController drives app systems through one-time setup and teardown.
type AppController struct {
	deps    Deps
	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	lobby   string
	systems []appSystem

	phase      AppPhase
	lobbyLoad  scene.LoadHandle
	startFrame uint64
	span       trace.Span
}

// NewAppController resolves every system reference. A bad reference fails
// here, before any setup is issued.
func NewAppController(cfg AppConfig, deps Deps) (*AppController, error) {
	const op = "app.new"
	if err := deps.validate(op); err != nil {
		return nil, err
	}
	if cfg.LobbyScene == "" {
		return nil, NewConfigurationError("lobby scene is required", nil).WithOperation(op)
	}

	resolved, err := capability.ResolveAll[capability.Initializable](cfg.Systems)
	if err != nil {
		var re *capability.ResolveError
		e := NewConfigurationError("cannot resolve app system", err).
			WithOperation(op).WithCode(ErrCodeInvalidRef)
		if errors.As(err, &re) {
			e = e.WithSystem(re.Name)
		}
		return nil, e
	}

	systems := make([]appSystem, len(resolved))
	for i, sys := range resolved {
		systems[i] = appSystem{name: cfg.Systems[i].Name, sys: sys}
	}

	tel := deps.telemetry()
	return &AppController{
		deps:    deps,
		tel:     tel,
		logger:  tel.Logger.NewComponentLogger("app"),
		lobby:   cfg.LobbyScene,
		systems: systems,
		phase:   AppPhaseIdle,
	}, nil
}

// Phase returns the current phase.
func (a *AppController) Phase() AppPhase {
	return a.phase
}

// IsReady reports whether setup completed was signalled.
func (a *AppController) IsReady() bool {
	return a.phase == AppPhaseReady
}

// SystemNames returns the system names in setup order.
func (a *AppController) SystemNames() []string {
	names := make([]string, len(a.systems))
	for i, s := range a.systems {
		names[i] = s.name
	}
	return names
}

// Start issues OneTimeSetup to every system in order. When all of them are
// complete straight away, app.setup_completed fires before Start returns.
// Otherwise a scheduler task polls readiness once per tick, then loads the
// lobby scene and fires app.setup_completed when the load finishes.
func (a *AppController) Start(ctx context.Context) error {
	const op = "app.start"
	if a.phase != AppPhaseIdle {
		return a.fail(NewPreconditionError("app controller already started", nil).
			WithOperation(op).WithCode(ErrCodeAlreadyStarted).
			WithDetail("phase", string(a.phase)))
	}

	ctx, a.span = a.tel.Tracer.StartAppSetupSpan(ctx, len(a.systems))
	a.startFrame = a.deps.Scheduler.Frame()
	a.setPhase(AppPhaseSettingUp)
	a.logger.WithTrace(ctx).WithField("systems", len(a.systems)).Info("app setup started")

	for _, s := range a.systems {
		a.logger.WithSystem(s.name).Debug("one-time setup")
		if err := s.sys.OneTimeSetup(ctx); err != nil {
			e := a.fail(NewExternalError("one-time setup failed", err).
				WithOperation(op).WithSystem(s.name).WithCode(ErrCodeSystemSetupFailed))
			telemetry.RecordError(a.span, e)
			a.span.End()
			return e
		}
	}

	if a.allComplete() {
		a.logger.Info("all app systems set up immediately")
		a.complete()
		return nil
	}

	a.setPhase(AppPhaseWaitingForReady)
	a.deps.Scheduler.Go("app-setup", scheduler.TaskFunc(a.poll))
	return nil
}

func (a *AppController) poll(ctx context.Context) (bool, error) {
	switch a.phase {
	case AppPhaseWaitingForReady:
		if !a.allComplete() {
			a.logger.Trace("waiting for app systems")
			return false, nil
		}
		waited := a.deps.Scheduler.Frame() - a.startFrame + 1
		a.tel.Metrics.ObserveSetupWait(waited)
		telemetry.AddEvent(a.span, "systems.ready", telemetry.AttrWaitTicks.Int64(int64(waited)))

		a.lobbyLoad = a.deps.Loader.BeginLoad(a.lobby)
		a.setPhase(AppPhaseLoadingLobby)
		fallthrough

	case AppPhaseLoadingLobby:
		if !a.lobbyLoad.IsDone() {
			return false, nil
		}
		a.lobbyLoad = nil
		a.complete()
		return true, nil

	default:
		// Shut down while waiting.
		return true, nil
	}
}

func (a *AppController) complete() {
	a.setPhase(AppPhaseReady)
	a.deps.Bus.Fire(signals.AppSetupCompleted, nil)
	telemetry.RecordSuccess(a.span)
	a.span.End()
}

// allComplete checks every system once, stopping at the first incomplete.
func (a *AppController) allComplete() bool {
	for _, s := range a.systems {
		if !s.sys.IsSetupComplete() {
			return false
		}
	}
	return true
}

// Shutdown issues OneTimeTeardown to every system in reverse order. It does
// not wait for setup to finish and keeps going past failures, returning
// them joined.
func (a *AppController) Shutdown(ctx context.Context) error {
	const op = "app.shutdown"
	if a.phase == AppPhaseShutdown {
		return nil
	}
	if a.phase == AppPhaseIdle {
		a.setPhase(AppPhaseShutdown)
		return nil
	}
	if a.phase == AppPhaseWaitingForReady || a.phase == AppPhaseLoadingLobby {
		a.span.End()
	}

	var errs []error
	for i := len(a.systems) - 1; i >= 0; i-- {
		s := a.systems[i]
		a.logger.WithSystem(s.name).Debug("one-time teardown")
		if err := s.sys.OneTimeTeardown(ctx); err != nil {
			errs = append(errs, a.fail(NewExternalError("one-time teardown failed", err).
				WithOperation(op).WithSystem(s.name).WithCode(ErrCodeSystemTeardownFail)))
		}
	}

	a.setPhase(AppPhaseShutdown)
	return errors.Join(errs...)
}

func (a *AppController) setPhase(next AppPhase) {
	prev := a.phase
	a.phase = next
	a.tel.Metrics.RecordTransition("app", string(prev), string(next), next.Ordinal())
	a.logger.WithField("from", string(prev)).WithField("to", string(next)).Info("app phase changed")
}

func (a *AppController) fail(e *Error) *Error {
	a.tel.Metrics.RecordError(string(e.Class))
	a.logger.WithError(e).Error("app lifecycle error")
	return e
}
