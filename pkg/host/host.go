package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfroyo/gamecore/pkg/audio"
	"github.com/openfroyo/gamecore/pkg/capability"
	"github.com/openfroyo/gamecore/pkg/config"
	"github.com/openfroyo/gamecore/pkg/lifecycle"
	"github.com/openfroyo/gamecore/pkg/pause"
	"github.com/openfroyo/gamecore/pkg/pool"
	"github.com/openfroyo/gamecore/pkg/progression"
	"github.com/openfroyo/gamecore/pkg/saves"
	"github.com/openfroyo/gamecore/pkg/scene"
	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/settings"
	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Sound played when a session starts, and its length in ticks.
const (
	enterClip      = "level_start"
	enterClipTicks = 90
)

// Host owns every runtime component.
type Host struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	logger *telemetry.Logger

	Scheduler *scheduler.Scheduler
	Bus       *signals.Bus
	Loader    *scene.TickLoader
	Registry  *capability.Registry
	Levels    *progression.Store

	store     *saves.SQLiteStore
	Saves     *saves.System
	Settings  *settings.System
	Preloader *scene.Preloader
	Audio     *audio.Player
	Pause     *pause.System
	Overlay   *PerfOverlay

	Session *lifecycle.SessionController
	App     *lifecycle.AppController

	subs []*signals.Subscription
}

// Status is a snapshot of the runtime state.
type Status struct {
	Frame        uint64
	AppPhase     lifecycle.AppPhase
	SessionPhase lifecycle.SessionPhase
	Level        string
	Save         string
	Paused       bool
	Scene        string
	Voices       pool.Stats
}

// New builds the runtime. A nil tel uses no-op telemetry. Configuration
// errors, including unknown system names, are returned before any system is
// set up.
func New(ctx context.Context, cfg *config.Config, tel *telemetry.Telemetry) (*Host, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if tel == nil {
		tel = telemetry.NewNoop()
	}

	h := &Host{
		cfg:      cfg,
		tel:      tel,
		logger:   tel.Logger.NewComponentLogger("host"),
		Registry: capability.NewRegistry(),
	}

	levels, err := progression.Load(cfg.Progression.Path)
	if err != nil {
		return nil, lifecycle.NewConfigurationError("cannot load level catalog", err).
			WithOperation("host.new").WithCode(lifecycle.ErrCodeEmptyProgression)
	}
	h.Levels = levels

	h.Scheduler = scheduler.New(tel.Logger, tel.Metrics)
	h.Bus = signals.NewBus(tel.Logger, tel.Metrics)
	h.Loader, err = scene.NewTickLoader(h.Scheduler, cfg.SceneLoadTicks, tel.Logger)
	if err != nil {
		return nil, err
	}

	h.store, err = saves.Open(ctx, saves.Config{
		Path:            cfg.Saves.Path,
		MaxOpenConns:    cfg.Saves.MaxOpenConns,
		ConnMaxLifetime: cfg.Saves.ConnMaxLifetime,
	})
	if err != nil {
		return nil, lifecycle.NewExternalError("cannot open save database", err).
			WithOperation("host.new").WithCode(lifecycle.ErrCodeSaveStoreFailed)
	}

	if err := h.build(cfg); err != nil {
		_ = h.store.Close()
		return nil, err
	}
	return h, nil
}

func (h *Host) build(cfg *config.Config) error {
	log := h.tel.Logger

	h.Saves = saves.NewSystem(h.store, h.Bus, log)
	h.Settings = settings.NewSystem(settings.Options{
		Path:  cfg.Settings.Path,
		Watch: cfg.Settings.Watch,
	}, h.Scheduler, h.Bus, log)
	h.Preloader = scene.NewPreloader(h.Loader, h.Scheduler, cfg.PreloadScenes, log)
	h.Audio = audio.NewPlayer(h.Scheduler, func() float64 {
		return h.Settings.Settings().EffectiveSFXVolume()
	}, pool.Options{WarmCount: cfg.Audio.WarmCount, Capacity: cfg.Audio.Capacity}, log, h.tel.Metrics)
	h.Pause = pause.NewSystem(h.Bus, func() bool {
		return h.Session != nil && h.Session.InSession()
	}, log)
	h.Overlay = NewPerfOverlay(h.Settings.Settings, log)

	behaviors := []struct {
		name string
		sys  any
	}{
		{"saves", h.Saves},
		{"settings", h.Settings},
		{"preloader", h.Preloader},
		{"audio", h.Audio},
		{"pause", h.Pause},
	}
	for _, b := range behaviors {
		if err := h.Registry.RegisterBehavior(b.name, b.sys); err != nil {
			return err
		}
	}
	if err := h.Registry.RegisterData("perf-overlay", h.Overlay); err != nil {
		return err
	}

	deps := lifecycle.Deps{
		Scheduler: h.Scheduler,
		Loader:    h.Loader,
		Bus:       h.Bus,
		Telemetry: h.tel,
	}

	var err error
	h.Session, err = lifecycle.NewSessionController(lifecycle.SessionConfig{
		LobbyScene:     cfg.LobbyScene,
		DefaultProfile: cfg.DefaultProfile,
		Systems:        h.refs(cfg.SessionSystems),
	}, h.Levels, h.Saves, deps)
	if err != nil {
		return err
	}
	if err := h.Registry.RegisterBehavior("session", h.Session); err != nil {
		return err
	}

	h.App, err = lifecycle.NewAppController(lifecycle.AppConfig{
		LobbyScene: cfg.LobbyScene,
		Systems:    h.refs(cfg.AppSystems),
	}, deps)
	return err
}

func (h *Host) refs(systems []config.SystemConfig) []capability.SystemRef {
	refs := make([]capability.SystemRef, len(systems))
	for i, s := range systems {
		refs[i] = h.Registry.Ref(s.Name, s.Source)
	}
	return refs
}

// Start subscribes the host's own listeners and starts app setup.
func (h *Host) Start(ctx context.Context) error {
	h.subs = append(h.subs,
		h.Bus.Subscribe(signals.AppSetupCompleted, func(signals.Event) {
			h.logger.WithFrame(h.Scheduler.Frame()).Info("app ready")
		}),
		h.Bus.Subscribe(signals.GameEntered, func(e signals.Event) {
			if !h.Audio.IsSetupComplete() {
				return
			}
			if _, err := h.Audio.PlaySound(enterClip, enterClipTicks); err != nil {
				h.logger.WithError(err).Warn("cannot play session start sound")
			}
		}),
	)
	return h.App.Start(ctx)
}

// Run starts the app and ticks the scheduler at the configured rate until
// ctx ends or a scheduler task fails.
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(ctx); err != nil {
		return err
	}
	h.logger.Infof("running at %d ticks per second", h.cfg.TickRate)
	return h.Scheduler.Run(ctx, h.cfg.TickInterval())
}

// Shutdown tears down every app system and closes the save database.
func (h *Host) Shutdown(ctx context.Context) error {
	for _, s := range h.subs {
		s.Unsubscribe()
	}
	h.subs = nil

	err := h.App.Shutdown(ctx)
	if cerr := h.store.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("failed to close save database: %w", cerr))
	}
	return err
}

// Status returns a snapshot. It must be called on the scheduler goroutine.
func (h *Host) Status() Status {
	st := Status{
		Frame:        h.Scheduler.Frame(),
		AppPhase:     h.App.Phase(),
		SessionPhase: h.Session.Phase(),
		Paused:       h.Pause.IsPaused(),
		Scene:        h.Loader.Current(),
	}
	if l, ok := h.Session.CurrentLevel(); ok {
		st.Level = l.Symbol
	}
	if s := h.Session.CurrentSave(); s != nil {
		st.Save = s.ID
	}
	if h.Audio.IsSetupComplete() {
		st.Voices = h.Audio.Stats()
	}
	return st
}
