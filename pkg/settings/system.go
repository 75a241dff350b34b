package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/signals"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// System is the app system owning UserSettings. Reads and updates happen on
// the scheduler goroutine; the optional file watcher hands reloads over with
// scheduler.Post.
type System struct {
	path   string
	watch  bool
	sched  *scheduler.Scheduler
	bus    *signals.Bus
	logger *telemetry.Logger

	settings UserSettings
	complete bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures a System.
type Options struct {
	// Path is the settings file.
	Path string

	// Watch reloads the file when it changes on disk.
	Watch bool
}

// NewSystem creates a settings system. bus may be nil; sched is required
// when opts.Watch is set.
func NewSystem(opts Options, sched *scheduler.Scheduler, bus *signals.Bus, logger *telemetry.Logger) *System {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &System{
		path:     opts.Path,
		watch:    opts.Watch,
		sched:    sched,
		bus:      bus,
		logger:   logger.NewComponentLogger("settings"),
		settings: Defaults(),
	}
}

// OneTimeSetup loads the settings file, or defaults when it does not exist,
// and starts the watcher if enabled.
func (s *System) OneTimeSetup(ctx context.Context) error {
	loaded, err := ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.WithField("path", s.path).Info("no settings file, using defaults")
		loaded = Defaults()
	case err != nil:
		return err
	}
	s.settings = loaded

	if s.watch {
		if err := s.startWatcher(); err != nil {
			return err
		}
	}

	s.complete = true
	return nil
}

// OneTimeTeardown stops the watcher and flushes the settings to disk.
func (s *System) OneTimeTeardown(ctx context.Context) error {
	s.stopWatcher()
	s.complete = false
	return s.Flush()
}

// IsSetupComplete reports whether settings are loaded.
func (s *System) IsSetupComplete() bool {
	return s.complete
}

// Settings returns a copy of the current settings.
func (s *System) Settings() UserSettings {
	return s.settings
}

// Update applies fn to the settings, normalizes the result and fires
// settings.updated.
func (s *System) Update(fn func(*UserSettings)) error {
	next := s.settings
	fn(&next)
	next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}
	s.apply(next)
	return nil
}

func (s *System) apply(next UserSettings) {
	s.settings = next
	if s.bus != nil {
		s.bus.Fire(signals.SettingsUpdated, nil)
	}
}

// Flush writes the settings file atomically.
func (s *System) Flush() error {
	if err := WriteFile(s.path, s.settings); err != nil {
		return err
	}
	s.logger.WithField("path", s.path).Debug("settings flushed")
	return nil
}

func (s *System) startWatcher() error {
	if s.sched == nil {
		return fmt.Errorf("settings watch requires a scheduler")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	// Atomic replacement swaps the inode, so watch the directory.
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("create settings directory: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch settings directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.watchLoop(ctx, watcher)

	s.logger.WithField("path", s.path).Info("watching settings file for changes")
	return nil
}

func (s *System) stopWatcher() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.cancel = nil
}

func (s *System) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer s.wg.Done()
	defer watcher.Close()

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			loaded, err := ReadFile(s.path)
			if err != nil {
				s.logger.WithError(err).Warn("settings reload failed")
				continue
			}
			s.sched.Post(func(context.Context) error {
				if loaded == s.settings {
					return nil
				}
				s.logger.Info("settings reloaded from disk")
				s.apply(loaded)
				return nil
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.WithError(err).Error("settings watcher error")
		}
	}
}

// ReadFile parses and normalizes a settings file.
func ReadFile(path string) (UserSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return UserSettings{}, fmt.Errorf("read settings: %w", err)
	}

	settings := Defaults()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return UserSettings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	settings.Normalize()
	if err := settings.Validate(); err != nil {
		return UserSettings{}, err
	}
	return settings, nil
}

// WriteFile stores settings at path, replacing any existing file atomically.
func WriteFile(path string, settings UserSettings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending settings file: %w", err)
	}
	defer pendingFile.Cleanup()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace settings file: %w", err)
	}
	return nil
}
