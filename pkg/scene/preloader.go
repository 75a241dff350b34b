package scene

import (
	"context"
	"fmt"

	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Preloader is an app system that additively loads a fixed list of scenes,
// one at a time, during one-time setup. Scenes that are already loaded are
// skipped.
type Preloader struct {
	loader AdditiveLoader
	sched  *scheduler.Scheduler
	scenes []string
	logger *telemetry.Logger

	next     int
	handle   LoadHandle
	complete bool
}

// NewPreloader creates a preloader for scenes.
func NewPreloader(loader AdditiveLoader, sched *scheduler.Scheduler, scenes []string, logger *telemetry.Logger) *Preloader {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &Preloader{
		loader: loader,
		sched:  sched,
		scenes: append([]string(nil), scenes...),
		logger: logger.NewComponentLogger("preloader"),
	}
}

// OneTimeSetup starts preloading. An empty list completes immediately.
func (p *Preloader) OneTimeSetup(ctx context.Context) error {
	if p.loader == nil || p.sched == nil {
		return fmt.Errorf("preloader requires a loader and a scheduler")
	}
	p.next = 0
	p.handle = nil
	p.complete = false

	if len(p.scenes) == 0 {
		p.complete = true
		return nil
	}
	p.sched.Go("preload", scheduler.TaskFunc(p.poll))
	return nil
}

func (p *Preloader) poll(context.Context) (bool, error) {
	for p.next < len(p.scenes) {
		if p.handle != nil {
			if !p.handle.IsDone() {
				return false, nil
			}
			p.handle = nil
			p.next++
			continue
		}

		s := p.scenes[p.next]
		if p.loader.IsLoaded(s) {
			p.logger.WithField("scene", s).Debug("scene already loaded, skipping")
			p.next++
			continue
		}
		p.handle = p.loader.BeginLoadAdditive(s)
	}

	p.complete = true
	p.logger.Infof("preloaded %d scenes", len(p.scenes))
	return true, nil
}

// OneTimeTeardown resets the preloader.
func (p *Preloader) OneTimeTeardown(context.Context) error {
	p.complete = false
	p.handle = nil
	return nil
}

// IsSetupComplete reports whether every scene has been loaded.
func (p *Preloader) IsSetupComplete() bool {
	return p.complete
}
