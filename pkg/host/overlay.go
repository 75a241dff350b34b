package host

import (
	"context"

	"github.com/openfroyo/gamecore/pkg/capability"
	"github.com/openfroyo/gamecore/pkg/settings"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// PerfOverlay is a data-defined session system that shows the performance
// meters enabled in the user settings while a session runs.
type PerfOverlay struct {
	capability.BaseSystem

	settings func() settings.UserSettings
	logger   *telemetry.Logger
	modules  []string
}

// NewPerfOverlay creates the overlay. current returns the live settings.
func NewPerfOverlay(current func() settings.UserSettings, logger *telemetry.Logger) *PerfOverlay {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &PerfOverlay{settings: current, logger: logger.NewComponentLogger("perf-overlay")}
}

// Setup shows the enabled meters.
func (o *PerfOverlay) Setup(context.Context) error {
	s := o.settings()
	o.modules = o.modules[:0]
	for _, m := range []struct {
		name string
		on   bool
	}{
		{"fps", s.PerfUIFPS},
		{"audio", s.PerfUIAudio},
		{"ram", s.PerfUIRAM},
		{"advanced", s.PerfUIAdvanced},
	} {
		if m.on {
			o.modules = append(o.modules, m.name)
		}
	}
	o.logger.WithField("modules", o.modules).Debug("overlay shown")
	return nil
}

// Teardown hides the overlay.
func (o *PerfOverlay) Teardown(context.Context) error {
	o.modules = nil
	return nil
}

// Modules returns the meters currently shown.
func (o *PerfOverlay) Modules() []string {
	return append([]string(nil), o.modules...)
}
