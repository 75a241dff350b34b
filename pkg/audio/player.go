package audio

import (
	"context"
	"fmt"

	"github.com/openfroyo/gamecore/pkg/pool"
	"github.com/openfroyo/gamecore/pkg/scheduler"
	"github.com/openfroyo/gamecore/pkg/telemetry"
)

const poolName = "audio_voices"

// Voice is one pooled playback slot.
type Voice struct {
	// Serial identifies the voice instance for its whole life.
	Serial int

	Clip      string
	Volume    float64
	Remaining int
	Playing   bool
}

// VolumeFunc returns the effective volume for new sounds.
type VolumeFunc func() float64

// Player is the app system owning the voice pool.
type Player struct {
	sched   *scheduler.Scheduler
	volume  VolumeFunc
	opts    pool.Options
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	voices   *pool.Pool[*Voice]
	serial   int
	gen      int
	running  bool
	complete bool
}

// NewPlayer creates a player. volume may be nil for full volume.
func NewPlayer(sched *scheduler.Scheduler, volume VolumeFunc, opts pool.Options, logger *telemetry.Logger, metrics *telemetry.Metrics) *Player {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	if volume == nil {
		volume = func() float64 { return 1 }
	}
	return &Player{
		sched:   sched,
		volume:  volume,
		opts:    opts,
		logger:  logger.NewComponentLogger("audio"),
		metrics: metrics,
	}
}

// OneTimeSetup warms the voice pool and starts advancing voices each tick.
func (p *Player) OneTimeSetup(context.Context) error {
	if p.sched == nil {
		return fmt.Errorf("audio player requires a scheduler")
	}

	voices, err := pool.New(pool.Hooks[*Voice]{
		New: func() *Voice {
			p.serial++
			return &Voice{Serial: p.serial}
		},
		OnSpawn: func(v *Voice) {
			v.Playing = true
		},
		OnRecycle: func(v *Voice) {
			v.Playing = false
			v.Clip = ""
			v.Remaining = 0
		},
	}, p.opts)
	if err != nil {
		return fmt.Errorf("create voice pool: %w", err)
	}
	p.voices = voices
	p.running = true
	p.gen++
	gen := p.gen
	p.sched.Go("audio", scheduler.TaskFunc(func(ctx context.Context) (bool, error) {
		if !p.running || gen != p.gen {
			return true, nil
		}
		p.advance()
		return false, nil
	}))
	p.reportCounts()

	p.complete = true
	p.logger.Infof("voice pool ready with %d voices", voices.Count())
	return nil
}

// OneTimeTeardown stops every voice and the tick task.
func (p *Player) OneTimeTeardown(context.Context) error {
	if p.voices != nil {
		p.voices.RecycleAll()
		p.reportCounts()
	}
	p.running = false
	p.complete = false
	return nil
}

// IsSetupComplete reports whether the pool is ready.
func (p *Player) IsSetupComplete() bool {
	return p.complete
}

// PlaySound starts clip on a pooled voice for ticks ticks.
func (p *Player) PlaySound(clip string, ticks int) (*Voice, error) {
	if !p.complete {
		return nil, fmt.Errorf("audio player is not set up")
	}
	if ticks <= 0 {
		return nil, fmt.Errorf("sound duration must be positive, got %d ticks", ticks)
	}

	v := p.voices.Spawn()
	v.Clip = clip
	v.Remaining = ticks
	v.Volume = p.volume()
	p.reportCounts()

	p.logger.WithField("clip", clip).WithField("voice", v.Serial).Debug("sound started")
	return v, nil
}

// Stats returns the voice pool occupancy.
func (p *Player) Stats() pool.Stats {
	if p.voices == nil {
		return pool.Stats{}
	}
	return p.voices.Stats()
}

func (p *Player) advance() {
	recycled := false
	for _, v := range p.voices.Active() {
		v.Remaining--
		if v.Remaining <= 0 {
			p.voices.Recycle(v)
			recycled = true
		}
	}
	if recycled {
		p.reportCounts()
	}
}

func (p *Player) reportCounts() {
	s := p.voices.Stats()
	p.metrics.SetPoolCounts(poolName, s.Active, s.Inactive)
}
