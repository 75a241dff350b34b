package signals

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/gamecore/pkg/telemetry"
)

// Name identifies a signal.
type Name string

// Signals fired by the lifecycle layer.
const (
	AppSetupCompleted  Name = "app.setup_completed"
	GameLoadingStarted Name = "game.loading_started"
	GameEntered        Name = "game.entered"
	LevelLoaded        Name = "level.loaded"
	GameExited         Name = "game.exited"
	SaveUpdated        Name = "save.updated"
	SettingsUpdated    Name = "settings.updated"
	PauseChanged       Name = "pause.changed"
)

// Event is a fired signal.
type Event struct {
	// ID is the unique identifier for this event.
	ID string

	// Timestamp is when the event was fired.
	Timestamp time.Time

	// Name is the signal name.
	Name Name

	// Data carries signal-specific values, nil when the signal has none.
	Data map[string]any
}

// String returns Data[key] as a string, or "" when absent.
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Bool returns Data[key] as a bool, or false when absent.
func (e Event) Bool(key string) bool {
	b, _ := e.Data[key].(bool)
	return b
}

// Handler handles a fired event.
type Handler func(Event)

type subscriber struct {
	id      string
	handler Handler
}

// Bus dispatches signals to subscribers.
type Bus struct {
	mu   sync.Mutex
	subs map[Name][]subscriber

	logger  *telemetry.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewBus creates an empty bus. logger and metrics may be nil.
func NewBus(logger *telemetry.Logger, metrics *telemetry.Metrics) *Bus {
	if logger == nil {
		logger = telemetry.NopLogger()
	}
	return &Bus{
		subs:    make(map[Name][]subscriber),
		logger:  logger.NewComponentLogger("signals"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	bus  *Bus
	name Name
	id   string
}

// ID returns the subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.unsubscribe(s.name, s.id)
	s.bus = nil
}

// Subscribe registers handler for name.
func (b *Bus) Subscribe(name Name, handler Handler) *Subscription {
	id := uuid.New().String()

	b.mu.Lock()
	b.subs[name] = append(b.subs[name], subscriber{id: id, handler: handler})
	b.mu.Unlock()

	return &Subscription{bus: b, name: name, id: id}
}

func (b *Bus) unsubscribe(name Name, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.subs[name] = append(next, subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Fire delivers an event to every handler subscribed to name. Handlers that
// subscribe or unsubscribe while the event is being delivered do not change
// who receives it.
func (b *Bus) Fire(name Name, data map[string]any) Event {
	event := Event{
		ID:        uuid.New().String(),
		Timestamp: b.now(),
		Name:      name,
		Data:      data,
	}

	b.mu.Lock()
	snapshot := b.subs[name]
	b.mu.Unlock()

	b.logger.WithField("signal", string(name)).
		WithField("subscribers", len(snapshot)).
		Debug("signal fired")
	b.metrics.RecordSignal(string(name))

	for _, s := range snapshot {
		s.handler(event)
	}
	return event
}
