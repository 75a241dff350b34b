package pool

import (
	"errors"
	"fmt"
)

// Hooks customise how a Pool creates, hands out, takes back and destroys
// instances. Only New is required.
type Hooks[T any] struct {
	// New constructs a fresh instance from the pool's source template.
	New func() T

	// OnSpawn prepares an instance before it is handed to a caller.
	OnSpawn func(T)

	// OnRecycle resets an instance after a caller returns it.
	OnRecycle func(T)

	// Destroy releases an instance the pool will not retain.
	Destroy func(T)
}

// Options configures a Pool.
type Options struct {
	// WarmCount is the number of instances spawned and immediately recycled
	// when the pool is created.
	WarmCount int

	// Capacity is the maximum number of parked instances. Instances recycled
	// beyond it are destroyed.
	Capacity int
}

// DefaultOptions mirrors the defaults used by the runtime's pooled consumers.
func DefaultOptions() Options {
	return Options{
		WarmCount: 10,
		Capacity:  10000,
	}
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Count    int
	Active   int
	Inactive int
}

// Pool manages reusable instances of T.
type Pool[T comparable] struct {
	hooks    Hooks[T]
	capacity int

	// active is caller-owned, in spawn order.
	active []T

	// inactive is pool-owned, oldest parked first.
	inactive []T
}

// New creates a pool and warms it with opts.WarmCount instances.
func New[T comparable](hooks Hooks[T], opts Options) (*Pool[T], error) {
	if hooks.New == nil {
		return nil, errors.New("pool: New hook is required")
	}
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("pool: capacity must be greater than 0, got %d", opts.Capacity)
	}
	if opts.WarmCount < 0 {
		return nil, fmt.Errorf("pool: warm count must not be negative, got %d", opts.WarmCount)
	}

	p := &Pool[T]{
		hooks:    hooks,
		capacity: opts.Capacity,
		active:   make([]T, 0, opts.WarmCount),
		inactive: make([]T, 0, min(opts.WarmCount, opts.Capacity)),
	}

	// Spawn the whole warm set before recycling any of it, otherwise every
	// spawn would hand back the instance recycled just before.
	warm := make([]T, 0, opts.WarmCount)
	for i := 0; i < opts.WarmCount; i++ {
		warm = append(warm, p.Spawn())
	}
	for _, instance := range warm {
		p.Recycle(instance)
	}

	return p, nil
}

// Count returns the number of instances known to the pool, active or parked.
func (p *Pool[T]) Count() int {
	return len(p.active) + len(p.inactive)
}

// ActiveCount returns the number of instances currently held by callers.
func (p *Pool[T]) ActiveCount() int {
	return len(p.active)
}

// InactiveCount returns the number of parked instances.
func (p *Pool[T]) InactiveCount() int {
	return len(p.inactive)
}

// Capacity returns the parked-instance ceiling.
func (p *Pool[T]) Capacity() int {
	return p.capacity
}

// Stats returns a consistent snapshot of the pool counters.
func (p *Pool[T]) Stats() Stats {
	return Stats{
		Count:    p.Count(),
		Active:   p.ActiveCount(),
		Inactive: p.InactiveCount(),
	}
}

// Spawn returns a parked instance if one exists, otherwise a new one.
func (p *Pool[T]) Spawn() T {
	var instance T
	if len(p.inactive) == 0 {
		instance = p.hooks.New()
	} else {
		instance = p.inactive[0]
		var zero T
		p.inactive[0] = zero
		p.inactive = p.inactive[1:]
	}

	p.active = append(p.active, instance)

	if p.hooks.OnSpawn != nil {
		p.hooks.OnSpawn(instance)
	}

	return instance
}

// Recycle returns an active instance to the pool. It panics if the instance
// is already parked or was never handed out by this pool.
func (p *Pool[T]) Recycle(instance T) {
	if indexOf(p.inactive, instance) >= 0 {
		panic("pool: recycling an instance that has already been recycled")
	}

	idx := indexOf(p.active, instance)
	if idx < 0 {
		panic("pool: recycling an instance that is not active in this pool")
	}
	p.active = append(p.active[:idx], p.active[idx+1:]...)

	if p.hooks.OnRecycle != nil {
		p.hooks.OnRecycle(instance)
	}

	if len(p.inactive) < p.capacity {
		p.inactive = append(p.inactive, instance)
		return
	}

	if p.hooks.Destroy != nil {
		p.hooks.Destroy(instance)
	}
}

// RecycleAll returns every active instance to the pool, oldest first.
func (p *Pool[T]) RecycleAll() {
	active := append([]T(nil), p.active...)
	for _, instance := range active {
		p.Recycle(instance)
	}
}

// Active returns a copy of the active instances in spawn order.
func (p *Pool[T]) Active() []T {
	return append([]T(nil), p.active...)
}

func indexOf[T comparable](list []T, v T) int {
	for i := range list {
		if list[i] == v {
			return i
		}
	}
	return -1
}
