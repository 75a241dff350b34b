package capability

import "context"

// Initializable is implemented by app-scope systems that need one-time setup
// and teardown for the whole process lifetime.
type Initializable interface {
	// OneTimeSetup starts the system's setup. The work may finish later; the
	// caller polls IsSetupComplete.
	OneTimeSetup(ctx context.Context) error

	// OneTimeTeardown releases everything acquired by OneTimeSetup.
	OneTimeTeardown(ctx context.Context) error

	// IsSetupComplete reports false before setup is requested and becomes
	// permanently true once setup has finished.
	IsSetupComplete() bool
}

// SessionScoped is implemented by systems that additionally need setup and
// teardown once per session enter/exit cycle.
type SessionScoped interface {
	Initializable

	// Setup is invoked when a session becomes active.
	Setup(ctx context.Context) error

	// Teardown is invoked when a session is unloaded, before it is marked idle.
	Teardown(ctx context.Context) error
}

// BaseSystem is a ready-made SessionScoped implementation with no-op
// behavior. Data-defined systems embed it and override what they need.
// Setup completes synchronously in OneTimeSetup.
type BaseSystem struct {
	isSetup bool
}

// OneTimeSetup marks the system as set up.
func (b *BaseSystem) OneTimeSetup(context.Context) error {
	b.isSetup = true
	return nil
}

// OneTimeTeardown marks the system as torn down.
func (b *BaseSystem) OneTimeTeardown(context.Context) error {
	b.isSetup = false
	return nil
}

// IsSetupComplete reports whether OneTimeSetup has run.
func (b *BaseSystem) IsSetupComplete() bool { return b.isSetup }

// Setup is a no-op.
func (b *BaseSystem) Setup(context.Context) error { return nil }

// Teardown is a no-op.
func (b *BaseSystem) Teardown(context.Context) error { return nil }
