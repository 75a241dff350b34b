package lifecycle

import "fmt"

// AppPhase is the state of the AppController.
type AppPhase string

const (
	// AppPhaseIdle indicates Start has not been called.
	AppPhaseIdle AppPhase = "idle"

	// AppPhaseSettingUp indicates one-time setups are being issued.
	AppPhaseSettingUp AppPhase = "setting_up"

	// AppPhaseWaitingForReady indicates the controller is polling systems
	// for setup completion once per tick.
	AppPhaseWaitingForReady AppPhase = "waiting_for_ready"

	// AppPhaseLoadingLobby indicates the lobby scene load is in flight.
	AppPhaseLoadingLobby AppPhase = "loading_lobby"

	// AppPhaseReady indicates setup completed was signalled.
	AppPhaseReady AppPhase = "ready"

	// AppPhaseShutdown indicates every system was torn down.
	AppPhaseShutdown AppPhase = "shutdown"
)

// Ordinal returns the phase's position, used as a gauge value.
func (p AppPhase) Ordinal() int {
	switch p {
	case AppPhaseIdle:
		return 0
	case AppPhaseSettingUp:
		return 1
	case AppPhaseWaitingForReady:
		return 2
	case AppPhaseLoadingLobby:
		return 3
	case AppPhaseReady:
		return 4
	case AppPhaseShutdown:
		return 5
	default:
		return -1
	}
}

// IsTerminal returns true once the controller can no longer advance.
func (p AppPhase) IsTerminal() bool {
	return p == AppPhaseReady || p == AppPhaseShutdown
}

// Validate checks if the phase is valid.
func (p AppPhase) Validate() error {
	if p.Ordinal() < 0 {
		return fmt.Errorf("invalid app phase: %s", p)
	}
	return nil
}

// SessionPhase is the state of the SessionController.
type SessionPhase string

const (
	// SessionPhaseIdle indicates no session is running.
	SessionPhaseIdle SessionPhase = "idle"

	// SessionPhaseLoading indicates a level scene load is in flight.
	SessionPhaseLoading SessionPhase = "loading"

	// SessionPhaseActive indicates a level is loaded and playable.
	SessionPhaseActive SessionPhase = "active"

	// SessionPhaseUnloading indicates the session is returning to the lobby.
	SessionPhaseUnloading SessionPhase = "unloading"
)

// Ordinal returns the phase's position, used as a gauge value.
func (p SessionPhase) Ordinal() int {
	switch p {
	case SessionPhaseIdle:
		return 0
	case SessionPhaseLoading:
		return 1
	case SessionPhaseActive:
		return 2
	case SessionPhaseUnloading:
		return 3
	default:
		return -1
	}
}

// IsTransitioning returns true while a scene load is in flight.
func (p SessionPhase) IsTransitioning() bool {
	return p == SessionPhaseLoading || p == SessionPhaseUnloading
}

// Validate checks if the phase is valid.
func (p SessionPhase) Validate() error {
	if p.Ordinal() < 0 {
		return fmt.Errorf("invalid session phase: %s", p)
	}
	return nil
}
