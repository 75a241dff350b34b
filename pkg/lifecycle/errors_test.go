package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessage(t *testing.T) {
	err := NewExternalError("one-time setup failed", errors.New("boom")).
		WithOperation("app.start").WithSystem("saves")

	got := err.Error()
	for _, want := range []string{"[external]", "one-time setup failed", "operation=app.start", "system=saves", ": boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		fatal bool
	}{
		{"configuration", NewConfigurationError("bad ref", nil), IsConfiguration, true},
		{"precondition", NewPreconditionError("twice", nil), IsPrecondition, true},
		{"not found", NewNotFoundError("no save", nil), IsNotFound, false},
		{"external", NewExternalError("store down", nil), IsExternal, false},
		{"wrapped", fmt.Errorf("tick: %w", NewPreconditionError("twice", nil)), IsPrecondition, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("classification failed for %v", tt.err)
			}
			if IsFatal(tt.err) != tt.fatal {
				t.Errorf("IsFatal = %v, want %v", IsFatal(tt.err), tt.fatal)
			}
		})
	}

	if IsExternal(errors.New("plain")) {
		t.Error("plain error classified as external")
	}
}

func TestErrorIsMatchesClassAndCode(t *testing.T) {
	err := NewPreconditionError("already in session", nil).WithCode(ErrCodeAlreadyInSession)

	if !errors.Is(err, &Error{Class: ErrorClassPrecondition, Code: ErrCodeAlreadyInSession}) {
		t.Error("expected match on class and code")
	}
	if errors.Is(err, &Error{Class: ErrorClassPrecondition, Code: ErrCodeNotInSession}) {
		t.Error("matched a different code")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("sqlite busy")
	err := NewExternalError("cannot save progress", cause).WithDetail("save", "abc")
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if err.Details["save"] != "abc" {
		t.Errorf("details = %v", err.Details)
	}
}

func TestPhaseValidate(t *testing.T) {
	for _, p := range []AppPhase{AppPhaseIdle, AppPhaseSettingUp, AppPhaseWaitingForReady, AppPhaseLoadingLobby, AppPhaseReady, AppPhaseShutdown} {
		if err := p.Validate(); err != nil {
			t.Errorf("app phase %s: %v", p, err)
		}
	}
	if AppPhase("bogus").Validate() == nil {
		t.Error("expected invalid app phase")
	}
	if !SessionPhaseUnloading.IsTransitioning() || SessionPhaseActive.IsTransitioning() {
		t.Error("IsTransitioning mismatch")
	}
	if SessionPhase("bogus").Validate() == nil {
		t.Error("expected invalid session phase")
	}
}
