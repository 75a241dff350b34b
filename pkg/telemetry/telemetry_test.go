package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	cfg := DefaultConfig().Metrics
	m, err := NewMetrics(cfg)
	if err != nil {
		t.Fatal(err)
	}

	m.RecordTransition("app", "idle", "setting_up", 1)
	m.RecordTransition("app", "setting_up", "ready", 4)
	m.ObserveSetupWait(3)
	m.RecordTick(5)
	m.RecordSignal("game.entered")
	m.RecordSignal("game.entered")
	m.SetPoolCounts("audio_voices", 2, 6)
	m.RecordError("precondition")

	if got := testutil.ToFloat64(m.phase.WithLabelValues("app")); got != 4 {
		t.Errorf("phase = %v, want 4", got)
	}
	if got := testutil.ToFloat64(m.signalsFired.WithLabelValues("game.entered")); got != 2 {
		t.Errorf("signals fired = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.poolInstances.WithLabelValues("audio_voices", "inactive")); got != 6 {
		t.Errorf("inactive instances = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.pendingTasks); got != 5 {
		t.Errorf("pending tasks = %v, want 5", got)
	}
	if n := testutil.CollectAndCount(m.transitions); n != 2 {
		t.Errorf("transition series = %d, want 2", n)
	}

	expected := `
# HELP gamecore_errors_by_class_total Total number of errors by error class
# TYPE gamecore_errors_by_class_total counter
gamecore_errors_by_class_total{class="precondition"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "gamecore_errors_by_class_total"); err != nil {
		t.Error(err)
	}
}

func TestDisabledMetricsAreNoops(t *testing.T) {
	var nilMetrics *Metrics
	disabled, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}

	for _, m := range []*Metrics{nilMetrics, disabled} {
		m.RecordTransition("app", "idle", "ready", 4)
		m.RecordTick(1)
		m.RecordSignal("x")
		m.SetPoolCounts("p", 1, 1)
		m.RecordError("external")
		m.ObserveSetupWait(1)
		if m.Registry() != nil {
			t.Error("disabled metrics expose a registry")
		}
		if m.Server() != nil {
			t.Error("disabled metrics expose a server")
		}
	}
}

func TestMetricsServerNeedsAddress(t *testing.T) {
	cfg := DefaultConfig().Metrics
	m, _ := NewMetrics(cfg)
	if m.Server() != nil {
		t.Error("server without listen address")
	}

	cfg.ListenAddress = "127.0.0.1:0"
	m, _ = NewMetrics(cfg)
	srv := m.Server()
	if srv == nil || srv.Addr != "127.0.0.1:0" {
		t.Fatalf("server = %+v", srv)
	}
}

func TestWriterLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "debug").NewComponentLogger("session")

	logger.WithLevel("forest").WithSaveID("abc").WithFrame(12).WithError(errors.New("boom")).Warn("load slow")
	logger.Trace("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("lines = %d, want 1: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	for key, want := range map[string]any{
		"component": "session",
		"level":     "warn",
		"message":   "load slow",
		"save_id":   "abc",
		"error":     "boom",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %v", key, entry[key], want)
		}
	}
}

func TestLoggerWithTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "info")

	logger.WithTrace(context.Background()).Info("no span")

	tracer, err := NewTracer(TracingConfig{Enabled: true, Exporter: "none", SamplingRate: 1}, "test", "v0", "test")
	if err != nil {
		t.Fatal(err)
	}
	ctx, span := tracer.StartSessionSpan(context.Background(), "enter", "forest")
	logger.WithTrace(ctx).Info("with span")
	span.End()
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	var first, second map[string]any
	if err := json.Unmarshal(lines[0], &first); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(lines[1], &second); err != nil {
		t.Fatal(err)
	}
	if _, ok := first["trace_id"]; ok {
		t.Error("trace_id logged without a span")
	}
	if id, _ := second["trace_id"].(string); id != TraceID(ctx) || id == "" {
		t.Errorf("trace_id = %q, want %q", id, TraceID(ctx))
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg.ServiceName = ""
	if cfg.Validate() == nil {
		t.Error("expected error without service name")
	}
}

func TestNoopTelemetry(t *testing.T) {
	tel := NewNoop()
	ctx := context.Background()
	_, span := tel.Tracer.StartAppSetupSpan(ctx, 3)
	RecordError(span, errors.New("x"))
	span.End()
	if err := tel.Flush(ctx); err != nil {
		t.Error(err)
	}
	if err := tel.Shutdown(ctx); err != nil {
		t.Error(err)
	}
}
