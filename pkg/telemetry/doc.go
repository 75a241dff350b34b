// Package telemetry provides logging, tracing and metrics for the game
// runtime.
//
// Logging uses zerolog, tracing uses OpenTelemetry with a stdout or OTLP/gRPC
// exporter, and metrics are Prometheus collectors on a private registry.
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	logger := tel.Logger.NewComponentLogger("session")
//	logger.WithLevel("A").Info("level loaded")
//
// Every Metrics method is safe on a nil or disabled collector, so packages
// accept an optional *Metrics without guarding each call. Tests use
// NewNoop.
//
// Key metrics exposed:
//
//   - gamecore_lifecycle_phase{controller}
//   - gamecore_lifecycle_transitions_total{controller,from,to}
//   - gamecore_app_setup_wait_ticks
//   - gamecore_scheduler_ticks_total
//   - gamecore_scheduler_pending_tasks
//   - gamecore_signals_fired_total{signal}
//   - gamecore_pool_instances{pool,state}
//   - gamecore_errors_by_class_total{class}
package telemetry
