package main

import (
	"sparkify/internal/config"
	"sparkify/internal/logging"
	"sparkify/internal/metrics"
	"sparkify/internal/metrics/datadog"
	"sparkify/internal/metrics/prompush"
)

// setupMetrics installs the configured backend and returns a func that
// flushes it and restores the nop backend. A backend that fails to start is
// logged and left as nop; metrics never fail a run.
func setupMetrics(cfg config.Config) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "prometheus":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.DatadogAddr,
			Namespace:  "sparkify.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
	default:
		logging.Debug().Str("backend", cfg.Metrics.Backend).Msg("metrics: disabled")
		return func() {}
	}
	if err != nil {
		logging.Warn().Err(err).Str("backend", cfg.Metrics.Backend).Msg("metrics: init failed; using nop")
		return func() {}
	}

	logging.Info().Str("backend", cfg.Metrics.Backend).Str("job", cfg.Job).Msg("metrics: enabled")
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			logging.Warn().Err(err).Msg("metrics: flush error")
		}
		metrics.Reset()
	}
}
