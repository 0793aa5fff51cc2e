// Package alerter evaluates decoded readings against configured thresholds
// and decides when a breach becomes an alert.
package alerter

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/config"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/metrics"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

// Notifier delivers alert events. Best-effort: failures are logged here and
// never propagated to the poller.
type Notifier interface {
	Notify(event types.AlertEvent) error
}

type stateKey struct {
	device      string
	measurement string
}

// alertState is the per (device, measurement) cooldown bookkeeping. The
// direction field tracks the current breach state and is cleared when the
// value returns in-range; alertDirection keeps the direction of the last
// emitted alert so a same-direction re-breach inside the cooldown stays
// suppressed.
type alertState struct {
	direction      types.Direction
	alertDirection types.Direction
	lastAlertAt    time.Time
	hasAlerted     bool
	lastEvalAt     time.Time
}

// Engine owns all alert state. Readings arrive from both bank pollers, so
// the state table is guarded by the engine's own mutex and never shared.
type Engine struct {
	log        zerolog.Logger
	thresholds map[string]config.Threshold
	cooldown   time.Duration
	notifier   Notifier

	now func() time.Time

	mu     sync.Mutex
	states map[stateKey]*alertState
}

// NewEngine creates an alert engine with the configured thresholds and
// cooldown.
func NewEngine(thresholds map[string]config.Threshold, cooldown time.Duration, notifier Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		log:        log.With().Str("component", "alerter").Logger(),
		thresholds: thresholds,
		cooldown:   cooldown,
		notifier:   notifier,
		now:        time.Now,
		states:     make(map[stateKey]*alertState),
	}
}

// Evaluate checks one reading against its threshold and dispatches an alert
// if the breach is eligible. Unmonitored, textual and invalid readings are
// ignored.
func (e *Engine) Evaluate(reading types.Reading) {
	if !reading.Valid || reading.Value.Kind != types.KindNumber {
		return
	}
	th, ok := e.thresholds[reading.Measurement]
	if !ok {
		return
	}

	dir := classify(th, reading.Value.Num)
	key := stateKey{device: reading.Device.Label, measurement: reading.Measurement}

	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.states[key]
	if st == nil {
		st = &alertState{}
		e.states[key] = st
	}

	// Stale readings must not rewind cooldown state set by a newer one.
	if !st.lastEvalAt.IsZero() && !reading.Timestamp.After(st.lastEvalAt) {
		return
	}
	st.lastEvalAt = reading.Timestamp

	if dir == types.DirectionNone {
		st.direction = types.DirectionNone
		return
	}
	st.direction = dir

	now := e.now()
	eligible := !st.hasAlerted ||
		dir != st.alertDirection ||
		now.Sub(st.lastAlertAt) >= e.cooldown
	if !eligible {
		e.log.Debug().
			Str("device", key.device).
			Str("measurement", key.measurement).
			Str("direction", dir.String()).
			Float64("value", reading.Value.Num).
			Msg("Breach within cooldown, suppressed")
		metrics.AlertsSuppressed.Inc()
		return
	}

	st.hasAlerted = true
	st.lastAlertAt = now
	st.alertDirection = dir

	event := types.AlertEvent{
		ID:          uuid.NewString(),
		Device:      reading.Device,
		Measurement: reading.Measurement,
		Direction:   dir,
		Value:       reading.Value.Num,
		Low:         th.Low,
		High:        th.High,
		FiredAt:     now,
	}

	e.log.Info().
		Str("alert_id", event.ID).
		Str("device", key.device).
		Str("measurement", key.measurement).
		Str("direction", dir.String()).
		Float64("value", event.Value).
		Msg("Alert fired")
	metrics.AlertsFired.WithLabelValues(key.measurement, dir.String()).Inc()

	e.dispatch(event)
}

func (e *Engine) dispatch(event types.AlertEvent) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(event); err != nil {
		e.log.Error().
			Err(err).
			Str("alert_id", event.ID).
			Msg("Failed to send alert notification")
		metrics.NotifyErrors.Inc()
	}
}

// LastAlerts returns the most recent alert time per (device, measurement),
// for the status API.
func (e *Engine) LastAlerts() map[string]time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]time.Time, len(e.states))
	for k, st := range e.states {
		if st.hasAlerted {
			out[k.device+":"+k.measurement] = st.lastAlertAt
		}
	}
	return out
}

func classify(th config.Threshold, v float64) types.Direction {
	if th.Low != nil && v < *th.Low {
		return types.DirectionLow
	}
	if th.High != nil && v > *th.High {
		return types.DirectionHigh
	}
	return types.DirectionNone
}
