// Package poller drives the acquisition loops: one per register bank, on
// independent timers, with per-query retry.
package poller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/alerter"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/config"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/metrics"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/regmap"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/store"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/transport"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

// Tap receives every published reading, used by the recorder. Must not
// block.
type Tap interface {
	Record(reading types.Reading)
}

// Poller reads every configured (tag, measurement) pair of a bank each
// cycle, decodes the raw words and hands the readings to the alert engine
// and the shared state store.
type Poller struct {
	log        zerolog.Logger
	cfg        *config.Config
	registers  *regmap.Map
	transports map[string]transport.Transport
	engine     *alerter.Engine
	store      *store.Store
	tap        Tap

	now func() time.Time
}

// New creates a poller. transports is keyed by gateway name; tap may be nil.
func New(cfg *config.Config, registers *regmap.Map, transports map[string]transport.Transport, engine *alerter.Engine, st *store.Store, tap Tap, log zerolog.Logger) *Poller {
	return &Poller{
		log:        log.With().Str("component", "poller").Logger(),
		cfg:        cfg,
		registers:  registers,
		transports: transports,
		engine:     engine,
		store:      st,
		tap:        tap,
		now:        time.Now,
	}
}

// Run starts both bank loops and blocks until the context is cancelled and
// any in-flight cycle has finished.
func (p *Poller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.runBank(ctx, regmap.Input, p.cfg.PollEvery())
	}()
	go func() {
		defer wg.Done()
		p.runBank(ctx, regmap.Holding, p.cfg.AsciiEvery())
	}()
	wg.Wait()
}

func (p *Poller) runBank(ctx context.Context, bank regmap.Bank, interval time.Duration) {
	specs := p.registers.Bank(bank)
	log := p.log.With().Str("bank", bank.String()).Logger()
	if len(specs) == 0 {
		log.Info().Msg("No registers configured for bank, loop not started")
		return
	}

	log.Info().
		Int("registers", len(specs)).
		Dur("interval", interval).
		Msg("Bank loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.cycle(ctx, bank, specs, log)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Bank loop stopped")
			return
		case <-ticker.C:
			p.cycle(ctx, bank, specs, log)
		}
	}
}

// cycle reads every (tag, measurement) pair once. A failed or abandoned
// query only skips its own snapshot entry; the rest of the cycle proceeds.
func (p *Poller) cycle(ctx context.Context, bank regmap.Bank, specs []regmap.RegisterSpec, log zerolog.Logger) {
	start := p.now()
	published := 0

	for _, tag := range p.cfg.PowerTags {
		tr, ok := p.transports[tag.Gateway]
		if !ok {
			log.Error().
				Str("tag", tag.TagName).
				Str("gateway", tag.Gateway).
				Msg("No transport for gateway")
			continue
		}
		for _, spec := range specs {
			if ctx.Err() != nil {
				return
			}
			words, err := p.readWithRetry(ctx, tr, tag.DeviceID, spec)
			if err != nil {
				log.Warn().
					Err(err).
					Str("tag", tag.TagName).
					Str("measurement", spec.Name).
					Uint16("address", spec.Address).
					Msg("Query abandoned after retries, keeping previous value")
				metrics.ReadsAbandoned.WithLabelValues(bank.String()).Inc()
				metrics.TransportErrors.WithLabelValues(transport.Kind(err)).Inc()
				continue
			}

			value, err := regmap.Decode(spec, words)
			if err != nil {
				log.Warn().
					Err(err).
					Str("tag", tag.TagName).
					Str("measurement", spec.Name).
					Msg("Decode failed, keeping previous value")
				metrics.DecodeErrors.WithLabelValues(spec.Name).Inc()
				continue
			}

			reading := types.Reading{
				Device:      tag.Device(),
				Measurement: spec.Name,
				Value:       value,
				Timestamp:   p.now(),
				Valid:       true,
			}

			p.engine.Evaluate(reading)
			p.store.Publish(reading)
			if p.tap != nil {
				p.tap.Record(reading)
			}
			metrics.ReadingsPublished.Inc()
			published++
		}
	}

	elapsed := p.now().Sub(start)
	metrics.CycleDuration.WithLabelValues(bank.String()).Observe(elapsed.Seconds())
	log.Info().
		Int("published", published).
		Dur("elapsed", elapsed).
		Msg("Cycle completed")
}

// readWithRetry issues one query with the configured retry budget, waiting
// at least the retry delay between attempts.
func (p *Poller) readWithRetry(ctx context.Context, tr transport.Transport, deviceID uint8, spec regmap.RegisterSpec) ([]uint16, error) {
	var lastErr error
	for attempt := 0; attempt < p.cfg.Modbus.Retries; attempt++ {
		if attempt > 0 {
			metrics.ReadRetries.Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.cfg.RetryDelay()):
			}
		}

		words, err := tr.ReadRegisters(ctx, deviceID, spec.Bank, spec.Address, spec.Length)
		if err == nil && len(words) == int(spec.Length) {
			metrics.ReadsTotal.WithLabelValues(spec.Bank.String(), "ok").Inc()
			return words, nil
		}
		if err == nil {
			err = errors.New("short register response")
		}
		metrics.ReadsTotal.WithLabelValues(spec.Bank.String(), "error").Inc()
		lastErr = err
	}
	return nil, lastErr
}
