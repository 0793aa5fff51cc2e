// Package recorder persists published readings to CSV and/or SQLite. It is
// a tap on the publish path: optional, buffered, and never allowed to stall
// acquisition.
package recorder

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/config"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/metrics"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp TEXT NOT NULL,
    tag TEXT NOT NULL,
    measurement TEXT NOT NULL,
    value TEXT NOT NULL
);`

// Recorder buffers readings on a channel and writes them from its own
// goroutine. A full buffer drops readings rather than blocking the poller.
type Recorder struct {
	log zerolog.Logger
	cfg config.StorageConfig
	ch  chan types.Reading
}

// New creates a recorder for the configured sinks. Returns nil if neither
// sink is configured.
func New(cfg config.StorageConfig, log zerolog.Logger) *Recorder {
	if cfg.CSVFile == "" && cfg.SQLiteFile == "" {
		return nil
	}
	return &Recorder{
		log: log.With().Str("component", "recorder").Logger(),
		cfg: cfg,
		ch:  make(chan types.Reading, 256),
	}
}

// Record enqueues one reading. Non-blocking.
func (r *Recorder) Record(reading types.Reading) {
	select {
	case r.ch <- reading:
	default:
		metrics.RecorderQueueDrops.Inc()
		r.log.Warn().
			Str("tag", reading.Device.Label).
			Str("measurement", reading.Measurement).
			Msg("Recorder queue full, reading dropped")
	}
}

// Run consumes the queue until the context is cancelled, then drains what
// is left before returning.
func (r *Recorder) Run(ctx context.Context) {
	r.log.Info().
		Str("csv", r.cfg.CSVFile).
		Str("sqlite", r.cfg.SQLiteFile).
		Msg("Recorder started")

	var db *sql.DB
	if r.cfg.SQLiteFile != "" {
		var err error
		db, err = openDB(r.cfg.SQLiteFile)
		if err != nil {
			r.log.Error().Err(err).Msg("Could not open SQLite sink, disabled")
		} else {
			defer db.Close()
		}
	}

	for {
		select {
		case reading := <-r.ch:
			r.write(reading, db)
		case <-ctx.Done():
			for {
				select {
				case reading := <-r.ch:
					r.write(reading, db)
				default:
					r.log.Info().Msg("Recorder stopped")
					return
				}
			}
		}
	}
}

func (r *Recorder) write(reading types.Reading, db *sql.DB) {
	if r.cfg.CSVFile != "" {
		if err := r.appendCSV(reading); err != nil {
			metrics.RecorderWrites.WithLabelValues("csv", "error").Inc()
			r.log.Error().Err(err).Msg("CSV write failed")
		} else {
			metrics.RecorderWrites.WithLabelValues("csv", "ok").Inc()
		}
	}
	if db != nil {
		if err := insertReading(db, reading); err != nil {
			metrics.RecorderWrites.WithLabelValues("sqlite", "error").Inc()
			r.log.Error().Err(err).Msg("SQLite write failed")
		} else {
			metrics.RecorderWrites.WithLabelValues("sqlite", "ok").Inc()
		}
	}
}

func (r *Recorder) appendCSV(reading types.Reading) error {
	newFile := false
	if _, err := os.Stat(r.cfg.CSVFile); os.IsNotExist(err) {
		newFile = true
	}

	f, err := os.OpenFile(r.cfg.CSVFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write([]string{"Tag", "Timestamp", "Measurement", "Value"}); err != nil {
			return err
		}
	}
	row := []string{
		reading.Device.Label,
		strconv.FormatInt(reading.Timestamp.Unix(), 10),
		reading.Measurement,
		reading.Value.String(),
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating readings table: %w", err)
	}
	return db, nil
}

func insertReading(db *sql.DB, reading types.Reading) error {
	_, err := db.Exec(
		"INSERT INTO readings(timestamp, tag, measurement, value) VALUES(?, ?, ?, ?)",
		reading.Timestamp.Format(time.RFC3339),
		reading.Device.Label,
		reading.Measurement,
		reading.Value.String(),
	)
	return err
}
