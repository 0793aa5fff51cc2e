// Package store holds the last-known-good reading for every (device,
// measurement) pair. One writer (the poller), any number of concurrent
// readers (the API).
package store

import (
	"sync"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

// Key identifies one snapshot entry.
type Key struct {
	Device      string
	Measurement string
}

// Store is the concurrency-safe snapshot of latest readings. Each entry is
// replaced as an atomic unit, last-write-wins.
type Store struct {
	mu       sync.RWMutex
	readings map[Key]types.Reading
}

// New creates an empty store.
func New() *Store {
	return &Store{readings: make(map[Key]types.Reading)}
}

// Publish replaces the entry for the reading's (device, measurement) pair.
func (s *Store) Publish(r types.Reading) {
	k := Key{Device: r.Device.Label, Measurement: r.Measurement}
	s.mu.Lock()
	s.readings[k] = r
	s.mu.Unlock()
}

// Snapshot returns a copy of all current readings.
func (s *Store) Snapshot() map[Key]types.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[Key]types.Reading, len(s.readings))
	for k, v := range s.readings {
		out[k] = v
	}
	return out
}

// Get returns the latest reading for one pair.
func (s *Store) Get(device, measurement string) (types.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.readings[Key{Device: device, Measurement: measurement}]
	return r, ok
}

// ByDevice groups the snapshot by device label, the shape the query
// surface renders.
func (s *Store) ByDevice() map[string]map[string]types.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]types.Reading)
	for k, v := range s.readings {
		tag, ok := out[k.Device]
		if !ok {
			tag = make(map[string]types.Reading)
			out[k.Device] = tag
		}
		tag[k.Measurement] = v
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.readings)
}
