package store

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

func testReading(tag, measurement string, value float64) types.Reading {
	return types.Reading{
		Device:      types.Device{ID: 1, Label: tag},
		Measurement: measurement,
		Value:       types.Number(value),
		Timestamp:   time.Now(),
		Valid:       true,
	}
}

func TestPublishAndSnapshot(t *testing.T) {
	s := New()
	s.Publish(testReading("Tavle1", "voltage", 230))
	s.Publish(testReading("Tavle1", "current", 0.5))
	s.Publish(testReading("Tavle2", "voltage", 228))

	snap := s.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot has %d entries, want 3", len(snap))
	}
	r, ok := snap[Key{Device: "Tavle1", Measurement: "voltage"}]
	if !ok || r.Value.Num != 230 {
		t.Errorf("Tavle1/voltage = %+v, want 230", r)
	}
}

func TestLastWriteWins(t *testing.T) {
	s := New()
	s.Publish(testReading("Tavle1", "voltage", 230))
	s.Publish(testReading("Tavle1", "voltage", 231))

	if s.Len() != 1 {
		t.Fatalf("store has %d entries, want 1", s.Len())
	}
	r, _ := s.Get("Tavle1", "voltage")
	if r.Value.Num != 231 {
		t.Errorf("latest value = %v, want 231", r.Value.Num)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Publish(testReading("Tavle1", "voltage", 230))

	snap := s.Snapshot()
	snap[Key{Device: "Tavle1", Measurement: "voltage"}] = testReading("Tavle1", "voltage", 0)

	r, _ := s.Get("Tavle1", "voltage")
	if r.Value.Num != 230 {
		t.Errorf("mutating a snapshot changed the store: %v", r.Value.Num)
	}
}

func TestByDeviceGrouping(t *testing.T) {
	s := New()
	s.Publish(testReading("Tavle1", "voltage", 230))
	s.Publish(testReading("Tavle1", "current", 0.5))
	s.Publish(testReading("Tavle2", "voltage", 228))

	byDev := s.ByDevice()
	if len(byDev) != 2 {
		t.Fatalf("ByDevice has %d tags, want 2", len(byDev))
	}
	if len(byDev["Tavle1"]) != 2 {
		t.Errorf("Tavle1 has %d measurements, want 2", len(byDev["Tavle1"]))
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := New()
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			default:
			}
			s.Publish(testReading("Tavle"+strconv.Itoa(i%4), "voltage", float64(i)))
		}
	}()

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				for _, r := range s.Snapshot() {
					if r.Measurement != "voltage" {
						t.Errorf("torn reading: %+v", r)
						return
					}
				}
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(done)
	wg.Wait()
}
