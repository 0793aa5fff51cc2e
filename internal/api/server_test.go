package api

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/alerter"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/config"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/store"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

func testServer() (*Server, *store.Store) {
	st := store.New()
	engine := alerter.NewEngine(map[string]config.Threshold{}, time.Minute, nil, zerolog.Nop())
	return NewServer(st, engine, 5000, zerolog.Nop()), st
}

func TestHandlePowertags(t *testing.T) {
	srv, st := testServer()
	st.Publish(types.Reading{
		Device:      types.Device{ID: 1, Label: "Tavle1"},
		Measurement: "voltage",
		Value:       types.Number(230.5),
		Timestamp:   time.Now(),
		Valid:       true,
	})
	st.Publish(types.Reading{
		Device:      types.Device{ID: 1, Label: "Tavle1"},
		Measurement: "name",
		Value:       types.Text("P210"),
		Timestamp:   time.Now(),
		Valid:       true,
	})

	rec := httptest.NewRecorder()
	srv.handlePowertags(rec, httptest.NewRequest("GET", "/api/powertags", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]map[string]struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	tag, ok := body["Tavle1"]
	if !ok || len(tag) != 2 {
		t.Fatalf("response = %s", rec.Body.String())
	}
	if string(tag["voltage"].Value) != "230.5" {
		t.Errorf("voltage value = %s, want 230.5", tag["voltage"].Value)
	}
	if string(tag["name"].Value) != `"P210"` {
		t.Errorf("name value = %s, want \"P210\"", tag["name"].Value)
	}
}

func TestHandleHealth(t *testing.T) {
	srv, _ := testServer()
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %q", body["status"])
	}
}

func TestLogBufferWraps(t *testing.T) {
	lb := NewLogBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		lb.Write([]byte(`{"level":"info","message":"` + msg + `"}`))
	}
	entries := lb.Entries()
	if len(entries) != 3 {
		t.Fatalf("buffer has %d entries, want 3", len(entries))
	}
	if entries[0].Message != "b" || entries[2].Message != "d" {
		t.Errorf("entries = %v", entries)
	}
	recent := lb.Recent(2)
	if len(recent) != 2 || recent[1].Message != "d" {
		t.Errorf("recent = %v", recent)
	}
}
