package config

import (
	"strings"
	"testing"
	"time"
)

const sampleSettings = `
discord_webhook: "https://discord.com/api/webhooks/x/y"
poll_interval: 80
ascii_read_interval: 600
alert_cooldown: 300
modbus:
  port: 502
  retries: 3
  retry_delay: 0.3
  gateways:
    - name: Gateway1
      address: "fe80::200:54ff:fee9:3aee"
powertags:
  - tag_name: Tavle1
    device_id: 1
    gateway: Gateway1
  - tag_name: Tavle2
    device_id: 2
    gateway: Gateway1
thresholds:
  voltage: {low: 200, high: 250}
  current: {high: 1}
register_map:
  voltage: {address: 3026, length: 2, encoding: float32, bank: input}
  current: {address: 2998, length: 2, encoding: float32, bank: input}
  name: {address: 30, length: 4, encoding: ascii, bank: holding}
storage:
  csv_file: powerData.csv
`

func TestParseSampleSettings(t *testing.T) {
	cfg, err := Parse([]byte(sampleSettings))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if cfg.PollEvery() != 80*time.Second {
		t.Errorf("PollEvery = %v, want 80s", cfg.PollEvery())
	}
	if cfg.AsciiEvery() != 600*time.Second {
		t.Errorf("AsciiEvery = %v, want 600s", cfg.AsciiEvery())
	}
	if cfg.RetryDelay() != 300*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 300ms", cfg.RetryDelay())
	}
	if len(cfg.PowerTags) != 2 {
		t.Errorf("got %d powertags, want 2", len(cfg.PowerTags))
	}

	th, ok := cfg.Thresholds["voltage"]
	if !ok || th.Low == nil || *th.Low != 200 || th.High == nil || *th.High != 250 {
		t.Errorf("voltage threshold = %+v", th)
	}
	if th := cfg.Thresholds["current"]; th.Low != nil {
		t.Errorf("current threshold has a low bound: %+v", th)
	}

	m, err := cfg.BuildRegisterMap()
	if err != nil {
		t.Fatalf("BuildRegisterMap returned error: %v", err)
	}
	spec, ok := m.Lookup("voltage")
	if !ok || spec.Address != 3026 || spec.Length != 2 {
		t.Errorf("voltage spec = %+v", spec)
	}
}

func TestParseAppliesDefaults(t *testing.T) {
	minimal := `
modbus:
  gateways:
    - name: gw
      address: "10.0.0.1"
powertags:
  - tag_name: t1
    device_id: 1
    gateway: gw
register_map:
  voltage: {address: 3026}
`
	cfg, err := Parse([]byte(minimal))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.PollInterval != 80 || cfg.AsciiReadInterval != 600 || cfg.AlertCooldown != 300 {
		t.Errorf("interval defaults not applied: %+v", cfg)
	}
	if cfg.Modbus.Port != 502 || cfg.Modbus.Retries != 3 || cfg.Modbus.RetryDelay != 0.3 {
		t.Errorf("modbus defaults not applied: %+v", cfg.Modbus)
	}

	// Bare float register defaults to length 2 in the input bank.
	m, err := cfg.BuildRegisterMap()
	if err != nil {
		t.Fatalf("BuildRegisterMap returned error: %v", err)
	}
	spec, _ := m.Lookup("voltage")
	if spec.Length != 2 {
		t.Errorf("default float length = %d, want 2", spec.Length)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(s string) string
		wantErr string
	}{
		{
			name:    "unknown gateway reference",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "gateway: Gateway1", "gateway: nope") },
			wantErr: "unknown gateway",
		},
		{
			name:    "threshold without measurement",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "current: {high: 1}", "power: {high: 1}") },
			wantErr: "no such measurement",
		},
		{
			name:    "float with wrong length",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "address: 3026, length: 2", "address: 3026, length: 1") },
			wantErr: "length",
		},
		{
			name:    "ascii with odd length",
			mutate:  func(s string) string { return strings.ReplaceAll(s, "address: 30, length: 4", "address: 30, length: 3") },
			wantErr: "length",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.mutate(sampleSettings)))
			if err == nil {
				t.Fatal("Parse accepted invalid settings")
			}
			if !strings.Contains(err.Error(), c.wantErr) {
				t.Errorf("error = %v, want substring %q", err, c.wantErr)
			}
		})
	}
}

func TestThresholdNeedsABound(t *testing.T) {
	bad := strings.ReplaceAll(sampleSettings, "current: {high: 1}", "current: {}")
	if _, err := Parse([]byte(bad)); err == nil {
		t.Fatal("Parse accepted a threshold with no bounds")
	}
}
