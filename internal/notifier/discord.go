// Package notifier delivers alerts to a Discord webhook. Delivery is
// best-effort: the core never waits on or retries a failed notification.
package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/config"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

const (
	colorInfo     = 3447003
	colorSuccess  = 3066993
	colorError    = 15158332
	colorShutdown = 10181046

	username = "PowerTag Monitor"
)

// Notifier sends alert and status embeds to a Discord webhook. An empty
// webhook URL disables it.
type Notifier struct {
	logger     zerolog.Logger
	client     *http.Client
	webhookURL string
}

// NewNotifier creates a Discord notifier.
func NewNotifier(webhookURL string, logger zerolog.Logger) *Notifier {
	n := &Notifier{
		logger:     logger.With().Str("component", "notifier").Logger(),
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	if webhookURL == "" {
		n.logger.Warn().Msg("No Discord webhook URL configured, notifications disabled")
	}
	return n
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool { return n.webhookURL != "" }

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

// Notify sends one alert embed identifying device, measurement, direction,
// value and the configured bounds.
func (n *Notifier) Notify(event types.AlertEvent) error {
	if !n.Enabled() {
		return nil
	}

	bounds := ""
	if event.Low != nil {
		bounds += fmt.Sprintf("Low: %.2f", *event.Low)
	}
	if event.High != nil {
		if bounds != "" {
			bounds += "\n"
		}
		bounds += fmt.Sprintf("High: %.2f", *event.High)
	}

	e := embed{
		Title: fmt.Sprintf("Alert: %s", event.Device.Label),
		Description: fmt.Sprintf("%s %s: %.2f",
			direction(event.Direction), event.Measurement, event.Value),
		Color:     colorError,
		Timestamp: event.FiredAt.UTC().Format(time.RFC3339),
		Fields: []embedField{
			{Name: "Device", Value: fmt.Sprintf("%s (unit %d)", event.Device.Label, event.Device.ID), Inline: true},
			{Name: "Measurement", Value: event.Measurement, Inline: true},
			{Name: "Bounds", Value: bounds},
		},
	}

	if err := n.send(e); err != nil {
		return err
	}
	n.logger.Info().
		Str("alert_id", event.ID).
		Str("device", event.Device.Label).
		Msg("Notification sent")
	return nil
}

// SendStartup announces the monitor with its configured limits, mirroring
// the status message operators expect on restart.
func (n *Notifier) SendStartup(thresholds map[string]config.Threshold) {
	if !n.Enabled() {
		return
	}
	e := embed{
		Title:     "PowerTag Monitor starting",
		Color:     colorSuccess,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	for name, th := range thresholds {
		v := ""
		if th.Low != nil {
			v += fmt.Sprintf("Low: %.2f", *th.Low)
		}
		if th.High != nil {
			if v != "" {
				v += "\n"
			}
			v += fmt.Sprintf("High: %.2f", *th.High)
		}
		e.Fields = append(e.Fields, embedField{Name: name, Value: v, Inline: true})
	}
	if err := n.send(e); err != nil {
		n.logger.Error().Err(err).Msg("Failed to send startup notification")
	}
}

// SendShutdown announces a clean stop.
func (n *Notifier) SendShutdown() {
	if !n.Enabled() {
		return
	}
	e := embed{
		Title:     "PowerTag Monitor shutting down",
		Color:     colorShutdown,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := n.send(e); err != nil {
		n.logger.Error().Err(err).Msg("Failed to send shutdown notification")
	}
}

func (n *Notifier) send(e embed) error {
	payload := webhookPayload{Username: username, Embeds: []embed{e}}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("webhook error: %d - %s", resp.StatusCode, string(body))
	}
	return nil
}

func direction(d types.Direction) string {
	switch d {
	case types.DirectionLow:
		return "LOW"
	case types.DirectionHigh:
		return "HIGH"
	default:
		return ""
	}
}
