package types

import (
	"encoding/json"
	"strconv"
	"time"
)

// Device identifies a Modbus unit behind a gateway.
type Device struct {
	ID    uint8  `json:"id"`
	Label string `json:"label"`
}

// ValueKind discriminates the two value encodings a register can decode to.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindText
)

// Value is a decoded register value, either a number or a text string.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text returns a textual Value.
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// MarshalJSON renders the value as a bare number or string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindText {
		return json.Marshal(v.Text)
	}
	return json.Marshal(v.Num)
}

// String formats the value for logs and CSV rows.
func (v Value) String() string {
	if v.Kind == KindText {
		return v.Text
	}
	return strconv.FormatFloat(v.Num, 'f', 2, 64)
}

// Reading is one decoded measurement from one device.
type Reading struct {
	Device      Device    `json:"device"`
	Measurement string    `json:"measurement"`
	Value       Value     `json:"value"`
	Timestamp   time.Time `json:"timestamp"`
	Valid       bool      `json:"valid"`
}

// Direction classifies which bound a reading breached.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionLow
	DirectionHigh
)

func (d Direction) String() string {
	switch d {
	case DirectionLow:
		return "low"
	case DirectionHigh:
		return "high"
	default:
		return "none"
	}
}

// AlertEvent describes a threshold breach handed to the notifier.
type AlertEvent struct {
	ID          string    `json:"id"`
	Device      Device    `json:"device"`
	Measurement string    `json:"measurement"`
	Direction   Direction `json:"direction"`
	Value       float64   `json:"value"`
	Low         *float64  `json:"low,omitempty"`
	High        *float64  `json:"high,omitempty"`
	FiredAt     time.Time `json:"fired_at"`
}
