// Package transport issues single register reads against Modbus TCP
// gateways. The poller treats every transport error as a failed attempt
// eligible for retry.
package transport

import (
	"context"
	"errors"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/regmap"
)

// Transport reads a run of consecutive registers from one device.
type Transport interface {
	ReadRegisters(ctx context.Context, deviceID uint8, bank regmap.Bank, address, length uint16) ([]uint16, error)
	Close() error
}

// Error classification, used for logging and metrics only.
var (
	ErrTimeout           = errors.New("transport: timeout")
	ErrConnectionRefused = errors.New("transport: connection refused")
	ErrProtocol          = errors.New("transport: protocol error")
)

// Kind maps a transport error to a stable label.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionRefused):
		return "connection_refused"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	default:
		return "other"
	}
}
