package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/goburrow/modbus"
	"github.com/rs/zerolog"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/regmap"
)

// ModbusTCP reads registers from power meters behind one Modbus TCP
// gateway. The two bank pollers share a single connection, so reads are
// serialized and the unit id is switched under the lock.
type ModbusTCP struct {
	log     zerolog.Logger
	handler *modbus.TCPClientHandler
	client  modbus.Client

	mu        sync.Mutex
	connected bool
}

// NewModbusTCP creates an adapter for one gateway. The connection is opened
// lazily on the first read and reopened after failures.
func NewModbusTCP(host string, port int, timeout time.Duration, log zerolog.Logger) *ModbusTCP {
	handler := modbus.NewTCPClientHandler(net.JoinHostPort(host, strconv.Itoa(port)))
	handler.Timeout = timeout
	return &ModbusTCP{
		log:     log.With().Str("component", "modbus").Str("gateway", host).Logger(),
		handler: handler,
		client:  modbus.NewClient(handler),
	}
}

// ReadRegisters issues one read of length consecutive registers. Any error
// drops the connection so the next attempt redials.
func (t *ModbusTCP) ReadRegisters(ctx context.Context, deviceID uint8, bank regmap.Bank, address, length uint16) ([]uint16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		if err := t.handler.Connect(); err != nil {
			return nil, classify(err)
		}
		t.connected = true
		t.log.Debug().Msg("gateway connection established")
	}

	t.handler.SlaveId = byte(deviceID)

	var raw []byte
	var err error
	if bank == regmap.Input {
		raw, err = t.client.ReadInputRegisters(address, length)
	} else {
		raw, err = t.client.ReadHoldingRegisters(address, length)
	}
	if err != nil {
		t.handler.Close()
		t.connected = false
		return nil, classify(err)
	}
	if len(raw) != int(length)*2 {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrProtocol, int(length)*2, len(raw))
	}

	words := make([]uint16, length)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(raw[i*2:])
	}
	return words, nil
}

// Close shuts down the gateway connection.
func (t *ModbusTCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	return t.handler.Close()
}

func classify(err error) error {
	var mbErr *modbus.ModbusError
	if errors.As(err, &mbErr) {
		return fmt.Errorf("%w: %v", ErrProtocol, mbErr)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %v", ErrConnectionRefused, err)
	}
	return err
}
