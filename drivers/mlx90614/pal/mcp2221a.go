//go:build !tinygo

package pal

import (
	"fmt"
	"sync"
	"time"

	mcp "github.com/ardnew/mcp2221a"
	"github.com/sirupsen/logrus"
)

// MCP2221A drives the sensor through a Microchip MCP2221A USB-HID I²C bridge.
// The bridge exposes STOP and repeated-start control directly, so each bus
// operation maps onto a single I2CWrite or I2CRead.
type MCP2221A struct {
	// Index selects among attached bridges (0 = first found).
	Index byte
	// Baud is the I²C clock; 0 uses mcp.I2CBaudRate (100 kHz).
	// The MLX90614 SMBus interface tops out at 100 kHz.
	Baud uint32

	mu  sync.Mutex
	dev *mcp.MCP2221A
	log *logrus.Entry
}

// NewMCP2221A returns an unopened bridge; InitBus opens and configures it.
func NewMCP2221A(index byte) *MCP2221A {
	return &MCP2221A{Index: index}
}

// WithLogger enables Trace-level frame logging.
func (m *MCP2221A) WithLogger(log *logrus.Entry) *MCP2221A {
	m.log = log
	return m
}

// InitBus opens the bridge if needed and sets the I²C clock.
func (m *MCP2221A) InitBus() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		dev, err := mcp.New(m.Index, mcp.VID, mcp.PID)
		if err != nil {
			return fmt.Errorf("mcp2221a: open #%d: %w", m.Index, err)
		}
		m.dev = dev
	}
	baud := m.Baud
	if baud == 0 {
		baud = mcp.I2CBaudRate
	}
	if err := m.dev.I2CSetConfig(baud); err != nil {
		return fmt.Errorf("mcp2221a: i2c config: %w", err)
	}
	if m.log != nil {
		m.log.WithFields(logrus.Fields{"index": m.Index, "baud": baud}).Debug("mcp2221a ready")
	}
	return nil
}

func (m *MCP2221A) SendByte(addr uint16, b byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return ErrNotOpen
	}
	w := [1]byte{b}
	trace(m.log, "address", addr, w[:])
	return m.dev.I2CWrite(false, uint8(addr), w[:], 1)
}

func (m *MCP2221A) SendBytes(addr uint16, w []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return ErrNotOpen
	}
	trace(m.log, "send", addr, w)
	return m.dev.I2CWrite(true, uint8(addr), w, uint16(len(w)))
}

func (m *MCP2221A) ReceiveBytes(addr uint16, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return ErrNotOpen
	}
	buf, err := m.dev.I2CRead(true, uint8(addr), uint16(len(r)))
	if err != nil {
		return err
	}
	if len(buf) < len(r) {
		return ErrShortRead
	}
	copy(r, buf)
	trace(m.log, "receive", addr, r)
	return nil
}

func (m *MCP2221A) Delay(d time.Duration) { sleep(d) }

// Close releases the USB device.
func (m *MCP2221A) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dev == nil {
		return nil
	}
	err := m.dev.Close()
	m.dev = nil
	return err
}
