// Package pal provides mlx90614.Bus implementations: a TinyGo/periph style
// transactional I²C adapter (Tx), the MCP2221A USB bridge, a periph.io host
// bus and a register-level simulator.
package pal

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotOpen   = errors.New("pal: bus not initialised")
	ErrNACK      = errors.New("pal: nack")
	ErrShortRead = errors.New("pal: short read")
)

// sleep is the Delay implementation shared by the hardware adapters.
func sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func trace(log *logrus.Entry, phase string, addr uint16, b []byte) {
	if log == nil || !log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		return
	}
	log.WithFields(logrus.Fields{
		"phase": phase,
		"addr":  addr,
		"len":   len(b),
	}).Tracef("% x", b)
}
