package pal

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/drivers"
)

// Tx adapts a transactional bus (tinygo.org/x/drivers.I2C, which periph.io
// i2c.Bus also satisfies) to the four-operation mlx90614.Bus.
//
// The bus only offers whole write/repeated-start/read transactions, so
// SendByte latches the register pointer and the next ReceiveBytes to the same
// address sends it as the write half of one Tx. A latched pointer that is not
// followed by a matching receive is flushed as a write-only transaction.
// Errors for the pointer write therefore surface from ReceiveBytes.
type Tx struct {
	mu  sync.Mutex
	bus drivers.I2C
	log *logrus.Entry

	pending bool
	paddr   uint16
	preg    [1]byte
}

// NewTx wraps bus.
func NewTx(bus drivers.I2C) *Tx {
	return &Tx{bus: bus}
}

// WithLogger enables Trace-level frame logging.
func (t *Tx) WithLogger(log *logrus.Entry) *Tx {
	t.log = log
	return t
}

func (t *Tx) SendByte(addr uint16, b byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flushLocked(); err != nil {
		return err
	}
	t.pending, t.paddr, t.preg[0] = true, addr, b
	return nil
}

func (t *Tx) SendBytes(addr uint16, w []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.flushLocked(); err != nil {
		return err
	}
	trace(t.log, "send", addr, w)
	return t.bus.Tx(addr, w, nil)
}

func (t *Tx) ReceiveBytes(addr uint16, r []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var w []byte
	if t.pending && t.paddr == addr {
		t.pending = false
		w = t.preg[:]
		trace(t.log, "address", addr, w)
	} else if err := t.flushLocked(); err != nil {
		return err
	}
	if err := t.bus.Tx(addr, w, r); err != nil {
		return err
	}
	trace(t.log, "receive", addr, r)
	return nil
}

func (t *Tx) Delay(d time.Duration) { sleep(d) }

// Flush sends a latched register pointer on its own.
func (t *Tx) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushLocked()
}

func (t *Tx) flushLocked() error {
	if !t.pending {
		return nil
	}
	t.pending = false
	trace(t.log, "address", t.paddr, t.preg[:])
	return t.bus.Tx(t.paddr, t.preg[:], nil)
}
