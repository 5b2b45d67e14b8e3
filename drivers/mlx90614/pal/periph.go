//go:build !tinygo

package pal

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Periph drives the sensor through a periph.io host I²C bus, e.g. /dev/i2c-1
// on a Raspberry Pi. Transactions go through a Tx over the opened bus.
type Periph struct {
	// Name is passed to i2creg.Open; "" opens the first bus.
	Name string
	// Speed, if non-zero, is applied with SetSpeed after opening.
	Speed physic.Frequency

	mu  sync.Mutex
	bus i2c.BusCloser
	tx  *Tx
	log *logrus.Entry
}

// NewPeriph returns an unopened bus; InitBus opens it.
func NewPeriph(name string) *Periph {
	return &Periph{Name: name, Speed: 100 * physic.KiloHertz}
}

// WithLogger enables Trace-level frame logging.
func (p *Periph) WithLogger(log *logrus.Entry) *Periph {
	p.log = log
	return p
}

// InitBus loads the periph host drivers and opens the bus.
func (p *Periph) InitBus() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus != nil {
		return nil
	}
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph: host init: %w", err)
	}
	b, err := i2creg.Open(p.Name)
	if err != nil {
		return fmt.Errorf("periph: open %q: %w", p.Name, err)
	}
	if p.Speed > 0 {
		if err := b.SetSpeed(p.Speed); err != nil {
			_ = b.Close()
			return fmt.Errorf("periph: set speed %s: %w", p.Speed, err)
		}
	}
	p.bus = b
	p.tx = NewTx(b).WithLogger(p.log)
	if p.log != nil {
		p.log.WithField("bus", b.String()).Debug("periph i2c ready")
	}
	return nil
}

func (p *Periph) txOrErr() (*Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tx == nil {
		return nil, ErrNotOpen
	}
	return p.tx, nil
}

func (p *Periph) SendByte(addr uint16, b byte) error {
	tx, err := p.txOrErr()
	if err != nil {
		return err
	}
	return tx.SendByte(addr, b)
}

func (p *Periph) SendBytes(addr uint16, w []byte) error {
	tx, err := p.txOrErr()
	if err != nil {
		return err
	}
	return tx.SendBytes(addr, w)
}

func (p *Periph) ReceiveBytes(addr uint16, r []byte) error {
	tx, err := p.txOrErr()
	if err != nil {
		return err
	}
	return tx.ReceiveBytes(addr, r)
}

func (p *Periph) Delay(d time.Duration) { sleep(d) }

// Close closes the bus.
func (p *Periph) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus, p.tx = nil, nil
	return err
}
