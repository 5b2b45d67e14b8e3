package pal

import (
	"errors"
	"sync"
	"time"

	"mlx90614-go/drivers/mlx90614"
)

var (
	ErrSimNoPointer = errors.New("sim: receive without register pointer")
	ErrSimReadOnly  = errors.New("sim: register is read only")
	ErrSimNotErased = errors.New("sim: eeprom cell not erased")
	ErrSimBadPEC    = errors.New("sim: pec mismatch")
)

// Sim is an in-memory MLX90614 that speaks the bus contract: reads return
// the word with a correct PEC, writes are NACKed on a bad PEC, RAM and ID
// registers are read only and an EEPROM cell accepts a non-zero value only
// after it has been erased.
type Sim struct {
	mu   sync.Mutex
	addr uint16
	ram  [0x20]uint16
	ee   [0x20]uint16

	ptr     byte
	ptrOK   bool
	elapsed time.Duration
	inits   int
	writes  int
	fail    error
}

// NewSim returns a sensor at addr reading 25.01 °C ambient, 36.61 °C object,
// emissivity 1.0.
func NewSim(addr uint16) *Sim {
	if addr == 0 {
		addr = mlx90614.Address
	}
	s := &Sim{addr: addr}
	s.ram[mlx90614.RegAmbient] = 14908
	s.ram[mlx90614.RegObject1] = 15488
	s.ram[mlx90614.RegObject2] = 15488
	s.ee[mlx90614.RegEmissivity-0x20] = 0xFFFF
	s.ee[mlx90614.RegAddress-0x20] = addr
	s.ee[mlx90614.RegID1-0x20] = 0x1A2B
	s.ee[mlx90614.RegID2-0x20] = 0x3C4D
	s.ee[mlx90614.RegID3-0x20] = 0x5E6F
	s.ee[mlx90614.RegID4-0x20] = 0x7081
	return s
}

// SetRaw sets a RAM register, e.g. to script a temperature.
func (s *Sim) SetRaw(reg byte, v uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg < 0x20 {
		s.ram[reg] = v
	}
}

// SetObjectC sets the object temperature (Tobj1) in °C.
func (s *Sim) SetObjectC(c float64) { s.SetRaw(mlx90614.RegObject1, ticks(c)) }

// SetAmbientC sets the ambient temperature in °C.
func (s *Sim) SetAmbientC(c float64) { s.SetRaw(mlx90614.RegAmbient, ticks(c)) }

func ticks(c float64) uint16 {
	v := (c + 273.15) / 0.02
	if v <= 0 {
		return 0
	}
	if v >= 0xFFFF {
		return 0xFFFF
	}
	return uint16(v + 0.5)
}

// EEPROM returns a stored EEPROM word.
func (s *Sim) EEPROM(reg byte) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reg < 0x20 || reg > 0x3F {
		return 0
	}
	return s.ee[reg-0x20]
}

// Elapsed is the total time requested through Delay.
func (s *Sim) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Writes counts accepted word writes.
func (s *Sim) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Inits counts InitBus calls.
func (s *Sim) Inits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inits
}

// FailNext makes the next bus operation (including InitBus) return err.
func (s *Sim) FailNext(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func (s *Sim) failLocked() error {
	err := s.fail
	s.fail = nil
	return err
}

func (s *Sim) InitBus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits++
	return s.failLocked()
}

func (s *Sim) SendByte(addr uint16, b byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	if addr != s.addr {
		return ErrNACK
	}
	s.ptr, s.ptrOK = b, true
	return nil
}

func (s *Sim) ReceiveBytes(addr uint16, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked(); err != nil {
		return err
	}
	if addr != s.addr {
		return ErrNACK
	}
	if !s.ptrOK {
		return ErrSimNoPointer
	}
	s.ptrOK = false
	if len(r) < 3 {
		return ErrShortRead
	}
	v := s.wordLocked(s.ptr)
	lo, hi := byte(v), byte(v>>8)
	sa := byte(s.addr << 1)
	r[0], r[1] = lo, hi
	r[2] = mlx90614.PEC([]byte{sa, s.ptr, sa | 1, lo, hi})
	return nil
}

func (s *Sim) wordLocked(reg byte) uint16 {
	switch {
	case reg < 0x20:
		return s.ram[reg]
	case reg <= 0x3F:
		return s.ee[reg-0x20]
	}
	return 0
}

func (s *Sim) SendBytes(addr uint16, w []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ptrOK = false
	if err := s.failLocked(); err != nil {
		return err
	}
	if addr != s.addr || len(w) != 4 {
		return ErrNACK
	}
	reg, lo, hi := w[0], w[1], w[2]
	if w[3] != mlx90614.PEC([]byte{byte(s.addr << 1), reg, lo, hi}) {
		return ErrSimBadPEC
	}
	if reg < 0x20 || reg >= mlx90614.RegID1 {
		return ErrSimReadOnly
	}
	v := uint16(lo) | uint16(hi)<<8
	cell := &s.ee[reg-0x20]
	if v != 0 && *cell != 0 {
		return ErrSimNotErased
	}
	*cell = v
	s.writes++
	return nil
}

func (s *Sim) Delay(d time.Duration) {
	s.mu.Lock()
	s.elapsed += d
	s.mu.Unlock()
}
