// Package mlx90614 provides a driver for the Melexis MLX90614 infrared
// thermometer on an SMBus-compatible two-wire bus.
//
//	d := mlx90614.New(bus, mlx90614.Config{AutoInitBus: true})
//	if err := d.Init(); err != nil { ... }
//	c, err := d.ReadObjectTempC()
//
// The driver sequences SMBus read/write word transactions on top of Bus, a
// small platform interface (see package pal for host and TinyGo
// implementations). Every write carries a PEC byte. The PEC returned with each
// read is only checked when Config.VerifyPEC is set.
//
// A Device holds no goroutines and no locks. Callers sharing one bus between
// goroutines must serialise access themselves.
package mlx90614

import (
	"errors"
	"math"
	"strconv"
	"time"
)

// Errors returned by the driver.
var (
	ErrPEC             = errors.New("mlx90614: pec mismatch")
	ErrEmissivityRange = errors.New("mlx90614: emissivity out of range [0.1, 1.0]")
	ErrInvalidAddress  = errors.New("mlx90614: address must be 7-bit")
	ErrWriteDelay      = errors.New("mlx90614: eeprom write delay below 10ms")
)

// EEPROM erase/write cycle time.
const eepromCycle = 10 * time.Millisecond

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x5A if zero.
	Address uint16
	// AutoInitBus makes Init call the bus's InitBus, if it has one.
	AutoInitBus bool
	// VerifyPEC checks the PEC byte returned with every read word.
	VerifyPEC bool
	// EEPROMWriteDelay is the wait after each EEPROM erase and write.
	// Default 10 ms, which is also the minimum.
	EEPROMWriteDelay time.Duration
}

// DefaultConfig returns the configuration used when the zero Config is given.
func DefaultConfig() Config {
	return Config{
		Address:          Address,
		EEPROMWriteDelay: eepromCycle,
	}
}

// Validate reports configuration errors. Zero fields are valid (defaults).
func (c Config) Validate() error {
	if c.Address > 0x7F {
		return ErrInvalidAddress
	}
	if c.EEPROMWriteDelay != 0 && c.EEPROMWriteDelay < eepromCycle {
		return ErrWriteDelay
	}
	return nil
}

// Device is one MLX90614 on a bus.
type Device struct {
	bus  Bus
	addr uint16
	cfg  Config

	// Fixed buffers to avoid per-call heap allocations.
	w [4]byte
	r [3]byte
}

// New creates a Device. It does not touch the bus.
func New(bus Bus, cfg Config) *Device {
	if cfg.Address == 0 {
		cfg.Address = Address
	}
	if cfg.EEPROMWriteDelay == 0 {
		cfg.EEPROMWriteDelay = eepromCycle
	}
	return &Device{
		bus:  bus,
		addr: cfg.Address,
		cfg:  cfg,
	}
}

// Init validates the configuration and, with AutoInitBus, brings up the bus.
func (d *Device) Init() error {
	if err := d.cfg.Validate(); err != nil {
		return err
	}
	if !d.cfg.AutoInitBus {
		return nil
	}
	in, ok := d.bus.(BusInitializer)
	if !ok {
		return nil
	}
	if err := in.InitBus(); err != nil {
		return d.busErr(PhaseInit, 0, err)
	}
	return nil
}

// Address returns the 7-bit bus address.
func (d *Device) Address() uint16 { return d.addr }

// Temperatures.

// ReadTemp reads a temperature register (RegAmbient, RegObject1, RegObject2)
// in °C.
func (d *Device) ReadTemp(reg byte) (float64, error) {
	raw, err := d.Read16(reg)
	if err != nil {
		return 0, err
	}
	return Celsius(raw), nil
}

func (d *Device) ReadObjectTempC() (float64, error)  { return d.ReadTemp(RegObject1) }
func (d *Device) ReadObject2TempC() (float64, error) { return d.ReadTemp(RegObject2) }
func (d *Device) ReadAmbientTempC() (float64, error) { return d.ReadTemp(RegAmbient) }

func (d *Device) ReadObjectTempF() (float64, error) {
	c, err := d.ReadTemp(RegObject1)
	if err != nil {
		return 0, err
	}
	return Fahrenheit(c), nil
}

func (d *Device) ReadAmbientTempF() (float64, error) {
	c, err := d.ReadTemp(RegAmbient)
	if err != nil {
		return 0, err
	}
	return Fahrenheit(c), nil
}

// Emissivity.

// EmissivityReg returns the raw emissivity register.
func (d *Device) EmissivityReg() (uint16, error) {
	return d.Read16(RegEmissivity)
}

// WriteEmissivityReg stores a raw emissivity value.
func (d *Device) WriteEmissivityReg(raw uint16) error {
	return d.WriteEEPROM(RegEmissivity, raw)
}

// Emissivity returns the configured emissivity as a fraction.
func (d *Device) Emissivity() (float64, error) {
	raw, err := d.Read16(RegEmissivity)
	if err != nil {
		return 0, err
	}
	return DecodeEmissivity(raw), nil
}

// SetEmissivity stores a new emissivity in [0.1, 1.0]. Nothing is sent for
// values outside that range. If the second EEPROM write fails the cell is
// left erased (0).
func (d *Device) SetEmissivity(e float64) error {
	if math.IsNaN(e) || e < EmissivityMin || e > EmissivityMax {
		return ErrEmissivityRange
	}
	return d.WriteEmissivityReg(EncodeEmissivity(e))
}

// WriteEEPROM erases an EEPROM cell by writing 0, waits one cycle, writes val
// and waits again. The first failure is returned; no rollback is attempted.
func (d *Device) WriteEEPROM(reg byte, val uint16) error {
	if err := d.Write16(reg, 0); err != nil {
		return err
	}
	d.bus.Delay(d.cfg.EEPROMWriteDelay)
	if err := d.Write16(reg, val); err != nil {
		return err
	}
	d.bus.Delay(d.cfg.EEPROMWriteDelay)
	return nil
}

// Identification.

// ID is the 64-bit factory identifier from ID1..ID4.
type ID [4]uint16

func (id ID) String() string {
	var b [16]byte
	const hex = "0123456789abcdef"
	for i, w := range id {
		for j := 0; j < 4; j++ {
			b[i*4+j] = hex[(w>>(12-4*uint(j)))&0xF]
		}
	}
	return string(b[:])
}

// Uint64 packs the identifier with ID1 in the most significant word.
func (id ID) Uint64() uint64 {
	return uint64(id[0])<<48 | uint64(id[1])<<32 | uint64(id[2])<<16 | uint64(id[3])
}

// ReadID reads the four factory ID registers.
func (d *Device) ReadID() (ID, error) {
	var id ID
	for i := range id {
		v, err := d.Read16(byte(RegID1 + i))
		if err != nil {
			return ID{}, err
		}
		id[i] = v
	}
	return id, nil
}

// String identifies the device by address.
func (d *Device) String() string {
	return "mlx90614@0x" + strconv.FormatUint(uint64(d.addr), 16)
}
