package mlx90614

import (
	"strconv"
	"time"
)

// Bus is the platform side of the driver. Implementations own start/stop/ack
// handling and any timeout; the driver only sequences calls.
//
// SendByte MUST leave the bus held (no STOP) so that the next ReceiveBytes to
// the same address goes out after a repeated start.
type Bus interface {
	SendByte(addr uint16, b byte) error
	SendBytes(addr uint16, w []byte) error
	ReceiveBytes(addr uint16, r []byte) error
	Delay(d time.Duration)
}

// BusInitializer is implemented by buses that need one-time bring-up.
// Device.Init calls it when Config.AutoInitBus is set.
type BusInitializer interface {
	InitBus() error
}

// Phase identifies the step of a transaction that failed.
type Phase uint8

const (
	PhaseInit    Phase = iota + 1 // bus bring-up
	PhaseAddress                  // register pointer write
	PhaseReceive                  // word + PEC read
	PhaseSend                     // word + PEC write
	PhaseVerify                   // received PEC mismatch
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseAddress:
		return "address"
	case PhaseReceive:
		return "receive"
	case PhaseSend:
		return "send"
	case PhaseVerify:
		return "verify"
	default:
		return "unknown"
	}
}

// BusError reports a failed bus transaction. Err is the transport's cause
// (or ErrPEC for PhaseVerify).
type BusError struct {
	Phase Phase
	Addr  uint16
	Reg   byte
	Err   error
}

func (e *BusError) Error() string {
	s := "mlx90614: " + e.Phase.String() + " failed (addr 0x" + strconv.FormatUint(uint64(e.Addr), 16)
	if e.Phase != PhaseInit {
		s += ", reg 0x" + strconv.FormatUint(uint64(e.Reg), 16)
	}
	s += ")"
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *BusError) Unwrap() error { return e.Err }

func (d *Device) busErr(p Phase, reg byte, err error) error {
	return &BusError{Phase: p, Addr: d.addr, Reg: reg, Err: err}
}

// SMBus word operations (little-endian: LOW, HIGH, then PEC).

// Read16 reads one register word.
func (d *Device) Read16(reg byte) (uint16, error) {
	if err := d.bus.SendByte(d.addr, reg); err != nil {
		return 0, d.busErr(PhaseAddress, reg, err)
	}
	r := d.r[:]
	if err := d.bus.ReceiveBytes(d.addr, r); err != nil {
		return 0, d.busErr(PhaseReceive, reg, err)
	}
	if d.cfg.VerifyPEC && r[2] != readPEC(d.addr, reg, r[0], r[1]) {
		return 0, d.busErr(PhaseVerify, reg, ErrPEC)
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

// Write16 writes one register word followed by its PEC, then STOP.
// EEPROM cells must be erased first; see WriteEEPROM.
func (d *Device) Write16(reg byte, val uint16) error {
	lo, hi := byte(val), byte(val>>8)
	d.w[0] = reg
	d.w[1] = lo
	d.w[2] = hi
	d.w[3] = writePEC(d.addr, reg, lo, hi)
	if err := d.bus.SendBytes(d.addr, d.w[:]); err != nil {
		return d.busErr(PhaseSend, reg, err)
	}
	return nil
}
