package mlx90614

import (
	"errors"
	"math"
	"testing"
	"time"
)

// Compile-time checks.
var (
	_ Bus            = (*fakeBus)(nil)
	_ BusInitializer = (*fakeBus)(nil)
)

type op struct {
	kind  string // "byte", "bytes", "recv", "delay", "init"
	addr  uint16
	data  []byte
	n     int
	delay time.Duration
}

// Scripted PAL fake. Reads are served from words; writes are recorded.
type fakeBus struct {
	ops   []op
	words map[byte]uint16
	ptr   byte
	pec   func(reg, lo, hi byte) byte // nil: correct PEC

	failByte  error
	failRecv  error
	failInit  error
	failSendN int // fail the Nth SendBytes call (1-based); 0 = never
	failSend  error
	sends     int
}

func newFakeBus() *fakeBus {
	return &fakeBus{words: map[byte]uint16{}}
}

func (f *fakeBus) SendByte(addr uint16, b byte) error {
	f.ops = append(f.ops, op{kind: "byte", addr: addr, data: []byte{b}})
	f.ptr = b
	return f.failByte
}

func (f *fakeBus) SendBytes(addr uint16, w []byte) error {
	f.sends++
	f.ops = append(f.ops, op{kind: "bytes", addr: addr, data: append([]byte(nil), w...)})
	if f.failSendN != 0 && f.sends == f.failSendN {
		return f.failSend
	}
	if len(w) == 4 {
		f.words[w[0]] = uint16(w[1]) | uint16(w[2])<<8
	}
	return nil
}

func (f *fakeBus) ReceiveBytes(addr uint16, r []byte) error {
	f.ops = append(f.ops, op{kind: "recv", addr: addr, n: len(r)})
	if f.failRecv != nil {
		return f.failRecv
	}
	v := f.words[f.ptr]
	lo, hi := byte(v), byte(v>>8)
	r[0], r[1] = lo, hi
	if f.pec != nil {
		r[2] = f.pec(f.ptr, lo, hi)
	} else {
		r[2] = readPEC(addr, f.ptr, lo, hi)
	}
	return nil
}

func (f *fakeBus) Delay(d time.Duration) {
	f.ops = append(f.ops, op{kind: "delay", delay: d})
}

func (f *fakeBus) InitBus() error {
	f.ops = append(f.ops, op{kind: "init"})
	return f.failInit
}

func (f *fakeBus) kinds() []string {
	var out []string
	for _, o := range f.ops {
		out = append(out, o.kind)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewDefaults(t *testing.T) {
	d := New(newFakeBus(), Config{})
	if d.Address() != 0x5A {
		t.Fatalf("addr=%#x", d.Address())
	}
	if d.cfg.EEPROMWriteDelay != 10*time.Millisecond {
		t.Fatalf("delay=%v", d.cfg.EEPROMWriteDelay)
	}
	if d.String() != "mlx90614@0x5a" {
		t.Fatalf("String()=%q", d.String())
	}
	if DefaultConfig().Address != Address {
		t.Fatal("DefaultConfig address")
	}
}

func TestNewDoesNotTouchBus(t *testing.T) {
	b := newFakeBus()
	_ = New(b, Config{AutoInitBus: true})
	if len(b.ops) != 0 {
		t.Fatalf("New issued bus ops: %v", b.kinds())
	}
}

func TestInitAutoBus(t *testing.T) {
	b := newFakeBus()
	if err := New(b, Config{AutoInitBus: true}).Init(); err != nil {
		t.Fatal(err)
	}
	if !equalStrings(b.kinds(), []string{"init"}) {
		t.Fatalf("ops=%v", b.kinds())
	}

	b = newFakeBus()
	if err := New(b, Config{}).Init(); err != nil {
		t.Fatal(err)
	}
	if len(b.ops) != 0 {
		t.Fatalf("init without AutoInitBus touched bus: %v", b.kinds())
	}
}

func TestInitFailure(t *testing.T) {
	cause := errors.New("no adapter")
	b := newFakeBus()
	b.failInit = cause
	err := New(b, Config{AutoInitBus: true}).Init()
	var be *BusError
	if !errors.As(err, &be) || be.Phase != PhaseInit {
		t.Fatalf("err=%v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
}

func TestInitValidates(t *testing.T) {
	b := newFakeBus()
	if err := New(b, Config{Address: 0x80, AutoInitBus: true}).Init(); err != ErrInvalidAddress {
		t.Fatalf("err=%v", err)
	}
	if err := New(b, Config{EEPROMWriteDelay: time.Millisecond}).Init(); err != ErrWriteDelay {
		t.Fatalf("err=%v", err)
	}
	if len(b.ops) != 0 {
		t.Fatalf("invalid config reached the bus: %v", b.kinds())
	}
}

func TestRead16Framing(t *testing.T) {
	b := newFakeBus()
	b.words[RegObject1] = 0x3AD2
	d := New(b, Config{Address: 0x5A})
	v, err := d.Read16(RegObject1)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x3AD2 {
		t.Fatalf("v=%#04x", v)
	}
	if !equalStrings(b.kinds(), []string{"byte", "recv"}) {
		t.Fatalf("ops=%v", b.kinds())
	}
	if b.ops[0].addr != 0x5A || b.ops[0].data[0] != RegObject1 {
		t.Fatalf("pointer write %+v", b.ops[0])
	}
	if b.ops[1].addr != 0x5A || b.ops[1].n != 3 {
		t.Fatalf("receive %+v", b.ops[1])
	}
}

func TestRead16AddressFailure(t *testing.T) {
	b := newFakeBus()
	b.failByte = errors.New("nack")
	_, err := New(b, Config{}).Read16(RegAmbient)
	var be *BusError
	if !errors.As(err, &be) || be.Phase != PhaseAddress || be.Reg != RegAmbient {
		t.Fatalf("err=%v", err)
	}
	if !equalStrings(b.kinds(), []string{"byte"}) {
		t.Fatalf("receive attempted after address failure: %v", b.kinds())
	}
}

func TestRead16ReceiveFailure(t *testing.T) {
	b := newFakeBus()
	b.words[RegAmbient] = 14908
	b.failRecv = errors.New("short read")
	d := New(b, Config{})
	v, err := d.Read16(RegAmbient)
	var be *BusError
	if !errors.As(err, &be) || be.Phase != PhaseReceive {
		t.Fatalf("err=%v", err)
	}
	if v != 0 {
		t.Fatalf("value returned on failure: %d", v)
	}
	if c, err := d.ReadAmbientTempC(); err == nil || c != 0 {
		t.Fatalf("temp=%v err=%v", c, err)
	}
}

func TestRead16PECIgnoredByDefault(t *testing.T) {
	b := newFakeBus()
	b.words[RegObject1] = 14908
	b.pec = func(reg, lo, hi byte) byte { return 0 }
	if _, err := New(b, Config{}).Read16(RegObject1); err != nil {
		t.Fatalf("bad PEC rejected without VerifyPEC: %v", err)
	}
}

func TestRead16VerifyPEC(t *testing.T) {
	b := newFakeBus()
	b.words[RegObject1] = 0x3AD2
	d := New(b, Config{VerifyPEC: true})
	if v, err := d.Read16(RegObject1); err != nil || v != 0x3AD2 {
		t.Fatalf("v=%#x err=%v", v, err)
	}

	b.pec = func(reg, lo, hi byte) byte { return readPEC(0x5A, reg, lo, hi) ^ 0x01 }
	_, err := d.Read16(RegObject1)
	var be *BusError
	if !errors.As(err, &be) || be.Phase != PhaseVerify || !errors.Is(err, ErrPEC) {
		t.Fatalf("err=%v", err)
	}
}

func TestWrite16Framing(t *testing.T) {
	b := newFakeBus()
	d := New(b, Config{Address: 0x5A})
	if err := d.Write16(0x24, 0x1234); err != nil {
		t.Fatal(err)
	}
	if len(b.ops) != 1 || b.ops[0].kind != "bytes" || b.ops[0].addr != 0x5A {
		t.Fatalf("ops=%+v", b.ops)
	}
	want := []byte{0x24, 0x34, 0x12, PEC([]byte{0x5A << 1, 0x24, 0x34, 0x12})}
	got := b.ops[0].data
	if string(got) != string(want) {
		t.Fatalf("frame % x want % x", got, want)
	}
	if got[3] != 0xFB {
		t.Fatalf("pec=%#02x want 0xfb", got[3])
	}
}

func TestWrite16PECUsesDeviceAddress(t *testing.T) {
	b := newFakeBus()
	if err := New(b, Config{Address: 0x33}).Write16(0x24, 0x1234); err != nil {
		t.Fatal(err)
	}
	if want := PEC([]byte{0x66, 0x24, 0x34, 0x12}); b.ops[0].data[3] != want {
		t.Fatalf("pec=%#02x want %#02x", b.ops[0].data[3], want)
	}
}

func TestWrite16Failure(t *testing.T) {
	b := newFakeBus()
	b.failSendN, b.failSend = 1, errors.New("nack")
	err := New(b, Config{}).Write16(RegEmissivity, 1)
	var be *BusError
	if !errors.As(err, &be) || be.Phase != PhaseSend {
		t.Fatalf("err=%v", err)
	}
}

func TestTemperatureReads(t *testing.T) {
	b := newFakeBus()
	b.words[RegObject1] = 14908 // 25.01 C
	b.words[RegAmbient] = 13658 // 0.01 C
	b.words[RegObject2] = 15488 // 36.61 C
	d := New(b, Config{})

	check := func(name string, got float64, err error, want float64) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("%s=%v want %v", name, got, want)
		}
	}
	c, err := d.ReadObjectTempC()
	check("object C", c, err, 25.01)
	f, err := d.ReadObjectTempF()
	check("object F", f, err, 77.018)
	c, err = d.ReadAmbientTempC()
	check("ambient C", c, err, 0.01)
	f, err = d.ReadAmbientTempF()
	check("ambient F", f, err, 32.018)
	c, err = d.ReadObject2TempC()
	check("object2 C", c, err, 36.61)

	// Each read is a fresh transaction on the matching register.
	var regs []byte
	for _, o := range b.ops {
		if o.kind == "byte" {
			regs = append(regs, o.data[0])
		}
	}
	want := []byte{RegObject1, RegObject1, RegAmbient, RegAmbient, RegObject2}
	if string(regs) != string(want) {
		t.Fatalf("regs % x want % x", regs, want)
	}
}

func TestEmissivityRead(t *testing.T) {
	b := newFakeBus()
	b.words[RegEmissivity] = 0xFFFF
	d := New(b, Config{})
	e, err := d.Emissivity()
	if err != nil || e != 1.0 {
		t.Fatalf("e=%v err=%v", e, err)
	}
	raw, err := d.EmissivityReg()
	if err != nil || raw != 0xFFFF {
		t.Fatalf("raw=%#x err=%v", raw, err)
	}
}

func TestSetEmissivitySequence(t *testing.T) {
	b := newFakeBus()
	d := New(b, Config{})
	if err := d.SetEmissivity(0.95); err != nil {
		t.Fatal(err)
	}
	if !equalStrings(b.kinds(), []string{"bytes", "delay", "bytes", "delay"}) {
		t.Fatalf("ops=%v", b.kinds())
	}
	erase, write := b.ops[0].data, b.ops[2].data
	if string(erase) != string([]byte{0x24, 0x00, 0x00, 0x28}) {
		t.Fatalf("erase frame % x", erase)
	}
	if string(write) != string([]byte{0x24, 0x32, 0xF3, 0x2C}) {
		t.Fatalf("write frame % x", write)
	}
	for _, i := range []int{1, 3} {
		if b.ops[i].delay < 10*time.Millisecond {
			t.Fatalf("delay %v below EEPROM cycle", b.ops[i].delay)
		}
	}
	if b.words[RegEmissivity] != 62258 {
		t.Fatalf("stored %d", b.words[RegEmissivity])
	}
}

func TestSetEmissivityEraseFailure(t *testing.T) {
	b := newFakeBus()
	b.failSendN, b.failSend = 1, errors.New("nack")
	err := New(b, Config{}).SetEmissivity(0.5)
	var be *BusError
	if !errors.As(err, &be) || be.Phase != PhaseSend {
		t.Fatalf("err=%v", err)
	}
	if !equalStrings(b.kinds(), []string{"bytes"}) {
		t.Fatalf("second write attempted: %v", b.kinds())
	}
}

func TestSetEmissivityWriteFailureLeavesErased(t *testing.T) {
	b := newFakeBus()
	b.words[RegEmissivity] = 0xFFFF
	b.failSendN, b.failSend = 2, errors.New("nack")
	if err := New(b, Config{}).SetEmissivity(0.5); err == nil {
		t.Fatal("expected error")
	}
	if b.words[RegEmissivity] != 0 {
		t.Fatalf("cell=%#x want erased", b.words[RegEmissivity])
	}
	if !equalStrings(b.kinds(), []string{"bytes", "delay", "bytes"}) {
		t.Fatalf("ops=%v", b.kinds())
	}
}

func TestSetEmissivityRange(t *testing.T) {
	for _, e := range []float64{0.05, 1.01, -1, math.NaN(), math.Inf(1)} {
		b := newFakeBus()
		if err := New(b, Config{}).SetEmissivity(e); err != ErrEmissivityRange {
			t.Fatalf("SetEmissivity(%v) err=%v", e, err)
		}
		if len(b.ops) != 0 {
			t.Fatalf("SetEmissivity(%v) reached the bus", e)
		}
	}
	for _, e := range []float64{0.1, 1.0} {
		if err := New(newFakeBus(), Config{}).SetEmissivity(e); err != nil {
			t.Fatalf("SetEmissivity(%v) err=%v", e, err)
		}
	}
}

func TestWriteEmissivityRegRaw(t *testing.T) {
	b := newFakeBus()
	d := New(b, Config{EEPROMWriteDelay: 20 * time.Millisecond})
	if err := d.WriteEmissivityReg(0x1000); err != nil {
		t.Fatal(err)
	}
	if b.ops[1].delay != 20*time.Millisecond || b.ops[3].delay != 20*time.Millisecond {
		t.Fatalf("delays %v %v", b.ops[1].delay, b.ops[3].delay)
	}
	if b.words[RegEmissivity] != 0x1000 {
		t.Fatalf("stored %#x", b.words[RegEmissivity])
	}
}

func TestReadID(t *testing.T) {
	b := newFakeBus()
	b.words[RegID1] = 0x1234
	b.words[RegID2] = 0x5678
	b.words[RegID3] = 0x9ABC
	b.words[RegID4] = 0xDEF0
	id, err := New(b, Config{}).ReadID()
	if err != nil {
		t.Fatal(err)
	}
	if id.String() != "123456789abcdef0" {
		t.Fatalf("id=%s", id)
	}
	if id.Uint64() != 0x123456789ABCDEF0 {
		t.Fatalf("id=%#x", id.Uint64())
	}
}

func TestReadIDStopsOnFailure(t *testing.T) {
	b := newFakeBus()
	b.failRecv = errors.New("gone")
	id, err := New(b, Config{}).ReadID()
	if err == nil || id != (ID{}) {
		t.Fatalf("id=%v err=%v", id, err)
	}
	if !equalStrings(b.kinds(), []string{"byte", "recv"}) {
		t.Fatalf("ops=%v", b.kinds())
	}
}

func TestBusErrorString(t *testing.T) {
	e := &BusError{Phase: PhaseReceive, Addr: 0x5A, Reg: 0x07, Err: errors.New("nack")}
	if got := e.Error(); got != "mlx90614: receive failed (addr 0x5a, reg 0x7): nack" {
		t.Fatalf("Error()=%q", got)
	}
	e = &BusError{Phase: PhaseInit, Addr: 0x5A}
	if got := e.Error(); got != "mlx90614: init failed (addr 0x5a)" {
		t.Fatalf("Error()=%q", got)
	}
}
