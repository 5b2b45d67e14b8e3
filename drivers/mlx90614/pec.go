package mlx90614

import "github.com/sigurn/crc8"

// SMBus PEC: CRC-8, x^8+x^2+x+1, zero init, no reflection, no final xor.
var pecTable = crc8.MakeTable(crc8.Params{
	Poly: 0x07,
	Init: 0x00,
	Name: "CRC-8/SMBUS",
})

// PEC returns the packet error code over b.
func PEC(b []byte) byte {
	return crc8.Checksum(b, pecTable)
}

// writePEC covers the bytes seen on the wire for a write word:
// SA+W, command, low, high.
func writePEC(addr uint16, reg, lo, hi byte) byte {
	b := [4]byte{byte(addr << 1), reg, lo, hi}
	return PEC(b[:])
}

// readPEC covers SA+W, command, SA+R (repeated start), low, high.
func readPEC(addr uint16, reg, lo, hi byte) byte {
	b := [5]byte{byte(addr << 1), reg, byte(addr<<1) | 1, lo, hi}
	return PEC(b[:])
}
