package mlx90614

// Default 7-bit bus address.
const Address = 0x5A

// RAM registers (read only, opcode 000x_xxxx).
const (
	RegRawIR1  = 0x04
	RegRawIR2  = 0x05
	RegAmbient = 0x06 // linearised ambient temperature Ta
	RegObject1 = 0x07 // linearised object temperature Tobj1
	RegObject2 = 0x08 // Tobj2, dual-zone parts only
)

// EEPROM registers (opcode 001x_xxxx).
const (
	RegToMax      = 0x20
	RegToMin      = 0x21
	RegPWMCtrl    = 0x22
	RegTaRange    = 0x23
	RegEmissivity = 0x24
	RegConfig     = 0x25
	RegAddress    = 0x2E

	// Factory ID, read only.
	RegID1 = 0x3C
	RegID2 = 0x3D
	RegID3 = 0x3E
	RegID4 = 0x3F
)

// Emissivity domain accepted by SetEmissivity.
const (
	EmissivityMin = 0.1
	EmissivityMax = 1.0
)
