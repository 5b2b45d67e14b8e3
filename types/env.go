package types

// ------------------------
// IR thermometer
// ------------------------

type TemperatureInfo struct {
	Sensor string `json:"sensor"` // "mlx90614"
	Addr   uint16 `json:"addr"`   // I2C address
	Bus    string `json:"bus"`    // "sim", "mcp2221a", "/dev/i2c-1", ...
	ID     string `json:"id,omitempty"`
}

type TemperatureValue struct {
	// Tenths of °C (e.g. 231 => 23.1°C).
	DeciC int16 `json:"deci_c"`
}

type EmissivityValue struct {
	// Fraction in [0.1, 1.0].
	Emissivity float64 `json:"emissivity"`
	// Raw register ticks (0..65535).
	Raw uint16 `json:"raw"`
}

// Reading is one poll of a thermometer.
type Reading struct {
	Object     TemperatureValue `json:"object"`
	Ambient    TemperatureValue `json:"ambient"`
	Emissivity EmissivityValue  `json:"emissivity"`
	Seq        uint32           `json:"seq"`
	TS         int64            `json:"ts_ms"`
}

// EmissivitySet is the control payload for changing emissivity.
type EmissivitySet struct {
	Emissivity float64 `json:"emissivity"`
}
