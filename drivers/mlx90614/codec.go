package mlx90614

// Temperature registers hold 0.02 K per tick.
const kelvinPerTick = 0.02

// Kelvin converts raw temperature ticks to kelvin.
func Kelvin(raw uint16) float64 {
	return float64(raw) * kelvinPerTick
}

// Celsius converts raw temperature ticks to °C.
func Celsius(raw uint16) float64 {
	return float64(raw)*kelvinPerTick - 273.15
}

// Fahrenheit converts °C to °F.
func Fahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// DeciCelsius returns tenths of °C without floating point.
// raw*2 is centi-kelvin; 27315 cK is 0 °C. Rounds half away from zero.
func DeciCelsius(raw uint16) int16 {
	centi := int32(raw)*2 - 27315
	if centi >= 0 {
		return int16((centi + 5) / 10)
	}
	return int16((centi - 5) / 10)
}

// DecodeEmissivity maps the emissivity register to a fraction.
func DecodeEmissivity(raw uint16) float64 {
	return float64(raw) / 65535.0
}

// EncodeEmissivity maps a fraction to register ticks, truncating toward zero.
// It does not range check; results outside the representable range saturate.
func EncodeEmissivity(f float64) uint16 {
	v := 65535 * f
	switch {
	case !(v > 0): // negative or NaN
		return 0
	case v >= 65535:
		return 0xFFFF
	}
	return uint16(v)
}
