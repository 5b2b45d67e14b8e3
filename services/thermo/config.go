// services/thermo/config.go
package thermo

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"mlx90614-go/drivers/mlx90614"
	"mlx90614-go/x/mathx"
)

// Poll interval limits.
const (
	MinEvery     = 10 * time.Millisecond
	MaxEvery     = time.Hour
	DefaultEvery = time.Second
)

var (
	ErrNoDevices   = errors.New("thermo: no devices configured")
	ErrDuplicateID = errors.New("thermo: duplicate device id")
	ErrEmptyID     = errors.New("thermo: device id required")
)

// Config is the JSON-encoded service configuration.
type Config struct {
	Devices []DeviceConfig `json:"devices"`
	MQTT    *MQTTConfig    `json:"mqtt,omitempty"`

	// Driver options shared by every device on the bus.
	AutoInitBus bool `json:"auto_init_bus,omitempty"`
	VerifyPEC   bool `json:"verify_pec,omitempty"`
}

type DeviceConfig struct {
	ID   string `json:"id"`
	Addr uint16 `json:"addr,omitempty"` // 0 => 0x5A
	// Emissivity applied once at start; 0 leaves the device untouched.
	Emissivity float64 `json:"emissivity,omitempty"`
	EveryMS    int     `json:"every_ms,omitempty"`
}

type MQTTConfig struct {
	URL    string `json:"url"`
	Prefix string `json:"prefix,omitempty"` // overrides the URL path prefix
}

// DefaultConfig polls one sensor at the factory address once a second.
func DefaultConfig() Config {
	return Config{
		Devices: []DeviceConfig{{
			ID:      "ir0",
			Addr:    mlx90614.Address,
			EveryMS: int(DefaultEvery / time.Millisecond),
		}},
		AutoInitBus: true,
		VerifyPEC:   true,
	}
}

// DecodeConfig reads a JSON config. Missing device lists fall back to DefaultConfig.
func DecodeConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	cfg.Devices = nil
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Devices) == 0 {
		cfg.Devices = DefaultConfig().Devices
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if len(c.Devices) == 0 {
		return ErrNoDevices
	}
	seen := make(map[string]bool, len(c.Devices))
	for _, d := range c.Devices {
		if d.ID == "" {
			return ErrEmptyID
		}
		if seen[d.ID] {
			return ErrDuplicateID
		}
		seen[d.ID] = true
		if d.Addr > 0x7F {
			return mlx90614.ErrInvalidAddress
		}
		if d.Emissivity != 0 && !mathx.Between(d.Emissivity, mlx90614.EmissivityMin, mlx90614.EmissivityMax) {
			return mlx90614.ErrEmissivityRange
		}
	}
	return nil
}

// Every returns the poll interval, clamped to [MinEvery, MaxEvery].
func (d DeviceConfig) Every() time.Duration {
	if d.EveryMS <= 0 {
		return DefaultEvery
	}
	return mathx.Clamp(time.Duration(d.EveryMS)*time.Millisecond, MinEvery, MaxEvery)
}

func (d DeviceConfig) driverConfig(c Config) mlx90614.Config {
	return mlx90614.Config{
		Address:     d.Addr,
		AutoInitBus: c.AutoInitBus,
		VerifyPEC:   c.VerifyPEC,
	}
}
