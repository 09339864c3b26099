// Package config loads the JSON board description used by the Linux target.
package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"

	"gyroled/core"
)

// Logical pin slots the Linux board maps its named GPIO lines onto.
const (
	SlotButton core.GPIOPin = iota
	SlotDataReady
	SlotSignalA
	SlotSignalB
)

// Interrupt sources assigned to the edge watchers.
const (
	SourceButton    core.IRQSource = 1
	SourceDataReady core.IRQSource = 2
)

// PinsConfig names the GPIO lines as the host's gpioreg knows them.
type PinsConfig struct {
	Button    string `json:"button"`
	DataReady string `json:"data_ready"`
	SignalA   string `json:"signal_a"`
	SignalB   string `json:"signal_b"`
}

// GyroConfig locates the L3GD20 on an I2C bus.
type GyroConfig struct {
	Bus     string `json:"bus"`
	Address uint16 `json:"address"`
}

// TelemetryConfig selects where status frames are written. An empty Device
// disables telemetry.
type TelemetryConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// BoardConfig is the on-disk description of a Linux board.
type BoardConfig struct {
	Mode            string          `json:"mode"`
	PeriodMS        int             `json:"period_ms"`
	Threshold       *int16          `json:"threshold,omitempty"`
	BootReady       *bool           `json:"boot_ready,omitempty"`
	ButtonActiveLow bool            `json:"button_active_low"`
	Pins            PinsConfig      `json:"pins"`
	Gyro            GyroConfig      `json:"gyro"`
	Telemetry       TelemetryConfig `json:"telemetry"`
	Debug           bool            `json:"debug"`
}

// LoadConfig parses a JSON board configuration
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, errors.Wrap(err, "parsing board config")
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses the board configuration at path
func LoadFile(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading board config")
	}
	cfg, err := LoadConfig(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *BoardConfig) {
	if config.Mode == "" {
		config.Mode = core.ModeTimer.String()
	}
	if config.PeriodMS == 0 {
		config.PeriodMS = int(core.DefaultPeriod / time.Millisecond)
	}
	if config.Threshold == nil {
		threshold := core.DirectionThreshold
		config.Threshold = &threshold
	}
	if config.BootReady == nil {
		ready := true
		config.BootReady = &ready
	}
	if config.Gyro.Bus == "" {
		config.Gyro.Bus = "1"
	}
	if config.Gyro.Address == 0 {
		config.Gyro.Address = 0x6B // SDO high
	}
	if config.Telemetry.Device != "" && config.Telemetry.Baud == 0 {
		config.Telemetry.Baud = 115200
	}
}

// Validate checks that every required field is present
func (c *BoardConfig) Validate() error {
	if _, err := core.ParseMode(c.Mode); err != nil {
		return errors.Wrapf(err, "mode %q", c.Mode)
	}
	if c.PeriodMS <= 0 {
		return errors.Errorf("period_ms must be positive, got %d", c.PeriodMS)
	}
	for name, pin := range map[string]string{
		"button":     c.Pins.Button,
		"data_ready": c.Pins.DataReady,
		"signal_a":   c.Pins.SignalA,
		"signal_b":   c.Pins.SignalB,
	} {
		if pin == "" {
			return errors.Errorf("pins.%s is required", name)
		}
	}
	return nil
}

// CoreConfig maps the board description onto the application configuration
func (c *BoardConfig) CoreConfig() core.Config {
	cfg := core.DefaultConfig()
	cfg.Mode, _ = core.ParseMode(c.Mode)
	cfg.Period = time.Duration(c.PeriodMS) * time.Millisecond
	cfg.Threshold = *c.Threshold
	cfg.BootReady = *c.BootReady
	cfg.ButtonActiveHigh = !c.ButtonActiveLow
	cfg.ButtonPin = SlotButton
	cfg.DataReadyPin = SlotDataReady
	cfg.SignalAPin = SlotSignalA
	cfg.SignalBPin = SlotSignalB
	cfg.ButtonIRQ = SourceButton
	cfg.DataReadyIRQ = SourceDataReady
	return cfg
}

// PinNames returns the host line name behind each logical pin slot
func (c *BoardConfig) PinNames() map[core.GPIOPin]string {
	return map[core.GPIOPin]string{
		SlotButton:    c.Pins.Button,
		SlotDataReady: c.Pins.DataReady,
		SlotSignalA:   c.Pins.SignalA,
		SlotSignalB:   c.Pins.SignalB,
	}
}

// DefaultRaspberryPiConfig returns a configuration for a Raspberry Pi with
// the gyro on I2C bus 1 and its INT2 line on GPIO27.
func DefaultRaspberryPiConfig() *BoardConfig {
	cfg := &BoardConfig{
		Pins: PinsConfig{
			Button:    "GPIO17",
			DataReady: "GPIO27",
			SignalA:   "GPIO22",
			SignalB:   "GPIO23",
		},
	}
	applyDefaults(cfg)
	return cfg
}
