package cfg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of the plotarm command.
type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Machine MachineConfig `yaml:"machine"`
	Import  ImportConfig  `yaml:"import"`
}

// SerialConfig describes how to reach the controller.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// MachineConfig holds the default document parameters.
type MachineConfig struct {
	WorkHeight float64 `yaml:"work_height"`
	Feed       float64 `yaml:"feed"`
	TravelFeed float64 `yaml:"travel_feed"`
	ZOffset    float64 `yaml:"z_offset"`
	Lift       float64 `yaml:"lift"`
	Mode       string  `yaml:"mode"`
	Order      int     `yaml:"order"`
}

// ImportConfig overrides the curve flattening tunables.
type ImportConfig struct {
	CurveThreshold    float64 `yaml:"curve_threshold"`
	CurveMinArc       float64 `yaml:"curve_min_arc"`
	SimplifyTolerance float64 `yaml:"simplify_tolerance"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Baud:        115200,
			ReadTimeout: 30 * time.Second,
		},
		Machine: MachineConfig{
			WorkHeight: 0,
			Feed:       100,
			TravelFeed: 1000,
			ZOffset:    81.5,
			Lift:       10,
			Mode:       "burn",
		},
		Import: ImportConfig{
			CurveThreshold:    CurveThreshold,
			CurveMinArc:       CurveMinArc,
			SimplifyTolerance: SimplifyTolerance,
		},
	}
}

// Load reads a YAML file on top of the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if config.Serial.Baud <= 0 {
		return nil, fmt.Errorf("%s: invalid baud rate %d", path, config.Serial.Baud)
	}
	switch config.Machine.Mode {
	case "burn", "draw":
	default:
		return nil, fmt.Errorf("%s: unknown mode %q, want burn or draw", path, config.Machine.Mode)
	}
	return config, nil
}

// Apply copies the import overrides into the package tunables.
func (c *Config) Apply() {
	if c.Import.CurveThreshold > 0 {
		CurveThreshold = c.Import.CurveThreshold
	}
	if c.Import.CurveMinArc > 0 {
		CurveMinArc = c.Import.CurveMinArc
	}
	if c.Import.SimplifyTolerance >= 0 {
		SimplifyTolerance = c.Import.SimplifyTolerance
	}
}
