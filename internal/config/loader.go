package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/regmap"
)

// LoadConfig reads, defaults and validates the settings file. Any error
// here is fatal: the core never starts on a bad configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals raw settings and applies defaults and validation.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing settings: %w", err)
	}

	applyDefaults(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 80
	}
	if cfg.AsciiReadInterval <= 0 {
		cfg.AsciiReadInterval = 600
	}
	if cfg.AlertCooldown <= 0 {
		cfg.AlertCooldown = 300
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 5000
	}
	if cfg.Modbus.Port == 0 {
		cfg.Modbus.Port = 502
	}
	if cfg.Modbus.Timeout <= 0 {
		cfg.Modbus.Timeout = 5
	}
	if cfg.Modbus.Retries <= 0 {
		cfg.Modbus.Retries = 3
	}
	if cfg.Modbus.RetryDelay <= 0 {
		cfg.Modbus.RetryDelay = 0.3
	}
}

// ValidateConfig checks cross-references between gateways, tags, thresholds
// and the register map.
func ValidateConfig(cfg *Config) error {
	if len(cfg.Modbus.Gateways) == 0 {
		return fmt.Errorf("no gateways configured")
	}
	gateways := make(map[string]struct{}, len(cfg.Modbus.Gateways))
	for _, gw := range cfg.Modbus.Gateways {
		if gw.Name == "" {
			return fmt.Errorf("gateway with empty name")
		}
		if gw.Address == "" {
			return fmt.Errorf("gateway %s: address is required", gw.Name)
		}
		if _, dup := gateways[gw.Name]; dup {
			return fmt.Errorf("gateway %s: duplicate name", gw.Name)
		}
		gateways[gw.Name] = struct{}{}
	}

	if len(cfg.PowerTags) == 0 {
		return fmt.Errorf("no powertags configured")
	}
	tags := make(map[string]struct{}, len(cfg.PowerTags))
	for _, tag := range cfg.PowerTags {
		if tag.TagName == "" {
			return fmt.Errorf("powertag with empty tag_name")
		}
		if _, dup := tags[tag.TagName]; dup {
			return fmt.Errorf("powertag %s: duplicate tag_name", tag.TagName)
		}
		tags[tag.TagName] = struct{}{}
		if _, ok := gateways[tag.Gateway]; !ok {
			return fmt.Errorf("powertag %s: references unknown gateway %s", tag.TagName, tag.Gateway)
		}
	}

	if len(cfg.RegisterMap) == 0 {
		return fmt.Errorf("register_map is empty")
	}
	if _, err := cfg.BuildRegisterMap(); err != nil {
		return err
	}

	for name, th := range cfg.Thresholds {
		if th.Low == nil && th.High == nil {
			return fmt.Errorf("threshold %s: at least one of low/high is required", name)
		}
		if th.Low != nil && th.High != nil && *th.Low > *th.High {
			return fmt.Errorf("threshold %s: low > high", name)
		}
		if _, ok := cfg.RegisterMap[name]; !ok {
			return fmt.Errorf("threshold %s: no such measurement in register_map", name)
		}
	}

	return nil
}

func (rc RegisterConfig) toSpec(name string) (regmap.RegisterSpec, error) {
	spec := regmap.RegisterSpec{Name: name, Address: rc.Address, Length: rc.Length}

	switch rc.Encoding {
	case "float32", "float", "":
		spec.Encoding = regmap.Float32
		if spec.Length == 0 {
			spec.Length = 2
		}
	case "ascii":
		spec.Encoding = regmap.ASCIIText
	default:
		return spec, fmt.Errorf("register %q: unknown encoding %q", name, rc.Encoding)
	}

	switch rc.Bank {
	case "input":
		spec.Bank = regmap.Input
	case "holding":
		spec.Bank = regmap.Holding
	case "":
		// Float telemetry lives in input registers, ascii identity data
		// in holding registers.
		if spec.Encoding == regmap.ASCIIText {
			spec.Bank = regmap.Holding
		} else {
			spec.Bank = regmap.Input
		}
	default:
		return spec, fmt.Errorf("register %q: unknown bank %q", name, rc.Bank)
	}

	return spec, nil
}
