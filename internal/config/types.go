package config

import (
	"time"

	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/regmap"
	"github.com/Sindrekaurin/HordaLAN-Energioverv-kning/internal/types"
)

// Config is the complete settings file. Interval fields are in seconds,
// matching the historical settings format.
type Config struct {
	DiscordWebhook    string                    `yaml:"discord_webhook"`
	PollInterval      float64                   `yaml:"poll_interval"`
	AsciiReadInterval float64                   `yaml:"ascii_read_interval"`
	AlertCooldown     float64                   `yaml:"alert_cooldown"`
	APIPort           int                       `yaml:"api_port"`
	Modbus            ModbusConfig              `yaml:"modbus"`
	PowerTags         []PowerTagConfig          `yaml:"powertags"`
	Thresholds        map[string]Threshold      `yaml:"thresholds"`
	RegisterMap       map[string]RegisterConfig `yaml:"register_map"`
	Storage           StorageConfig             `yaml:"storage"`
}

// ModbusConfig holds gateway connection settings.
type ModbusConfig struct {
	Port       int             `yaml:"port"`
	Timeout    float64         `yaml:"timeout"`
	Retries    int             `yaml:"retries"`
	RetryDelay float64         `yaml:"retry_delay"`
	Gateways   []GatewayConfig `yaml:"gateways"`
}

// GatewayConfig identifies one Modbus TCP gateway.
type GatewayConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// PowerTagConfig binds a meter (Modbus unit id) to a gateway.
type PowerTagConfig struct {
	TagName  string `yaml:"tag_name"`
	DeviceID uint8  `yaml:"device_id"`
	Gateway  string `yaml:"gateway"`
}

// Device returns the device identity for this tag.
func (p PowerTagConfig) Device() types.Device {
	return types.Device{ID: p.DeviceID, Label: p.TagName}
}

// Threshold holds the alert bounds for one measurement. A measurement with
// no threshold entry is unmonitored.
type Threshold struct {
	Low  *float64 `yaml:"low"`
	High *float64 `yaml:"high"`
}

// RegisterConfig describes one named register in the settings file. The
// address is zero-based: configured address = physical address - 1.
type RegisterConfig struct {
	Address  uint16 `yaml:"address"`
	Length   uint16 `yaml:"length"`
	Encoding string `yaml:"encoding"`
	Bank     string `yaml:"bank"`
}

// StorageConfig selects the optional persistence sinks.
type StorageConfig struct {
	CSVFile    string `yaml:"csv_file"`
	SQLiteFile string `yaml:"sqlite_file"`
}

// PollEvery is the input-register polling interval.
func (c *Config) PollEvery() time.Duration { return seconds(c.PollInterval) }

// AsciiEvery is the holding/ascii polling interval.
func (c *Config) AsciiEvery() time.Duration { return seconds(c.AsciiReadInterval) }

// Cooldown is the minimum time between two alerts for the same breach.
func (c *Config) Cooldown() time.Duration { return seconds(c.AlertCooldown) }

// RetryDelay is the wait between read attempts of one query.
func (c *Config) RetryDelay() time.Duration { return seconds(c.Modbus.RetryDelay) }

// Timeout is the per-read network timeout.
func (c *Config) Timeout() time.Duration { return seconds(c.Modbus.Timeout) }

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// BuildRegisterMap converts the register_map section into the validated,
// immutable lookup table the poller uses.
func (c *Config) BuildRegisterMap() (*regmap.Map, error) {
	specs := make([]regmap.RegisterSpec, 0, len(c.RegisterMap))
	for name, rc := range c.RegisterMap {
		spec, err := rc.toSpec(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return regmap.NewMap(specs)
}
