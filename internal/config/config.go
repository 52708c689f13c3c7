// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/heartbeat-node/internal/adc"
	"github.com/sweeney/heartbeat-node/internal/gpio"
	"github.com/sweeney/heartbeat-node/internal/speed"
	"github.com/sweeney/heartbeat-node/internal/tasks"
)

// ADC sources.
const (
	SourceIIO    = "iio"
	SourceSerial = "serial"
	SourceFake   = "fake"
)

// Config represents the daemon configuration.
type Config struct {
	GPIO      GPIOConfig      `yaml:"gpio"`
	Button    ButtonConfig    `yaml:"button"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Sampler   SamplerConfig   `yaml:"sampler"`
	ADC       ADCConfig       `yaml:"adc"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Report    ReportConfig    `yaml:"report"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	NATS      NATSConfig      `yaml:"nats"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// GPIOConfig selects the chip and line offsets.
type GPIOConfig struct {
	Chip   string `yaml:"chip"`
	LED    int    `yaml:"led"`
	Button int    `yaml:"button"`
}

// ButtonConfig contains debounce settings.
type ButtonConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// HeartbeatConfig contains heartbeat settings.
type HeartbeatConfig struct {
	InitialIndex int `yaml:"initial_index"` // index into the speed multipliers at boot
}

// SamplerConfig contains sampling settings.
type SamplerConfig struct {
	Period time.Duration `yaml:"period"`
}

// ADCConfig selects and configures the analog source.
type ADCConfig struct {
	Source        string  `yaml:"source"` // iio, serial or fake
	IIODevice     string  `yaml:"iio_device"`
	IIOChannel    int     `yaml:"iio_channel"`
	SerialPort    string  `yaml:"serial_port"`
	BaudRate      int     `yaml:"baud_rate"`
	RefMillivolts float32 `yaml:"ref_millivolts"`
	Bits          uint8   `yaml:"bits"`
}

// SchedulerConfig contains scheduler settings.
type SchedulerConfig struct {
	InputPoll time.Duration `yaml:"input_poll"` // 0 relies on GPIO edge events
}

// ReportConfig contains event relay settings.
type ReportConfig struct {
	Queue int `yaml:"queue"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// NATSConfig contains NATS settings. An empty URL disables NATS.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration with sensible values.
func Default() *Config {
	return &Config{
		GPIO: GPIOConfig{
			Chip:   gpio.DefaultChip,
			LED:    gpio.DefaultLEDLine,
			Button: gpio.DefaultButtonLine,
		},
		Button:  ButtonConfig{Debounce: tasks.DefaultDebounce},
		Sampler: SamplerConfig{Period: tasks.DefaultSamplePeriod},
		ADC: ADCConfig{
			Source:        SourceIIO,
			IIODevice:     adc.DefaultIIODevice,
			SerialPort:    "/dev/ttyACM0",
			BaudRate:      adc.DefaultBaudRate,
			RefMillivolts: adc.DefaultScale.RefMillivolts,
			Bits:          adc.DefaultScale.Bits,
		},
		Report: ReportConfig{Queue: 64},
		MQTT: MQTTConfig{
			ClientID:    "heartbeat-node",
			TopicPrefix: "devices/heartbeat-node",
		},
		NATS: NATSConfig{Subject: "heartbeat.adc"},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; fields absent from the file keep their default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Scale returns the ADC conversion scale.
func (c *Config) Scale() adc.Scale {
	return adc.Scale{RefMillivolts: c.ADC.RefMillivolts, Bits: c.ADC.Bits}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Heartbeat.InitialIndex < 0 || c.Heartbeat.InitialIndex >= speed.Count {
		return fmt.Errorf("heartbeat.initial_index %d out of range [0,%d)", c.Heartbeat.InitialIndex, speed.Count)
	}
	if c.Button.Debounce <= 0 {
		return fmt.Errorf("button.debounce must be positive, got %v", c.Button.Debounce)
	}
	if c.Sampler.Period <= 0 {
		return fmt.Errorf("sampler.period must be positive, got %v", c.Sampler.Period)
	}
	if c.Scheduler.InputPoll < 0 {
		return fmt.Errorf("scheduler.input_poll must not be negative, got %v", c.Scheduler.InputPoll)
	}
	switch c.ADC.Source {
	case SourceIIO, SourceSerial, SourceFake:
	default:
		return fmt.Errorf("adc.source %q: want %s, %s or %s", c.ADC.Source, SourceIIO, SourceSerial, SourceFake)
	}
	if err := c.Scale().Validate(); err != nil {
		return err
	}
	return nil
}

// ensureDefaults fills fields a partial file left empty.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.GPIO.Chip == "" {
		c.GPIO.Chip = def.GPIO.Chip
	}
	if c.ADC.Source == "" {
		c.ADC.Source = def.ADC.Source
	}
	if c.ADC.IIODevice == "" {
		c.ADC.IIODevice = def.ADC.IIODevice
	}
	if c.ADC.SerialPort == "" {
		c.ADC.SerialPort = def.ADC.SerialPort
	}
	if c.ADC.BaudRate == 0 {
		c.ADC.BaudRate = def.ADC.BaudRate
	}
	if c.Report.Queue == 0 {
		c.Report.Queue = def.Report.Queue
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = def.MQTT.TopicPrefix
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = def.NATS.Subject
	}
}
