// internal/config/config.go
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Poller  PollerConfig  `yaml:"poller"`
	Log     LogConfig     `yaml:"log"`
	Report  ReportConfig  `yaml:"report"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type PollerConfig struct {
	Units        []UnitConfig       `yaml:"units"`
	StatusMemory StatusMemoryConfig `yaml:"status_memory"`
}

// ---- UNIT ----

type UnitConfig struct {
	ID      string         `yaml:"id"`
	Source  SourceConfig   `yaml:"source"`
	Reads   []ReadConfig   `yaml:"reads"` // empty => full register catalog
	Targets []TargetConfig `yaml:"targets"`
	Poll    PollConfig     `yaml:"poll"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Device        string `yaml:"device"`
	BaudRate      int    `yaml:"baud_rate"`
	DataBits      int    `yaml:"data_bits"`
	StopBits      int    `yaml:"stop_bits"`
	Parity        string `yaml:"parity"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`

	// Transaction timing
	TimeoutMs  int `yaml:"timeout_ms"`
	MaxTries   int `yaml:"max_tries"`
	QuietGapMs int `yaml:"quiet_gap_ms"` // 0 = legacy drain

	Profile ProfileConfig `yaml:"profile"`

	// Device status block (optional, opt-in)
	StatusSlot *uint16 `yaml:"status_slot"`
	DeviceName string  `yaml:"device_name"`
}

type ProfileConfig struct {
	Checksum   string `yaml:"checksum"`    // swapped | native
	CellOffset int    `yaml:"cell_offset"` // 6 | 7
	StatusBits string `yaml:"status_bits"` // legacy | word
}

// ---- READ SEQUENCE ----

type ReadConfig struct {
	Register   uint8 `yaml:"register"`
	PayloadLen uint8 `yaml:"payload_len"` // 0 => catalog default
}

// ---- TARGET (register mirror) ----

type TargetConfig struct {
	ID        uint32 `yaml:"id"`
	Kind      string `yaml:"kind"` // modbus | ingest
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	Offset    uint16 `yaml:"offset"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type StatusMemoryConfig struct {
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int  `yaml:"interval_ms"`
	RunOnStart bool `yaml:"run_on_start"`
	Once       bool `yaml:"once"`
}

// ---- LOG ----

type LogConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"` // json | console
	File   LogFileConfig `yaml:"file"`
}

type LogFileConfig struct {
	Filename   string `yaml:"filename"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ---- REPORT ----

type ReportConfig struct {
	Log   bool         `yaml:"log"`
	MQTT  *MQTTConfig  `yaml:"mqtt"`
	Kafka *KafkaConfig `yaml:"kafka"`
	AMQP  *AMQPConfig  `yaml:"amqp"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retained    bool   `yaml:"retained"`
	TimeoutMs   int    `yaml:"timeout_ms"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type AMQPConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"` // prefix; unit id and field are appended
}

// ---- METRICS ----

type MetricsConfig struct {
	Textfile string `yaml:"textfile"` // node_exporter textfile collector path
}

// Load reads and parses a YAML config file. It does not validate.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}
