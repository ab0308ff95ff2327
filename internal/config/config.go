package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig sizes the worker pool. NumQueues should match the NIC's RSS
// queue count; one worker runs per queue.
type EngineConfig struct {
	NumQueues int `yaml:"num_queues"`
	BurstSize int `yaml:"burst_size"`
}

// ClassThresholds are per-signal packet-rate thresholds for one traffic
// class. Baseline thresholds are expected to be higher than attack-origin
// ones: baseline traffic is heavier but legitimate.
type ClassThresholds struct {
	TotalPPS   float64 `yaml:"total_pps"`
	UDPPPS     float64 `yaml:"udp_pps"`
	SYNPPS     float64 `yaml:"syn_pps"`
	ICMPPPS    float64 `yaml:"icmp_pps"`
	HTTPPPS    float64 `yaml:"http_pps"`
	DNSPPS     float64 `yaml:"dns_pps"`
	NTPPPS     float64 `yaml:"ntp_pps"`
	PureACKPPS float64 `yaml:"pure_ack_pps"`
	FragPPS    float64 `yaml:"frag_pps"`
}

// DetectionConfig holds cadence and threshold settings for the coordinator.
type DetectionConfig struct {
	WindowLength      string  `yaml:"window_length"`       // e.g. "5s"
	FastInterval      string  `yaml:"fast_interval"`       // e.g. "50ms"
	ReportInterval    string  `yaml:"report_interval"`     // e.g. "5s"
	MinWindowFraction float64 `yaml:"min_window_fraction"` // rates invalid before this

	Baseline ClassThresholds `yaml:"baseline"`
	Attack   ClassThresholds `yaml:"attack"`
}

// SketchConfig sizes the per-worker sketch engines.
type SketchConfig struct {
	Rows         uint32 `yaml:"rows"`
	Cols         uint32 `yaml:"cols"` // must be a power of two
	SampleRate   int    `yaml:"sample_rate"`
	TopK         int    `yaml:"top_k"`
	HLLPrecision uint8  `yaml:"hll_precision"`
	BloomBits    uint32 `yaml:"bloom_bits"`
	BloomHashes  uint32 `yaml:"bloom_hashes"`
}

// TableConfig sizes the per-source statistics table.
type TableConfig struct {
	Capacity  uint32 `yaml:"capacity"`
	NumShards uint32 `yaml:"num_shards"`
}

// ClassifierConfig defines the prefix partition of source addresses and the
// small-packet cutoff used for feature extraction.
type ClassifierConfig struct {
	BaselineCIDRs    []string `yaml:"baseline_cidrs"`
	AttackCIDRs      []string `yaml:"attack_cidrs"`
	SmallPacketBytes int      `yaml:"small_packet_bytes"`
}

// TextConfig configures the plain delimited report writer.
type TextConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds connection details for the feature/alert writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single report writer.
type WriterDef struct {
	Type       string           `yaml:"type"` // "text" or "clickhouse"
	Enabled    bool             `yaml:"enabled"`
	Interval   string           `yaml:"interval"`
	Text       TextConfig       `yaml:"text"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ProbeConfig holds NATS transport settings.
type ProbeConfig struct {
	NATSURL       string `yaml:"nats_url"`
	PacketSubject string `yaml:"packet_subject"`
	AlertSubject  string `yaml:"alert_subject"`
}

// APIConfig configures the embedded HTTP API and metrics endpoint.
type APIConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine     EngineConfig     `yaml:"engine"`
	Detection  DetectionConfig  `yaml:"detection"`
	Sketch     SketchConfig     `yaml:"sketch"`
	Table      TableConfig      `yaml:"table"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Writers    []WriterDef      `yaml:"writers"`
	Probe      ProbeConfig      `yaml:"probe"`
	API        APIConfig        `yaml:"api"`
}

// Default returns a config mirroring the reference deployment: 5s detection
// window, 50ms fast cadence, 8x4096 sketch, 64K source table.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{NumQueues: 4, BurstSize: 2048},
		Detection: DetectionConfig{
			WindowLength:      "5s",
			FastInterval:      "50ms",
			ReportInterval:    "5s",
			MinWindowFraction: 0.1,
			Baseline: ClassThresholds{
				TotalPPS: 20000, UDPPPS: 10000, SYNPPS: 8000, ICMPPPS: 5000,
				HTTPPPS: 10000, DNSPPS: 8000, NTPPPS: 6000, PureACKPPS: 16000, FragPPS: 4000,
			},
			Attack: ClassThresholds{
				TotalPPS: 8000, UDPPPS: 5000, SYNPPS: 3000, ICMPPPS: 3000,
				HTTPPPS: 2500, DNSPPS: 2000, NTPPPS: 1500, PureACKPPS: 4000, FragPPS: 1000,
			},
		},
		Sketch: SketchConfig{
			Rows: 8, Cols: 4096, SampleRate: 32, TopK: 10,
			HLLPrecision: 14, BloomBits: 1 << 20, BloomHashes: 7,
		},
		Table:      TableConfig{Capacity: 65536, NumShards: 256},
		Classifier: ClassifierConfig{SmallPacketBytes: 100},
		Probe: ProbeConfig{
			NATSURL:       "nats://127.0.0.1:4222",
			PacketSubject: "floodsight.packets",
			AlertSubject:  "floodsight.alerts",
		},
		API: APIConfig{Enabled: false, ListenAddr: ":8080"},
	}
}

// LoadConfig reads the configuration from a YAML file, applying defaults for
// anything left unset.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.NumQueues <= 0 {
		return fmt.Errorf("engine.num_queues must be positive, got %d", c.Engine.NumQueues)
	}
	if c.Engine.BurstSize <= 0 {
		return fmt.Errorf("engine.burst_size must be positive, got %d", c.Engine.BurstSize)
	}
	if c.Sketch.Cols == 0 || c.Sketch.Cols&(c.Sketch.Cols-1) != 0 {
		return fmt.Errorf("sketch.cols must be a power of two, got %d", c.Sketch.Cols)
	}
	if c.Sketch.Rows == 0 {
		return fmt.Errorf("sketch.rows must be positive")
	}
	if c.Sketch.SampleRate <= 0 {
		return fmt.Errorf("sketch.sample_rate must be positive, got %d", c.Sketch.SampleRate)
	}
	if c.Sketch.HLLPrecision < 4 || c.Sketch.HLLPrecision > 18 {
		return fmt.Errorf("sketch.hll_precision must be in [4,18], got %d", c.Sketch.HLLPrecision)
	}
	if c.Table.Capacity == 0 {
		return fmt.Errorf("table.capacity must be positive")
	}
	if c.Detection.MinWindowFraction < 0 || c.Detection.MinWindowFraction >= 1 {
		return fmt.Errorf("detection.min_window_fraction must be in [0,1), got %f", c.Detection.MinWindowFraction)
	}
	return nil
}
