package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SignalForge/internal/services/analyzer"
	"SignalForge/internal/strategy"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Engine struct {
		UserID       string        `yaml:"user_id"`
		Symbols      []string      `yaml:"symbols"`
		Timeframes   []string      `yaml:"timeframes"`
		Interval     time.Duration `yaml:"interval"`
		CandleLimit  int           `yaml:"candle_limit"`
		WebhookLimit int           `yaml:"webhook_limit"`
		AuxTimeout   time.Duration `yaml:"aux_timeout"`
		// candles: "clickhouse" reads stored history, "stream" serves
		// the in-memory websocket buffer.
		CandleBackend string `yaml:"candle_backend"`
	} `yaml:"engine"`
	Strategy strategy.Config `yaml:"strategy"`
	Kafka    struct {
		Brokers      []string `yaml:"brokers"`
		SignalsTopic string   `yaml:"signals_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled      bool          `yaml:"enabled"`
			WebhookTopic string        `yaml:"webhook_topic"`
			GroupID      string        `yaml:"group_id"`
			Workers      int           `yaml:"workers"`
			BufferSize   int           `yaml:"buffer_size"`
			RetryMax     int           `yaml:"retry_max"`
			BackoffMin   time.Duration `yaml:"backoff_min"`
			BackoffMax   time.Duration `yaml:"backoff_max"`
			DLQTopic     string        `yaml:"dlq_topic"`
			MinBytes     int           `yaml:"min_bytes"`
			MaxBytes     int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Stream struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		BufferCapacity int           `yaml:"buffer_capacity"`
	} `yaml:"stream"`
	Analyzer analyzer.Config `yaml:"analyzer"`
	Logging  struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Engine.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("USER_ID"); v != "" {
		c.Engine.UserID = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_SIGNALS_TOPIC"); v != "" {
		c.Kafka.SignalsTopic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("ANALYZER_URL"); v != "" {
		c.Analyzer.BaseURL = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Engine.Symbols) == 0 {
		return fmt.Errorf("engine.symbols cannot be empty")
	}
	if c.Engine.UserID == "" {
		return fmt.Errorf("engine.user_id is required")
	}
	switch c.Engine.CandleBackend {
	case "", "clickhouse", "stream":
	default:
		return fmt.Errorf("engine.candle_backend must be 'clickhouse' or 'stream', got '%s'", c.Engine.CandleBackend)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Kafka.SignalsTopic == "" {
		return fmt.Errorf("kafka.signals_topic is required")
	}
	if c.Engine.CandleBackend == "stream" && c.Stream.WebSocketURL == "" {
		return fmt.Errorf("stream.websocket_url is required for the stream candle backend")
	}
	return nil
}
