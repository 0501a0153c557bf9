package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Identifier source names accepted in book.id_source
const (
	IDSourceSequential = "sequential"
	IDSourceRandom     = "random"
)

// Kafka client names accepted in kafka.client
const (
	KafkaClientSarama  = "sarama"
	KafkaClientKafkaGo = "kafka-go"
)

// EnvPrefix prefixes every environment override, e.g. LIMITBOOK_KAFKA_ENABLED
const EnvPrefix = "LIMITBOOK"

// Config represents the application configuration
type Config struct {
	Book struct {
		Instrument    string `yaml:"instrument"`
		LevelCapacity int    `yaml:"level_capacity"`
		IDSource      string `yaml:"id_source"`
	} `yaml:"book"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Kafka struct {
		Enabled bool     `yaml:"enabled"`
		Client  string   `yaml:"client"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		// Tail logs every report read back from the topic
		Tail    bool     `yaml:"tail"`
	} `yaml:"kafka"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		Depth    int    `yaml:"depth"`
	} `yaml:"redis"`

	Telemetry struct {
		Enabled        bool   `yaml:"enabled"`
		Endpoint       string `yaml:"endpoint"`
		ServiceVersion string `yaml:"service_version"`
		RuntimeMetrics bool   `yaml:"runtime_metrics"`
	} `yaml:"telemetry"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	cfg := &Config{}
	cfg.Book.Instrument = "BTC-USD"
	cfg.Book.IDSource = IDSourceSequential
	cfg.Log.Level = "info"
	cfg.Log.Format = "pretty"
	cfg.Kafka.Client = KafkaClientKafkaGo
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.Topic = "limitbook-reports"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.Prefix = "limitbook"
	cfg.Redis.Depth = 10
	cfg.Telemetry.Endpoint = "localhost:4317"
	cfg.Telemetry.ServiceVersion = "0.1.0"
	return cfg
}

// LoadConfig builds the configuration from defaults, an optional YAML file,
// environment overrides and finally command line flags, in that order of
// increasing precedence.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("limitbook", flag.ContinueOnError)
	configFile := fs.String("config", "", "Path to config file (YAML)")
	logLevel := fs.String("log_level", "", "Log level: debug, info, warn, error")
	logFormat := fs.String("log_format", "", "Log format: json, pretty")
	instrument := fs.String("instrument", "", "Instrument traded by the book")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := Default()

	if *configFile != "" {
		yamlFile, err := os.ReadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *instrument != "" {
		cfg.Book.Instrument = *instrument
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with every LIMITBOOK_* variable that is set
func applyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	keys := []string{
		"book.instrument", "book.level_capacity", "book.id_source",
		"log.level", "log.format",
		"kafka.enabled", "kafka.client", "kafka.brokers", "kafka.topic", "kafka.tail",
		"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.prefix", "redis.depth",
		"telemetry.enabled", "telemetry.endpoint", "telemetry.service_version", "telemetry.runtime_metrics",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setString := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	setInt := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	setBool := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}

	setString("book.instrument", &cfg.Book.Instrument)
	setInt("book.level_capacity", &cfg.Book.LevelCapacity)
	setString("book.id_source", &cfg.Book.IDSource)
	setString("log.level", &cfg.Log.Level)
	setString("log.format", &cfg.Log.Format)
	setBool("kafka.enabled", &cfg.Kafka.Enabled)
	setString("kafka.client", &cfg.Kafka.Client)
	setString("kafka.topic", &cfg.Kafka.Topic)
	setBool("kafka.tail", &cfg.Kafka.Tail)
	if v.IsSet("kafka.brokers") {
		cfg.Kafka.Brokers = splitList(v.GetString("kafka.brokers"))
	}
	setBool("redis.enabled", &cfg.Redis.Enabled)
	setString("redis.addr", &cfg.Redis.Addr)
	setString("redis.password", &cfg.Redis.Password)
	setInt("redis.db", &cfg.Redis.DB)
	setString("redis.prefix", &cfg.Redis.Prefix)
	setInt("redis.depth", &cfg.Redis.Depth)
	setBool("telemetry.enabled", &cfg.Telemetry.Enabled)
	setString("telemetry.endpoint", &cfg.Telemetry.Endpoint)
	setString("telemetry.service_version", &cfg.Telemetry.ServiceVersion)
	setBool("telemetry.runtime_metrics", &cfg.Telemetry.RuntimeMetrics)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects inconsistent configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Book.Instrument == "" {
		errs = append(errs, errors.New("book.instrument must not be empty"))
	}
	if c.Book.LevelCapacity < 0 {
		errs = append(errs, errors.New("book.level_capacity must not be negative"))
	}
	switch c.Book.IDSource {
	case IDSourceSequential, IDSourceRandom:
	default:
		errs = append(errs, fmt.Errorf("book.id_source %q must be %s or %s", c.Book.IDSource, IDSourceSequential, IDSourceRandom))
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or pretty", c.Log.Format))
	}

	if c.Kafka.Enabled {
		switch c.Kafka.Client {
		case KafkaClientSarama, KafkaClientKafkaGo:
		default:
			errs = append(errs, fmt.Errorf("kafka.client %q must be %s or %s", c.Kafka.Client, KafkaClientSarama, KafkaClientKafkaGo))
		}
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers must not be empty when kafka is enabled"))
		}
		if c.Kafka.Topic == "" {
			errs = append(errs, errors.New("kafka.topic must not be empty when kafka is enabled"))
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr must not be empty when redis is enabled"))
		}
		if c.Redis.Depth <= 0 {
			errs = append(errs, errors.New("redis.depth must be positive"))
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint must not be empty when telemetry is enabled"))
	}

	return errors.Join(errs...)
}
