package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can use "500ms" style values.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"`

	MySQL struct {
		DSN          string        `yaml:"dsn"`
		MaxOpenConns int           `yaml:"max_open_conns"`
		MaxIdleConns int           `yaml:"max_idle_conns"`
		ConnLifetime Duration `yaml:"conn_lifetime"`
	} `yaml:"mysql"`

	Redis struct {
		Addr     string `yaml:"addr"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`

	Order struct {
		MaxRetries  int      `yaml:"max_retries"`
		BackoffBase Duration `yaml:"backoff_base"`
		BackoffMax  Duration `yaml:"backoff_max"`
	} `yaml:"order"`

	// AuthTokens maps bearer tokens to caller identities for the static
	// identity gate.
	AuthTokens map[string]string `yaml:"auth_tokens"`
}

func defaults() Config {
	var cfg Config
	cfg.HTTPAddr = ":8080"
	cfg.GRPCAddr = ":50051"
	cfg.MySQL.DSN = "root:root@tcp(localhost:3306)/invorder?parseTime=true"
	cfg.MySQL.MaxOpenConns = 50
	cfg.MySQL.MaxIdleConns = 25
	cfg.MySQL.ConnLifetime = Duration(5 * time.Minute)
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.PoolSize = 100
	cfg.Kafka.Topic = "order-events"
	cfg.Order.MaxRetries = 5
	cfg.Order.BackoffBase = Duration(10 * time.Millisecond)
	cfg.Order.BackoffMax = Duration(500 * time.Millisecond)
	return cfg
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides. A missing file is not an error; defaults plus env are enough
// for local runs.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = getEnv("GRPC_ADDR", cfg.GRPCAddr)
	cfg.MySQL.DSN = getEnv("MYSQL_DSN", cfg.MySQL.DSN)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = []string{v}
	}
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)
	if v := os.Getenv("ORDER_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse ORDER_MAX_RETRIES: %w", err)
		}
		cfg.Order.MaxRetries = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
