package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aq2208/gorder-bridge/internal/adapter/queue"
	domain "github.com/aq2208/gorder-bridge/internal/entity"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	SinkLog   = "log"
	SinkKafka = "kafka"
	SinkRedis = "redis"
	SinkMySQL = "mysql"
)

type Route struct {
	RoutingKey string `koanf:"routing_key"`
	Sink       string `koanf:"sink"`
}

type Config struct {
	App struct {
		Name            string        `koanf:"name"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"app"`

	Log struct {
		Level      string `koanf:"level"`
		File       string `koanf:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups"`
		MaxAgeDays int    `koanf:"max_age_days"`
		LogBodies  bool   `koanf:"log_bodies"`
	} `koanf:"log"`

	Rabbit struct {
		URL                string   `koanf:"url"`
		Queue              string   `koanf:"queue"`
		Exchange           string   `koanf:"exchange"`
		ExchangeKind       string   `koanf:"exchange_kind"`
		RoutingKeys        []string `koanf:"routing_keys"`
		DeadLetterExchange string   `koanf:"dead_letter_exchange"`
		QueueType          string   `koanf:"queue_type"`
		ConsumerTag        string   `koanf:"consumer_tag"`
		MaxDeliveries      int      `koanf:"max_deliveries"`
	} `koanf:"rabbitmq"`

	Sink struct {
		Default string  `koanf:"default"`
		Routes  []Route `koanf:"routes"`
	} `koanf:"sink"`

	Kafka struct {
		Brokers  []string `koanf:"brokers"`
		Topic    string   `koanf:"topic"`
		ClientID string   `koanf:"client_id"`
	} `koanf:"kafka"`

	Redis struct {
		Addr         string `koanf:"addr"`
		Password     string `koanf:"password"`
		DB           int    `koanf:"db"`
		StreamPrefix string `koanf:"stream_prefix"`
		StreamMaxLen int64  `koanf:"stream_max_len"`
	} `koanf:"redis"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"mysql"`

	Ops struct {
		HTTPAddr string `koanf:"http_addr"`
		GRPCAddr string `koanf:"grpc_addr"`
	} `koanf:"ops"`
}

// list-valued keys that may be given as comma separated env values
var listKeys = map[string]bool{
	"rabbitmq.routing_keys": true,
	"kafka.brokers":         true,
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables override (prefix BRIDGE_, nested with __)
	// e.g. BRIDGE_RABBITMQ__URL, BRIDGE_RABBITMQ__ROUTING_KEYS=order.created,order.cancelled
	if err := k.Load(env.ProviderWithValue("BRIDGE_", ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(key, "BRIDGE_")
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		if listKeys[key] {
			parts := strings.Split(value, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return key, out
		}
		return key, value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "gorder-bridge"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 10 * time.Second
	}
	if c.Rabbit.ExchangeKind == "" {
		c.Rabbit.ExchangeKind = string(queue.ExchangeTopic)
	}
	if c.Sink.Default == "" {
		c.Sink.Default = SinkLog
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = c.App.Name
	}
	if c.Redis.StreamPrefix == "" {
		c.Redis.StreamPrefix = "bridge:"
	}
}

// BrokerConfig converts the rabbitmq section into the topology description.
func (c Config) BrokerConfig() (queue.BrokerConfig, error) {
	kind, err := queue.ParseExchangeKind(c.Rabbit.ExchangeKind)
	if err != nil {
		return queue.BrokerConfig{}, err
	}
	keys := make([]string, len(c.Rabbit.RoutingKeys))
	copy(keys, c.Rabbit.RoutingKeys)
	return queue.BrokerConfig{
		QueueName:          c.Rabbit.Queue,
		ExchangeName:       c.Rabbit.Exchange,
		ExchangeKind:       kind,
		RoutingKeys:        keys,
		DeadLetterExchange: c.Rabbit.DeadLetterExchange,
		QueueType:          c.Rabbit.QueueType,
	}, nil
}

// SinkKinds lists every sink kind referenced by the default or a route.
func (c Config) SinkKinds() []string {
	seen := map[string]bool{c.Sink.Default: true}
	out := []string{c.Sink.Default}
	for _, r := range c.Sink.Routes {
		if !seen[r.Sink] {
			seen[r.Sink] = true
			out = append(out, r.Sink)
		}
	}
	return out
}

func (c Config) Validate() error {
	if c.Rabbit.URL == "" {
		return errors.New("rabbitmq.url required")
	}
	bc, err := c.BrokerConfig()
	if err != nil {
		return fmt.Errorf("rabbitmq.exchange_kind: %w", err)
	}
	if err := bc.Validate(); err != nil {
		return fmt.Errorf("rabbitmq: %w", err)
	}
	for _, key := range bc.RoutingKeys {
		if !bindingMatches(bc.ExchangeKind, key) {
			return fmt.Errorf("rabbitmq.routing_keys: %q matches no recognized routing key", key)
		}
	}
	if c.Rabbit.MaxDeliveries < 0 {
		return errors.New("rabbitmq.max_deliveries must be >= 0")
	}
	for _, r := range c.Sink.Routes {
		if _, err := domain.DecodeRoutingKey(r.RoutingKey); err != nil {
			return fmt.Errorf("sink.routes: %w", err)
		}
	}
	for _, kind := range c.SinkKinds() {
		switch kind {
		case SinkLog:
		case SinkKafka:
			if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
				return errors.New("kafka.brokers and kafka.topic required by kafka sink")
			}
		case SinkRedis:
			if c.Redis.Addr == "" {
				return errors.New("redis.addr required by redis sink")
			}
		case SinkMySQL:
			if c.MySQL.DSN == "" {
				return errors.New("mysql.dsn required by mysql sink")
			}
		default:
			return fmt.Errorf("unknown sink %q", kind)
		}
	}
	return nil
}

// bindingMatches reports whether a binding key can route at least one
// recognized routing key to the queue. Fanout and headers exchanges ignore
// the key.
func bindingMatches(kind queue.ExchangeKind, binding string) bool {
	if kind != queue.ExchangeDirect && kind != queue.ExchangeTopic {
		return true
	}
	for _, k := range domain.RoutingKeys() {
		if kind == queue.ExchangeDirect && binding == k.String() {
			return true
		}
		if kind == queue.ExchangeTopic && topicMatch(strings.Split(binding, "."), strings.Split(k.String(), ".")) {
			return true
		}
	}
	return false
}

// topicMatch applies AMQP topic rules: "*" is exactly one word, "#" is zero
// or more.
func topicMatch(pattern, words []string) bool {
	if len(pattern) == 0 {
		return len(words) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(words); i++ {
			if topicMatch(pattern[1:], words[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(words) > 0 && topicMatch(pattern[1:], words[1:])
	}
	return len(words) > 0 && pattern[0] == words[0] && topicMatch(pattern[1:], words[1:])
}
