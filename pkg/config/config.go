// Package config provides configuration management for the ledger server and
// the sync CLI. Values come from built-in defaults, an optional YAML file, a
// .env file and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Event sink names accepted in EVENTS_SINKS.
const (
	SinkLog     = "log"
	SinkJournal = "journal"
	SinkKafka   = "kafka"
	SinkAMQP    = "amqp"
)

// Config represents the application configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Events EventsConfig `yaml:"events"`
	Sync   SyncConfig   `yaml:"sync"`
}

// ServerConfig represents the HTTP gateway configuration.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	GraphQLMaxDepth int           `yaml:"graphql_max_depth"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level string `yaml:"level"`
}

// EventsConfig represents event dispatcher configuration.
type EventsConfig struct {
	Sinks          []string `yaml:"sinks"`
	Buffer         int      `yaml:"buffer"`
	JournalPath    string   `yaml:"journal_path"`
	KafkaBrokers   []string `yaml:"kafka_brokers"`
	KafkaTopic     string   `yaml:"kafka_topic"`
	AMQPURL        string   `yaml:"amqp_url"`
	AMQPExchange   string   `yaml:"amqp_exchange"`
	AMQPRoutingKey string   `yaml:"amqp_routing_key"`
}

// SyncConfig represents ledger-sync configuration.
type SyncConfig struct {
	APIURL string `yaml:"api_url"`
	DBPath string `yaml:"db_path"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:3001"},
			RequestTimeout:  30 * time.Second,
			GraphQLMaxDepth: 10,
		},
		Log: LogConfig{Level: "info"},
		Events: EventsConfig{
			Buffer:         256,
			JournalPath:    "./data/journal.db",
			KafkaTopic:     "ledger-events",
			AMQPExchange:   "ledger",
			AMQPRoutingKey: "ledger.events",
		},
		Sync: SyncConfig{
			APIURL: "http://localhost:8080",
			DBPath: "./data/ledger-sync.db",
		},
	}
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
// If LEDGER_CONFIG_FILE names a YAML file, it is applied before the
// environment.
func Load(envPath ...string) (*Config, error) {
	// Load .env file
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := Default()

	if path := os.Getenv("LEDGER_CONFIG_FILE"); path != "" {
		if err := config.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnvOrDefault("PORT", c.Server.Port)
	c.Server.CORSOrigins = parseListEnv("CORS_ORIGINS", c.Server.CORSOrigins)

	var err error
	if c.Server.RequestTimeout, err = parseDurationEnv("REQUEST_TIMEOUT", c.Server.RequestTimeout); err != nil {
		return err
	}
	if c.Server.GraphQLMaxDepth, err = parseIntEnv("GRAPHQL_MAX_DEPTH", c.Server.GraphQLMaxDepth); err != nil {
		return err
	}

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)

	c.Events.Sinks = parseListEnv("EVENTS_SINKS", c.Events.Sinks)
	if c.Events.Buffer, err = parseIntEnv("EVENTS_BUFFER", c.Events.Buffer); err != nil {
		return err
	}
	c.Events.JournalPath = getEnvOrDefault("JOURNAL_PATH", c.Events.JournalPath)
	c.Events.KafkaBrokers = parseListEnv("KAFKA_BROKERS", c.Events.KafkaBrokers)
	c.Events.KafkaTopic = getEnvOrDefault("KAFKA_TOPIC", c.Events.KafkaTopic)
	c.Events.AMQPURL = getEnvOrDefault("AMQP_URL", c.Events.AMQPURL)
	c.Events.AMQPExchange = getEnvOrDefault("AMQP_EXCHANGE", c.Events.AMQPExchange)
	c.Events.AMQPRoutingKey = getEnvOrDefault("AMQP_ROUTING_KEY", c.Events.AMQPRoutingKey)

	c.Sync.APIURL = getEnvOrDefault("LEDGER_API_URL", c.Sync.APIURL)
	c.Sync.DBPath = getEnvOrDefault("SYNC_DB_PATH", c.Sync.DBPath)

	return nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "server":
			switch path[1] {
			case "port":
				value = c.Server.Port
			}
		case "events":
			switch path[1] {
			case "journalPath":
				value = c.Events.JournalPath
			case "kafkaBrokers":
				value = strings.Join(c.Events.KafkaBrokers, ",")
			case "kafkaTopic":
				value = c.Events.KafkaTopic
			case "amqpUrl":
				value = c.Events.AMQPURL
			case "amqpExchange":
				value = c.Events.AMQPExchange
			}
		case "sync":
			switch path[1] {
			case "apiUrl":
				value = c.Sync.APIURL
			case "dbPath":
				value = c.Sync.DBPath
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// SinkRequirements returns the configuration paths each enabled sink needs,
// or an error naming an unknown sink.
func (c *Config) SinkRequirements() ([][]string, error) {
	var required [][]string
	for _, sink := range c.Events.Sinks {
		switch sink {
		case SinkLog:
		case SinkJournal:
			required = append(required, []string{"events", "journalPath"})
		case SinkKafka:
			required = append(required, []string{"events", "kafkaBrokers"}, []string{"events", "kafkaTopic"})
		case SinkAMQP:
			required = append(required, []string{"events", "amqpUrl"}, []string{"events", "amqpExchange"})
		default:
			return nil, fmt.Errorf("unknown event sink %q (want %s, %s, %s or %s)", sink, SinkLog, SinkJournal, SinkKafka, SinkAMQP)
		}
	}
	return required, nil
}

// SlogLevel returns the slog level named by Level. Unknown names map to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an int from an environment variable.
// Returns defaultValue if the environment variable is not set.
func parseIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %s", key, value)
	}

	return parsed, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value for %s: %s", key, value)
	}

	return parsed, nil
}

// parseListEnv splits a comma-separated environment variable, dropping
// empty items.
func parseListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
