package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Service identifies which binary the configuration is being loaded for.
// Defaults (listen port, database name, consumer group, migrations path)
// differ per service; everything can still be overridden via environment.
type Service string

const (
	ServiceAppointments Service = "appointments"
	ServiceDetails      Service = "details"
	ServiceSearch       Service = "search"
)

// Config aggregates all runtime settings required by a service.
type Config struct {
	AppName     string
	Service     Service
	Environment string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Broker      BrokerConfig
	AI          AIConfig
	Dedupe      DedupeConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// BrokerConfig names the event stream and this service's consumer group.
// The stream acts as the broadcast topic: every group bound to it receives
// every event, while consumers inside one group compete for entries.
type BrokerConfig struct {
	Stream          string
	Group           string
	Consumer        string
	Block           time.Duration
	ReclaimAfter    time.Duration
	ReclaimInterval time.Duration
}

// AIConfig configures the text-generation collaborator. A zero Timeout
// preserves the default contract of blocking the consume loop until the
// call resolves.
type AIConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

type DedupeConfig struct {
	Path string
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

type serviceDefaults struct {
	port       string
	database   string
	group      string
	migrations string
}

var defaults = map[Service]serviceDefaults{
	ServiceAppointments: {port: "3000", database: "appointments_db", group: "appointments-service", migrations: "./assets/migrations/appointments"},
	ServiceDetails:      {port: "4000", database: "details_db", group: "details-service", migrations: "./assets/migrations/details"},
	ServiceSearch:       {port: "5000", database: "search_db", group: "search-service", migrations: "./assets/migrations/search"},
}

// Load reads configuration from environment variables (optionally .env)
// and applies per-service defaults so each binary can boot in any environment.
func Load(service Service) (*Config, error) {
	_ = godotenv.Load(".env")

	def, ok := defaults[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = string(service)
	}

	cfg := &Config{
		AppName:     getString("APP_NAME", "agenda-"+string(service)),
		Service:     service,
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", def.port),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", def.database),
			User:            getString("DB_USER", "agenda_user"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Broker: BrokerConfig{
			Stream:          getString("BROKER_STREAM", "agenda.events"),
			Group:           getString("BROKER_GROUP", def.group),
			Consumer:        getString("BROKER_CONSUMER", hostname),
			Block:           getDuration("BROKER_BLOCK", 5*time.Second),
			ReclaimAfter:    getDuration("BROKER_RECLAIM_AFTER", time.Minute),
			ReclaimInterval: getDuration("BROKER_RECLAIM_INTERVAL", 30*time.Second),
		},
		AI: AIConfig{
			APIKey:    os.Getenv("OPENAI_KEY"),
			Model:     getString("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:   getString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			MaxTokens: getInt("OPENAI_MAX_TOKENS", 40),
			Timeout:   getDuration("OPENAI_TIMEOUT", 0),
		},
		Dedupe: DedupeConfig{
			Path: getString("DEDUPE_PATH", fmt.Sprintf("./data/%s-dedupe.db", service)),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", def.migrations),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	return cfg, nil
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
