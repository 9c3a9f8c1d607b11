package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port string `envconfig:"PORT" default:"80"`

	Store             string `envconfig:"STORE" default:"mongo"`
	MongoConnString   string `envconfig:"MONGODB_CONNSTRING"`
	MongoDatabase     string `envconfig:"MONGODB_DATABASE" default:"ticketing"`
	MongoTransactions bool   `envconfig:"MONGODB_TRANSACTIONS" default:"false"`
	LocalDBPath       string `envconfig:"LOCAL_DB_PATH"`

	SigningKey string        `envconfig:"SIGN" required:"true"`
	TokenTTL   time.Duration `envconfig:"TOKEN_TTL" default:"8h"`

	// MaxTicketsPerEvent caps restocks; zero leaves inventory unbounded.
	MaxTicketsPerEvent int    `envconfig:"MAX_TICKETS_PER_EVENT" default:"0"`
	AnalyticsPricing   string `envconfig:"ANALYTICS_PRICING" default:"current"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"ticketing.events"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment  string `envconfig:"SERVICE_ENV" default:"dev"`
}

// LoadDotEnv reads a .env file when one exists. Variables already present in
// the environment are kept.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %v: %w", path, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}

	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	switch c.Store {
	case StoreMongo:
		if c.MongoConnString == "" {
			return Config{}, fmt.Errorf("no env variable with key MONGODB_CONNSTRING, required for store %q", StoreMongo)
		}
	case StoreMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORE %q, expected %q or %q", c.Store, StoreMongo, StoreMemory)
	}

	if c.MaxTicketsPerEvent < 0 {
		return Config{}, fmt.Errorf("MAX_TICKETS_PER_EVENT must not be negative")
	}
	if c.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive")
	}

	return c, nil
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}
