package beat

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nebula-tasks/beat/internal/broker"
)

// Config is Beat's recognized option set, loadable from a TOML file.
type Config struct {
	Name string `toml:"name"`

	BrokerURL    string `toml:"broker_url"`
	DefaultQueue string `toml:"default_queue"`

	TaskRoutes []RouteConfig `toml:"task_routes"`

	BrokerConnectionTimeout    time.Duration `toml:"broker_connection_timeout"`
	BrokerConnectionRetry      bool          `toml:"broker_connection_retry"`
	BrokerConnectionMaxRetries int           `toml:"broker_connection_max_retries"`
	BrokerConnectionRetryDelay time.Duration `toml:"broker_connection_retry_delay"`

	TaskContentType string `toml:"task_content_type"`

	// MaxSleepDurationSeconds caps tick-to-tick sleep; zero means no cap.
	MaxSleepDurationSeconds int64 `toml:"max_sleep_duration_seconds"`
}

// RouteConfig is one (pattern, queue) routing rule as read from TOML.
type RouteConfig struct {
	Pattern string `toml:"pattern"`
	Queue   string `toml:"queue"`
}

// DefaultConfig returns a Config with every option at its documented
// default.
func DefaultConfig() Config {
	return Config{
		Name:                       "beat",
		DefaultQueue:               "celery",
		BrokerConnectionTimeout:    2 * time.Second,
		BrokerConnectionRetry:      true,
		BrokerConnectionMaxRetries: 5,
		BrokerConnectionRetryDelay: 5 * time.Second,
		TaskContentType:            string(broker.ContentTypeJSON),
	}
}

// LoadConfigFile decodes a TOML file into DefaultConfig's zero values,
// so an option absent from the file keeps its documented default.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("beat: read config %s: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("beat: decode config %s: %w", path, err)
	}
	return cfg, nil
}

// routes converts RouteConfig entries to broker.Rule.
func (c Config) routes() []broker.Rule {
	rules := make([]broker.Rule, len(c.TaskRoutes))
	for i, r := range c.TaskRoutes {
		rules[i] = broker.Rule{Pattern: r.Pattern, Queue: r.Queue}
	}
	return rules
}

func (c Config) maxSleepDuration() *time.Duration {
	if c.MaxSleepDurationSeconds <= 0 {
		return nil
	}
	d := time.Duration(c.MaxSleepDurationSeconds) * time.Second
	return &d
}
