package ernie

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultListen            = ":8000"          // default listen address.
	DefaultListenRetryDelay  = 5 * time.Second  // delay between bind attempts.
	DefaultListenRetryLimit  = 500              // bind attempts before giving up.
	DefaultReadTimeout       = 0 * time.Second  // no client read deadline by default.
	DefaultWriteTimeout      = 5 * time.Second  // maximum duration for client writes.
	DefaultShutdownTimeout   = 5 * time.Second  // grace period for shutdown wait.
	DefaultKeepAliveInterval = 30 * time.Second // interval for TCP keepalive probes.
)

// PoolConfig describes one worker pool: its identifier, the worker addresses
// backing it, and the modules it serves.
type PoolConfig struct {
	ID      string   `json:"id"`
	Workers []string `json:"workers"`
	Modules []string `json:"modules"`
}

// ServerConfig carries tunables for the gateway server.
type ServerConfig struct {
	ListenRetryDelay  time.Duration   // delay between failed bind attempts.
	ListenRetryLimit  int             // bind attempts before startup fails.
	ReadTimeout       time.Duration   // per-frame client read deadline; 0 disables.
	WriteTimeout      time.Duration   // client response write deadline.
	ShutdownTimeout   time.Duration   // grace period for connection drain on Stop.
	KeepAliveInterval time.Duration   // TCP keepalive period for client conns.
	Logger            *zerolog.Logger // optional logger; Nop when unset.
}

func (c *ServerConfig) applyDefaults() {
	if c.ListenRetryDelay == 0 {
		c.ListenRetryDelay = DefaultListenRetryDelay
	}

	if c.ListenRetryLimit == 0 {
		c.ListenRetryLimit = DefaultListenRetryLimit
	}

	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}

	if c.KeepAliveInterval == 0 {
		c.KeepAliveInterval = DefaultKeepAliveInterval
	}
}

// Config is the on-disk configuration for the ernie binary.
type Config struct {
	Listen              string       `json:"listen"`
	Pools               []PoolConfig `json:"pools"`
	WriteTimeoutSeconds int          `json:"write_timeout_seconds,omitempty"`
	ReadTimeoutSeconds  int          `json:"read_timeout_seconds,omitempty"`
	WorkerTimeoutSecs   int          `json:"worker_timeout_seconds,omitempty"`
}

// LoadConfig reads and validates a JSON configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if len(c.Pools) == 0 {
		return nil, errors.New("configuration declares no pools")
	}
	for _, p := range c.Pools {
		if p.ID == "" {
			return nil, errors.New("pool with empty id")
		}
		if len(p.Modules) == 0 {
			return nil, fmt.Errorf("pool %s serves no modules", p.ID)
		}
	}

	return &c, nil
}

// WriteTimeout returns the configured client write timeout.
func (c *Config) WriteTimeout() time.Duration {
	if c.WriteTimeoutSeconds > 0 {
		return time.Duration(c.WriteTimeoutSeconds) * time.Second
	}
	return DefaultWriteTimeout
}

// ReadTimeout returns the configured client read timeout; zero disables it.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WorkerTimeout returns the configured worker response timeout.
func (c *Config) WorkerTimeout() time.Duration {
	if c.WorkerTimeoutSecs > 0 {
		return time.Duration(c.WorkerTimeoutSecs) * time.Second
	}
	return 30 * time.Second
}
