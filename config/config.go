// Package config defines the broker's configuration surface and a YAML
// loader, following the teacher's Options/Capabilities struct
// convention.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerOptions covers the network-facing knobs.
type ServerOptions struct {
	Host              string `yaml:"host" json:"host"`
	Port              int    `yaml:"port" json:"port"`
	WebsocketPort     int    `yaml:"websocketPort" json:"websocketPort"`
	MaxConnections    int    `yaml:"maxConnections" json:"maxConnections"`
	KeepAliveTimeout  int    `yaml:"keepAliveTimeout" json:"keepAliveTimeout"`
}

// SecurityOptions covers TLS and authentication requirements.
type SecurityOptions struct {
	EnableTLS   bool   `yaml:"enableTLS" json:"enableTLS"`
	CertFile    string `yaml:"certFile" json:"certFile"`
	KeyFile     string `yaml:"keyFile" json:"keyFile"`
	RequireAuth bool   `yaml:"requireAuth" json:"requireAuth"`
}

// PersistenceOptions selects and configures the PersistentStore backend.
type PersistenceOptions struct {
	Enabled              bool   `yaml:"enabled" json:"enabled"`
	StorageType          string `yaml:"storageType" json:"storageType"` // memory, bbolt, badger, pebble, redis
	Path                 string `yaml:"path" json:"path"`
	RedisAddr            string `yaml:"redisAddr" json:"redisAddr"`
	RetainedMessageLimit int    `yaml:"retainedMessageLimit" json:"retainedMessageLimit"`
	SessionExpiryInterval int   `yaml:"sessionExpiryInterval" json:"sessionExpiryInterval"`
}

// PerformanceOptions covers resource caps for the delivery engine.
type PerformanceOptions struct {
	MessageQueueLimit  int           `yaml:"messageQueueLimit" json:"messageQueueLimit"`
	InflightWindowSize int           `yaml:"inflightWindowSize" json:"inflightWindowSize"`
	WorkerThreads      int           `yaml:"workerThreads" json:"workerThreads"`
	RetryInterval      time.Duration `yaml:"retryInterval" json:"retryInterval"`
	MaxRetries         int           `yaml:"maxRetries" json:"maxRetries"`
}

// Options is the top-level configuration for a broker.Server.
type Options struct {
	Server      ServerOptions      `yaml:"server" json:"server"`
	Security    SecurityOptions    `yaml:"security" json:"security"`
	Persistence PersistenceOptions `yaml:"persistence" json:"persistence"`
	Performance PerformanceOptions `yaml:"performance" json:"performance"`
}

// Default returns the broker's default configuration.
func Default() *Options {
	return &Options{
		Server: ServerOptions{
			Host:             "0.0.0.0",
			Port:             1883,
			WebsocketPort:    2883,
			MaxConnections:   0,
			KeepAliveTimeout: 60,
		},
		Persistence: PersistenceOptions{
			StorageType:           "memory",
			RetainedMessageLimit:  0,
			SessionExpiryInterval: 3600,
		},
		Performance: PerformanceOptions{
			MessageQueueLimit:  100,
			InflightWindowSize: 20,
			RetryInterval:      5 * time.Second,
			MaxRetries:         3,
		},
	}
}

// Load reads and parses a YAML configuration file, applying it on top of
// Default().
func Load(path string) (*Options, error) {
	opts := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, opts); err != nil {
		return nil, err
	}
	return opts, nil
}
