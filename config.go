// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package goldmine

import (
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/goldmine/config/game"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	gameConfig      *game.GameConfig
	gameConfigFile  string
	dataDir         string
	tracing         bool
	tracingStdout   bool
	shutdownTimeout time.Duration
	// Session synchronizer intervals (0 = package defaults)
	sessionPollInterval time.Duration
	countdownInterval   time.Duration
	// Simulated transaction confirmation delay
	confirmDelay time.Duration
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new goldmine config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithGameConfig specifies a pre-loaded game config to use. This overrides
// any game config file specified
func WithGameConfig(gameConfig *game.GameConfig) ConfigOptionFunc {
	return func(c *Config) {
		c.gameConfig = gameConfig
	}
}

// WithGameConfigFile specifies a YAML file to load level, material, and
// pickaxe definitions from. The default is the built-in definitions
func WithGameConfigFile(path string) ConfigOptionFunc {
	return func(c *Config) {
		c.gameConfigFile = path
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}

// WithSessionPollInterval specifies how often player synchronizers re-read
// session state from the ledger. The default is 10 seconds
func WithSessionPollInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.sessionPollInterval = interval
	}
}

// WithCountdownInterval specifies the local session countdown resolution.
// The default is 1 second
func WithCountdownInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.countdownInterval = interval
	}
}

// WithConfirmDelay specifies the simulated delay between transaction
// broadcast and confirmation. The default is no delay
func WithConfirmDelay(delay time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.confirmDelay = delay
	}
}
