// Package config loads and validates the node's YAML configuration, with
// environment-variable overrides layered on top — the same two-stage
// load-then-override flow the rest of this codebase's ancestry uses.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"chordkv/internal/logger"

	"gopkg.in/yaml.v3"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// RegisterConfig controls optional Route53 self-registration of this
// node's address under a SRV record, so that later joiners can resolve a
// seed successor by DNS name instead of a literal host:port.
type RegisterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
}

// BootstrapConfig describes how the seed successor's address is obtained.
// Mode "static" uses SeedAddr verbatim; mode "dns" resolves SRVName via
// Route53.
type BootstrapConfig struct {
	Mode     string         `yaml:"mode"`
	SeedAddr string         `yaml:"seedAddr"`
	SRVName  string         `yaml:"srvName"`
	Register RegisterConfig `yaml:"register"`
}

// RingConfig is the ring-level parameter block: bit width and this node's
// assigned key slot ("node number" in the start-up positional contract).
type RingConfig struct {
	Bits     int    `yaml:"bits"`
	KeySlot  uint64 `yaml:"keySlot"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

type NodeConfig struct {
	Bind string `yaml:"bind"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	Ring      RingConfig      `yaml:"ring"`
	Node      NodeConfig      `yaml:"node"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig reads and parses a YAML configuration file. It performs only
// syntactic parsing; call ValidateConfig afterward.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides layers environment variables on top of a loaded
// configuration. Supported overrides:
//
//	NODE_BIND, NODE_HOST, NODE_PORT
//	RING_BITS, RING_KEY_SLOT
//	BOOTSTRAP_MODE, BOOTSTRAP_SEED_ADDR, BOOTSTRAP_SRV_NAME
//	REGISTER_ENABLED, REGISTER_ZONE_ID, REGISTER_SUFFIX, REGISTER_TTL
//	TRACE_ENABLED, TRACE_EXPORTER, TRACE_ENDPOINT
//	LOGGER_ENABLED, LOGGER_LEVEL, LOGGER_ENCODING, LOGGER_MODE, LOGGER_FILE_PATH
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_BIND"); v != "" {
		cfg.Node.Bind = v
	}
	if v := os.Getenv("NODE_HOST"); v != "" {
		cfg.Node.Host = v
	}
	if v := os.Getenv("NODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}
	if v := os.Getenv("RING_BITS"); v != "" {
		if bits, err := strconv.Atoi(v); err == nil {
			cfg.Ring.Bits = bits
		}
	}
	if v := os.Getenv("RING_KEY_SLOT"); v != "" {
		if slot, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Ring.KeySlot = slot
		}
	}
	if v := os.Getenv("BOOTSTRAP_MODE"); v != "" {
		cfg.Ring.Bootstrap.Mode = v
	}
	if v := os.Getenv("BOOTSTRAP_SEED_ADDR"); v != "" {
		cfg.Ring.Bootstrap.SeedAddr = v
	}
	if v := os.Getenv("BOOTSTRAP_SRV_NAME"); v != "" {
		cfg.Ring.Bootstrap.SRVName = v
	}
	if v := os.Getenv("REGISTER_ENABLED"); v != "" {
		cfg.Ring.Bootstrap.Register.Enabled = truthy(v)
	}
	if v := os.Getenv("REGISTER_ZONE_ID"); v != "" {
		cfg.Ring.Bootstrap.Register.HostedZoneID = v
	}
	if v := os.Getenv("REGISTER_SUFFIX"); v != "" {
		cfg.Ring.Bootstrap.Register.DomainSuffix = v
	}
	if v := os.Getenv("REGISTER_TTL"); v != "" {
		if ttl, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Ring.Bootstrap.Register.TTL = ttl
		}
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		cfg.Telemetry.Tracing.Enabled = truthy(v)
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
	if v := os.Getenv("LOGGER_ENABLED"); v != "" {
		cfg.Logger.Active = truthy(v)
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
}

func truthy(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// ValidateConfig performs structural validation. It checks presence and
// range, not ring-protocol semantics.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.Ring.Bits <= 0 || cfg.Ring.Bits > 63 {
		errs = append(errs, fmt.Sprintf("ring.bits must be in [1,63], got %d", cfg.Ring.Bits))
	}
	if cfg.Ring.Bits > 0 && cfg.Ring.KeySlot >= uint64(1)<<uint(cfg.Ring.Bits) {
		errs = append(errs, fmt.Sprintf("ring.keySlot %d out of range for ring.bits %d", cfg.Ring.KeySlot, cfg.Ring.Bits))
	}

	switch cfg.Ring.Bootstrap.Mode {
	case "static":
		if cfg.Ring.Bootstrap.SeedAddr != "" {
			if _, _, err := net.SplitHostPort(cfg.Ring.Bootstrap.SeedAddr); err != nil {
				errs = append(errs, fmt.Sprintf("invalid ring.bootstrap.seedAddr %q: %v", cfg.Ring.Bootstrap.SeedAddr, err))
			}
		}
	case "dns":
		if cfg.Ring.Bootstrap.SRVName == "" {
			errs = append(errs, "ring.bootstrap.srvName is required in mode=dns")
		}
	case "":
		// no seed configured: this node is the first in its ring.
	default:
		errs = append(errs, fmt.Sprintf("invalid ring.bootstrap.mode: %s (must be static, dns, or empty)", cfg.Ring.Bootstrap.Mode))
	}
	if cfg.Ring.Bootstrap.Register.Enabled {
		if cfg.Ring.Bootstrap.Register.HostedZoneID == "" {
			errs = append(errs, "ring.bootstrap.register.hostedZoneId is required when register.enabled=true")
		}
		if cfg.Ring.Bootstrap.Register.DomainSuffix == "" {
			errs = append(errs, "ring.bootstrap.register.domainSuffix is required when register.enabled=true")
		}
		if cfg.Ring.Bootstrap.Register.TTL <= 0 {
			errs = append(errs, "ring.bootstrap.register.ttl must be > 0 when register.enabled=true")
		}
	}

	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "jaeger", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if (cfg.Telemetry.Tracing.Exporter == "otlp" || cfg.Telemetry.Tracing.Exporter == "jaeger") && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, fmt.Sprintf("telemetry.tracing.endpoint is required for the %s exporter", cfg.Telemetry.Tracing.Exporter))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.file.path", cfg.Logger.File.Path),

		logger.F("ring.bits", cfg.Ring.Bits),
		logger.F("ring.keySlot", cfg.Ring.KeySlot),
		logger.F("ring.bootstrap.mode", cfg.Ring.Bootstrap.Mode),
		logger.F("ring.bootstrap.seedAddr", cfg.Ring.Bootstrap.SeedAddr),
		logger.F("ring.bootstrap.srvName", cfg.Ring.Bootstrap.SRVName),
		logger.F("ring.bootstrap.register.enabled", cfg.Ring.Bootstrap.Register.Enabled),

		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.host", cfg.Node.Host),
		logger.F("node.port", cfg.Node.Port),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
