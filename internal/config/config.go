// SPDX-License-Identifier: AGPL-3.0-or-later
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config is the daemon's immutable configuration. It is built once by Load
// and threaded explicitly into every component constructor — unlike the
// teacher's internal/config package, there is no process-wide GetConfig()
// singleton (spec.md §9 DESIGN NOTES calls this out explicitly).
type Config struct {
	Debug    bool     `yaml:"debug"`
	LogLevel LogLevel `yaml:"logLevel"`

	// Profiles is the set of Bluetooth profiles this daemon instance serves.
	Profiles []Profile `yaml:"profiles"`
	// AdapterFilter restricts the daemon to these adapter ids (hciN). Empty
	// means "serve every adapter the system Bluetooth daemon hands us".
	AdapterFilter []string `yaml:"adapterFilter"`

	DefaultA2DPCodec  CodecName `yaml:"defaultA2dpCodec"`
	SoftVolumeDefault bool      `yaml:"softVolumeDefault"`
	HFPRole           HFPRole   `yaml:"hfpRole"`

	RPC     RPC     `yaml:"rpc"`
	Metrics Metrics `yaml:"metrics"`
	PProf   PProf   `yaml:"pprof"`
	Redis   Redis   `yaml:"redis"`

	PubSub PubSubBackend `yaml:"pubsubBackend"`

	OTLPEndpoint string `yaml:"otlpEndpoint"`

	// StaleTransportReap is the interval of the periodic reaper, which on
	// each run releases the bt_fd of every A2DP transport whose PCM is not
	// open at that moment. Idle time is not tracked per transport.
	StaleTransportReap time.Duration `yaml:"staleTransportReap"`

	// RuntimeDir holds the per-PCM audio FIFOs and control sockets that
	// PCM1.Open hands clients a path to, in place of D-Bus's SCM_RIGHTS fd
	// passing (an HTTP method surface has no equivalent primitive).
	RuntimeDir string `yaml:"runtimeDir"`
}

// RPC is the bind address for the gin-based method surface (internal/rpc).
type RPC struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// Metrics is the bind address for the Prometheus exporter.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

// PProf is the bind address for the debug pprof server.
type PProf struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

// Redis configures the optional shared pubsub/kv backend.
type Redis struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
}

// Flags registers every CLI flag this daemon accepts onto fs, mirroring the
// teacher's cobra-driven flag set (cmd/root.go) but flowing into an explicit
// struct instead of environment-only lookups.
func Flags(fs *pflag.FlagSet) {
	fs.Bool("debug", false, "enable debug logging and pprof")
	fs.String("log-level", string(LogLevelInfo), "log level: debug, info, warn, error")
	fs.String("config", "", "optional YAML config file, merged under flags")

	fs.StringSlice("profile", []string{string(ProfileA2DPSource), string(ProfileA2DPSink)}, "Bluetooth profiles to serve (repeatable)")
	fs.StringSlice("adapter", nil, "restrict to these hci adapter ids (repeatable); empty serves all")

	fs.String("a2dp-codec", string(CodecSBC), "default A2DP codec: SBC, AAC, aptX, LDAC, MP3")
	fs.Bool("soft-volume", true, "apply volume in software by default")
	fs.String("hfp-role", string(HFPRoleGateway), "HFP/HSP role: gateway or handsfree")

	fs.String("rpc-bind", "127.0.0.1", "RPC method-surface bind address")
	fs.Int("rpc-port", 8765, "RPC method-surface port")

	fs.Bool("metrics-enabled", true, "expose Prometheus metrics")
	fs.String("metrics-bind", "127.0.0.1", "metrics bind address")
	fs.Int("metrics-port", 9090, "metrics port")

	fs.String("pprof-bind", "127.0.0.1", "pprof bind address")
	fs.Int("pprof-port", 6060, "pprof port")

	fs.Bool("redis-enabled", false, "back pubsub/kv with Redis instead of memory")
	fs.String("redis-host", "localhost", "Redis host")
	fs.Int("redis-port", 6379, "Redis port")
	fs.String("redis-password", "", "Redis password")

	fs.String("pubsub", string(PubSubBackendMemory), "pubsub backend: memory or redis")

	fs.String("otlp-endpoint", "", "OTLP trace collector endpoint (empty disables tracing)")

	fs.Duration("stale-transport-reap", 10*time.Minute, "interval at which bt_fd is released on A2DP transports whose PCM is not open")

	fs.String("runtime-dir", "/run/btaudiod", "directory for per-PCM audio FIFOs and control sockets")
}

// Load builds a Config from parsed flags, optionally merging a YAML file
// named by --config underneath them (flags win on conflict), then validates
// the result.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}

	if path, _ := fs.GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyFlag(fs, "debug", &cfg.Debug)
	applyStringFlag(fs, "log-level", (*string)(&cfg.LogLevel))

	if fs.Changed("profile") || len(cfg.Profiles) == 0 {
		names, err := fs.GetStringSlice("profile")
		if err != nil {
			return nil, fmt.Errorf("reading --profile: %w", err)
		}
		cfg.Profiles = cfg.Profiles[:0]
		for _, n := range names {
			cfg.Profiles = append(cfg.Profiles, Profile(strings.TrimSpace(n)))
		}
	}

	if fs.Changed("adapter") {
		adapters, err := fs.GetStringSlice("adapter")
		if err != nil {
			return nil, fmt.Errorf("reading --adapter: %w", err)
		}
		cfg.AdapterFilter = adapters
	}

	applyStringFlag(fs, "a2dp-codec", (*string)(&cfg.DefaultA2DPCodec))
	applyFlag(fs, "soft-volume", &cfg.SoftVolumeDefault)
	applyStringFlag(fs, "hfp-role", (*string)(&cfg.HFPRole))

	applyStringFlag(fs, "rpc-bind", &cfg.RPC.Bind)
	applyIntFlag(fs, "rpc-port", &cfg.RPC.Port)

	applyFlag(fs, "metrics-enabled", &cfg.Metrics.Enabled)
	applyStringFlag(fs, "metrics-bind", &cfg.Metrics.Bind)
	applyIntFlag(fs, "metrics-port", &cfg.Metrics.Port)

	applyFlag(fs, "debug", &cfg.PProf.Enabled)
	applyStringFlag(fs, "pprof-bind", &cfg.PProf.Bind)
	applyIntFlag(fs, "pprof-port", &cfg.PProf.Port)

	applyFlag(fs, "redis-enabled", &cfg.Redis.Enabled)
	applyStringFlag(fs, "redis-host", &cfg.Redis.Host)
	applyIntFlag(fs, "redis-port", &cfg.Redis.Port)
	applyStringFlag(fs, "redis-password", &cfg.Redis.Password)

	applyStringFlag(fs, "pubsub", (*string)(&cfg.PubSub))
	applyStringFlag(fs, "otlp-endpoint", &cfg.OTLPEndpoint)

	if fs.Changed("stale-transport-reap") || cfg.StaleTransportReap == 0 {
		d, err := fs.GetDuration("stale-transport-reap")
		if err != nil {
			return nil, fmt.Errorf("reading --stale-transport-reap: %w", err)
		}
		cfg.StaleTransportReap = d
	}

	applyStringFlag(fs, "runtime-dir", &cfg.RuntimeDir)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyFlag overwrites dst with the flag's value when the flag was set
// explicitly or dst is still at its zero value (so YAML-provided values
// survive when the flag was left at its default).
func applyFlag(fs *pflag.FlagSet, name string, dst *bool) {
	if fs.Changed(name) || !*dst {
		v, err := fs.GetBool(name)
		if err == nil {
			*dst = v
		}
	}
}

func applyStringFlag(fs *pflag.FlagSet, name string, dst *string) {
	if fs.Changed(name) || *dst == "" {
		v, err := fs.GetString(name)
		if err == nil && v != "" {
			*dst = v
		}
	}
}

func applyIntFlag(fs *pflag.FlagSet, name string, dst *int) {
	if fs.Changed(name) || *dst == 0 {
		v, err := fs.GetInt(name)
		if err == nil && v != 0 {
			*dst = v
		}
	}
}
