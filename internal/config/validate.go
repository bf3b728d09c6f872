// SPDX-License-Identifier: AGPL-3.0-or-later
package config

import "errors"

var (
	ErrInvalidLogLevel       = errors.New("invalid log level provided")
	ErrNoProfilesEnabled     = errors.New("at least one profile must be enabled")
	ErrInvalidHFPRole        = errors.New("invalid HFP/HSP role provided")
	ErrInvalidDefaultCodec   = errors.New("invalid default codec provided")
	ErrInvalidRPCBind        = errors.New("invalid RPC bind address provided")
	ErrInvalidRPCPort        = errors.New("invalid RPC port provided")
	ErrInvalidMetricsBind    = errors.New("invalid metrics bind address provided")
	ErrInvalidMetricsPort    = errors.New("invalid metrics port provided")
	ErrInvalidRedisHost      = errors.New("invalid Redis host provided")
	ErrInvalidRedisPort      = errors.New("invalid Redis port provided")
	ErrInvalidPubSubBackend  = errors.New("invalid pubsub backend provided")
	ErrInvalidStaleTransport = errors.New("invalid stale transport reap interval provided")
	ErrInvalidRuntimeDir     = errors.New("invalid runtime directory provided")
)

// Validate validates the RPC surface configuration.
func (r RPC) Validate() error {
	if r.Bind == "" {
		return ErrInvalidRPCBind
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRPCPort
	}
	return nil
}

// Validate validates the metrics server configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBind
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the Redis-backed pubsub/kv configuration.
func (r Redis) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Host == "" {
		return ErrInvalidRedisHost
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRedisPort
	}
	return nil
}

// Validate checks the whole configuration, returning the first error found.
func (c Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return ErrInvalidLogLevel
	}

	if len(c.Profiles) == 0 {
		return ErrNoProfilesEnabled
	}

	switch c.HFPRole {
	case HFPRoleGateway, HFPRoleHandsFree:
	default:
		return ErrInvalidHFPRole
	}

	switch c.DefaultA2DPCodec {
	case CodecSBC, CodecAAC, CodecAptX, CodecLDAC, CodecMP3:
	default:
		return ErrInvalidDefaultCodec
	}

	if err := c.RPC.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}

	switch c.PubSub {
	case PubSubBackendMemory, PubSubBackendRedis:
	default:
		return ErrInvalidPubSubBackend
	}
	if c.PubSub == PubSubBackendRedis && !c.Redis.Enabled {
		return ErrInvalidRedisHost
	}

	if c.StaleTransportReap <= 0 {
		return ErrInvalidStaleTransport
	}

	if c.RuntimeDir == "" {
		return ErrInvalidRuntimeDir
	}

	return nil
}
