// SPDX-License-Identifier: AGPL-3.0-or-later
package config

// LogLevel controls the minimum slog level emitted by the daemon.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Profile is a Bluetooth audio profile the daemon may serve on an adapter.
type Profile string

const (
	ProfileA2DPSource Profile = "a2dp-source"
	ProfileA2DPSink   Profile = "a2dp-sink"
	ProfileHFPAG      Profile = "hfp-ag"
	ProfileHFPHF      Profile = "hfp-hf"
	ProfileHSPAG      Profile = "hsp-ag"
	ProfileHSPHS      Profile = "hsp-hs"
)

// HasAnyProfile reports whether any of the given profiles are enabled in
// this configuration.
func (c *Config) HasAnyProfile(profiles ...Profile) bool {
	for _, want := range profiles {
		for _, p := range c.Profiles {
			if p == want {
				return true
			}
		}
	}
	return false
}

// HFPRole selects which side of the hands-free protocol this daemon plays.
type HFPRole string

const (
	HFPRoleGateway   HFPRole = "gateway"   // AG: daemon is the phone/computer
	HFPRoleHandsFree HFPRole = "handsfree" // HF: daemon is the headset
)

// CodecName identifies a codec adapter by its on-wire/RPC name.
type CodecName string

const (
	CodecCVSD CodecName = "CVSD"
	CodecSBC  CodecName = "SBC"
	CodecMSBC CodecName = "mSBC"
	CodecAAC  CodecName = "AAC"
	CodecAptX CodecName = "aptX"
	CodecLDAC CodecName = "LDAC"
	CodecMP3  CodecName = "MP3"
)

// PubSubBackend selects the transport for internal/pubsub.
type PubSubBackend string

const (
	PubSubBackendMemory PubSubBackend = "memory"
	PubSubBackendRedis  PubSubBackend = "redis"
)
