// Package config exposes typed, read-only access to service settings.
//
// Values come from a YAML file, optionally overridden by environment variables
// prefixed with COURSEPULSE_ (dots become underscores). A .env file next to the
// binary is loaded first when present.
package config

import (
	"io"
	"time"
)

// DurationConfig reads integer settings as durations of a fixed unit.
type DurationConfig interface {
	// GetMillisecond reads key as a count of milliseconds.
	GetMillisecond(key string) time.Duration
	// GetSecond reads key as a count of seconds.
	GetSecond(key string) time.Duration
	// GetMinute reads key as a count of minutes.
	GetMinute(key string) time.Duration
	// GetDay reads key as a count of 24h days.
	GetDay(key string) time.Duration
}

// Config is the settings surface the service depends on. Missing keys yield
// zero values; callers apply their own defaults.
type Config interface {
	io.Closer
	DurationConfig

	GetInt(key string) int
	GetInt64(key string) int64
	GetUint32(key string) uint32
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetString(key string) string

	// GetArray reads "a,b,c" (or a YAML list) into trimmed, non-empty elements.
	GetArray(key string) []string

	// GetIntArray reads "50,100" (or a YAML list) and skips elements that are
	// not integers.
	GetIntArray(key string) []int

	// GetMap reads "k1:v1,k2:v2" into a map.
	GetMap(key string) map[string]string
}
