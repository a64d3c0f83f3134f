package abcfile

import (
	"strings"

	"github.com/xyproto/env/v2"
)

// FaultPolicy selects what happens when an already-open container is
// dereferenced outside its bounds.
type FaultPolicy uint8

const (
	// FaultAbort logs the fault together with the stored and recomputed
	// checksum and terminates the process.
	FaultAbort FaultPolicy = iota

	// FaultPanic panics with an *AccessError so embedders can recover.
	FaultPanic
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultAbort:
		return "abort"
	case FaultPanic:
		return "panic"
	}
	return "unknown"
}

// ParseFaultPolicy accepts "abort" or "panic" (case-insensitive).
func ParseFaultPolicy(s string) (FaultPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort", "":
		return FaultAbort, true
	case "panic":
		return FaultPanic, true
	}
	return FaultAbort, false
}

const (
	// DefaultSecureRegionPath is consulted once per process the first time a
	// secure buffer is opened.
	DefaultSecureRegionPath = "/proc/self/xpm_region"

	defaultLookupMemoSize = 256
)

// Config is the process-wide configuration consumed by the Open entry points.
// The zero value is not useful; start from DefaultConfig or ConfigFromEnv.
type Config struct {
	// StrictVersion promotes advisory version warnings to hard rejections.
	StrictVersion bool

	// SecureRegionPath names the pseudo-file that reports the secure range.
	SecureRegionPath string

	// AccessFault selects the access-time fault behavior.
	AccessFault FaultPolicy

	// LookupMemoSize bounds the per-container ARC memo of class lookups.
	// Zero disables the memo.
	LookupMemoSize int
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		StrictVersion:    strictVersionDefault,
		SecureRegionPath: DefaultSecureRegionPath,
		AccessFault:      FaultAbort,
		LookupMemoSize:   defaultLookupMemoSize,
	}
}

// ConfigFromEnv overlays ABCFILE_* environment variables on DefaultConfig:
//
//	ABCFILE_STRICT_VERSION   bool
//	ABCFILE_SECURE_REGION    path of the secure-range pseudo-file
//	ABCFILE_ACCESS_FAULT     "abort" or "panic"
//	ABCFILE_LOOKUP_MEMO      memo entries per container
func ConfigFromEnv() Config {
	c := DefaultConfig()
	if env.Str("ABCFILE_STRICT_VERSION") != "" {
		c.StrictVersion = env.Bool("ABCFILE_STRICT_VERSION")
	}
	c.SecureRegionPath = env.Str("ABCFILE_SECURE_REGION", c.SecureRegionPath)
	if p, ok := ParseFaultPolicy(env.Str("ABCFILE_ACCESS_FAULT")); ok {
		c.AccessFault = p
	}
	c.LookupMemoSize = env.Int("ABCFILE_LOOKUP_MEMO", c.LookupMemoSize)
	return c
}

// Option customises a single Open call.
type Option func(*Config)

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option { return func(dst *Config) { *dst = c } }

// WithStrictVersion turns version incompatibility into a hard error.
func WithStrictVersion(strict bool) Option {
	return func(c *Config) { c.StrictVersion = strict }
}

// WithFaultPolicy sets the access-time fault behavior.
func WithFaultPolicy(p FaultPolicy) Option {
	return func(c *Config) { c.AccessFault = p }
}

// WithSecureRegionPath overrides the secure-range pseudo-file.
func WithSecureRegionPath(path string) Option {
	return func(c *Config) { c.SecureRegionPath = path }
}

// WithLookupMemo sets the per-container class lookup memo size.
func WithLookupMemo(n int) Option {
	return func(c *Config) { c.LookupMemoSize = n }
}

func buildConfig(opts []Option) Config {
	c := DefaultConfig()
	for _, o := range opts {
		o(&c)
	}
	return c
}
