// Package config holds the on-disk and environment configuration of the
// extraction engine and its server.
package config

import (
	"time"

	"gopkg.in/yaml.v3"

	"pycall/internal/observability"
	"pycall/internal/parser"
	"pycall/internal/token"
)

// Config is the full engine configuration.
type Config struct {
	Limits  LimitsConfig  `yaml:"limits"`
	Dialect DialectConfig `yaml:"dialect"`
	Extract ExtractConfig `yaml:"extract"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`

	Metrics observability.MetricsConfig `yaml:"metrics"`
	Tracing observability.TracingConfig `yaml:"tracing"`
}

// LimitsConfig bounds parser resource use.
type LimitsConfig struct {
	MaxInputSize    int `yaml:"max_input_size"`
	MaxNestingDepth int `yaml:"max_nesting_depth"`
	MaxCalls        int `yaml:"max_calls"`
}

// DialectConfig overrides the recognized keyword sets and fence markers.
// Empty fields keep the pythonic defaults.
type DialectConfig struct {
	TrueLiterals  []string `yaml:"true_literals"`
	FalseLiterals []string `yaml:"false_literals"`
	NullLiterals  []string `yaml:"null_literals"`
	Markers       []string `yaml:"markers"`
}

// ExtractConfig tunes host-boundary behavior.
type ExtractConfig struct {
	Flatten      *bool `yaml:"flatten"`
	JSONFallback *bool `yaml:"json_fallback"`
	CacheSize    *int  `yaml:"cache_size"`
	// ProvisionalIndex reports bare streamed calls under index -1.
	ProvisionalIndex bool `yaml:"provisional_index"`
}

// ServerConfig configures the HTTP/WebSocket front end.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// Duration decodes Go duration strings ("30s", "1m") from YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std converts to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is provided.
func Default() *Config {
	return &Config{
		Limits: LimitsConfig{
			MaxInputSize:    4 << 20,
			MaxNestingDepth: 64,
			MaxCalls:        128,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Tracing: observability.TracingConfig{
			ServiceName: "pycall",
			SampleRate:  1.0,
		},
	}
}

// ParserLimits converts to the parser's limit set.
func (c LimitsConfig) ParserLimits() parser.Limits {
	return parser.Limits{
		MaxInputSize:    c.MaxInputSize,
		MaxNestingDepth: c.MaxNestingDepth,
		MaxCalls:        c.MaxCalls,
	}
}

// LexerOptions converts to the lexer's option set. An entirely empty dialect
// yields the zero Options, which the lexer reads as its defaults.
func (c DialectConfig) LexerOptions() token.Options {
	if len(c.TrueLiterals) == 0 && len(c.FalseLiterals) == 0 &&
		len(c.NullLiterals) == 0 && len(c.Markers) == 0 {
		return token.Options{}
	}
	opts := token.DefaultOptions()
	if len(c.TrueLiterals) > 0 || len(c.FalseLiterals) > 0 {
		// Each direction overrides independently, so configuring only the
		// true literals keeps the default false literals.
		merged := map[string]bool{}
		for lit, v := range opts.BoolLiterals {
			if v && len(c.TrueLiterals) > 0 {
				continue
			}
			if !v && len(c.FalseLiterals) > 0 {
				continue
			}
			merged[lit] = v
		}
		for _, lit := range c.TrueLiterals {
			merged[lit] = true
		}
		for _, lit := range c.FalseLiterals {
			merged[lit] = false
		}
		opts.BoolLiterals = merged
	}
	if len(c.NullLiterals) > 0 {
		opts.NullLiterals = c.NullLiterals
	}
	if len(c.Markers) > 0 {
		opts.Markers = c.Markers
	}
	return opts
}

// Flattening reports whether single-pair mapping flattening is on.
func (c ExtractConfig) Flattening() bool {
	return c.Flatten == nil || *c.Flatten
}

// Fallback reports whether the JSON fallback is on.
func (c ExtractConfig) Fallback() bool {
	return c.JSONFallback == nil || *c.JSONFallback
}

// Cache returns the memoization cache size.
func (c ExtractConfig) Cache() int {
	if c.CacheSize == nil {
		return 256
	}
	return *c.CacheSize
}
