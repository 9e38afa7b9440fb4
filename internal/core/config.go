package core

import (
	"errors"
	"fmt"
	"time"

	"tubelink/internal/i18n"
)

const (
	// DefaultServerPort is the HTTP listen port.
	DefaultServerPort = 8000
	// DefaultServerHost binds all interfaces.
	DefaultServerHost = "0.0.0.0"
	// DefaultReadTimeout bounds reading a request.
	DefaultReadTimeout = 10 * time.Second
	// DefaultWriteTimeout must stay above DefaultTotalTimeout so a slow lookup can still be answered.
	DefaultWriteTimeout = 45 * time.Second

	// DefaultToolPath is the lookup tool executable.
	DefaultToolPath = "spotdl"
	// DefaultShellPath interprets the fallback command line.
	DefaultShellPath = "/bin/sh"
	// DefaultProcessTimeout bounds a single tool invocation.
	DefaultProcessTimeout = 30 * time.Second
	// DefaultTotalTimeout bounds a whole resolution, fallback included.
	DefaultTotalTimeout = 35 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"
)

var (
	// ErrInvalidTimeouts is returned when the total budget cannot fit one process attempt.
	ErrInvalidTimeouts      = errors.New("total timeout must be at least the process timeout")
	// ErrWriteTimeoutTooShort is returned when the server would cut off a lookup that is still within budget.
	ErrWriteTimeoutTooShort = errors.New("server write timeout must exceed the total timeout")
	// ErrMissingToolPath is returned when no lookup tool is configured.
	ErrMissingToolPath      = errors.New("tool path must not be empty")
)

type Config struct {
	Server   ServerConfig
	Resolver ResolverConfig
	Log      LogConfig
	App      AppConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ResolverConfig struct {
	ToolPath         string
	ShellPath        string
	ProcessTimeout   time.Duration
	TotalTimeout     time.Duration
	MaxConcurrent    int  // 0 means unbounded.
	CheckToolVersion bool // Log the tool's --version output at startup.
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	Language            string
	FloodLimitPerMinute int // 0 disables the flood gate.
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         DefaultServerHost,
			Port:         DefaultServerPort,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Resolver: ResolverConfig{
			ToolPath:         DefaultToolPath,
			ShellPath:        DefaultShellPath,
			ProcessTimeout:   DefaultProcessTimeout,
			TotalTimeout:     DefaultTotalTimeout,
			CheckToolVersion: true,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		App: AppConfig{
			Language: i18n.DefaultLanguage,
		},
	}
}

// Validate reports configuration that would make every lookup fail.
func (c *Config) Validate() error {
	if c.Resolver.ToolPath == "" {
		return ErrMissingToolPath
	}
	if c.Resolver.ProcessTimeout <= 0 || c.Resolver.TotalTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (process=%s, total=%s)",
			c.Resolver.ProcessTimeout, c.Resolver.TotalTimeout)
	}
	if c.Resolver.TotalTimeout < c.Resolver.ProcessTimeout {
		return fmt.Errorf("%w (process=%s, total=%s)", ErrInvalidTimeouts,
			c.Resolver.ProcessTimeout, c.Resolver.TotalTimeout)
	}
	if c.Server.WriteTimeout <= c.Resolver.TotalTimeout {
		return fmt.Errorf("%w (write=%s, total=%s)", ErrWriteTimeoutTooShort,
			c.Server.WriteTimeout, c.Resolver.TotalTimeout)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Resolver.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent lookups must not be negative, got %d", c.Resolver.MaxConcurrent)
	}
	return nil
}
