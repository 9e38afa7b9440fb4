package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"tubelink/internal/core"
	"tubelink/internal/i18n"
)

// resetViper restores flag-backed defaults after a test overrides keys.
func resetViper(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		viper.Reset()
		if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
			t.Fatalf("Failed to rebind flags: %v", err)
		}
	})
}

func TestBuildConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg := buildConfig()

	if cfg.Server.Port != core.DefaultServerPort {
		t.Errorf("Server.Port = %d, expected %d", cfg.Server.Port, core.DefaultServerPort)
	}
	if cfg.Resolver.ToolPath != core.DefaultToolPath {
		t.Errorf("Resolver.ToolPath = %q, expected %q", cfg.Resolver.ToolPath, core.DefaultToolPath)
	}
	if cfg.Resolver.ProcessTimeout != core.DefaultProcessTimeout {
		t.Errorf("Resolver.ProcessTimeout = %v, expected %v", cfg.Resolver.ProcessTimeout, core.DefaultProcessTimeout)
	}
	if cfg.Resolver.TotalTimeout != core.DefaultTotalTimeout {
		t.Errorf("Resolver.TotalTimeout = %v, expected %v", cfg.Resolver.TotalTimeout, core.DefaultTotalTimeout)
	}
	if !cfg.Resolver.CheckToolVersion {
		t.Error("Resolver.CheckToolVersion should default to true")
	}
	if cfg.App.Language != i18n.DefaultLanguage {
		t.Errorf("App.Language = %q, expected %q", cfg.App.Language, i18n.DefaultLanguage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration should validate, got %v", err)
	}
}

func TestBuildConfig_Overrides(t *testing.T) {
	resetViper(t)
	viper.Set("server-port", 9000)
	viper.Set("tool-path", "/opt/spotdl/bin/spotdl")
	viper.Set("process-timeout-secs", 5)
	viper.Set("total-timeout-secs", 8)
	viper.Set("max-concurrent-lookups", 4)
	viper.Set("flood-limit-per-minute", 10)
	viper.Set("language", "nl")

	cfg := buildConfig()

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, expected 9000", cfg.Server.Port)
	}
	if cfg.Resolver.ToolPath != "/opt/spotdl/bin/spotdl" {
		t.Errorf("Resolver.ToolPath = %q", cfg.Resolver.ToolPath)
	}
	if cfg.Resolver.ProcessTimeout != 5*time.Second || cfg.Resolver.TotalTimeout != 8*time.Second {
		t.Errorf("timeouts = %v/%v, expected 5s/8s", cfg.Resolver.ProcessTimeout, cfg.Resolver.TotalTimeout)
	}
	if cfg.Resolver.MaxConcurrent != 4 {
		t.Errorf("Resolver.MaxConcurrent = %d, expected 4", cfg.Resolver.MaxConcurrent)
	}
	if cfg.App.FloodLimitPerMinute != 10 {
		t.Errorf("App.FloodLimitPerMinute = %d, expected 10", cfg.App.FloodLimitPerMinute)
	}
	if cfg.App.Language != "nl" {
		t.Errorf("App.Language = %q, expected nl", cfg.App.Language)
	}
}

func TestBuildConfig_InvalidValuesFallBack(t *testing.T) {
	resetViper(t)
	viper.Set("server-port", -5)
	viper.Set("process-timeout-secs", "soon")
	viper.Set("total-timeout-secs", -1)
	viper.Set("max-concurrent-lookups", -2)
	viper.Set("flood-limit-per-minute", -1)
	viper.Set("language", "xx")

	cfg := buildConfig()

	if cfg.Server.Port != core.DefaultServerPort {
		t.Errorf("Server.Port = %d, expected default", cfg.Server.Port)
	}
	if cfg.Resolver.ProcessTimeout != core.DefaultProcessTimeout {
		t.Errorf("Resolver.ProcessTimeout = %v, expected default", cfg.Resolver.ProcessTimeout)
	}
	if cfg.Resolver.TotalTimeout != core.DefaultTotalTimeout {
		t.Errorf("Resolver.TotalTimeout = %v, expected default", cfg.Resolver.TotalTimeout)
	}
	if cfg.Resolver.MaxConcurrent != 0 || cfg.App.FloodLimitPerMinute != 0 {
		t.Errorf("negative limits should fall back to 0, got %d/%d",
			cfg.Resolver.MaxConcurrent, cfg.App.FloodLimitPerMinute)
	}
	if cfg.App.Language != i18n.DefaultLanguage {
		t.Errorf("App.Language = %q, expected fallback to %q", cfg.App.Language, i18n.DefaultLanguage)
	}
}

func TestBuildConfig_TotalBelowProcessRejected(t *testing.T) {
	resetViper(t)
	viper.Set("process-timeout-secs", 30)
	viper.Set("total-timeout-secs", 10)

	if err := buildConfig().Validate(); err == nil {
		t.Error("Validate() should reject a total timeout below the process timeout")
	}
}

func TestBuildConfig_TimeoutsFromEnvAreSeconds(t *testing.T) {
	resetViper(t)
	bindEnv()
	t.Setenv("TUBELINK_PROCESS_TIMEOUT_SECS", "7")
	t.Setenv("TUBELINK_TOTAL_TIMEOUT_SECS", "9")

	cfg := buildConfig()

	if cfg.Resolver.ProcessTimeout != 7*time.Second {
		t.Errorf("Resolver.ProcessTimeout = %v, expected 7s", cfg.Resolver.ProcessTimeout)
	}
	if cfg.Resolver.TotalTimeout != 9*time.Second {
		t.Errorf("Resolver.TotalTimeout = %v, expected 9s", cfg.Resolver.TotalTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestBuildConfig_TimeoutWithUnitFallsBack(t *testing.T) {
	resetViper(t)
	bindEnv()
	t.Setenv("TUBELINK_PROCESS_TIMEOUT_SECS", "7s")

	cfg := buildConfig()

	if cfg.Resolver.ProcessTimeout != core.DefaultProcessTimeout {
		t.Errorf("Resolver.ProcessTimeout = %v, expected default %v", cfg.Resolver.ProcessTimeout, core.DefaultProcessTimeout)
	}
}

func TestBuildConfig_WriteTimeoutMustExceedTotal(t *testing.T) {
	resetViper(t)
	viper.Set("total-timeout-secs", 60)

	err := buildConfig().Validate()
	if !errors.Is(err, core.ErrWriteTimeoutTooShort) {
		t.Errorf("Validate() error = %v, want %v", err, core.ErrWriteTimeoutTooShort)
	}

	viper.Set("server-write-timeout-secs", 90)
	if err := buildConfig().Validate(); err != nil {
		t.Errorf("Validate() unexpected error with a longer write timeout: %v", err)
	}
}

func TestBuildLogger(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		t.Run(level, func(t *testing.T) {
			if buildLogger(level) == nil {
				t.Errorf("buildLogger(%q) returned nil", level)
			}
		})
	}
}

func TestFlagToEnvVar(t *testing.T) {
	tests := map[string]string{
		"tool-path":              "TUBELINK_TOOL_PATH",
		"flood-limit-per-minute": "TUBELINK_FLOOD_LIMIT_PER_MINUTE",
		"log-level":              "TUBELINK_LOG_LEVEL",
	}
	for flag, expected := range tests {
		if got := flagToEnvVar(flag); got != expected {
			t.Errorf("flagToEnvVar(%q) = %q, expected %q", flag, got, expected)
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	expected := []string{
		"TUBELINK_TOOL_PATH=spotdl",
		"TUBELINK_SHELL_PATH=/bin/sh",
		"TUBELINK_PROCESS_TIMEOUT_SECS=30",
		"TUBELINK_TOTAL_TIMEOUT_SECS=35",
		"TUBELINK_SERVER_WRITE_TIMEOUT_SECS=45",
		"TUBELINK_SERVER_PORT=8000",
		"TUBELINK_FLOOD_LIMIT_PER_MINUTE=0",
		"TUBELINK_LANGUAGE=en",
		"TUBELINK_LOG_LEVEL=info",
	}
	for _, line := range expected {
		if !strings.Contains(content, line) {
			t.Errorf("env example missing %q", line)
		}
	}
}

func TestResolveCommandRequiresOneArg(t *testing.T) {
	if err := resolveCmd.Args(resolveCmd, nil); err == nil {
		t.Error("resolve should require exactly one argument")
	}
	if err := resolveCmd.Args(resolveCmd, []string{"https://open.spotify.com/track/abc"}); err != nil {
		t.Errorf("resolve rejected a single argument: %v", err)
	}
}
