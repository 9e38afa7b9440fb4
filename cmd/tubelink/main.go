// Package main provides the tubelink CLI application entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"tubelink/internal/core"
	"tubelink/internal/flood"
	httpserver "tubelink/internal/http"
	"tubelink/internal/i18n"
	"tubelink/internal/resolver"
	"tubelink/pkg/musiclink"
)

const (
	envPrefix          = "TUBELINK"
	toolVersionTimeout = 10 * time.Second
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tubelink",
	Short: "tubelink - Spotify track → YouTube link",
	Long: `tubelink is an HTTP service that converts Spotify track links into YouTube watch links
by running the spotdl lookup tool and scanning its output.`,
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP conversion service (default)",
	RunE:  runServe,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <spotify-url>",
	Short: "Resolve a single Spotify track link and print the YouTube link",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var errNoDestination = errors.New("no YouTube URL found")

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", core.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("server-host", core.DefaultServerHost, "HTTP server host")
	flags.Int("server-port", core.DefaultServerPort, "HTTP server port")
	flags.Int("server-read-timeout-secs", int(core.DefaultReadTimeout/time.Second), "HTTP server read timeout in seconds")
	flags.Int("server-write-timeout-secs", int(core.DefaultWriteTimeout/time.Second),
		"HTTP server write timeout in seconds (must exceed total-timeout-secs)")
	flags.String("tool-path", core.DefaultToolPath, "Path to the spotdl executable")
	flags.String("shell-path", core.DefaultShellPath, "Shell used for the fallback invocation")
	flags.Int("process-timeout-secs", int(core.DefaultProcessTimeout/time.Second),
		"Maximum duration of one tool invocation in seconds")
	flags.Int("total-timeout-secs", int(core.DefaultTotalTimeout/time.Second), "Maximum duration of a whole lookup in seconds")
	flags.Int("max-concurrent-lookups", 0, "Maximum lookups running at once (0 is unbounded)")
	flags.Int("flood-limit-per-minute", 0, "Maximum conversions per client per minute (0 disables)")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", i18n.DefaultLanguage, fmt.Sprintf("Error message language (%s)", supportedLangs))
	flags.Bool("check-tool-version", true, "Log the lookup tool version at startup")
	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(flags); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(serveCmd, resolveCmd)
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	bindEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

// bindEnv makes every flag settable as TUBELINK_<FLAG_NAME>.
func bindEnv() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureServer(cfg)
	configureResolver(cfg)
	configureApp(cfg)

	return cfg
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = core.DefaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		warnDefault("server port", cfg.Server.Port, core.DefaultServerPort)
		cfg.Server.Port = core.DefaultServerPort
	}
	cfg.Server.ReadTimeout = secondsOrDefault("server-read-timeout-secs", core.DefaultReadTimeout)
	cfg.Server.WriteTimeout = secondsOrDefault("server-write-timeout-secs", core.DefaultWriteTimeout)
	cfg.Log.Level = viper.GetString("log-level")
}

func configureResolver(cfg *core.Config) {
	cfg.Resolver.ToolPath = viper.GetString("tool-path")
	if cfg.Resolver.ToolPath == "" {
		cfg.Resolver.ToolPath = core.DefaultToolPath
	}
	cfg.Resolver.ShellPath = viper.GetString("shell-path")
	if cfg.Resolver.ShellPath == "" {
		cfg.Resolver.ShellPath = core.DefaultShellPath
	}
	cfg.Resolver.ProcessTimeout = secondsOrDefault("process-timeout-secs", core.DefaultProcessTimeout)
	cfg.Resolver.TotalTimeout = secondsOrDefault("total-timeout-secs", core.DefaultTotalTimeout)
	cfg.Resolver.CheckToolVersion = viper.GetBool("check-tool-version")

	cfg.Resolver.MaxConcurrent = viper.GetInt("max-concurrent-lookups")
	if cfg.Resolver.MaxConcurrent < 0 {
		warnDefault("max concurrent lookups", cfg.Resolver.MaxConcurrent, 0)
		cfg.Resolver.MaxConcurrent = 0
	}
}

func configureApp(cfg *core.Config) {
	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}

	cfg.App.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.App.FloodLimitPerMinute < 0 {
		warnDefault("flood limit per minute", cfg.App.FloodLimitPerMinute, 0)
		cfg.App.FloodLimitPerMinute = 0
	}
}

// secondsOrDefault reads a whole number of seconds, replacing unparsable or non-positive values with def.
func secondsOrDefault(key string, def time.Duration) time.Duration {
	secs := viper.GetInt(key)
	if secs <= 0 {
		fmt.Fprintf(os.Stderr, "Warning: Invalid %s (%q), using default (%d)\n",
			key, viper.GetString(key), int(def/time.Second))
		return def
	}
	return time.Duration(secs) * time.Second
}

func warnDefault(name string, got, def int) {
	fmt.Fprintf(os.Stderr, "Warning: Invalid %s (%d), using default (%d)\n", name, got, def)
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting tubelink",
		zap.String("tool_path", config.Resolver.ToolPath),
		zap.Duration("process_timeout", config.Resolver.ProcessTimeout),
		zap.Duration("total_timeout", config.Resolver.TotalTimeout),
		zap.Int("max_concurrent_lookups", config.Resolver.MaxConcurrent),
		zap.String("language", config.App.Language))

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	svcs := initializeServices(ctx)
	return runServices(ctx, svcs)
}

type services struct {
	httpServer *httpserver.Server
	resolver   *resolver.Resolver
}

func initializeServices(ctx context.Context) *services {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := httpserver.NewMetrics(registry)
	localizer := i18n.NewLocalizer(config.App.Language)
	logger.Info("Localized error messages enabled", zap.String("language", localizer.Language()))

	res := resolver.New(config.Resolver, resolver.NewExecRunner(), metrics, logger.Named("resolver"))
	reportTool(ctx, res)

	var gate *flood.Floodgate
	if config.App.FloodLimitPerMinute > 0 {
		gate = flood.New(config.App.FloodLimitPerMinute)
	}

	httpServer := httpserver.NewServer(&config.Server, httpserver.Options{
		Converter: res,
		Metrics:   metrics,
		Localizer: localizer,
		Floodgate: gate,
	}, logger.Named("http"))

	return &services{
		httpServer: httpServer,
		resolver:   res,
	}
}

// reportTool logs whether the lookup tool is reachable. A missing tool is not fatal; /readyz reports it.
func reportTool(ctx context.Context, res *resolver.Resolver) {
	if err := res.CheckTool(); err != nil {
		logger.Warn("Lookup tool not found, conversions will fail until it is installed", zap.Error(err))
		return
	}
	if !config.Resolver.CheckToolVersion {
		return
	}

	versionCtx, cancel := context.WithTimeout(ctx, toolVersionTimeout)
	defer cancel()

	version, err := res.ToolVersion(versionCtx)
	if err != nil {
		logger.Warn("Failed to query lookup tool version", zap.Error(err))
		return
	}
	logger.Info("Lookup tool available", zap.String("version", version))
}

func runServices(ctx context.Context, svcs *services) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	logger.Info("tubelink started successfully",
		zap.String("http_addr", config.Server.Addr()))

	if err := g.Wait(); err != nil {
		logger.Error("tubelink stopped with error", zap.Error(err))
		return err
	}

	logger.Info("tubelink stopped gracefully")
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	defer func() { _ = logger.Sync() }()

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	track, err := musiclink.ParseSpotifyTrack(args[0])
	if err != nil {
		return fmt.Errorf("invalid source URL %q: %w", args[0], err)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res := resolver.New(config.Resolver, resolver.NewExecRunner(), nil, logger.Named("resolver"))
	result := res.ResolveWithBudget(ctx, track.URL)
	if !result.Found() {
		return fmt.Errorf("%w for %s (outcome %s after %d attempt(s))",
			errNoDestination, track.URL, result.Outcome, result.Attempts)
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.URL)
	return nil
}
