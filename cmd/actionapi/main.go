// Package main runs the browser action HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/entrhq/actionapi/pkg/api"
	"github.com/entrhq/actionapi/pkg/browser"
	"github.com/entrhq/actionapi/pkg/config"
	"github.com/entrhq/actionapi/pkg/logging"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	Addr        string
	Browser     string
	Headless    bool
	MaxSessions int
	IdleTimeout time.Duration
	Install     bool
	UploadDir   string
	LogLevel    string
	LogDir      string
	LogStderr   bool
	ShowVersion bool

	// set records which flags were given explicitly
	set map[string]bool
}

func main() {
	cliConfig := parseFlags()

	if cliConfig.ShowVersion {
		fmt.Printf("actionapi v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, cliConfig); err != nil {
		cancel()
		log.Printf("actionapi failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cliConfig := &CLIConfig{}

	flag.StringVar(&cliConfig.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cliConfig.Addr, "addr", "", "Listen address (overrides server.addr)")
	flag.StringVar(&cliConfig.Browser, "browser", "", "Default browser: chromium, firefox or webkit")
	flag.BoolVar(&cliConfig.Headless, "headless", true, "Run browsers headless by default")
	flag.IntVar(&cliConfig.MaxSessions, "max-sessions", 0, "Maximum concurrent sessions (0 = unlimited)")
	flag.DurationVar(&cliConfig.IdleTimeout, "idle-timeout", 0, "Close sessions idle for this long (0 = never)")
	flag.BoolVar(&cliConfig.Install, "install", false, "Install the Playwright driver and browsers before starting")
	flag.StringVar(&cliConfig.UploadDir, "upload-dir", "", "Restrict upload_file to files under this directory")
	flag.StringVar(&cliConfig.LogLevel, "log-level", "", "Log level: debug, info, warn or error")
	flag.StringVar(&cliConfig.LogDir, "log-dir", "", "Directory for log files")
	flag.BoolVar(&cliConfig.LogStderr, "log-stderr", false, "Log to stderr instead of a file")
	flag.BoolVar(&cliConfig.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "actionapi - browser automation over HTTP\n\n")
		fmt.Fprintf(os.Stderr, "Usage: actionapi [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  actionapi -addr :8000 -install\n")
		fmt.Fprintf(os.Stderr, "  actionapi -config actionapi.yaml -log-level debug\n\n")
	}

	flag.Parse()

	cliConfig.set = make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		cliConfig.set[f.Name] = true
	})
	return cliConfig
}

// loadConfig loads the file (or defaults) and applies explicitly set flags.
func loadConfig(cliConfig *CLIConfig) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cliConfig.ConfigFile != "" {
		loaded, err := config.Load(cliConfig.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cliConfig.set["addr"] {
		cfg.Server.Addr = cliConfig.Addr
	}
	if cliConfig.set["browser"] {
		cfg.Browser.DefaultKind = cliConfig.Browser
	}
	if cliConfig.set["headless"] {
		cfg.Browser.Headless = cliConfig.Headless
	}
	if cliConfig.set["max-sessions"] {
		cfg.Browser.MaxSessions = cliConfig.MaxSessions
	}
	if cliConfig.set["idle-timeout"] {
		cfg.Browser.IdleTimeout = cliConfig.IdleTimeout
	}
	if cliConfig.set["install"] {
		cfg.Browser.Install = cliConfig.Install
	}
	if cliConfig.set["upload-dir"] {
		cfg.Browser.UploadDir = cliConfig.UploadDir
	}
	if cliConfig.set["log-level"] {
		cfg.Logging.Level = cliConfig.LogLevel
	}
	if cliConfig.set["log-dir"] {
		cfg.Logging.Dir = cliConfig.LogDir
	}
	if cliConfig.set["log-stderr"] {
		cfg.Logging.Stderr = cliConfig.LogStderr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the root logger from the logging section.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logging.SetDefaultLevel(level)

	if cfg.Stderr {
		return logging.NewWriterLogger("actionapi", os.Stderr), nil
	}
	if cfg.Dir != "" {
		logging.SetLogDirectory(cfg.Dir)
	}

	logger, err := logging.NewLogger("actionapi")
	if err != nil {
		// fallback logger already writes to stderr
		logger.Warnf("file logging unavailable: %v", err)
	}
	return logger, nil
}

func run(ctx context.Context, cliConfig *CLIConfig) error {
	cfg, err := loadConfig(cliConfig)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logger.Close()

	if path := logger.LogPath(); path != "" {
		fmt.Fprintf(os.Stderr, "Logging to %s\n", path)
	}

	launcher := browser.NewPlaywrightLauncher(logger.With("driver").Writer())
	if cfg.Browser.Install {
		logger.Infof("installing playwright driver and browsers")
		if err := launcher.Install(browser.BrowserKinds...); err != nil {
			return err
		}
	}

	policy, err := cfg.NavigationPolicy()
	if err != nil {
		return err
	}

	execOpts := []browser.ExecutorOption{
		browser.WithNavigationPolicy(policy),
		browser.WithExecutorLogger(logger.With("executor")),
	}
	guard, err := cfg.UploadGuard()
	if err != nil {
		return err
	}
	if guard != nil {
		logger.Infof("uploads restricted to %s (extra dirs: %v)", guard.WorkspaceDir(), guard.GetWhitelist())
		execOpts = append(execOpts, browser.WithUploadGuard(guard))
	}

	manager := browser.NewSessionManager(launcher,
		browser.WithLogger(logger.With("sessions")),
		browser.WithMaxSessions(cfg.Browser.MaxSessions),
		browser.WithActionTimeout(cfg.Browser.ActionTimeout),
	)
	executor := browser.NewExecutor(manager, execOpts...)

	server := api.NewServer(api.ServerConfig{
		Sessions:        manager,
		Executor:        executor,
		Logger:          logger.With("api"),
		DefaultKind:     browser.BrowserKind(cfg.Browser.DefaultKind),
		Headless:        cfg.Browser.Headless,
		IdleTimeout:     cfg.Browser.IdleTimeout,
		MaxConnections:  cfg.Server.MaxConnections,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Version:         version,
	})

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Addr, err)
	}
	fmt.Fprintf(os.Stderr, "actionapi v%s listening on %s\n", version, ln.Addr())

	return server.Serve(ctx, ln)
}
