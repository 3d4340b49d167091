// Command haptic-bridge runs the UDP haptics bridge server.
//
// The server exposes a bHaptics-style vest/glove rig to game-engine
// clients over a JSON datagram protocol with broadcast discovery.
//
// Usage:
//
//	haptic-bridge [flags]
//
// Flags:
//
//	-port int            UDP command port (default 9128)
//	-discovery-port int  UDP discovery port (default 9129)
//	-config string       Configuration file path (YAML)
//	-player-url string   bHaptics Player WebSocket endpoint
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-protocol-log string Write binary protocol events to this file
//	-simulate            Use the in-memory device simulator
//	-mdns                Additionally advertise over mDNS
//
// Examples:
//
//	# Serve against a locally running bHaptics Player
//	haptic-bridge
//
//	# Development without hardware
//	haptic-bridge -simulate -log-level debug
//
//	# Load settings from a file
//	haptic-bridge -config /etc/haptic-bridge.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haptic-bridge/haptic-go/pkg/device"
	"github.com/haptic-bridge/haptic-go/pkg/discovery"
	"github.com/haptic-bridge/haptic-go/pkg/log"
	"github.com/haptic-bridge/haptic-go/pkg/server"
)

// Config holds the bridge configuration. Fields map 1:1 onto the YAML
// config file; flags override file values.
type Config struct {
	Port           int           `yaml:"port"`
	DiscoveryPort  int           `yaml:"discovery_port"`
	PlayerURL      string        `yaml:"player_url"`
	AppID          string        `yaml:"app_id"`
	AppName        string        `yaml:"app_name"`
	LogLevel       string        `yaml:"log_level"`
	ProtocolLog    string        `yaml:"protocol_log"`
	Simulate       bool          `yaml:"simulate"`
	MDNS           bool          `yaml:"mdns"`
	StatusInterval time.Duration `yaml:"status_interval"`
	DrainTimeout   time.Duration `yaml:"drain_timeout"`
}

var (
	config     Config
	configFile string
)

func init() {
	flag.IntVar(&config.Port, "port", discovery.DefaultCommandPort, "UDP command port")
	flag.IntVar(&config.DiscoveryPort, "discovery-port", discovery.DefaultDiscoveryPort, "UDP discovery port")
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&config.PlayerURL, "player-url", device.DefaultPlayerURL, "bHaptics Player WebSocket endpoint")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.ProtocolLog, "protocol-log", "", "Write binary protocol events to this file")
	flag.BoolVar(&config.Simulate, "simulate", false, "Use the in-memory device simulator")
	flag.BoolVar(&config.MDNS, "mdns", false, "Additionally advertise over mDNS")
}

func main() {
	flag.Parse()

	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := setupLogging(config.LogLevel)

	session := buildSession(logger)

	plog, closeLog, err := buildProtocolLogger(logger)
	if err != nil {
		logger.Error("protocol log setup failed", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	srv, err := server.New(server.Config{
		Port:           config.Port,
		DiscoveryPort:  config.DiscoveryPort,
		Session:        session,
		StatusInterval: config.StatusInterval,
		DrainTimeout:   config.DrainTimeout,
		EnableMDNS:     config.MDNS,
		Logger:         logger,
		ProtocolLogger: plog,
	})
	if err != nil {
		logger.Error("server setup failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = srv.Start(ctx)
	cancel()
	if err != nil {
		logger.Error("server start failed", "error", err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("signal received", "signal", sig.String())
	case <-srv.Done():
		// A client issued the shutdown command.
	}

	srv.Stop()
	logger.Info("goodbye")
}

// loadConfigFile merges file values under any explicitly set flags.
func loadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["port"] && fileConfig.Port != 0 {
		config.Port = fileConfig.Port
	}
	if !set["discovery-port"] && fileConfig.DiscoveryPort != 0 {
		config.DiscoveryPort = fileConfig.DiscoveryPort
	}
	if !set["player-url"] && fileConfig.PlayerURL != "" {
		config.PlayerURL = fileConfig.PlayerURL
	}
	if !set["log-level"] && fileConfig.LogLevel != "" {
		config.LogLevel = fileConfig.LogLevel
	}
	if !set["protocol-log"] && fileConfig.ProtocolLog != "" {
		config.ProtocolLog = fileConfig.ProtocolLog
	}
	if !set["simulate"] {
		config.Simulate = config.Simulate || fileConfig.Simulate
	}
	if !set["mdns"] {
		config.MDNS = config.MDNS || fileConfig.MDNS
	}
	config.AppID = fileConfig.AppID
	config.AppName = fileConfig.AppName
	config.StatusInterval = fileConfig.StatusInterval
	config.DrainTimeout = fileConfig.DrainTimeout
	return nil
}

func setupLogging(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

func buildSession(logger *slog.Logger) device.Session {
	if config.Simulate {
		logger.Info("running with simulated device session")
		return device.NewSimulator()
	}

	appID := config.AppID
	if appID == "" {
		appID = "haptic-bridge"
	}
	appName := config.AppName
	if appName == "" {
		appName = "Haptic Bridge"
	}
	return device.NewPlayerClient(device.PlayerConfig{
		URL:     config.PlayerURL,
		AppID:   appID,
		AppName: appName,
		Logger:  logger,
	})
}

// buildProtocolLogger wires the optional CBOR event log. Debug level
// additionally mirrors protocol events into the application log.
func buildProtocolLogger(logger *slog.Logger) (log.Logger, func(), error) {
	loggers := []log.Logger{}

	if config.ProtocolLog != "" {
		fileLogger, err := log.NewFileLogger(config.ProtocolLog)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fileLogger)
		if config.LogLevel == "debug" {
			loggers = append(loggers, log.NewSlogAdapter(logger))
		}
		return log.NewMultiLogger(loggers...), func() { _ = fileLogger.Close() }, nil
	}

	if config.LogLevel == "debug" {
		return log.NewSlogAdapter(logger), func() {}, nil
	}
	return log.NoopLogger{}, func() {}, nil
}
