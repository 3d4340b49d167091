package server

import (
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/haptic-bridge/haptic-go/pkg/device"
	"github.com/haptic-bridge/haptic-go/pkg/discovery"
	"github.com/haptic-bridge/haptic-go/pkg/log"
)

// Config configures a Server.
type Config struct {
	// Port is the UDP command port (default: discovery.DefaultCommandPort).
	Port int

	// DiscoveryPort is the UDP discovery port
	// (default: discovery.DefaultDiscoveryPort).
	DiscoveryPort int

	// ServerID identifies this instance in discovery responses and
	// status snapshots (default: a fresh UUID).
	ServerID string

	// Session is the device backend. Required.
	Session device.Session

	// StatusInterval is the period between status broadcasts
	// (default: 10s).
	StatusInterval time.Duration

	// CommandTTL is how long a correlation entry may sit unanswered
	// before the sweeper drops it (default: 60s).
	CommandTTL time.Duration

	// DrainTimeout bounds the wait for playback tasks during shutdown
	// (default: 5s).
	DrainTimeout time.Duration

	// EnableMDNS additionally advertises the service over DNS-SD.
	EnableMDNS bool

	// Logger receives application logs (default: slog.Default()).
	Logger *slog.Logger

	// ProtocolLogger receives structured protocol events
	// (default: log.NoopLogger).
	ProtocolLogger log.Logger

	// ExitFunc is called for a forced shutdown after the response has
	// been sent (default: os.Exit).
	ExitFunc func(code int)
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = discovery.DefaultCommandPort
	}
	if c.DiscoveryPort == 0 {
		c.DiscoveryPort = discovery.DefaultDiscoveryPort
	}
	if c.ServerID == "" {
		c.ServerID = uuid.New().String()
	}
	if c.StatusInterval == 0 {
		c.StatusInterval = 10 * time.Second
	}
	if c.CommandTTL == 0 {
		c.CommandTTL = 60 * time.Second
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ProtocolLogger == nil {
		c.ProtocolLogger = log.NoopLogger{}
	}
	if c.ExitFunc == nil {
		c.ExitFunc = os.Exit
	}
}
