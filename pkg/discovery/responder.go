package discovery

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haptic-bridge/haptic-go/pkg/wire"
)

// ResponderConfig configures a discovery Responder.
type ResponderConfig struct {
	// ServerID is the identity reported in responses.
	ServerID string

	// APIPort is the command port reported in responses.
	APIPort int

	// Port is the UDP port to listen on (default: DefaultDiscoveryPort).
	Port int

	// Logger receives responder logs (default: slog.Default()).
	Logger *slog.Logger

	// ErrorBackoff is how long the loop pauses after a read error
	// (default: 1s).
	ErrorBackoff time.Duration
}

// Responder answers broadcast discovery probes on its own goroutine.
type Responder struct {
	config ResponderConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *net.UDPConn

	running  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewResponder creates a responder. Start must be called before it
// answers probes.
func NewResponder(config ResponderConfig) *Responder {
	if config.Port == 0 {
		config.Port = DefaultDiscoveryPort
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.ErrorBackoff == 0 {
		config.ErrorBackoff = time.Second
	}
	return &Responder{
		config: config,
		logger: config.Logger,
	}
}

// Start binds the discovery socket and launches the answer loop.
func (r *Responder) Start() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: r.config.Port})
	if err != nil {
		return fmt.Errorf("bind discovery socket: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()
	r.running.Store(true)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(conn)
	}()

	r.logger.Info("discovery responder listening", "port", r.config.Port)
	return nil
}

// Addr returns the bound address, or nil before Start.
func (r *Responder) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

func (r *Responder) loop(conn *net.UDPConn) {
	buf := make([]byte, MaxPacketSize)
	for r.running.Load() {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !r.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			r.logger.Warn("discovery read failed", "error", err)
			time.Sleep(r.config.ErrorBackoff)
			continue
		}

		// Only the exact phrase gets an answer. Stray broadcast
		// traffic on this port is common and ignored silently.
		if strings.TrimSpace(string(buf[:n])) != Phrase {
			continue
		}

		reply, err := wire.EncodeDiscoveryResponse(
			ResponseMarker, r.config.ServerID, r.config.APIPort, APIVersion, time.Now())
		if err != nil {
			r.logger.Error("encode discovery response failed", "error", err)
			continue
		}
		if _, err := conn.WriteToUDP(reply, addr); err != nil {
			r.logger.Warn("discovery reply failed", "addr", addr, "error", err)
			continue
		}
		r.logger.Debug("answered discovery probe", "addr", addr)
	}
}

// Stop closes the socket and waits for the loop to exit. Repeated
// calls are no-ops.
func (r *Responder) Stop() {
	r.stopOnce.Do(func() {
		r.running.Store(false)
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		r.wg.Wait()
		r.logger.Info("discovery responder stopped")
	})
}
