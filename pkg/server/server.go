package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haptic-bridge/haptic-go/pkg/device"
	"github.com/haptic-bridge/haptic-go/pkg/discovery"
	"github.com/haptic-bridge/haptic-go/pkg/log"
	"github.com/haptic-bridge/haptic-go/pkg/pattern"
	"github.com/haptic-bridge/haptic-go/pkg/subscription"
	"github.com/haptic-bridge/haptic-go/pkg/wire"
)

// Server is the UDP command server. Create one with New, then Start
// and eventually Stop.
type Server struct {
	config  Config
	logger  *slog.Logger
	plog    log.Logger
	session device.Session

	clients *clientRegistry
	tracker *correlationTracker
	subs    *subscription.Registry
	runner  *pattern.Runner

	responder  *discovery.Responder
	advertiser *discovery.Advertiser

	mu   sync.Mutex
	conn *net.UDPConn

	handlers map[string]handlerFunc

	startTime time.Time
	running   atomic.Bool
	stopOnce  sync.Once
	stopped   chan struct{}
	wg        sync.WaitGroup
}

// New creates a server from config. Config.Session is required.
func New(config Config) (*Server, error) {
	if config.Session == nil {
		return nil, fmt.Errorf("server: device session is required")
	}
	config.applyDefaults()

	s := &Server{
		config:  config,
		logger:  config.Logger,
		plog:    config.ProtocolLogger,
		session: config.Session,
		clients: newClientRegistry(),
		tracker: newCorrelationTracker(),
		subs:    subscription.NewRegistry(),
		stopped: make(chan struct{}),
	}
	s.runner = pattern.NewRunner(pattern.RunnerConfig{
		Session: config.Session,
		Logger:  config.Logger,
	})
	s.responder = discovery.NewResponder(discovery.ResponderConfig{
		ServerID: config.ServerID,
		APIPort:  config.Port,
		Port:     config.DiscoveryPort,
		Logger:   config.Logger,
	})
	if config.EnableMDNS {
		s.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{
			ServerID: config.ServerID,
			APIPort:  config.Port,
		})
	}
	s.handlers = s.setupHandlers()
	return s, nil
}

// Start connects the device session, binds both sockets and launches
// the receive and broadcast loops. A bind failure is fatal; the server
// does not serve partially.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting haptics server", "server_id", s.config.ServerID, "port", s.config.Port)

	if err := s.session.Connect(ctx); err != nil {
		return fmt.Errorf("connect device session: %w", err)
	}
	s.logStateChange(log.StateEntitySession, "", "connected", "")
	s.logConnectedDevices()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: s.config.Port})
	if err != nil {
		_ = s.session.Destroy()
		return fmt.Errorf("bind command socket: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := s.responder.Start(); err != nil {
		_ = conn.Close()
		_ = s.session.Destroy()
		return err
	}

	if s.advertiser != nil {
		// mDNS is a convenience; broadcast discovery still works
		// without it.
		if err := s.advertiser.Start(); err != nil {
			s.logger.Warn("mDNS advertisement failed", "error", err)
		}
	}

	s.startTime = time.Now()
	s.running.Store(true)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.receiveLoop(conn)
	}()
	go func() {
		defer s.wg.Done()
		s.broadcastLoop()
	}()

	s.logStateChange(log.StateEntityServer, "starting", "running", "")
	s.logger.Info("haptics server started", "command_port", s.config.Port, "discovery_port", s.config.DiscoveryPort)
	return nil
}

// Addr returns the command socket address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// Done is closed once Stop has finished.
func (s *Server) Done() <-chan struct{} {
	return s.stopped
}

// receiveLoop reads command datagrams until the socket closes. Each
// datagram is processed on its own goroutine so the loop returns to
// reading immediately.
func (s *Server) receiveLoop(conn *net.UDPConn) {
	buf := make([]byte, discovery.MaxPacketSize)
	for s.running.Load() {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("command read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		s.wg.Add(1)
		go func(data []byte, addr *net.UDPAddr) {
			defer s.wg.Done()
			s.process(data, addr)
		}(data, addr)
	}
}

// process decodes and dispatches one datagram.
func (s *Server) process(data []byte, addr *net.UDPAddr) {
	cmd, err := wire.DecodeCommand(data, addr.String())
	if err != nil {
		s.logger.Warn("invalid command datagram", "addr", addr, "error", err)
		s.logError(log.LayerWire, err.Error(), "decode command", addr.String())
		// Best effort, uncorrelated. The sender may not even speak
		// our protocol.
		s.sendErrorRaw(addr, "", "Invalid JSON format")
		return
	}

	if s.clients.touch(cmd.ClientID, addr) {
		s.logger.Info("new client", "client_id", cmd.ClientID, "addr", addr)
		s.logStateChange(log.StateEntityClient, "", "registered", cmd.ClientID)
	}
	s.tracker.track(cmd.CommandID, cmd.ClientID, cmd.Command)

	s.logger.Debug("command received", "command", cmd.Command, "client_id", cmd.ClientID, "command_id", cmd.CommandID)
	s.plog.Log(log.Event{
		Timestamp:  time.Now(),
		ClientID:   cmd.ClientID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerServer,
		Category:   log.CategoryCommand,
		RemoteAddr: addr.String(),
		Command:    &log.CommandEvent{Name: cmd.Command, CommandID: cmd.CommandID},
	})

	handler, ok := s.handlers[cmd.Command]
	if !ok {
		s.sendError(cmd.ClientID, cmd.CommandID, fmt.Sprintf("Unknown command: %s", cmd.Command))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", "command", cmd.Command, "panic", r)
			s.sendError(cmd.ClientID, cmd.CommandID, fmt.Sprintf("Error processing command: %v", r))
		}
	}()

	result := handler(cmd)
	// A nil result means the handler already answered (shutdown sends
	// its response before teardown begins).
	if result != nil {
		s.sendResponse(cmd.ClientID, cmd.CommandID, result)
	}
}

// sendResponse wraps a handler result and transmits it, completing the
// correlation entry.
func (s *Server) sendResponse(clientID, commandID string, result wire.Result) {
	addr := s.clients.addr(clientID)
	if addr == nil {
		s.logger.Warn("response for unknown client", "client_id", clientID)
		s.tracker.complete(commandID)
		return
	}

	data, err := wire.EncodeResponse(commandID, result, time.Now())
	if err != nil {
		s.logger.Error("encode response failed", "error", err)
		s.tracker.complete(commandID)
		return
	}
	s.writeTo(data, addr, clientID)

	elapsed, _ := s.tracker.complete(commandID)
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  clientID,
		Direction: log.DirectionOut,
		Layer:     log.LayerServer,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			CommandID:      commandID,
			Outcome:        "ok",
			ProcessingTime: &elapsed,
		},
	})
}

// sendError transmits a correlated error envelope.
func (s *Server) sendError(clientID, commandID, message string) {
	addr := s.clients.addr(clientID)
	if addr == nil {
		s.logger.Warn("error response for unknown client", "client_id", clientID)
		s.tracker.complete(commandID)
		return
	}

	data, err := wire.EncodeError(commandID, message, time.Now())
	if err != nil {
		s.tracker.complete(commandID)
		return
	}
	s.writeTo(data, addr, clientID)

	elapsed, _ := s.tracker.complete(commandID)
	s.logger.Info("error response sent", "client_id", clientID, "command_id", commandID, "error", message)
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		ClientID:  clientID,
		Direction: log.DirectionOut,
		Layer:     log.LayerServer,
		Category:  log.CategoryCommand,
		Command: &log.CommandEvent{
			CommandID:      commandID,
			Outcome:        "error",
			ProcessingTime: &elapsed,
		},
	})
}

// sendErrorRaw transmits an error envelope straight to an address,
// bypassing the client registry. Used before the sender is known.
func (s *Server) sendErrorRaw(addr *net.UDPAddr, commandID, message string) {
	data, err := wire.EncodeError(commandID, message, time.Now())
	if err != nil {
		return
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if _, err := conn.WriteToUDP(data, addr); err != nil {
		s.logger.Warn("error response send failed", "addr", addr, "error", err)
	}
}

// sendEvent pushes an event to the originating client and every
// subscriber of the event type.
func (s *Server) sendEvent(eventType string, data map[string]any, originClientID string) {
	recipients := make(map[string]struct{})
	if originClientID != "" {
		recipients[originClientID] = struct{}{}
	}
	for _, clientID := range s.subs.Subscribers(eventType) {
		recipients[clientID] = struct{}{}
	}

	payload, err := wire.EncodeEvent(eventType, data, time.Now())
	if err != nil {
		s.logger.Error("encode event failed", "event_type", eventType, "error", err)
		return
	}

	sent := 0
	for clientID := range recipients {
		addr := s.clients.addr(clientID)
		if addr == nil {
			continue
		}
		if s.writeTo(payload, addr, clientID) {
			sent++
		}
	}

	s.logger.Debug("event pushed", "event_type", eventType, "recipients", sent)
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerServer,
		Category:  log.CategoryPush,
		Push:      &log.PushEvent{EventType: eventType, Recipients: sent},
	})
}

// writeTo sends a datagram to one client, pruning the client on
// failure. Returns true when the send succeeded.
func (s *Server) writeTo(data []byte, addr *net.UDPAddr, clientID string) bool {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}
	if _, err := conn.WriteToUDP(data, addr); err != nil {
		s.logger.Warn("send failed, pruning client", "client_id", clientID, "error", err)
		s.clients.remove(clientID)
		s.subs.UnsubscribeAll(clientID)
		return false
	}
	return true
}

// broadcastLoop pushes status snapshots to all clients on a fixed
// interval and sweeps abandoned correlation entries.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(s.config.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopped:
			return
		case <-ticker.C:
		}

		if swept := s.tracker.sweep(s.config.CommandTTL); swept > 0 {
			s.logger.Warn("swept abandoned command entries", "count", swept)
		}

		if s.clients.len() == 0 {
			continue
		}

		payload, err := wire.EncodeStatusUpdate(s.statusData(), time.Now())
		if err != nil {
			s.logger.Error("encode status update failed", "error", err)
			continue
		}

		sent := 0
		for clientID, addr := range s.clients.all() {
			if s.writeTo(payload, addr, clientID) {
				sent++
			}
		}
		s.plog.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionOut,
			Layer:     log.LayerServer,
			Category:  log.CategoryPush,
			Push:      &log.PushEvent{EventType: wire.TypeStatusUpdate, Recipients: sent},
		})
	}
}

// statusData builds the status snapshot shared by get_status and the
// broadcaster.
func (s *Server) statusData() map[string]any {
	uptime := time.Since(s.startTime)
	return map[string]any{
		"server_id":         s.config.ServerID,
		"api_version":       discovery.APIVersion,
		"uptime":            formatUptime(uptime),
		"uptime_seconds":    uptime.Seconds(),
		"connected_clients": s.clients.len(),
		"active_commands":   s.tracker.len(),
		"devices":           s.deviceStatus(),
		"playback_active":   s.session.IsPlaying(),
	}
}

func (s *Server) deviceStatus() map[string]any {
	return map[string]any{
		"vest":          s.session.IsConnected(device.PositionVest),
		"forearm_left":  s.session.IsConnected(device.PositionForearmL),
		"forearm_right": s.session.IsConnected(device.PositionForearmR),
		"glove_left":    s.session.IsConnected(device.PositionGloveL),
		"glove_right":   s.session.IsConnected(device.PositionGloveR),
	}
}

func (s *Server) logConnectedDevices() {
	for name, connected := range s.deviceStatus() {
		s.logger.Info("device status", "device", name, "connected", connected)
	}
}

// formatUptime renders a duration the way status snapshots carry it.
func formatUptime(d time.Duration) string {
	secs := int64(d.Seconds())
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// Stop shuts the server down. Every step runs even if an earlier one
// fails, and a second Stop is a no-op.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("stopping haptics server")
		s.running.Store(false)
		close(s.stopped)

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			if err := conn.Close(); err != nil {
				s.logger.Warn("command socket close failed", "error", err)
			}
		}

		s.responder.Stop()
		if s.advertiser != nil {
			s.advertiser.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.config.DrainTimeout)
		defer cancel()
		if err := s.runner.Shutdown(ctx); err != nil {
			s.logger.Warn("playback drain incomplete", "error", err)
		}

		s.wg.Wait()

		if err := s.session.Destroy(); err != nil {
			s.logger.Warn("device session destroy failed", "error", err)
		}
		s.logStateChange(log.StateEntitySession, "connected", "destroyed", "")
		s.logStateChange(log.StateEntityServer, "running", "stopped", "")
		s.logger.Info("haptics server stopped")
	})
}

func (s *Server) logStateChange(entity log.StateEntity, oldState, newState, reason string) {
	s.plog.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerServer,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (s *Server) logError(layer log.Layer, message, context, remoteAddr string) {
	s.plog.Log(log.Event{
		Timestamp:  time.Now(),
		Direction:  log.DirectionIn,
		Layer:      layer,
		Category:   log.CategoryError,
		RemoteAddr: remoteAddr,
		Error:      &log.ErrorEventData{Layer: layer, Message: message, Context: context},
	})
}
