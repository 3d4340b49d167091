// Package interactive provides the interactive command-line interface
// for the haptic bridge client.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/haptic-bridge/haptic-go/pkg/discovery"
	"github.com/haptic-bridge/haptic-go/pkg/version"
	"github.com/haptic-bridge/haptic-go/pkg/wire"
)

// Client handles interactive mode for haptic-ctl.
type Client struct {
	rl       *readline.Instance
	clientID string

	mu     sync.Mutex
	conn   *net.UDPConn
	server *net.UDPAddr

	readerWg sync.WaitGroup
}

// New creates a new interactive client handler.
func New() (*Client, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "haptic> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Client{
		rl:       rl,
		clientID: "haptic-ctl-" + uuid.NewString()[:8],
	}, nil
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (c *Client) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Client) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.disconnect()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "discover", "d":
			c.cmdDiscover(args)

		case "connect":
			c.cmdConnect(args)

		case "ping", "p":
			c.cmdPing(args)

		case "status", "s":
			c.send("get_status", nil)

		case "devices":
			c.cmdDevices(args)

		case "discrete":
			c.cmdDiscrete(args)

		case "funnel":
			c.cmdFunnel(args)

		case "glove":
			c.cmdGlove(args)

		case "wave":
			c.send("play_wave_pattern", nil)

		case "alternating", "alt":
			c.send("play_alternating_pattern", nil)

		case "custom":
			c.cmdCustom(args)

		case "play":
			c.cmdPlay(args)

		case "stop":
			c.cmdStop(args)

		case "playing":
			c.cmdPlaying(args)

		case "subscribe", "sub":
			c.cmdSubscribe(args)

		case "unsubscribe", "unsub":
			c.cmdUnsubscribe(args)

		case "shutdown":
			c.send("shutdown", nil)

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (try 'help')\n", cmd)
		}
	}
}

func (c *Client) printHelp() {
	out := c.rl.Stdout()
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  discover, d                     Probe the local network for servers")
	fmt.Fprintln(out, "  connect <host:port>             Connect to a server")
	fmt.Fprintln(out, "  ping, p [message]               Ping the server")
	fmt.Fprintln(out, "  status, s                       Request server status")
	fmt.Fprintln(out, "  devices [type]                  Query device connection state")
	fmt.Fprintln(out, "  discrete <panel> <motor> [intensity] [ms]")
	fmt.Fprintln(out, "                                  Activate a single vest motor")
	fmt.Fprintln(out, "  funnel <panel> <x> <y> [intensity]")
	fmt.Fprintln(out, "                                  Activate a funnelling effect")
	fmt.Fprintln(out, "  glove <left|right> <motor> [intensity]")
	fmt.Fprintln(out, "                                  Activate a glove motor")
	fmt.Fprintln(out, "  wave                            Play the built-in wave pattern")
	fmt.Fprintln(out, "  alternating, alt                Play the built-in alternating pattern")
	fmt.Fprintln(out, "  custom <steps.json> [ms]        Play custom steps from a JSON file")
	fmt.Fprintln(out, "  play <tact-file> [key]          Play a .tact pattern file")
	fmt.Fprintln(out, "  stop [key]                      Stop one pattern, or all")
	fmt.Fprintln(out, "  playing [key]                   Check whether playback is active")
	fmt.Fprintln(out, "  subscribe, sub <event>          Subscribe to an event type")
	fmt.Fprintln(out, "  unsubscribe, unsub [event]      Unsubscribe from events")
	fmt.Fprintln(out, "  shutdown                        Ask the server to shut down")
	fmt.Fprintln(out, "  quit, exit, q                   Leave")
}

// cmdDiscover broadcasts a discovery probe and prints every server that
// answers within the wait window.
func (c *Client) cmdDiscover(args []string) {
	port := discovery.DefaultDiscoveryPort
	if len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid port: %s\n", args[0])
			return
		}
		port = p
	}

	// The probe goes to the broadcast address, which the kernel rejects
	// unless the socket has SO_BROADCAST set.
	lc := net.ListenConfig{
		Control: func(network, address string, raw syscall.RawConn) error {
			var opErr error
			if err := raw.Control(func(fd uintptr) {
				opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			}); err != nil {
				return err
			}
			return opErr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Discovery failed: %v\n", err)
		return
	}
	conn := pc.(*net.UDPConn)
	defer conn.Close()

	probe := []byte(discovery.Phrase)
	targets := []*net.UDPAddr{
		{IP: net.IPv4bcast, Port: port},
		{IP: net.IPv4(127, 0, 0, 1), Port: port},
	}
	for _, target := range targets {
		if _, err := conn.WriteToUDP(probe, target); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Probe to %s failed: %v\n", target, err)
		}
	}

	fmt.Fprintln(c.rl.Stdout(), "Searching...")

	ours, _ := version.Parse(version.Current)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, discovery.MaxPacketSize)
	found := 0
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			break
		}
		var resp wire.DiscoveryResponse
		if json.Unmarshal(buf[:n], &resp) != nil || resp.Type != discovery.ResponseMarker {
			continue
		}
		found++
		compat := ""
		if remote, err := version.Parse(resp.APIVersion); err != nil || !ours.Compatible(remote) {
			compat = "  (incompatible)"
		}
		fmt.Fprintf(c.rl.Stdout(), "  %s:%d  server_id=%s  api_version=%s%s\n",
			addr.IP, resp.APIPort, resp.ServerID, resp.APIVersion, compat)
	}
	if found == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No servers found")
	}
}

func (c *Client) cmdConnect(args []string) {
	target := fmt.Sprintf("127.0.0.1:%d", discovery.DefaultCommandPort)
	if len(args) > 0 {
		target = args[0]
	}
	c.Connect(target)
}

// Connect opens a socket towards the given server address and starts
// the background reader. Any previous connection is dropped.
func (c *Client) Connect(target string) {
	addr, err := net.ResolveUDPAddr("udp4", target)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid address: %v\n", err)
		return
	}

	c.disconnect()

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}

	c.mu.Lock()
	c.conn = conn
	c.server = addr
	c.mu.Unlock()

	c.readerWg.Add(1)
	go c.readLoop(conn)

	fmt.Fprintf(c.rl.Stdout(), "Connected to %s as %s\n", addr, c.clientID)
}

func (c *Client) disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.server = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
		c.readerWg.Wait()
	}
}

// readLoop prints every inbound message above the prompt. Responses and
// pushes share the socket, so everything is demuxed by message type.
func (c *Client) readLoop(conn *net.UDPConn) {
	defer c.readerWg.Done()

	buf := make([]byte, discovery.MaxPacketSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		c.printMessage(buf[:n])
	}
}

func (c *Client) printMessage(data []byte) {
	out := c.rl.Stdout()

	msgType, err := wire.PeekType(data)
	if err != nil {
		fmt.Fprintf(out, "<- unreadable message: %v\n", err)
		return
	}

	switch msgType {
	case wire.TypeResponse:
		var resp wire.Response
		if json.Unmarshal(data, &resp) == nil {
			fmt.Fprintf(out, "<- response [%s] %s\n", shortID(resp.CommandID), compactJSON(resp.Result))
			return
		}
	case wire.TypeError:
		var resp wire.ErrorResponse
		if json.Unmarshal(data, &resp) == nil {
			fmt.Fprintf(out, "<- error [%s] %s\n", shortID(resp.CommandID), resp.Error)
			return
		}
	case wire.TypeEvent:
		var event wire.Event
		if json.Unmarshal(data, &event) == nil {
			fmt.Fprintf(out, "<- event %s %s\n", event.EventType, compactJSON(event.Data))
			return
		}
	case wire.TypeStatusUpdate:
		var status wire.StatusUpdate
		if json.Unmarshal(data, &status) == nil {
			fmt.Fprintf(out, "<- status %s\n", compactJSON(status.Status))
			return
		}
	}
	fmt.Fprintf(out, "<- %s\n", data)
}

// send fires a command at the connected server. Responses arrive
// asynchronously via the read loop.
func (c *Client) send(command string, params map[string]any) {
	c.mu.Lock()
	conn := c.conn
	server := c.server
	c.mu.Unlock()

	if conn == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected (use 'connect' first)")
		return
	}

	commandID := uuid.NewString()
	data, err := wire.EncodeCommand(&wire.Command{
		Command:   command,
		Params:    params,
		CommandID: commandID,
		ClientID:  c.clientID,
	})
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Encode failed: %v\n", err)
		return
	}

	if _, err := conn.WriteToUDP(data, server); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Send failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "-> %s [%s]\n", command, shortID(commandID))
}

func (c *Client) cmdPing(args []string) {
	params := map[string]any{}
	if len(args) > 0 {
		params["message"] = strings.Join(args, " ")
	}
	c.send("ping", params)
}

func (c *Client) cmdDevices(args []string) {
	params := map[string]any{}
	if len(args) > 0 {
		params["device_type"] = args[0]
	}
	c.send("get_device_status", params)
}

func (c *Client) cmdDiscrete(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: discrete <front|back> <motor> [intensity] [duration-ms]")
		return
	}
	params := map[string]any{
		"panel":       args[0],
		"motor_index": atoiOr(args[1], 0),
	}
	if len(args) > 2 {
		params["intensity"] = atoiOr(args[2], 100)
	}
	if len(args) > 3 {
		params["duration_ms"] = atoiOr(args[3], 500)
	}
	c.send("activate_discrete", params)
}

func (c *Client) cmdFunnel(args []string) {
	if len(args) < 3 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: funnel <front|back> <x> <y> [intensity]")
		return
	}
	x, errX := strconv.ParseFloat(args[1], 64)
	y, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil {
		fmt.Fprintln(c.rl.Stdout(), "Coordinates must be numbers between 0.0 and 1.0")
		return
	}
	params := map[string]any{
		"panel": args[0],
		"x":     x,
		"y":     y,
	}
	if len(args) > 3 {
		params["intensity"] = atoiOr(args[3], 100)
	}
	c.send("activate_funnelling", params)
}

func (c *Client) cmdGlove(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: glove <left|right> <motor> [intensity]")
		return
	}
	params := map[string]any{
		"glove":       args[0],
		"motor_index": atoiOr(args[1], 0),
	}
	if len(args) > 2 {
		params["intensity"] = atoiOr(args[2], 100)
	}
	c.send("activate_glove_motor", params)
}

// cmdCustom reads a JSON array of pattern steps from a local file and
// submits it for playback.
func (c *Client) cmdCustom(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: custom <steps.json> [duration-ms]")
		return
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Read failed: %v\n", err)
		return
	}
	var steps []any
	if err := json.Unmarshal(data, &steps); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid steps file: %v\n", err)
		return
	}

	params := map[string]any{"pattern": steps}
	if len(args) > 1 {
		params["duration_ms"] = atoiOr(args[1], 500)
	}
	c.send("play_custom_pattern", params)
}

func (c *Client) cmdPlay(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: play <tact-file> [key]")
		return
	}
	params := map[string]any{"pattern_file": args[0]}
	if len(args) > 1 {
		params["key"] = args[1]
	}
	c.send("play_pattern", params)
}

func (c *Client) cmdStop(args []string) {
	params := map[string]any{}
	if len(args) > 0 {
		params["key"] = args[0]
	}
	c.send("stop_pattern", params)
}

func (c *Client) cmdPlaying(args []string) {
	params := map[string]any{}
	if len(args) > 0 {
		params["key"] = args[0]
	}
	c.send("is_pattern_playing", params)
}

func (c *Client) cmdSubscribe(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: subscribe <event-type>")
		return
	}
	c.send("register_event_callback", map[string]any{"event_type": args[0]})
}

func (c *Client) cmdUnsubscribe(args []string) {
	params := map[string]any{}
	if len(args) > 0 {
		params["event_type"] = args[0]
	}
	c.send("unregister_event_callback", params)
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
