// Command haptic-ctl is an interactive client for the haptic bridge.
//
// It speaks the JSON datagram protocol from a readline shell: discovery
// probes, one-shot motor activation, pattern playback, and event
// subscriptions. Server pushes (responses, events, status broadcasts)
// print above the prompt as they arrive.
//
// Usage:
//
//	haptic-ctl [flags]
//
// Flags:
//
//	-server string   Server address to connect to at startup (host:port)
//
// Interactive Commands:
//
//	discover                 - Probe the local network for servers
//	connect <host:port>      - Connect to a server
//	ping [message]           - Ping the server
//	status                   - Request server status
//	wave / alternating       - Play built-in patterns
//	play <tact-file>         - Play a .tact pattern file
//	stop [key]               - Stop playback
//	subscribe <event-type>   - Subscribe to event pushes
//	quit                     - Exit
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/haptic-bridge/haptic-go/cmd/haptic-ctl/interactive"
)

var serverAddr string

func init() {
	flag.StringVar(&serverAddr, "server", "", "Server address to connect to at startup (host:port)")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Ltime)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ic, err := interactive.New()
	if err != nil {
		log.Fatalf("Failed to create interactive client: %v", err)
	}
	// Redirect log output through readline to avoid interfering with input
	log.SetOutput(ic.Stdout())

	if serverAddr != "" {
		ic.Connect(serverAddr)
	}

	go ic.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
		// Cancelled by the quit command
	}
}
