// Command haptic-log views and analyzes protocol log files.
//
// Log files are created by running haptic-bridge with the -protocol-log
// flag.
//
// Usage:
//
//	haptic-log <command> [flags] <file.hlog>
//
// Commands:
//
//	view    View log file in human-readable format
//	stats   Show statistics about the log file
//
// Examples:
//
//	# View all events
//	haptic-log view bridge.hlog
//
//	# View only pushed events for one client
//	haptic-log view -category push -client game-1 bridge.hlog
//
//	# Show statistics
//	haptic-log stats bridge.hlog
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/haptic-bridge/haptic-go/pkg/log"
)

const usage = `haptic-log - Haptics Protocol Log Analyzer

Usage:
  haptic-log <command> [flags] <file.hlog>

Commands:
  view     View log file in human-readable format
  stats    Show statistics about the log file

Use "haptic-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `haptic-log view - View log file in human-readable format

Usage:
  haptic-log view [flags] <file.hlog>

Flags:
`)
		fs.PrintDefaults()
	}

	clientID := fs.String("client", "", "Filter by client ID")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, server, device)")
	category := fs.String("category", "", "Filter by category (command, push, state, error)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	filter := log.Filter{ClientID: *clientID}
	if *direction != "" {
		d, err := parseDirection(*direction)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Direction = &d
	}
	if *layer != "" {
		l, err := parseLayer(*layer)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Layer = &l
	}
	if *category != "" {
		c, err := parseCategory(*category)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		filter.Category = &c
	}

	if err := view(fs.Arg(0), filter, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func view(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return err
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatEvent(event))
	}
}

// formatEvent renders one event as a single line.
func formatEvent(e log.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-3s %-9s %-7s",
		e.Timestamp.Format("15:04:05.000"), e.Direction, e.Layer, e.Category)
	if e.ClientID != "" {
		fmt.Fprintf(&b, " client=%s", e.ClientID)
	}
	if e.RemoteAddr != "" {
		fmt.Fprintf(&b, " addr=%s", e.RemoteAddr)
	}

	switch {
	case e.Command != nil:
		if e.Command.Name != "" {
			fmt.Fprintf(&b, " command=%s", e.Command.Name)
		}
		if e.Command.CommandID != "" {
			fmt.Fprintf(&b, " id=%s", e.Command.CommandID)
		}
		if e.Command.Outcome != "" {
			fmt.Fprintf(&b, " outcome=%s", e.Command.Outcome)
		}
		if e.Command.ProcessingTime != nil {
			fmt.Fprintf(&b, " took=%s", e.Command.ProcessingTime)
		}
	case e.Push != nil:
		fmt.Fprintf(&b, " event=%s recipients=%d", e.Push.EventType, e.Push.Recipients)
	case e.StateChange != nil:
		fmt.Fprintf(&b, " entity=%s %s->%s", e.StateChange.Entity,
			e.StateChange.OldState, e.StateChange.NewState)
		if e.StateChange.Reason != "" {
			fmt.Fprintf(&b, " reason=%s", e.StateChange.Reason)
		}
	case e.Error != nil:
		fmt.Fprintf(&b, " error=%q", e.Error.Message)
		if e.Error.Context != "" {
			fmt.Fprintf(&b, " context=%s", e.Error.Context)
		}
	}
	return b.String()
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `haptic-log stats - Show statistics about the log file

Usage:
  haptic-log stats <file.hlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	if err := stats(fs.Arg(0), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func stats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	total := 0
	byCategory := map[string]int{}
	byCommand := map[string]int{}
	clients := map[string]struct{}{}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		total++
		byCategory[event.Category.String()]++
		if event.ClientID != "" {
			clients[event.ClientID] = struct{}{}
		}
		if event.Command != nil && event.Command.Name != "" {
			byCommand[event.Command.Name]++
		}
	}

	fmt.Fprintf(w, "Events:  %d\n", total)
	fmt.Fprintf(w, "Clients: %d\n", len(clients))
	fmt.Fprintln(w, "By category:")
	for _, name := range sortedKeys(byCategory) {
		fmt.Fprintf(w, "  %-9s %d\n", name, byCategory[name])
	}
	if len(byCommand) > 0 {
		fmt.Fprintln(w, "By command:")
		for _, name := range sortedKeys(byCommand) {
			fmt.Fprintf(w, "  %-25s %d\n", name, byCommand[name])
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("unknown direction: %s (use: in, out)", s)
	}
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "server":
		return log.LayerServer, nil
	case "device":
		return log.LayerDevice, nil
	default:
		return 0, fmt.Errorf("unknown layer: %s (use: transport, wire, server, device)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "command":
		return log.CategoryCommand, nil
	case "push":
		return log.CategoryPush, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category: %s (use: command, push, state, error)", s)
	}
}
