package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func sampleEvent(clientID string, cat Category) Event {
	ev := Event{
		Timestamp:  time.Now(),
		ClientID:   clientID,
		Direction:  DirectionIn,
		Layer:      LayerServer,
		Category:   cat,
		RemoteAddr: "127.0.0.1:50000",
	}
	switch cat {
	case CategoryCommand:
		ev.Command = &CommandEvent{Name: "ping", CommandID: "c1"}
	case CategoryError:
		ev.Error = &ErrorEventData{Layer: LayerWire, Message: "bad json"}
	}
	return ev
}

func TestEventRoundTrip(t *testing.T) {
	ev := sampleEvent("unity-1", CategoryCommand)

	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.ClientID != "unity-1" {
		t.Errorf("ClientID = %q", decoded.ClientID)
	}
	if decoded.Command == nil || decoded.Command.Name != "ping" {
		t.Errorf("Command payload lost: %+v", decoded.Command)
	}
	if decoded.Category != CategoryCommand {
		t.Errorf("Category = %v", decoded.Category)
	}
}

func TestFileLoggerWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.hlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	logger.Log(sampleEvent("a", CategoryCommand))
	logger.Log(sampleEvent("b", CategoryError))
	logger.Log(sampleEvent("a", CategoryError))

	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close is a no-op.
	if err := logger.Close(); err != nil {
		t.Errorf("repeated Close returned error: %v", err)
	}
	// Logging after close is silently ignored.
	logger.Log(sampleEvent("c", CategoryCommand))

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		_, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		count++
	}
	if count != 3 {
		t.Errorf("read %d events, want 3", count)
	}
}

func TestFilteredReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.hlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(sampleEvent("a", CategoryCommand))
	logger.Log(sampleEvent("b", CategoryError))
	logger.Log(sampleEvent("a", CategoryError))
	logger.Close()

	reader, err := NewFilteredReader(path, Filter{ClientID: "a"})
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		ev, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if ev.ClientID != "a" {
			t.Errorf("filter leaked event for client %q", ev.ClientID)
		}
		count++
	}
	if count != 2 {
		t.Errorf("read %d filtered events, want 2", count)
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.hlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Log(sampleEvent("concurrent", CategoryCommand))
			}
		}()
	}
	wg.Wait()
	logger.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()

	count := 0
	for {
		if _, err := reader.Next(); err != nil {
			break
		}
		count++
	}
	if count != 200 {
		t.Errorf("read %d events, want 200", count)
	}
}

func TestMultiLoggerFansOut(t *testing.T) {
	var a, b countingLogger
	multi := NewMultiLogger(&a, &b)

	multi.Log(sampleEvent("x", CategoryCommand))
	multi.Log(sampleEvent("y", CategoryError))

	if a.count != 2 || b.count != 2 {
		t.Errorf("counts = %d,%d, want 2,2", a.count, b.count)
	}
}

type countingLogger struct {
	mu    sync.Mutex
	count int
}

func (c *countingLogger) Log(Event) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func TestSlogAdapterDoesNotPanic(t *testing.T) {
	adapter := NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	adapter.Log(sampleEvent("s", CategoryCommand))
	adapter.Log(sampleEvent("s", CategoryError))
	adapter.Log(Event{Timestamp: time.Now(), StateChange: &StateChangeEvent{
		Entity:   StateEntityServer,
		NewState: "RUNNING",
	}})
	adapter.Log(Event{Timestamp: time.Now(), Push: &PushEvent{
		EventType:  "pattern_complete",
		Recipients: 2,
	}})
}
