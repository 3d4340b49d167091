package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationTrackRoundTrip(t *testing.T) {
	tr := newCorrelationTracker()

	tr.track("cmd-1", "c1", "ping")
	tr.track("cmd-2", "c1", "get_status")
	assert.Equal(t, 2, tr.len())

	elapsed, ok := tr.complete("cmd-1")
	assert.True(t, ok)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	assert.Equal(t, 1, tr.len())

	_, ok = tr.complete("cmd-1")
	assert.False(t, ok)
}

func TestCorrelationSweep(t *testing.T) {
	tr := newCorrelationTracker()

	tr.track("old", "c1", "ping")
	tr.entries["old"] = correlationEntry{
		clientID: "c1",
		command:  "ping",
		started:  time.Now().Add(-2 * time.Minute),
	}
	tr.track("fresh", "c1", "ping")

	assert.Equal(t, 1, tr.sweep(time.Minute))
	assert.Equal(t, 1, tr.len())
	_, ok := tr.complete("fresh")
	assert.True(t, ok)
}

func TestClientRegistry(t *testing.T) {
	r := newClientRegistry()
	addr := mustUDPAddr(t, "127.0.0.1:4000")

	assert.True(t, r.touch("c1", addr))
	assert.False(t, r.touch("c1", addr))
	assert.Equal(t, 1, r.len())
	assert.Equal(t, addr, r.addr("c1"))
	assert.Nil(t, r.addr("c2"))

	all := r.all()
	assert.Len(t, all, 1)

	r.remove("c1")
	assert.Equal(t, 0, r.len())
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "0d 0h 0m 5s", formatUptime(5*time.Second))
	assert.Equal(t, "0d 2h 3m 4s", formatUptime(2*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "1d 0h 0m 0s", formatUptime(24*time.Hour))
}
