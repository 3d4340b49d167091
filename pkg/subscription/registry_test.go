package subscription

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscribeAndSubscribers(t *testing.T) {
	r := NewRegistry()

	r.Subscribe("pattern_complete", "c1")
	r.Subscribe("pattern_complete", "c2")
	r.Subscribe("pattern_error", "c1")

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.Subscribers("pattern_complete"))
	assert.ElementsMatch(t, []string{"c1"}, r.Subscribers("pattern_error"))
	assert.Empty(t, r.Subscribers("unknown_event"))

	assert.True(t, r.IsSubscribed("pattern_complete", "c1"))
	assert.False(t, r.IsSubscribed("pattern_complete", "c3"))
	assert.Equal(t, 2, r.Count("pattern_complete"))
}

func TestSubscribeIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Subscribe("pattern_complete", "c1")
	r.Subscribe("pattern_complete", "c1")

	assert.Equal(t, 1, r.Count("pattern_complete"))
}

func TestUnsubscribe(t *testing.T) {
	r := NewRegistry()

	r.Subscribe("pattern_complete", "c1")
	assert.True(t, r.Unsubscribe("pattern_complete", "c1"))
	assert.False(t, r.Unsubscribe("pattern_complete", "c1"))
	assert.False(t, r.Unsubscribe("never_seen", "c1"))
	assert.Empty(t, r.EventTypes())
}

func TestUnsubscribeAll(t *testing.T) {
	r := NewRegistry()

	r.Subscribe("pattern_complete", "c1")
	r.Subscribe("pattern_error", "c1")
	r.Subscribe("pattern_complete", "c2")

	removed := r.UnsubscribeAll("c1")
	assert.ElementsMatch(t, []string{"pattern_complete", "pattern_error"}, removed)
	assert.False(t, r.IsSubscribed("pattern_complete", "c1"))
	assert.True(t, r.IsSubscribed("pattern_complete", "c2"))

	assert.Empty(t, r.UnsubscribeAll("c1"))
}

func TestRegistryConcurrent(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			clientID := fmt.Sprintf("client-%d", n)
			for j := 0; j < 100; j++ {
				r.Subscribe("pattern_complete", clientID)
				r.Subscribers("pattern_complete")
				r.IsSubscribed("pattern_complete", clientID)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 8, r.Count("pattern_complete"))
}
