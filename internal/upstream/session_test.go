package upstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/types"
)

func TestBackoff_DoublesUntilCapped(t *testing.T) {
	cases := map[int]time.Duration{
		1: 2 * time.Second,
		2: 4 * time.Second,
		3: 8 * time.Second,
		4: 16 * time.Second,
		5: 30 * time.Second, // would be 32s uncapped
		6: 30 * time.Second,
	}
	for attempt, want := range cases {
		assert.Equal(t, want, backoff(attempt), "backoff(%d)", attempt)
	}
}

func newTestSession(capacity int) *Session {
	return &Session{
		logger: logging.NewNop(),
		out:    make(chan types.Event, capacity),
		in:     make(chan types.Event, capacity),
	}
}

func audioEvent() types.Event {
	return types.Event{"type": string(types.EventInputAudioBufferAppend)}
}

func TestDropOldestAndEnqueue_AllAudio_EvictsOldest(t *testing.T) {
	s := newTestSession(4)
	for i := 0; i < 4; i++ {
		s.out <- audioEvent()
	}

	marker := types.Event{"type": "response.cancel", "marker": "new"}
	s.dropOldestAndEnqueue(marker)

	require.Len(t, s.out, 4, "expected queue to stay at capacity 4")
	assert.Equal(t, int64(1), s.DropCount())

	var last types.Event
	for i := 0; i < 4; i++ {
		last = <-s.out
	}
	assert.Equal(t, "new", last["marker"], "expected the new event to survive at the tail")
}

func TestDropOldestAndEnqueue_PrefersEvictingNonAudio(t *testing.T) {
	s := newTestSession(4)
	s.out <- audioEvent()
	s.out <- types.Event{"type": "response.cancel", "marker": "should-be-evicted"}
	s.out <- audioEvent()
	s.out <- audioEvent()

	s.dropOldestAndEnqueue(audioEvent())

	require.Len(t, s.out, 4, "expected queue to stay at capacity 4")
	for i := 0; i < 4; i++ {
		ev := <-s.out
		assert.NotEqual(t, "should-be-evicted", ev["marker"], "expected the non-audio event to be evicted under pressure")
	}
}

func TestSend_NonBlockingWhenQueueHasRoom(t *testing.T) {
	s := newTestSession(4)
	require.NoError(t, s.Send(audioEvent()))
	assert.Len(t, s.out, 1)
}

func TestSend_ReturnsErrorWhenClosed(t *testing.T) {
	s := newTestSession(4)
	s.state = Closed
	assert.Error(t, s.Send(audioEvent()), "expected an error sending on a closed session")
}
