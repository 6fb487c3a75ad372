package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	mu      sync.Mutex
	online  []int64
	offline []int64
}

func (m *recordingMirror) MarkOnline(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online = append(m.online, userID)
	return nil
}

func (m *recordingMirror) MarkOffline(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = append(m.offline, userID)
	return nil
}

func TestBroadcastReachesEveryoneIncludingSubject(t *testing.T) {
	reg := NewRegistry()
	a := newTestClient(42)
	b := newTestClient(7)
	reg.Admit(a)
	reg.Admit(b)

	bc := NewPresenceBroadcaster(reg, nil, nil)
	bc.Broadcast(context.Background(), 7, true)

	for _, c := range []*Client{a, b} {
		frames := drainFrames(t, c)
		require.Len(t, frames, 1, "user %d", c.UserID)
		assert.Equal(t, FramePresence, frames[0]["type"])
		assert.Equal(t, float64(7), frames[0]["userId"])
		assert.Equal(t, true, frames[0]["online"])
	}
}

func TestBroadcastSurvivesDeadRecipient(t *testing.T) {
	reg := NewRegistry()
	dead := newTestClient(1)
	alive := newTestClient(2)
	reg.Admit(dead)
	reg.Admit(alive)
	dead.Close()

	bc := NewPresenceBroadcaster(reg, nil, nil)
	bc.Broadcast(context.Background(), 3, false)

	frames := drainFrames(t, alive)
	require.Len(t, frames, 1)
	assert.Equal(t, false, frames[0]["online"])
}

func TestBroadcastUpdatesMirrorAndEvents(t *testing.T) {
	reg := NewRegistry()
	mirror := &recordingMirror{}
	events := &recordingPublisher{}

	bc := NewPresenceBroadcaster(reg, mirror, events)
	bc.Broadcast(context.Background(), 42, true)
	bc.Broadcast(context.Background(), 42, false)

	assert.Equal(t, []int64{42}, mirror.online)
	assert.Equal(t, []int64{42}, mirror.offline)
	assert.Equal(t, []string{"chat.presence.changed", "chat.presence.changed"}, events.published())
}
