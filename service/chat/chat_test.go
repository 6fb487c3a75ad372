package chat

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/marc0cl/domu-backend-sub001/tools/ids"
)

// fakeTransport stands in for a websocket connection so registry, router and
// presence behavior can be exercised without sockets.
type fakeTransport struct {
	mu      sync.Mutex
	written [][]byte
	closed  bool

	readCh  chan []byte
	closeCh chan struct{}
	once    sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		readCh:  make(chan []byte, 16),
		closeCh: make(chan struct{}),
	}
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case data := <-f.readCh:
		return 1, data, nil
	case <-f.closeCh:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("closed")
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeTransport) WriteControl(int, []byte, time.Time) error { return nil }
func (f *fakeTransport) SetReadDeadline(time.Time) error           { return nil }
func (f *fakeTransport) SetWriteDeadline(time.Time) error          { return nil }
func (f *fakeTransport) SetPongHandler(func(string) error)         {}
func (f *fakeTransport) SetReadLimit(int64)                        {}
func (f *fakeTransport) RemoteAddr() net.Addr                      { return nil }

func (f *fakeTransport) Close() error {
	f.once.Do(func() {
		f.mu.Lock()
		f.closed = true
		f.mu.Unlock()
		close(f.closeCh)
	})
	return nil
}

func newTestClient(userID int64) *Client {
	return NewClient(ids.NewConnID(), userID, newFakeTransport(), ClientConfig{SendQueueSize: 16})
}

// drainFrames empties the client's send queue and decodes each frame.
func drainFrames(t *testing.T, c *Client) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case data := <-c.send:
			var m map[string]any
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("decode outbound frame: %v", err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func frameTypes(frames []map[string]any) []string {
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		s, _ := f["type"].(string)
		out = append(out, s)
	}
	return out
}
