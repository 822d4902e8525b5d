package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/PadhikariDev/querynest/internal/model"
)

// fakeConn feeds queued events to the reader and records writes.
type fakeConn struct {
	inbox  chan *model.WSEvent
	writes chan *model.WSEvent

	closeOnce sync.Once
	done      chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbox:  make(chan *model.WSEvent, 16),
		writes: make(chan *model.WSEvent, 64),
		done:   make(chan struct{}),
	}
}

func (f *fakeConn) ReadJSON(v any) error {
	select {
	case ev, ok := <-f.inbox:
		if !ok {
			return io.EOF
		}
		*(v.(*model.WSEvent)) = *ev
		return nil
	case <-f.done:
		return net.ErrClosed
	}
}

func (f *fakeConn) WriteJSON(v any) error {
	select {
	case <-f.done:
		return net.ErrClosed
	case f.writes <- v.(*model.WSEvent):
		return nil
	}
}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

// drop simulates the relay going away.
func (f *fakeConn) drop() { close(f.inbox) }

func (f *fakeConn) push(roomID string, m *model.ChatMessage) {
	data, _ := json.Marshal(model.InboundMessage{RoomID: roomID, Message: m})
	f.inbox <- &model.WSEvent{Type: model.EventReceiveMessage, Data: data}
}

func (f *fakeConn) nextWrite(timeout time.Duration) (*model.WSEvent, error) {
	select {
	case ev := <-f.writes:
		return ev, nil
	case <-time.After(timeout):
		return nil, errors.New("no write")
	}
}

// fakeDialer hands out queued conns; failures are returned while fail > 0.
type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	fail  int
	dials int
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.fail > 0 {
		d.fail--
		return nil, errors.New("connection refused")
	}
	if len(d.conns) == 0 {
		return nil, errors.New("no more conns")
	}
	c := d.conns[0]
	d.conns = d.conns[1:]
	return c, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// gatedDialer returns first straight away and parks every later dial until
// release is closed, ignoring the context like a stuck handshake would.
type gatedDialer struct {
	first, late *fakeConn
	dialing     chan struct{}
	release     chan struct{}

	mu    sync.Mutex
	dials int
}

func newGatedDialer(first, late *fakeConn) *gatedDialer {
	return &gatedDialer{
		first:   first,
		late:    late,
		dialing: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
}

func (d *gatedDialer) Dial(context.Context, string) (Conn, error) {
	d.mu.Lock()
	d.dials++
	n := d.dials
	d.mu.Unlock()
	if n == 1 {
		return d.first, nil
	}
	select {
	case d.dialing <- struct{}{}:
	default:
	}
	<-d.release
	return d.late, nil
}

// recordingSink collects inbound messages.
type recordingSink struct {
	mu   sync.Mutex
	got  []model.InboundMessage
	seen chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{seen: make(chan struct{}, 16)}
}

func (s *recordingSink) AppendIncoming(roomID string, m *model.ChatMessage) bool {
	s.mu.Lock()
	s.got = append(s.got, model.InboundMessage{RoomID: roomID, Message: m})
	s.mu.Unlock()
	s.seen <- struct{}{}
	return true
}

func (s *recordingSink) wait(timeout time.Duration) bool {
	select {
	case <-s.seen:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *recordingSink) messages() []model.InboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.InboundMessage(nil), s.got...)
}
