// Package realtime bridges a chat store to the QueryNest realtime relay.
//
// A Channel owns at most one connection. Rooms joined on it are remembered
// and re-joined whenever the connection is re-established. Messages received
// from the relay are handed to a Sink; outgoing messages are fire-and-forget
// and never correlated with their echo.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/model"
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrClosed       = errors.New("realtime: channel closed")
	ErrEmptyRoom    = errors.New("realtime: room id is required")
)

// Conn is a JSON message connection. *websocket.Conn satisfies it.
type Conn interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Sink receives inbound chat messages.
type Sink interface {
	AppendIncoming(roomID string, msg *model.ChatMessage) bool
}

type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// ReconnectPolicy is an exponential backoff with jitter, capped at
// MaxInterval. MaxElapsedTime of zero retries until Disconnect.
type ReconnectPolicy struct {
	Enabled         bool
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

type Config struct {
	Dialer    Dialer
	Sink      Sink
	Logger    zerolog.Logger
	Reconnect ReconnectPolicy
	// PingInterval paces keepalive pings; zero disables them.
	PingInterval time.Duration
}

// DefaultPingInterval keeps a connection well inside the relay's 60s read deadline.
const DefaultPingInterval = 25 * time.Second

type Channel struct {
	dialer       Dialer
	sink         Sink
	logger       zerolog.Logger
	reconnect    ReconnectPolicy
	pingInterval time.Duration

	mu       sync.Mutex
	state    State
	closed   bool
	conn     Conn
	endpoint string
	rooms    []string
	cancel   context.CancelFunc

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

func NewChannel(cfg Config) (*Channel, error) {
	if cfg.Dialer == nil {
		return nil, errors.New("realtime: Dialer is required")
	}
	if cfg.Sink == nil {
		return nil, errors.New("realtime: Sink is required")
	}
	return &Channel{
		dialer:       cfg.Dialer,
		sink:         cfg.Sink,
		logger:       cfg.Logger.With().Str("component", "realtime").Logger(),
		reconnect:    cfg.Reconnect,
		pingInterval: cfg.PingInterval,
	}, nil
}

// Connect dials endpoint unless a connection already exists, in which case it
// does nothing. While reconnecting the channel still counts as connected; a
// connection lost with reconnect disabled leaves it disconnected so a later
// Connect dials again. It fails with ErrClosed after Disconnect.
func (c *Channel) Connect(ctx context.Context, endpoint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.state == StateConnected {
		return nil
	}

	conn, err := c.dialer.Dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("realtime: connect %s: %w", endpoint, err)
	}

	if c.cancel != nil {
		// Stops the keepalive left over from a connection lost without reconnect.
		c.cancel()
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.conn = conn
	c.endpoint = endpoint
	c.cancel = cancel
	c.state = StateConnected

	c.wg.Add(1)
	go c.readLoop(runCtx, conn)
	if c.pingInterval > 0 {
		c.wg.Add(1)
		go c.keepalive(runCtx)
	}

	c.logger.Info().Str("endpoint", endpoint).Msg("connected")
	return nil
}

// JoinRoom asks the relay to add this connection to roomID. The room is
// remembered even when the send fails so a reconnect will join it.
func (c *Channel) JoinRoom(roomID string) error {
	if roomID == "" {
		return ErrEmptyRoom
	}

	c.mu.Lock()
	known := false
	for _, r := range c.rooms {
		if r == roomID {
			known = true
			break
		}
	}
	if !known && !c.closed {
		c.rooms = append(c.rooms, roomID)
	}
	c.mu.Unlock()

	conn, err := c.current()
	if err != nil {
		return err
	}
	if err := c.emit(conn, model.EventJoinRoom, roomID); err != nil {
		return fmt.Errorf("realtime: join %s: %w", roomID, err)
	}
	c.logger.Debug().Str("room_id", roomID).Msg("joined room")
	return nil
}

// SendMessage emits msg to every participant of roomID.
func (c *Channel) SendMessage(roomID string, msg *model.ChatMessage) error {
	if roomID == "" {
		return ErrEmptyRoom
	}
	if msg == nil {
		return errors.New("realtime: message is required")
	}
	conn, err := c.current()
	if err != nil {
		return err
	}
	payload := model.OutboundMessage{RoomID: roomID, ChatMessage: *msg}
	if err := c.emit(conn, model.EventSendMessage, payload); err != nil {
		return fmt.Errorf("realtime: send to %s: %w", roomID, err)
	}
	return nil
}

// Disconnect closes the connection and stops all background work. The
// channel cannot be reused afterwards.
func (c *Channel) Disconnect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateDisconnected
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.rooms = nil
	// Cancelled under the lock so a redial that wins the lock next sees it.
	if cancel != nil {
		cancel()
	}
	c.mu.Unlock()

	var err error
	if conn != nil {
		err = conn.Close()
	}
	c.wg.Wait()

	c.logger.Info().Msg("disconnected")
	return err
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Rooms lists the rooms joined so far, in join order.
func (c *Channel) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

func (c *Channel) current() (Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn == nil {
		return nil, ErrNotConnected
	}
	return c.conn, nil
}

func (c *Channel) emit(conn Conn, eventType string, data any) error {
	event, err := model.NewWSEvent(eventType, data)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(event)
}

func (c *Channel) readLoop(ctx context.Context, conn Conn) {
	defer c.wg.Done()

	for {
		err := c.receive(conn)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn().Err(err).Msg("connection lost")
		_ = conn.Close()

		if !c.reconnect.Enabled {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				if !c.closed {
					c.state = StateDisconnected
				}
			}
			c.mu.Unlock()
			return
		}

		next, err := c.redial(ctx)
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("giving up on reconnect")
			}
			c.mu.Lock()
			if !c.closed && c.conn == nil {
				c.state = StateDisconnected
			}
			c.mu.Unlock()
			return
		}
		conn = next
	}
}

// receive dispatches events from conn until it fails.
func (c *Channel) receive(conn Conn) error {
	for {
		var event model.WSEvent
		if err := conn.ReadJSON(&event); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				c.logger.Debug().Err(err).Msg("skipping malformed frame")
				continue
			}
			return err
		}
		c.dispatch(&event)
	}
}

func (c *Channel) dispatch(event *model.WSEvent) {
	switch event.Type {
	case model.EventReceiveMessage:
		var in model.InboundMessage
		if err := json.Unmarshal(event.Data, &in); err != nil {
			c.logger.Debug().Err(err).Msg("bad receiveMessage payload")
			return
		}
		if in.RoomID == "" || in.Message == nil {
			return
		}
		c.sink.AppendIncoming(in.RoomID, in.Message)
	case model.EventPong:
	default:
		c.logger.Debug().Str("type", event.Type).Msg("ignoring event")
	}
}

func (c *Channel) redial(ctx context.Context) (Conn, error) {
	policy := backoff.NewExponentialBackOff()
	if c.reconnect.InitialInterval > 0 {
		policy.InitialInterval = c.reconnect.InitialInterval
	}
	if c.reconnect.MaxInterval > 0 {
		policy.MaxInterval = c.reconnect.MaxInterval
	}
	policy.MaxElapsedTime = c.reconnect.MaxElapsedTime
	policy.Reset()

	c.mu.Lock()
	endpoint := c.endpoint
	c.conn = nil
	c.mu.Unlock()

	var conn Conn
	operation := func() error {
		dialed, err := c.dialer.Dial(ctx, endpoint)
		if err != nil {
			return err
		}
		conn = dialed
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug().Err(err).Dur("retry_in", wait).Msg("reconnect attempt failed")
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil, ErrClosed
	}
	c.conn = conn
	rooms := append([]string(nil), c.rooms...)
	c.mu.Unlock()

	for _, room := range rooms {
		if err := c.emit(conn, model.EventJoinRoom, room); err != nil {
			c.logger.Warn().Err(err).Str("room_id", room).Msg("rejoin failed")
		}
	}
	c.logger.Info().Int("rooms", len(rooms)).Msg("reconnected")
	return conn, nil
}

func (c *Channel) keepalive(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn, err := c.current()
			if err != nil {
				continue
			}
			if err := c.emit(conn, model.EventPing, nil); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}
