// Package view is the lifecycle controller behind a chat screen. A View owns
// the chat store, the realtime channel and the selection state for as long as
// the screen is mounted; Unmount releases all of them.
package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/chat"
	"github.com/PadhikariDev/querynest/internal/directory"
	"github.com/PadhikariDev/querynest/internal/model"
	"github.com/PadhikariDev/querynest/internal/realtime"
	"github.com/PadhikariDev/querynest/internal/session"
)

var (
	ErrNothingToSend = errors.New("view: nothing to send")
	ErrUnknownQuery  = errors.New("view: unknown query")
	ErrNoSelection   = errors.New("view: no query selected")
	ErrUnknownTag    = errors.New("view: tag does not belong to the selected query")
	ErrFixedTag      = errors.New("view: staff chat is fixed to the role tag")
)

type Kind int

const (
	KindUser Kind = iota
	KindStaff
)

func (k Kind) String() string {
	if k == KindStaff {
		return "staff"
	}
	return "user"
}

type Status int

const (
	StatusLoading Status = iota
	StatusReady
)

type Options struct {
	Kind      Kind
	Directory *directory.Directory
	Dialer    realtime.Dialer
	// Endpoint is the relay websocket URL.
	Endpoint     string
	Identity     *model.Identity
	Reconnect    realtime.ReconnectPolicy
	PingInterval time.Duration
	// DedupeAll applies exact-match de-duplication in the user view too.
	DedupeAll bool
	Logger    zerolog.Logger
	// Now stamps outgoing messages; time.Now when nil.
	Now func() time.Time
}

// Selection is the query whose chat is open and the tag being read and
// written. An empty QueryID means nothing is selected.
type Selection struct {
	QueryID string
	Tag     string
}

type View struct {
	kind     Kind
	dir      *directory.Directory
	endpoint string
	sender   string
	now      func() time.Time
	logger   zerolog.Logger

	store   *chat.Store
	channel *realtime.Channel

	updates chan chat.Update
	done    chan struct{}

	mu        sync.RWMutex
	status    Status
	queries   []model.Query
	selection Selection
	unmounted bool
}

func New(opts Options) (*View, error) {
	if opts.Directory == nil {
		return nil, errors.New("view: Directory is required")
	}

	v := &View{
		kind:     opts.Kind,
		dir:      opts.Directory,
		endpoint: opts.Endpoint,
		sender:   session.DisplayName(opts.Identity, opts.Kind == KindStaff),
		now:      opts.Now,
		logger:   opts.Logger.With().Str("component", "view").Str("view", opts.Kind.String()).Logger(),
		updates:  make(chan chat.Update, 64),
		done:     make(chan struct{}),
	}
	if v.now == nil {
		v.now = time.Now
	}

	viewer := chat.ViewerUser
	if opts.Kind == KindStaff {
		viewer = chat.ViewerStaff
	}
	storeOpts := []chat.Option{chat.WithNotify(v.publish)}
	if opts.DedupeAll {
		storeOpts = append(storeOpts, chat.WithDedupe(true))
	}
	v.store = chat.NewStore(viewer, storeOpts...)

	channel, err := realtime.NewChannel(realtime.Config{
		Dialer:       opts.Dialer,
		Sink:         v.store,
		Logger:       opts.Logger,
		Reconnect:    opts.Reconnect,
		PingInterval: opts.PingInterval,
	})
	if err != nil {
		return nil, err
	}
	v.channel = channel
	return v, nil
}

// Mount connects to the relay and loads the directory. A relay failure is
// logged and the view stays usable; a directory failure is returned and the
// view stays loading.
func (v *View) Mount(ctx context.Context) error {
	if err := v.channel.Connect(ctx, v.endpoint); err != nil {
		v.logger.Warn().Err(err).Msg("realtime unavailable, chat will not update live")
	}
	return v.Refresh(ctx)
}

// Refresh reloads the directory and rebuilds every bucket from history. On
// failure the previous queries and buckets are kept.
func (v *View) Refresh(ctx context.Context) error {
	role := model.ActorUser
	if v.kind == KindStaff {
		role = model.ActorStaff
	}
	queries, err := v.dir.Fetch(ctx, role)
	if err != nil {
		v.logger.Error().Err(err).Msg("failed to fetch queries")
		return err
	}

	v.store.InitializeFromHistory(queries)

	v.mu.Lock()
	v.queries = queries
	v.status = StatusReady
	v.mu.Unlock()

	v.logger.Debug().Int("queries", len(queries)).Msg("directory loaded")
	return nil
}

// Select opens a query's chat and joins its room. The join is not awaited.
func (v *View) Select(queryID string) error {
	v.mu.Lock()
	q, ok := v.findLocked(queryID)
	if !ok {
		v.mu.Unlock()
		return ErrUnknownQuery
	}
	tag := q.FirstTag()
	if v.kind == KindStaff {
		tag = v.dir.RoleTag()
	}
	v.selection = Selection{QueryID: queryID, Tag: tag}
	v.mu.Unlock()

	if err := v.channel.JoinRoom(queryID); err != nil {
		v.logger.Warn().Err(err).Str("room_id", queryID).Msg("join failed")
	}
	return nil
}

// SetActiveTag switches the user view to another tag of the selected query.
func (v *View) SetActiveTag(tag string) error {
	if v.kind == KindStaff {
		return ErrFixedTag
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selection.QueryID == "" {
		return ErrNoSelection
	}
	q, ok := v.findLocked(v.selection.QueryID)
	if !ok || !q.HasTag(tag) {
		return ErrUnknownTag
	}
	v.selection.Tag = tag
	return nil
}

// Send emits text to the selected room and appends it to the active bucket
// right away. A transport failure does not undo the local append.
func (v *View) Send(text string) (*model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	sel := v.Selection()
	if text == "" || sel.QueryID == "" || sel.Tag == "" {
		return nil, ErrNothingToSend
	}

	role := model.RoleUser
	if v.kind == KindStaff {
		role = model.RoleStaff
	}
	msg := &model.ChatMessage{
		Sender: v.sender,
		Text:   text,
		Role:   role,
		Tag:    sel.Tag,
		Time:   v.now(),
	}

	if err := v.channel.SendMessage(sel.QueryID, msg); err != nil {
		v.logger.Warn().Err(err).Str("room_id", sel.QueryID).Msg("send failed")
	}
	v.store.AppendOutgoing(sel.QueryID, sel.Tag, msg)
	return msg, nil
}

// Unmount disconnects from the relay. The view cannot be mounted again.
func (v *View) Unmount() error {
	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return nil
	}
	v.unmounted = true
	v.mu.Unlock()

	err := v.channel.Disconnect()
	close(v.done)
	return err
}

func (v *View) Kind() Kind { return v.kind }

func (v *View) Sender() string { return v.sender }

func (v *View) Status() Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.status
}

func (v *View) Queries() []model.Query {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]model.Query(nil), v.queries...)
}

// Query returns a loaded query by id.
func (v *View) Query(id string) (model.Query, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	q, ok := v.findLocked(id)
	if !ok {
		return model.Query{}, false
	}
	return *q, true
}

func (v *View) Selection() Selection {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.selection
}

// ActiveBucket is the message list the chat panel shows.
func (v *View) ActiveBucket() []*model.ChatMessage {
	sel := v.Selection()
	if sel.QueryID == "" {
		return []*model.ChatMessage{}
	}
	return v.store.Bucket(sel.QueryID, sel.Tag)
}

func (v *View) Store() *chat.Store { return v.store }

func (v *View) ChannelState() realtime.State { return v.channel.State() }

// Updates delivers store changes. Updates are dropped rather than queued
// when the reader falls behind, so treat each one as "re-render".
func (v *View) Updates() <-chan chat.Update { return v.updates }

// Done is closed by Unmount.
func (v *View) Done() <-chan struct{} { return v.done }

func (v *View) publish(u chat.Update) {
	select {
	case v.updates <- u:
	default:
	}
}

func (v *View) findLocked(id string) (*model.Query, bool) {
	for i := range v.queries {
		if v.queries[i].ID == id {
			return &v.queries[i], true
		}
	}
	return nil, false
}
