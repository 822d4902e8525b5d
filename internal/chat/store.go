// Package chat holds the in-memory chat state of a mounted view: for every
// query (room) and tag, the ordered list of messages shown in that channel.
//
// Buckets only grow. Order within a bucket is the order in which appends
// reached the store, which is event-arrival order rather than timestamp order.
package chat

import (
	"slices"
	"strings"
	"sync"

	"github.com/PadhikariDev/querynest/internal/model"
)

// Viewer selects the per-view policies of a Store.
type Viewer int

const (
	// ViewerUser seeds empty buckets with a placeholder and keeps duplicates.
	ViewerUser Viewer = iota
	// ViewerStaff never seeds and drops exact duplicates on receipt.
	ViewerStaff
)

func (v Viewer) String() string {
	if v == ViewerStaff {
		return "staff"
	}
	return "user"
}

// Update identifies the bucket touched by a mutation. A zero Update follows
// InitializeFromHistory, which replaces every bucket.
type Update struct {
	RoomID string
	Tag    string
}

type Option func(*Store)

// WithDedupe overrides the viewer's de-duplication policy.
func WithDedupe(enabled bool) Option {
	return func(s *Store) { s.dedupe = enabled }
}

// WithNotify registers a callback run after every mutation, outside the lock.
func WithNotify(fn func(Update)) Option {
	return func(s *Store) { s.notify = fn }
}

type Store struct {
	viewer Viewer
	dedupe bool
	notify func(Update)

	mu    sync.RWMutex
	rooms map[string]map[string][]*model.ChatMessage
}

func NewStore(viewer Viewer, opts ...Option) *Store {
	s := &Store{
		viewer: viewer,
		dedupe: viewer == ViewerStaff,
		rooms:  make(map[string]map[string][]*model.ChatMessage),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Viewer() Viewer { return s.viewer }

// Dedupes reports whether AppendIncoming drops exact duplicates.
func (s *Store) Dedupes() bool { return s.dedupe }

// InitializeFromHistory replaces the whole state with the buckets built from
// each query's history. Messages without a tag land in the default bucket and
// messages without a time take the query's submission time.
func (s *Store) InitializeFromHistory(queries []model.Query) {
	rooms := make(map[string]map[string][]*model.ChatMessage, len(queries))
	for i := range queries {
		q := &queries[i]
		buckets := make(map[string][]*model.ChatMessage)
		for _, tag := range q.TagList() {
			bucket := []*model.ChatMessage{}
			for _, m := range q.Messages {
				if m == nil || m.Bucket() != tag {
					continue
				}
				entry := *m
				if entry.Time.IsZero() {
					entry.Time = q.SubmittedAt
				}
				bucket = append(bucket, &entry)
			}
			if len(bucket) == 0 && s.viewer == ViewerUser {
				bucket = append(bucket, model.NewPlaceholder(tag, q.SubmittedAt))
			}
			buckets[tag] = bucket
		}
		rooms[q.ID] = buckets
	}

	s.mu.Lock()
	s.rooms = rooms
	s.mu.Unlock()

	s.fire(Update{})
}

// AppendIncoming files a message received from the realtime channel. It
// returns false when the message was dropped as a duplicate.
func (s *Store) AppendIncoming(roomID string, msg *model.ChatMessage) bool {
	if msg == nil {
		return false
	}
	tag := msg.Bucket()

	s.mu.Lock()
	bucket := s.bucketLocked(roomID, tag)
	if s.dedupe && slices.ContainsFunc(bucket, msg.SameAs) {
		s.mu.Unlock()
		return false
	}
	s.rooms[roomID][tag] = append(bucket, msg)
	s.mu.Unlock()

	s.fire(Update{RoomID: roomID, Tag: tag})
	return true
}

// AppendOutgoing records a locally sent message before the server sees it.
func (s *Store) AppendOutgoing(roomID, tag string, msg *model.ChatMessage) {
	if msg == nil {
		return
	}
	if strings.TrimSpace(tag) == "" {
		tag = model.DefaultTag
	}

	s.mu.Lock()
	bucket := s.bucketLocked(roomID, tag)
	s.rooms[roomID][tag] = append(bucket, msg)
	s.mu.Unlock()

	s.fire(Update{RoomID: roomID, Tag: tag})
}

// Bucket returns a snapshot of one bucket. The slice is never nil and holds
// the same message pointers that were appended.
func (s *Store) Bucket(roomID, tag string) []*model.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.rooms[roomID][tag]
	out := make([]*model.ChatMessage, len(bucket))
	copy(out, bucket)
	return out
}

func (s *Store) Len(roomID, tag string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID][tag])
}

// Tags lists the buckets of a room in sorted order.
func (s *Store) Tags(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]string, 0, len(s.rooms[roomID]))
	for tag := range s.rooms[roomID] {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

func (s *Store) Rooms() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		rooms = append(rooms, id)
	}
	slices.Sort(rooms)
	return rooms
}

// bucketLocked returns the bucket for (roomID, tag), creating the room map
// if needed. Callers hold s.mu for writing.
func (s *Store) bucketLocked(roomID, tag string) []*model.ChatMessage {
	room, ok := s.rooms[roomID]
	if !ok {
		room = make(map[string][]*model.ChatMessage)
		s.rooms[roomID] = room
	}
	return room[tag]
}

func (s *Store) fire(u Update) {
	if s.notify != nil {
		s.notify(u)
	}
}
