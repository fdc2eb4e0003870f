package conversation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"chatrelay/internal/domain"
)

// Store owns every message sequence: one ordered slice per direct pair-key and
// one per group name. Timestamps and message IDs are assigned here, server
// side, never trusted from the client. The router serializes mutations per
// conversation key; the internal mutex only guards against concurrent access
// across unrelated keys sharing the maps.
type Store struct {
	mu     sync.RWMutex
	direct map[string][]*domain.DirectMessage
	groups map[string][]*domain.GroupMessage

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		direct: make(map[string][]*domain.DirectMessage),
		groups: make(map[string][]*domain.GroupMessage),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Restore replaces the store contents with a loaded snapshot. Called once at
// startup before any inbound event is accepted.
func (s *Store) Restore(snap *domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, msgs := range snap.Direct {
		s.direct[key] = msgs
	}
	for name, doc := range snap.Groups {
		s.groups[name] = doc.Messages
	}
}

// AppendDirect stores a direct message from -> to, assigning its ID and
// timestamp, and returns the stored record.
func (s *Store) AppendDirect(from, to, body string, attachment *domain.Attachment) *domain.DirectMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &domain.DirectMessage{
		ID:         uuid.NewString(),
		From:       from,
		To:         to,
		Body:       body,
		Attachment: attachment,
		Timestamp:  s.now(),
	}
	key := domain.PairKey(from, to)
	s.direct[key] = append(s.direct[key], msg)
	return msg
}

// FetchDirect returns the full shared history for the pair {a, b}, oldest
// first. The order of a and b does not matter.
func (s *Store) FetchDirect(a, b string) []*domain.DirectMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.direct[domain.PairKey(a, b)]
	out := make([]*domain.DirectMessage, len(msgs))
	copy(out, msgs)
	return out
}

// MarkDirectRead flips read=true on every unread message sent by peer to
// reader and returns the affected subset, so the caller can notify peer.
// Read flags are monotonic: nothing ever flips one back.
func (s *Store) MarkDirectRead(reader, peer string) []*domain.DirectMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var flipped []*domain.DirectMessage
	for _, m := range s.direct[domain.PairKey(reader, peer)] {
		if m.From == peer && m.To == reader && !m.Read {
			m.Read = true
			flipped = append(flipped, m)
		}
	}
	return flipped
}

// DeleteDirect removes the message with the given ID from the pair's sequence
// and reports whether a match was found.
func (s *Store) DeleteDirect(a, b, id string) (*domain.DirectMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := domain.PairKey(a, b)
	msgs := s.direct[key]
	for i, m := range msgs {
		if m.ID == id {
			s.direct[key] = append(msgs[:i:i], msgs[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// UnreadDirectCount derives the unread count for reader against peer by
// recounting the stored sequence.
func (s *Store) UnreadDirectCount(reader, peer string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.direct[domain.PairKey(reader, peer)] {
		if m.To == reader && !m.Read {
			n++
		}
	}
	return n
}

// AppendGroup stores a group message, assigning its ID and timestamp and
// seeding ReadBy with the sender.
func (s *Store) AppendGroup(groupName, from, body string, attachment *domain.Attachment, forwarded bool) *domain.GroupMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &domain.GroupMessage{
		ID:         uuid.NewString(),
		From:       from,
		GroupName:  groupName,
		Body:       body,
		Attachment: attachment,
		Timestamp:  s.now(),
		Forwarded:  forwarded,
		ReadBy:     []string{from},
	}
	s.groups[groupName] = append(s.groups[groupName], msg)
	return msg
}

// FetchGroup returns the group's full history, oldest first.
func (s *Store) FetchGroup(groupName string) []*domain.GroupMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.groups[groupName]
	out := make([]*domain.GroupMessage, len(msgs))
	copy(out, msgs)
	return out
}

// MarkGroupRead adds identity to ReadBy on every message in the group not
// already containing it. Idempotent: the second call changes nothing and
// reports changed=false. Returns the updated full sequence.
func (s *Store) MarkGroupRead(groupName, identity string) (msgs []*domain.GroupMessage, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.groups[groupName] {
		if !m.HasRead(identity) {
			m.ReadBy = append(m.ReadBy, identity)
			changed = true
		}
	}
	stored := s.groups[groupName]
	msgs = make([]*domain.GroupMessage, len(stored))
	copy(msgs, stored)
	return msgs, changed
}

// DeleteGroupMessage removes the message with the given ID from the group's
// sequence and reports whether a match was found.
func (s *Store) DeleteGroupMessage(groupName, id string) (*domain.GroupMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := s.groups[groupName]
	for i, m := range msgs {
		if m.ID == id {
			s.groups[groupName] = append(msgs[:i:i], msgs[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// UnreadGroupCount derives the unread count for identity in the group.
func (s *Store) UnreadGroupCount(groupName, identity string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, m := range s.groups[groupName] {
		if !m.HasRead(identity) {
			n++
		}
	}
	return n
}

// SnapshotDirect deep-copies a pair's sequence for handoff to the persistence
// flusher, so later read-state mutations cannot race a pending write.
func (s *Store) SnapshotDirect(pairKey string) []*domain.DirectMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.direct[pairKey]
	out := make([]*domain.DirectMessage, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// SnapshotGroup deep-copies a group's sequence for handoff to the persistence
// flusher.
func (s *Store) SnapshotGroup(groupName string) []*domain.GroupMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.groups[groupName]
	out := make([]*domain.GroupMessage, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// DropGroup discards a dissolved group's message sequence. The name becomes
// available for reuse as a brand-new, history-less group.
func (s *Store) DropGroup(groupName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups, groupName)
}
