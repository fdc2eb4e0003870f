package domain

import (
	"sort"
	"strings"
	"time"
)

// SystemIdentity is the sender recorded on synthesized membership messages.
const SystemIdentity = "System"

// Attachment is an opaque payload carried alongside (or instead of) a message
// body. The core never inspects it.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`
}

// DirectMessage is one message in a two-party conversation. ID is the
// canonical identifier assigned at append time; Timestamp is display metadata.
type DirectMessage struct {
	ID         string      `json:"id"`
	From       string      `json:"from"`
	To         string      `json:"to"`
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Read       bool        `json:"read"`
}

// GroupMessage is one message in a named group. ReadBy holds every identity
// that has acknowledged reading it; it always contains From.
type GroupMessage struct {
	ID         string      `json:"id"`
	From       string      `json:"from"`
	GroupName  string      `json:"group_name"`
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
	Forwarded  bool        `json:"forwarded"`
	ReadBy     []string    `json:"read_by"`
}

// Clone returns a copy safe to hand to another goroutine. Attachment is
// shared; it is immutable after append.
func (m *DirectMessage) Clone() *DirectMessage {
	c := *m
	return &c
}

// HasRead reports whether identity appears in the message's ReadBy set.
func (m *GroupMessage) HasRead(identity string) bool {
	for _, id := range m.ReadBy {
		if id == identity {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to hand to another goroutine, with its own ReadBy
// slice.
func (m *GroupMessage) Clone() *GroupMessage {
	c := *m
	c.ReadBy = append([]string(nil), m.ReadBy...)
	return &c
}

// Group is a named group with an ordered, de-duplicated member set. A group
// with zero members does not exist; dissolution removes the entity entirely.
type Group struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

// HasMember reports whether identity is a current member.
func (g *Group) HasMember(identity string) bool {
	for _, m := range g.Members {
		if m == identity {
			return true
		}
	}
	return false
}

// PairKey returns the canonical, order-independent key for a two-party
// conversation: the identities sorted lexicographically, joined with '|'.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// GroupDocument is the persisted unit for a group: its directory entry plus
// its full message sequence, rewritten together on every mutation.
type GroupDocument struct {
	Group    *Group          `json:"group"`
	Messages []*GroupMessage `json:"messages"`
}

// Snapshot is the full durable state loaded at startup.
type Snapshot struct {
	Direct map[string][]*DirectMessage
	Groups map[string]*GroupDocument
}

// KnownIdentities derives every identity mentioned anywhere in the snapshot:
// direct-message parties, group members, and message senders. The persisted
// layout has no dedicated identity collection, so the seen-ever set is
// reconstructed from here after a restart.
func (s *Snapshot) KnownIdentities() []string {
	seen := make(map[string]struct{})
	for key := range s.Direct {
		for _, id := range strings.SplitN(key, "|", 2) {
			seen[id] = struct{}{}
		}
	}
	for _, doc := range s.Groups {
		if doc.Group != nil {
			for _, id := range doc.Group.Members {
				seen[id] = struct{}{}
			}
		}
		for _, m := range doc.Messages {
			if m.From != SystemIdentity {
				seen[m.From] = struct{}{}
			}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
