package router

import (
	"context"

	"github.com/rs/zerolog"

	"chatrelay/internal/conversation"
	"chatrelay/internal/domain"
	"chatrelay/internal/group"
	"chatrelay/internal/presence"
)

// Router is the orchestrator: it receives identity-tagged inbound events,
// mutates the conversation store and group directory, resolves the live
// connections of every affected recipient through the presence registry, and
// emits the outbound events. It holds no authoritative state of its own.
//
// Operations that touch the same conversation key (direct pair-key or group
// name) serialize through the key-lock table; unrelated keys run concurrently.
type Router struct {
	presence *presence.Registry
	store    *conversation.Store
	groups   *group.Directory
	gateway  domain.Gateway
	log      zerolog.Logger

	locks   *keyLocks
	flushes chan flushJob
}

func New(
	reg *presence.Registry,
	store *conversation.Store,
	groups *group.Directory,
	gateway domain.Gateway,
	log zerolog.Logger,
) *Router {
	return &Router{
		presence: reg,
		store:    store,
		groups:   groups,
		gateway:  gateway,
		log:      log,
		locks:    newKeyLocks(),
		flushes:  make(chan flushJob, 1024),
	}
}

// Restore loads durable state into the owned collections and seeds the
// seen-ever identity set from it. Must complete before any inbound event.
func (r *Router) Restore(ctx context.Context) error {
	snap, err := r.gateway.LoadAll(ctx)
	if err != nil {
		return err
	}
	r.store.Restore(snap)
	r.groups.Restore(snap)
	r.presence.AddKnown(snap.KnownIdentities()...)
	r.log.Info().
		Int("direct_conversations", len(snap.Direct)).
		Int("groups", len(snap.Groups)).
		Msg("durable state restored")
	return nil
}

// HandleRegister binds identity to conn, announces the updated presence sets
// to everyone, and sends the new session its group memberships and per-group
// unread counts.
func (r *Router) HandleRegister(identity string, conn domain.Conn) {
	r.presence.Register(identity, conn)
	r.broadcastPresence()

	memberships := r.groups.GroupsContaining(identity)
	conn.Send(&domain.GroupListEvent{Type: domain.EventGroupList, Groups: memberships})

	counts := make(map[string]int, len(memberships))
	for _, g := range memberships {
		counts[g.Name] = r.store.UnreadGroupCount(g.Name, identity)
	}
	conn.Send(&domain.GroupUnreadCountsEvent{Type: domain.EventGroupUnreadCounts, Counts: counts})

	r.log.Info().Str("identity", identity).Msg("session registered")
}

// HandleDisconnect releases conn's identity binding, if it is still the
// current one, and announces the updated presence sets.
func (r *Router) HandleDisconnect(conn domain.Conn) {
	identity, ok := r.presence.Unregister(conn)
	if !ok {
		return
	}
	r.broadcastPresence()
	r.log.Info().Str("identity", identity).Msg("session closed")
}

// HandleSyncKnownIdentities merges client-supplied identities into the
// seen-ever set and re-announces presence.
func (r *Router) HandleSyncKnownIdentities(identities []string) {
	r.presence.AddKnown(identities...)
	r.broadcastPresence()
}

func (r *Router) broadcastPresence() {
	r.presence.Broadcast(&domain.PresenceUpdateEvent{
		Type:   domain.EventPresenceUpdate,
		All:    r.presence.AllKnownIdentities(),
		Online: r.presence.OnlineIdentities(),
	})
}

// sendToIdentity delivers event to identity's live connection, if any.
// Offline recipients are skipped: history is authoritative and will include
// the message on their next fetch.
func (r *Router) sendToIdentity(identity string, event any) {
	if conn := r.presence.LiveConnection(identity); conn != nil {
		conn.Send(event)
	}
}
