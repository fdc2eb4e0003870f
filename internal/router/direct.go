package router

import (
	"chatrelay/internal/domain"
)

// HandleSendDirect validates, appends, and fans the stored message out to the
// live connections of both parties. The sender receives its own message too,
// so multi-tab views stay consistent without client-side optimistic state.
func (r *Router) HandleSendDirect(from, to, body string, attachment *domain.Attachment) error {
	if body == "" && attachment == nil {
		return domain.ErrInvalidMessage
	}

	key := domain.PairKey(from, to)
	unlock := r.locks.Lock(key)
	defer unlock()

	msg := r.store.AppendDirect(from, to, body, attachment)
	r.presence.AddKnown(from, to)

	event := &domain.DirectMessageEvent{Type: domain.EventDirectMessage, DirectMessage: msg}
	r.sendToIdentity(from, event)
	if to != from {
		r.sendToIdentity(to, event)
	}

	r.flushDirect(key)
	return nil
}

// HandleFetchDirectHistory replies to the requester with the pair's full
// shared history, oldest first. The send happens under the key lock: the
// event carries pointers into the live sequence and the transport marshals
// them in this goroutine, so read-state flips on the same pair must not run
// until the frame is built.
func (r *Router) HandleFetchDirectHistory(requester, peer string) {
	unlock := r.locks.Lock(domain.PairKey(requester, peer))
	defer unlock()

	r.sendToIdentity(requester, &domain.DirectHistoryEvent{
		Type:     domain.EventDirectHistory,
		Peer:     peer,
		Messages: r.store.FetchDirect(requester, peer),
	})
}

// HandleReadReceipt marks every unread message from peer to reader as read
// and, if anything flipped, acknowledges the original sender so it can update
// its own view.
func (r *Router) HandleReadReceipt(reader, peer string) {
	key := domain.PairKey(reader, peer)
	unlock := r.locks.Lock(key)
	defer unlock()

	flipped := r.store.MarkDirectRead(reader, peer)
	if len(flipped) == 0 {
		return
	}

	r.sendToIdentity(peer, &domain.DirectReadAckEvent{
		Type: domain.EventDirectReadAck,
		From: reader,
		To:   peer,
	})

	r.flushDirect(key)
}

// HandleDeleteDirect removes the identified message and notifies both parties.
// Deleting an already-deleted or never-existing message is a silent no-op.
func (r *Router) HandleDeleteDirect(from, to, id string) {
	key := domain.PairKey(from, to)
	unlock := r.locks.Lock(key)
	defer unlock()

	msg, ok := r.store.DeleteDirect(from, to, id)
	if !ok {
		r.log.Debug().Str("pair_key", key).Str("id", id).Msg("delete for unknown direct message")
		return
	}

	event := &domain.DirectDeletedEvent{
		Type:      domain.EventDirectDeleted,
		From:      msg.From,
		To:        msg.To,
		ID:        msg.ID,
		Timestamp: msg.Timestamp.UnixMilli(),
	}
	r.sendToIdentity(msg.From, event)
	if msg.To != msg.From {
		r.sendToIdentity(msg.To, event)
	}

	r.flushDirect(key)
}
