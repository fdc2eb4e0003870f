package router

import (
	"fmt"
	"strings"

	"chatrelay/internal/domain"
)

// HandleCreateGroup creates the group (creator implicitly a member) and sends
// the membership snapshot to every live member. No system message on creation.
func (r *Router) HandleCreateGroup(creator, name string, members []string) error {
	unlock := r.locks.Lock(name)
	defer unlock()

	g, err := r.groups.Create(name, creator, members)
	if err != nil {
		return err
	}
	r.presence.AddKnown(g.Members...)

	r.presence.SendTo(g.Members, &domain.GroupMembershipUpdateEvent{
		Type:      domain.EventGroupMembershipUpdate,
		GroupName: name,
		Members:   g.Members,
		ChangedBy: creator,
	})

	r.flushGroup(name)
	r.log.Info().Str("group", name).Str("creator", creator).Msg("group created")
	return nil
}

// HandleAddMembers adds the given identities, skipping ones already present.
// If membership actually changed, a system message is appended and both it and
// the refreshed membership snapshot go to all current live members.
func (r *Router) HandleAddMembers(actor, name string, members []string) error {
	unlock := r.locks.Lock(name)
	defer unlock()

	added, err := r.groups.AddMembers(name, members)
	if err != nil {
		return err
	}
	if len(added) == 0 {
		return nil
	}
	r.presence.AddKnown(added...)

	body := fmt.Sprintf("%s added %s", actor, strings.Join(added, ", "))
	r.announceMembershipChange(name, actor, body)

	r.flushGroup(name)
	return nil
}

// HandleRemoveMember removes member from the group. Removing the last member
// dissolves the group; otherwise a system message and the refreshed snapshot
// go to the remaining (post-mutation) live members.
func (r *Router) HandleRemoveMember(actor, name, member string) error {
	unlock := r.locks.Lock(name)
	defer unlock()

	dissolved, err := r.groups.RemoveMember(name, member)
	if err != nil {
		return err
	}
	if dissolved {
		r.dissolveGroup(name)
		return nil
	}

	r.announceMembershipChange(name, actor, fmt.Sprintf("%s was removed", member))
	r.flushGroup(name)
	return nil
}

// HandleLeaveGroup is the self-removal variant: same mutation, different
// system-message wording, plus an acknowledgment to the leaver's own
// connection so its client drops the group immediately.
func (r *Router) HandleLeaveGroup(name, identity string) error {
	unlock := r.locks.Lock(name)
	defer unlock()

	dissolved, err := r.groups.Leave(name, identity)
	if err != nil {
		return err
	}

	if dissolved {
		r.dissolveGroup(name)
	} else {
		r.announceMembershipChange(name, identity, fmt.Sprintf("%s left the group", identity))
		r.flushGroup(name)
	}

	// The leaver is no longer a member, so the broadcast above missed them.
	r.sendToIdentity(identity, &domain.GroupMembershipUpdateEvent{
		Type:      domain.EventGroupMembershipUpdate,
		GroupName: name,
		Members:   r.groups.Members(name),
		ChangedBy: identity,
	})
	return nil
}

// HandleGetGroupMembers replies to the requester with the group's member set,
// empty if the group does not exist.
func (r *Router) HandleGetGroupMembers(requester, name string) {
	r.sendToIdentity(requester, &domain.GroupMembersEvent{
		Type:      domain.EventGroupMembers,
		GroupName: name,
		Members:   r.groups.Members(name),
	})
}

// HandleSendGroup validates, appends (ReadBy seeded with the sender), and fans
// the stored message out to every current member's live connection, the sender
// included.
func (r *Router) HandleSendGroup(from, name, body string, attachment *domain.Attachment, forwarded bool) error {
	if body == "" && attachment == nil {
		return domain.ErrInvalidMessage
	}

	unlock := r.locks.Lock(name)
	defer unlock()

	if !r.groups.IsMember(name, from) {
		return domain.ErrNotFound
	}

	msg := r.store.AppendGroup(name, from, body, attachment, forwarded)
	r.presence.SendTo(r.groups.Members(name), &domain.GroupMessageEvent{
		Type:         domain.EventGroupMessage,
		GroupMessage: msg,
	})

	r.flushGroup(name)
	return nil
}

// HandleFetchGroupHistory replies to the requester with the group's stored
// sequence. Non-members (including removed ones) get ErrNotFound.
func (r *Router) HandleFetchGroupHistory(requester, name string) error {
	unlock := r.locks.Lock(name)
	defer unlock()

	if !r.groups.IsMember(name, requester) {
		return domain.ErrNotFound
	}

	r.sendToIdentity(requester, &domain.GroupHistoryEvent{
		Type:      domain.EventGroupHistory,
		GroupName: name,
		Messages:  r.store.FetchGroup(name),
	})
	return nil
}

// HandleMarkGroupRead adds identity to ReadBy across the group's messages and,
// only if anything changed, re-broadcasts the full read state to every live
// member. The full re-send rather than a delta matches the at-least-once
// delivery contract.
func (r *Router) HandleMarkGroupRead(name, identity string) {
	unlock := r.locks.Lock(name)
	defer unlock()

	msgs, changed := r.store.MarkGroupRead(name, identity)
	if !changed {
		return
	}

	r.presence.SendTo(r.groups.Members(name), &domain.GroupReadUpdateEvent{
		Type:      domain.EventGroupReadUpdate,
		GroupName: name,
		Messages:  msgs,
	})

	r.flushGroup(name)
}

// HandleDeleteGroupMessage removes the identified message and notifies every
// current live member. Unknown IDs are a silent no-op.
func (r *Router) HandleDeleteGroupMessage(name, id string) {
	unlock := r.locks.Lock(name)
	defer unlock()

	msg, ok := r.store.DeleteGroupMessage(name, id)
	if !ok {
		r.log.Debug().Str("group", name).Str("id", id).Msg("delete for unknown group message")
		return
	}

	r.presence.SendTo(r.groups.Members(name), &domain.GroupMessageDeletedEvent{
		Type:      domain.EventGroupMessageDeleted,
		GroupName: name,
		ID:        msg.ID,
		Timestamp: msg.Timestamp.UnixMilli(),
	})

	r.flushGroup(name)
}

// announceMembershipChange appends a synthesized system message and sends it,
// together with the refreshed membership snapshot, to all current live
// members. Callers hold the group's key lock.
func (r *Router) announceMembershipChange(name, changedBy, body string) {
	msg := r.store.AppendGroup(name, domain.SystemIdentity, body, nil, false)
	members := r.groups.Members(name)

	r.presence.SendTo(members, &domain.GroupMessageEvent{
		Type:         domain.EventGroupMessage,
		GroupMessage: msg,
	})
	r.presence.SendTo(members, &domain.GroupMembershipUpdateEvent{
		Type:      domain.EventGroupMembershipUpdate,
		GroupName: name,
		Members:   members,
		ChangedBy: changedBy,
	})
}

// dissolveGroup discards a now-empty group's history and durable document.
// Callers hold the group's key lock.
func (r *Router) dissolveGroup(name string) {
	r.store.DropGroup(name)
	r.flushGroupDelete(name)
	r.log.Info().Str("group", name).Msg("group dissolved")
}
