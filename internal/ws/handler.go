package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/domain"
	"chatrelay/internal/router"
	"chatrelay/internal/security"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// extractToken pulls an optional bearer token from the Authorization header
// or the Sec-WebSocket-Protocol list ("bearer, <token>").
func extractToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		if token := strings.TrimSpace(authHeader[len("Bearer "):]); token != "" {
			return token
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}

	return ""
}

// MakeHandler returns the HTTP handler for the /ws endpoint. Each frame is a
// JSON object with a "type" field; dispatch decodes the matching payload and
// hands it to the router. Identity binds either from an optional bearer token
// at upgrade time (when tokens is non-nil) or from the in-band register
// event; every other event is refused until an identity is bound.
func MakeHandler(
	rt *router.Router,
	tokens *security.TokenService,
	cfg config.WebSocketConfig,
	allowedOrigins []string,
	log zerolog.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		var tokenIdentity string
		if tokens != nil {
			if tokenStr := extractToken(r); tokenStr != "" {
				identity, err := tokens.Parse(tokenStr)
				if err != nil {
					http.Error(w, "invalid token", http.StatusUnauthorized)
					return
				}
				tokenIdentity = identity
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		client := NewClient(conn, cfg, log)
		go client.WritePump()

		identity := tokenIdentity
		if identity != "" {
			rt.HandleRegister(identity, client)
		}

		client.ReadPump(func(frame []byte) {
			var env domain.Envelope
			if err := json.Unmarshal(frame, &env); err != nil {
				client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "malformed event"))
				return
			}

			if env.Type == domain.EventRegister {
				var ev domain.RegisterEvent
				if err := json.Unmarshal(frame, &ev); err != nil || ev.Identity == "" {
					client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "register requires an identity"))
					return
				}
				identity = ev.Identity
				rt.HandleRegister(identity, client)
				return
			}
			if identity == "" {
				client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, "register before sending events"))
				return
			}

			if err := dispatch(rt, identity, env.Type, frame); err != nil {
				sendError(client, log, env.Type, err)
			}
		})

		rt.HandleDisconnect(client)
	}
}

// dispatch decodes the typed payload for one inbound event and invokes the
// matching router operation. identity is the connection's bound identity; it
// fills the creator/actor/requester roles the wire payloads leave implicit.
func dispatch(rt *router.Router, identity, eventType string, frame []byte) error {
	switch eventType {

	case domain.EventSyncKnownIdentities:
		var ev domain.SyncKnownIdentitiesEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			return errMalformed
		}
		rt.HandleSyncKnownIdentities(ev.Identities)

	case domain.EventSendDirect:
		var ev domain.SendDirectEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.From == "" || ev.To == "" {
			return errMalformed
		}
		return rt.HandleSendDirect(ev.From, ev.To, ev.Body, ev.Attachment)

	case domain.EventFetchDirectHistory:
		var ev domain.DirectPairEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.From == "" || ev.To == "" {
			return errMalformed
		}
		rt.HandleFetchDirectHistory(ev.From, ev.To)

	case domain.EventMarkDirectRead:
		var ev domain.DirectPairEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.From == "" || ev.To == "" {
			return errMalformed
		}
		// from is the reader, to is the peer whose messages are being read.
		rt.HandleReadReceipt(ev.From, ev.To)

	case domain.EventDeleteDirect:
		var ev domain.DeleteDirectEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.ID == "" {
			return errMalformed
		}
		rt.HandleDeleteDirect(ev.From, ev.To, ev.ID)

	case domain.EventCreateGroup:
		var ev domain.CreateGroupEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.Name == "" {
			return errMalformed
		}
		return rt.HandleCreateGroup(identity, ev.Name, ev.Members)

	case domain.EventAddGroupMembers:
		var ev domain.AddGroupMembersEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" {
			return errMalformed
		}
		return rt.HandleAddMembers(identity, ev.GroupName, ev.Members)

	case domain.EventRemoveGroupMember:
		var ev domain.RemoveGroupMemberEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" || ev.Member == "" {
			return errMalformed
		}
		return rt.HandleRemoveMember(identity, ev.GroupName, ev.Member)

	case domain.EventLeaveGroup:
		var ev domain.LeaveGroupEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" || ev.Identity == "" {
			return errMalformed
		}
		return rt.HandleLeaveGroup(ev.GroupName, ev.Identity)

	case domain.EventGetGroupMembers:
		var ev domain.GroupNameEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" {
			return errMalformed
		}
		rt.HandleGetGroupMembers(identity, ev.GroupName)

	case domain.EventSendGroup:
		var ev domain.SendGroupEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" || ev.From == "" {
			return errMalformed
		}
		return rt.HandleSendGroup(ev.From, ev.GroupName, ev.Body, ev.Attachment, ev.Forwarded)

	case domain.EventFetchGroupHistory:
		var ev domain.GroupNameEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" {
			return errMalformed
		}
		return rt.HandleFetchGroupHistory(identity, ev.GroupName)

	case domain.EventMarkGroupRead:
		var ev domain.MarkGroupReadEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" || ev.Identity == "" {
			return errMalformed
		}
		rt.HandleMarkGroupRead(ev.GroupName, ev.Identity)

	case domain.EventDeleteGroupMessage:
		var ev domain.DeleteGroupMessageEvent
		if err := json.Unmarshal(frame, &ev); err != nil || ev.GroupName == "" || ev.ID == "" {
			return errMalformed
		}
		rt.HandleDeleteGroupMessage(ev.GroupName, ev.ID)

	default:
		return errUnknownEvent
	}
	return nil
}

var (
	errMalformed    = errors.New("malformed event payload")
	errUnknownEvent = errors.New("unknown event type")
)

// sendError maps a router error onto the wire. Invalid (empty) messages are
// dropped silently; everything else is surfaced only to the requester.
func sendError(client *Client, log zerolog.Logger, eventType string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidMessage):
		log.Debug().Str("event", eventType).Msg("dropped empty message")
	case errors.Is(err, domain.ErrNotFound):
		client.Send(domain.NewErrorEvent(domain.ErrCodeNotFound, err.Error()))
	case errors.Is(err, domain.ErrAlreadyExists):
		client.Send(domain.NewErrorEvent(domain.ErrCodeAlreadyExists, err.Error()))
	default:
		client.Send(domain.NewErrorEvent(domain.ErrCodeBadRequest, err.Error()))
	}
}
