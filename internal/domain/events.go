package domain

// WebSocket event types from the client.
const (
	EventRegister            = "register"
	EventSyncKnownIdentities = "sync_known_identities"
	EventSendDirect          = "send_direct"
	EventFetchDirectHistory  = "fetch_direct_history"
	EventMarkDirectRead      = "mark_direct_read"
	EventDeleteDirect        = "delete_direct"
	EventCreateGroup         = "create_group"
	EventAddGroupMembers     = "add_group_members"
	EventRemoveGroupMember   = "remove_group_member"
	EventLeaveGroup          = "leave_group"
	EventGetGroupMembers     = "get_group_members"
	EventSendGroup           = "send_group"
	EventFetchGroupHistory   = "fetch_group_history"
	EventMarkGroupRead       = "mark_group_read"
	EventDeleteGroupMessage  = "delete_group_message"
)

// WebSocket event types to the client.
const (
	EventPresenceUpdate        = "presence_update"
	EventGroupList             = "group_list"
	EventGroupUnreadCounts     = "group_unread_counts"
	EventDirectMessage         = "direct_message"
	EventDirectHistory         = "direct_history"
	EventDirectReadAck         = "direct_read_ack"
	EventDirectDeleted         = "direct_deleted"
	EventGroupMessage          = "group_message"
	EventGroupHistory          = "group_history"
	EventGroupMembers          = "group_members"
	EventGroupMembershipUpdate = "group_membership_update"
	EventGroupMessageDeleted   = "group_message_deleted"
	EventGroupReadUpdate       = "group_read_update"
	EventError                 = "error"
)

// Error codes carried on the error event.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeBadRequest    = "BAD_REQUEST"
)

// Client -> server payloads. Type tags are decoded separately from an
// Envelope, then the full frame is decoded into one of these.

type Envelope struct {
	Type string `json:"type"`
}

type RegisterEvent struct {
	Identity string `json:"identity"`
}

type SyncKnownIdentitiesEvent struct {
	Identities []string `json:"identities"`
}

type SendDirectEvent struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type DirectPairEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type DeleteDirectEvent struct {
	From string `json:"from"`
	To   string `json:"to"`
	ID   string `json:"id"`
}

type CreateGroupEvent struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type AddGroupMembersEvent struct {
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
}

type RemoveGroupMemberEvent struct {
	GroupName string `json:"group_name"`
	Member    string `json:"member"`
}

type LeaveGroupEvent struct {
	GroupName string `json:"group_name"`
	Identity  string `json:"identity"`
}

type GroupNameEvent struct {
	GroupName string `json:"group_name"`
}

type SendGroupEvent struct {
	GroupName  string      `json:"group_name"`
	From       string      `json:"from"`
	Body       string      `json:"body,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
	Forwarded  bool        `json:"forwarded"`
}

type MarkGroupReadEvent struct {
	GroupName string `json:"group_name"`
	Identity  string `json:"identity"`
}

type DeleteGroupMessageEvent struct {
	GroupName string `json:"group_name"`
	ID        string `json:"id"`
}

// Server -> client payloads.

type PresenceUpdateEvent struct {
	Type   string   `json:"type"`
	All    []string `json:"all"`
	Online []string `json:"online"`
}

type GroupListEvent struct {
	Type   string   `json:"type"`
	Groups []*Group `json:"groups"`
}

type GroupUnreadCountsEvent struct {
	Type   string         `json:"type"`
	Counts map[string]int `json:"counts"`
}

type DirectMessageEvent struct {
	Type string `json:"type"`
	*DirectMessage
}

type DirectHistoryEvent struct {
	Type     string           `json:"type"`
	Peer     string           `json:"peer"`
	Messages []*DirectMessage `json:"messages"`
}

type DirectReadAckEvent struct {
	Type string `json:"type"`
	From string `json:"from"` // the reader
	To   string `json:"to"`   // the original sender being acknowledged
}

type DirectDeletedEvent struct {
	Type      string `json:"type"`
	From      string `json:"from"`
	To        string `json:"to"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

type GroupMessageEvent struct {
	Type string `json:"type"`
	*GroupMessage
}

type GroupHistoryEvent struct {
	Type      string          `json:"type"`
	GroupName string          `json:"group_name"`
	Messages  []*GroupMessage `json:"messages"`
}

type GroupMembersEvent struct {
	Type      string   `json:"type"`
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
}

type GroupMembershipUpdateEvent struct {
	Type      string   `json:"type"`
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
	ChangedBy string   `json:"changed_by"`
}

type GroupMessageDeletedEvent struct {
	Type      string `json:"type"`
	GroupName string `json:"group_name"`
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

type GroupReadUpdateEvent struct {
	Type      string          `json:"type"`
	GroupName string          `json:"group_name"`
	Messages  []*GroupMessage `json:"messages"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{Type: EventError, Code: code, Message: message}
}
