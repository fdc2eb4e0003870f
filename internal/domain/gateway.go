package domain

import "context"

// Conn is one live client connection as the core sees it: an addressable sink
// for outbound events. Send must not block the caller; transports buffer and
// drop rather than stall the router.
type Conn interface {
	Send(event any)
}

// Gateway defines the durable storage operations. Each Save rewrites the whole
// document for the touched collection; LoadAll restores everything at startup.
type Gateway interface {
	LoadAll(ctx context.Context) (*Snapshot, error)
	SaveDirect(ctx context.Context, pairKey string, messages []*DirectMessage) error
	SaveGroup(ctx context.Context, doc *GroupDocument) error
	DeleteGroup(ctx context.Context, name string) error
}
