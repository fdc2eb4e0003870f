package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"chatrelay/internal/domain"
	"chatrelay/internal/security"
)

// Gateway is the sole reader and writer of durable state. Every mutating
// operation rewrites the touched collection's whole document; LoadAll restores
// everything at startup. Documents are JSON, optionally encrypted at rest.
type Gateway struct {
	db  *sql.DB
	enc *security.Encryptor
}

// NewGateway wraps db. enc may be nil, in which case documents are stored as
// plaintext JSON.
func NewGateway(db *sql.DB, enc *security.Encryptor) *Gateway {
	return &Gateway{db: db, enc: enc}
}

var _ domain.Gateway = (*Gateway)(nil)

func (g *Gateway) encode(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	if g.enc == nil {
		return string(raw), nil
	}
	return g.enc.Encrypt(string(raw))
}

func (g *Gateway) decode(doc string, v any) error {
	if g.enc != nil {
		plain, err := g.enc.Decrypt(doc)
		if err != nil {
			return fmt.Errorf("decrypt document: %w", err)
		}
		doc = plain
	}
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	return nil
}

// LoadAll reads both collections fully into memory.
func (g *Gateway) LoadAll(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{
		Direct: make(map[string][]*domain.DirectMessage),
		Groups: make(map[string]*domain.GroupDocument),
	}

	rows, err := g.db.QueryContext(ctx, `SELECT pair_key, doc FROM direct_conversations`)
	if err != nil {
		return nil, fmt.Errorf("load direct conversations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, doc string
		if err := rows.Scan(&key, &doc); err != nil {
			return nil, fmt.Errorf("scan direct conversation: %w", err)
		}
		var msgs []*domain.DirectMessage
		if err := g.decode(doc, &msgs); err != nil {
			return nil, fmt.Errorf("direct conversation %q: %w", key, err)
		}
		snap.Direct[key] = msgs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load direct conversations: %w", err)
	}

	grows, err := g.db.QueryContext(ctx, `SELECT name, doc FROM group_conversations`)
	if err != nil {
		return nil, fmt.Errorf("load group conversations: %w", err)
	}
	defer grows.Close()
	for grows.Next() {
		var name, doc string
		if err := grows.Scan(&name, &doc); err != nil {
			return nil, fmt.Errorf("scan group conversation: %w", err)
		}
		gdoc := &domain.GroupDocument{}
		if err := g.decode(doc, gdoc); err != nil {
			return nil, fmt.Errorf("group conversation %q: %w", name, err)
		}
		snap.Groups[name] = gdoc
	}
	if err := grows.Err(); err != nil {
		return nil, fmt.Errorf("load group conversations: %w", err)
	}

	return snap, nil
}

// SaveDirect rewrites the full document for one pair-key.
func (g *Gateway) SaveDirect(ctx context.Context, pairKey string, messages []*domain.DirectMessage) error {
	doc, err := g.encode(messages)
	if err != nil {
		return err
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO direct_conversations (pair_key, doc, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pair_key) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
	`, pairKey, doc)
	if err != nil {
		return fmt.Errorf("save direct conversation %q: %w", pairKey, err)
	}
	return nil
}

// SaveGroup rewrites the full combined document for one group.
func (g *Gateway) SaveGroup(ctx context.Context, gdoc *domain.GroupDocument) error {
	if gdoc.Group == nil {
		return fmt.Errorf("save group: document has no directory entry")
	}
	doc, err := g.encode(gdoc)
	if err != nil {
		return err
	}
	_, err = g.db.ExecContext(ctx, `
		INSERT INTO group_conversations (name, doc, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET doc = excluded.doc, updated_at = CURRENT_TIMESTAMP
	`, gdoc.Group.Name, doc)
	if err != nil {
		return fmt.Errorf("save group conversation %q: %w", gdoc.Group.Name, err)
	}
	return nil
}

// DeleteGroup removes a dissolved group's document.
func (g *Gateway) DeleteGroup(ctx context.Context, name string) error {
	if _, err := g.db.ExecContext(ctx, `DELETE FROM group_conversations WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete group conversation %q: %w", name, err)
	}
	return nil
}
