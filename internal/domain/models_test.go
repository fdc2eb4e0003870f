package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chatrelay/internal/domain"
)

func TestPairKey(t *testing.T) {
	assert.Equal(t, "alice|bob", domain.PairKey("alice", "bob"))
	assert.Equal(t, "alice|bob", domain.PairKey("bob", "alice"))
	assert.Equal(t, "alice|alice", domain.PairKey("alice", "alice"))
}

func TestGroupMessageClone(t *testing.T) {
	msg := &domain.GroupMessage{ID: "g1", From: "alice", ReadBy: []string{"alice"}}
	c := msg.Clone()

	c.ReadBy = append(c.ReadBy, "bob")
	assert.Equal(t, []string{"alice"}, msg.ReadBy)
}

func TestSnapshotKnownIdentities(t *testing.T) {
	snap := &domain.Snapshot{
		Direct: map[string][]*domain.DirectMessage{
			domain.PairKey("alice", "bob"): nil,
		},
		Groups: map[string]*domain.GroupDocument{
			"team": {
				Group: &domain.Group{Name: "team", Members: []string{"carol", "alice"}},
				Messages: []*domain.GroupMessage{
					{From: "dave"},
					{From: domain.SystemIdentity, Body: "dave was removed"},
				},
			},
		},
	}

	// Sorted union of pair-key parties, members, and senders, minus System.
	assert.Equal(t, []string{"alice", "bob", "carol", "dave"}, snap.KnownIdentities())
}
