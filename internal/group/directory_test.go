package group_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/domain"
	"chatrelay/internal/group"
)

func TestCreate(t *testing.T) {
	t.Run("CreatorJoinsFirst", func(t *testing.T) {
		d := group.NewDirectory()
		g, err := d.Create("team", "alice", []string{"bob", "carol"})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob", "carol"}, g.Members)
	})

	t.Run("DeduplicatesInitialMembers", func(t *testing.T) {
		d := group.NewDirectory()
		g, err := d.Create("team", "alice", []string{"bob", "alice", "bob", ""})
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, g.Members)
	})

	t.Run("NameTaken", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.Create("team", "alice", nil)
		require.NoError(t, err)

		_, err = d.Create("team", "bob", nil)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	})
}

func TestAddMembers(t *testing.T) {
	t.Run("ReturnsOnlyActuallyAdded", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.Create("team", "alice", []string{"bob"})
		require.NoError(t, err)

		added, err := d.AddMembers("team", []string{"bob", "carol", ""})
		require.NoError(t, err)
		assert.Equal(t, []string{"carol"}, added)
		assert.Equal(t, []string{"alice", "bob", "carol"}, d.Members("team"))
	})

	t.Run("AllPresentAddsNothing", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.Create("team", "alice", []string{"bob"})
		require.NoError(t, err)

		added, err := d.AddMembers("team", []string{"alice", "bob"})
		require.NoError(t, err)
		assert.Empty(t, added)
	})

	t.Run("UnknownGroup", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.AddMembers("nope", []string{"bob"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRemoveMember(t *testing.T) {
	t.Run("RemovesAndKeepsGroup", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.Create("team", "alice", []string{"bob"})
		require.NoError(t, err)

		dissolved, err := d.RemoveMember("team", "bob")
		require.NoError(t, err)
		assert.False(t, dissolved)
		assert.Equal(t, []string{"alice"}, d.Members("team"))
		assert.False(t, d.IsMember("team", "bob"))
	})

	t.Run("LastMemberDissolves", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.Create("team", "alice", nil)
		require.NoError(t, err)

		dissolved, err := d.RemoveMember("team", "alice")
		require.NoError(t, err)
		assert.True(t, dissolved)
		assert.Nil(t, d.Get("team"))
	})

	t.Run("NameReusableAfterDissolution", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.Create("team", "alice", nil)
		require.NoError(t, err)
		_, err = d.RemoveMember("team", "alice")
		require.NoError(t, err)

		g, err := d.Create("team", "bob", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, g.Members)
	})

	t.Run("UnknownGroupOrMember", func(t *testing.T) {
		d := group.NewDirectory()
		_, err := d.RemoveMember("nope", "alice")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = d.Create("team", "alice", nil)
		require.NoError(t, err)
		_, err = d.RemoveMember("team", "bob")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestGroupsContaining(t *testing.T) {
	d := group.NewDirectory()
	_, err := d.Create("zeta", "alice", []string{"bob"})
	require.NoError(t, err)
	_, err = d.Create("alpha", "alice", nil)
	require.NoError(t, err)
	_, err = d.Create("other", "carol", nil)
	require.NoError(t, err)

	groups := d.GroupsContaining("alice")
	require.Len(t, groups, 2)
	assert.Equal(t, "alpha", groups[0].Name)
	assert.Equal(t, "zeta", groups[1].Name)

	assert.Empty(t, d.GroupsContaining("nobody"))
}

func TestGetReturnsCopy(t *testing.T) {
	d := group.NewDirectory()
	_, err := d.Create("team", "alice", nil)
	require.NoError(t, err)

	g := d.Get("team")
	require.NotNil(t, g)
	g.Members = append(g.Members, "intruder")

	assert.Equal(t, []string{"alice"}, d.Members("team"))
}

func TestRestoreSkipsEmptyGroups(t *testing.T) {
	d := group.NewDirectory()
	d.Restore(&domain.Snapshot{
		Groups: map[string]*domain.GroupDocument{
			"team":  {Group: &domain.Group{Name: "team", Members: []string{"alice"}}},
			"empty": {Group: &domain.Group{Name: "empty"}},
			"bare":  {},
		},
	})

	assert.NotNil(t, d.Get("team"))
	assert.Nil(t, d.Get("empty"))
	assert.Nil(t, d.Get("bare"))
}
