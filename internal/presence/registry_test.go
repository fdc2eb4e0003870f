package presence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/presence"
)

// stubConn records sent events for assertions.
type stubConn struct {
	events []any
}

func (c *stubConn) Send(event any) {
	c.events = append(c.events, event)
}

func TestRegister(t *testing.T) {
	t.Run("BindsAndMarksKnown", func(t *testing.T) {
		r := presence.NewRegistry()
		conn := &stubConn{}

		r.Register("alice", conn)
		assert.Equal(t, conn, r.LiveConnection("alice"))
		assert.Equal(t, []string{"alice"}, r.OnlineIdentities())
		assert.Equal(t, []string{"alice"}, r.AllKnownIdentities())
	})

	t.Run("NewIdentityOnSameConnDropsOldBinding", func(t *testing.T) {
		r := presence.NewRegistry()
		conn := &stubConn{}

		r.Register("alice", conn)
		r.Register("bob", conn)

		assert.Equal(t, []string{"bob"}, r.OnlineIdentities())
		assert.Nil(t, r.LiveConnection("alice"))
		assert.Equal(t, []string{"alice", "bob"}, r.AllKnownIdentities())

		// Closing the socket must take its one current identity offline.
		identity, ok := r.Unregister(conn)
		require.True(t, ok)
		assert.Equal(t, "bob", identity)
		assert.Empty(t, r.OnlineIdentities())
	})

	t.Run("LastWriterWins", func(t *testing.T) {
		r := presence.NewRegistry()
		first := &stubConn{}
		second := &stubConn{}

		r.Register("alice", first)
		r.Register("alice", second)

		assert.Equal(t, second, r.LiveConnection("alice"))
		assert.Equal(t, []string{"alice"}, r.OnlineIdentities())
	})
}

func TestUnregister(t *testing.T) {
	t.Run("FreesIdentityButNotKnown", func(t *testing.T) {
		r := presence.NewRegistry()
		conn := &stubConn{}
		r.Register("alice", conn)

		identity, ok := r.Unregister(conn)
		require.True(t, ok)
		assert.Equal(t, "alice", identity)
		assert.Nil(t, r.LiveConnection("alice"))
		assert.Empty(t, r.OnlineIdentities())
		assert.Equal(t, []string{"alice"}, r.AllKnownIdentities())
	})

	t.Run("StaleCloseCannotEvictNewerSession", func(t *testing.T) {
		r := presence.NewRegistry()
		old := &stubConn{}
		fresh := &stubConn{}

		r.Register("alice", old)
		r.Register("alice", fresh)

		// The superseded connection's close arrives late.
		_, ok := r.Unregister(old)
		assert.False(t, ok)
		assert.Equal(t, fresh, r.LiveConnection("alice"))
	})

	t.Run("UnknownConn", func(t *testing.T) {
		r := presence.NewRegistry()
		_, ok := r.Unregister(&stubConn{})
		assert.False(t, ok)
	})
}

func TestAddKnown(t *testing.T) {
	r := presence.NewRegistry()
	r.AddKnown("carol", "", "bob", "carol")

	assert.Equal(t, []string{"bob", "carol"}, r.AllKnownIdentities())
	assert.Empty(t, r.OnlineIdentities())
}

func TestBroadcast(t *testing.T) {
	r := presence.NewRegistry()
	a := &stubConn{}
	b := &stubConn{}
	r.Register("alice", a)
	r.Register("bob", b)

	r.Broadcast("ping")
	assert.Equal(t, []any{"ping"}, a.events)
	assert.Equal(t, []any{"ping"}, b.events)
}

func TestSendTo(t *testing.T) {
	r := presence.NewRegistry()
	a := &stubConn{}
	r.Register("alice", a)
	r.AddKnown("bob") // known but offline

	r.SendTo([]string{"alice", "bob", "carol"}, "hello")
	assert.Equal(t, []any{"hello"}, a.events)
}
