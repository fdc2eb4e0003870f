package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatrelay/internal/config"
	"chatrelay/internal/conversation"
	"chatrelay/internal/domain"
	"chatrelay/internal/group"
	"chatrelay/internal/httpserver"
	"chatrelay/internal/presence"
	"chatrelay/internal/router"
	"chatrelay/internal/security"
)

// nullGateway satisfies domain.Gateway with no durable backing.
type nullGateway struct{}

func (nullGateway) LoadAll(ctx context.Context) (*domain.Snapshot, error) {
	return &domain.Snapshot{
		Direct: make(map[string][]*domain.DirectMessage),
		Groups: make(map[string]*domain.GroupDocument),
	}, nil
}

func (nullGateway) SaveDirect(ctx context.Context, pairKey string, messages []*domain.DirectMessage) error {
	return nil
}

func (nullGateway) SaveGroup(ctx context.Context, doc *domain.GroupDocument) error { return nil }

func (nullGateway) DeleteGroup(ctx context.Context, name string) error { return nil }

type recordingConn struct{}

func (recordingConn) Send(event any) {}

func newTestServer(t *testing.T, tokens *security.TokenService) (*httptest.Server, *presence.Registry, *group.Directory) {
	t.Helper()

	reg := presence.NewRegistry()
	groups := group.NewDirectory()
	rt := router.New(reg, conversation.NewStore(), groups, nullGateway{}, zerolog.Nop())
	require.NoError(t, rt.Restore(context.Background()))

	cfg := &config.Config{}
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}

	srv := httptest.NewServer(httpserver.NewRouter(cfg, rt, reg, groups, tokens, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, reg, groups
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	var body map[string]string
	status := getJSON(t, srv.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
}

func TestListIdentities(t *testing.T) {
	srv, reg, _ := newTestServer(t, nil)
	reg.Register("alice", recordingConn{})
	reg.AddKnown("bob")

	var body map[string][]string
	status := getJSON(t, srv.URL+"/api/identities", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"alice", "bob"}, body["all"])
	assert.Equal(t, []string{"alice"}, body["online"])
}

func TestGetGroupMembers(t *testing.T) {
	srv, _, groups := newTestServer(t, nil)
	_, err := groups.Create("team", "alice", []string{"bob"})
	require.NoError(t, err)

	t.Run("Found", func(t *testing.T) {
		var body struct {
			GroupName string   `json:"group_name"`
			Members   []string `json:"members"`
		}
		status := getJSON(t, srv.URL+"/api/groups/team/members", &body)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "team", body.GroupName)
		assert.Equal(t, []string{"alice", "bob"}, body.Members)
	})

	t.Run("Missing", func(t *testing.T) {
		var body map[string]string
		status := getJSON(t, srv.URL+"/api/groups/nope/members", &body)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestCreateToken(t *testing.T) {
	tokens := security.NewTokenService("test-secret", time.Hour)
	srv, _, _ := newTestServer(t, tokens)

	postJSON := func(body string) (*http.Response, error) {
		return http.Post(srv.URL+"/api/tokens", "application/json", bytes.NewBufferString(body))
	}

	t.Run("MintsParseableToken", func(t *testing.T) {
		resp, err := postJSON(`{"identity":"alice"}`)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		identity, err := tokens.Parse(body["token"])
		require.NoError(t, err)
		assert.Equal(t, "alice", identity)
	})

	t.Run("MissingIdentity", func(t *testing.T) {
		resp, err := postJSON(`{}`)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("NotRoutedWithoutTokenService", func(t *testing.T) {
		plain, _, _ := newTestServer(t, nil)
		resp, err := http.Post(plain.URL+"/api/tokens", "application/json", bytes.NewBufferString(`{"identity":"alice"}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	})
}
