package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"chatrelay/internal/config"
	"chatrelay/internal/group"
	"chatrelay/internal/logging"
	"chatrelay/internal/presence"
	"chatrelay/internal/router"
	"chatrelay/internal/security"
	"chatrelay/internal/ws"
)

// NewRouter constructs the HTTP router: middleware, health endpoints, the
// read-only REST mirrors of the presence and membership views, and the /ws
// event endpoint that carries everything else.
func NewRouter(
	cfg *config.Config,
	rt *router.Router,
	reg *presence.Registry,
	groups *group.Directory,
	tokens *security.TokenService,
	log zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.HTTPMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "chatrelay API",
			"version": "1.0.0",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	// Read-only mirrors of the websocket views, for tooling and debugging.
	r.Route("/api", func(r chi.Router) {
		r.Get("/identities", handleListIdentities(reg))
		r.Get("/groups/{groupName}/members", handleGetGroupMembers(groups))
		if tokens != nil {
			r.Post("/tokens", handleCreateToken(tokens))
		}
	})

	// WebSocket endpoint; the event protocol lives in internal/ws.
	r.Get("/ws", ws.MakeHandler(rt, tokens, cfg.WebSocket, cfg.Server.CORSOrigins, log))

	return r
}

func handleListIdentities(reg *presence.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string][]string{
			"all":    reg.AllKnownIdentities(),
			"online": reg.OnlineIdentities(),
		})
	}
}

func handleGetGroupMembers(groups *group.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "groupName")
		g := groups.Get(name)
		if g == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "group not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"group_name": g.Name,
			"members":    g.Members,
		})
	}
}

// handleCreateToken mints a websocket bearer token for an identity. Identity
// verification belongs to the external auth service; this endpoint exists for
// tooling and local clients when token binding is enabled.
func handleCreateToken(tokens *security.TokenService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Identity string `json:"identity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identity == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "identity is required"})
			return
		}
		token, err := tokens.CreateForIdentity(req.Identity)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// NewServer wraps the router in an http.Server. Read/write timeouts stay off
// the server level because /ws holds long-lived connections; per-frame
// deadlines live in internal/ws.
func NewServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:        cfg.HTTPAddr(),
		Handler:     handler,
		IdleTimeout: 60 * time.Second,
	}
}
