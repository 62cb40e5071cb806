/*
Package handler provides the HTTP surface of the relay: the WebSocket endpoint,
a read-only JSON API over the registries, health checks and the static client.
*/
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"golang.org/x/time/rate"

	"roomrelay/internal/pkg/errs"
	"roomrelay/internal/pkg/limiter"
	"roomrelay/internal/pkg/logx"
	"roomrelay/internal/pkg/resp"
)

// Router sets up the main HTTP routing table. ctx bounds the lifetime of the
// background limiter sweeper.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	cfg := deps.Config
	wsLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(cfg.WSConnectRate), cfg.WSConnectBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{"*"}
	if len(cfg.AllowedOrigins) > 0 {
		corsAllowedOrigins = cfg.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))

	upgrader := newUpgrader(cfg.AllowedOrigins)
	r.Method(http.MethodGet, "/ws", wsLimiter.Middleware(HandleWebSocket(deps, upgrader)))

	r.Route("/api", func(api chi.Router) {
		api.Get("/users", HandleListUsers(deps))
		api.Get("/rooms", HandleListRooms(deps))
		api.Get("/rooms/{name}/messages", HandleListRoomMessages(deps))
	})

	r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))

	return r
}

// newUpgrader accepts any origin when allowed is empty.
func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true
			}

			origin := r.Header.Get("Origin")
			if lo.Contains(allowed, origin) {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}

// HandleHealth reports ok, or ErrPersistenceFailed while the latest export is failing.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Hub.Relay().LastSaveError(); err != nil {
			resp.RespondError(w, errs.NewError(errs.ErrPersistenceFailed, err))
			return
		}

		resp.RespondSuccess(w, map[string]string{
			"status":  "ok",
			"service": "roomrelay",
		})
	}
}
