package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hvtran/goldenbell/internal/auth"
	"github.com/hvtran/goldenbell/internal/config"
	"github.com/hvtran/goldenbell/internal/logging"
)

// WSUpgrader handles WebSocket upgrades (configure CORS/security as needed).
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: implement proper origin checking for production
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handlers bundles the route handlers wired by the app.
type Handlers struct {
	Auth    *auth.HTTPHandlers
	AuthSvc *auth.Service
	Sets    *SetHandlers
	Rooms   *RoomHandlers
	ArenaWS http.HandlerFunc
}

// NewHTTPServer wires the API routes: health, metrics, auth, exam sets,
// rooms, and the arena WebSocket.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, rdb *redis.Client, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, rdb); err != nil {
			reqLogger := logging.FromContext(r.Context())
			reqLogger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	authed := func(next http.Handler) http.Handler { return next }
	if h.AuthSvc != nil {
		authed = auth.Middleware(h.AuthSvc, logger)
	}

	if h.Auth != nil {
		mux.HandleFunc("/v1/auth/login", h.Auth.Login)
		mux.HandleFunc("/v1/auth/register", h.Auth.Register)
		mux.HandleFunc("/v1/auth/student", h.Auth.StudentToken)
		mux.Handle("/v1/auth/me", authed(auth.RequireHost(http.HandlerFunc(h.Auth.Me))))
	}

	if h.Sets != nil {
		mux.Handle("/v1/sets", authed(auth.RequireHost(http.HandlerFunc(h.Sets.Collection))))
		mux.Handle("/v1/sets/{id}", authed(auth.RequireHost(http.HandlerFunc(h.Sets.Item))))
	}

	if h.Rooms != nil {
		mux.Handle("/v1/rooms", authed(auth.RequireHost(http.HandlerFunc(h.Rooms.Open))))
		mux.HandleFunc("/v1/rooms/{code}/standings", h.Rooms.Standings)
	}

	if h.ArenaWS != nil {
		mux.HandleFunc("/ws/arena", h.ArenaWS)
	} else {
		mux.HandleFunc("/ws/arena", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "WebSocket handler not yet integrated", http.StatusNotImplemented)
		})
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestContext(logger, mux),
	}
}

// requestContext hangs a request-scoped logger on the context so deep
// handlers log with the method and path attached.
func requestContext(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), l)))
	})
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, rdb *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
