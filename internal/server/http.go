package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/hcip-drill/internal/config"
	"github.com/gokatarajesh/hcip-drill/internal/logging"
	"github.com/gokatarajesh/hcip-drill/internal/metrics"
	httperrors "github.com/gokatarajesh/hcip-drill/pkg/http/errors"
)

// WSUpgrader handles WebSocket upgrades. Session tokens gate access, so any
// origin may connect.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Routes is implemented by handler groups that mount themselves on the mux.
type Routes interface {
	Register(mux *http.ServeMux)
}

// PingFunc checks the health of backing dependencies.
type PingFunc func(ctx context.Context) error

// NewHTTPServer wires base routes (health, metrics, ping) plus every route group.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, ping PingFunc, limiter *RateLimiter, routes ...Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.IntoContext(r.Context(), logger)
		if ping != nil {
			if err := ping(ctx); err != nil {
				l := logging.FromContext(ctx)
				l.Error().Err(err).Msg("dependency ping failed")
				httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	for _, group := range routes {
		group.Register(mux)
	}

	var handler http.Handler = mux
	if limiter != nil {
		handler = limiter.Middleware(handler)
	}
	handler = metrics.Middleware(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}
