package www

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/strompris/strompris-go/cache"
	"github.com/strompris/strompris-go/config"
	"github.com/strompris/strompris-go/database"
)

type Server struct {
	logger  *slog.Logger
	config  config.AppConfigApi
	store   *cache.PriceStore
	db      *database.Database
	hub     *Hub
	version string
}

func NewServer(store *cache.PriceStore, db *database.Database, cnfg config.AppConfigApi, version string) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger:  logger,
		config:  cnfg,
		store:   store,
		db:      db,
		hub:     NewHub(logger),
		version: version,
	}

	go s.hub.Run()

	return s
}

func (s *Server) routes() http.Handler {
	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	mux := http.NewServeMux()

	mux.Handle("GET /api/prices", logReqMW(NewAllPricesHandler(
		s.logger.With(slog.String("handler", "prices")), s.store)))

	mux.Handle("GET /api/{zone}/prices", logReqMW(NewZonePricesHandler(
		s.logger.With(slog.String("handler", "zone_prices")), s.store)))

	mux.Handle("GET /api/{zone}/prices/current", logReqMW(NewCurrentPriceHandler(
		s.logger.With(slog.String("handler", "current_price")), s.store)))

	mux.Handle("GET /api/{zone}/prices/chart", logReqMW(NewZoneChartHandler(
		s.logger.With(slog.String("handler", "zone_chart")), s.store)))

	mux.Handle("GET /api/log", logReqMW(NewLogHandler(
		s.logger.With(slog.String("handler", "log")), s.db)))

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
	})

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(s.logger, w, map[string]any{
		"status":    "healthy",
		"version":   s.version,
		"timestamp": time.Now().UTC(),
	})
}

// Run serves the API until ctx is done, pushing the currently valid prices
// to all websocket clients on a ticker.
func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", slog.Int("port", int(s.config.Port)))

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler: s.routes(),
	}

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case err := <-srvErrors:
			if err != nil && err != http.ErrServerClosed {
				s.logger.Error("server error", slog.Any("error", err))
			}
			return

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			s.broadcastCurrentPrices()
		}
	}
}

func (s *Server) broadcastCurrentPrices() {
	points, ok := currentPerArea(s.store)
	if !ok {
		return
	}
	buf, err := json.Marshal(points)
	if err != nil {
		s.logger.Error("marshalling current prices failed", slog.Any("error", err))
		return
	}
	s.hub.Broadcast <- buf
}
