// Package api exposes the remote play endpoint.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const (
	authHeader      = "x-auth"
	requestIDHeader = "X-Request-Id"
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Player starts playback on behalf of a remote caller and returns the
// title of the enqueued track.
type Player interface {
	PlayRemote(ctx context.Context, guildID, channelID, userID, query string) (string, error)
}

type playRequest struct {
	GuildID   string `json:"guildId"`
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Query     string `json:"query"`
}

type playResponse struct {
	OK    bool   `json:"ok"`
	Title string `json:"title,omitempty"`
	Error string `json:"error,omitempty"`
}

type Server struct {
	addr   string
	secret string
	player Player
}

func NewServer(addr, secret string, player Player) *Server {
	return &Server{addr: addr, secret: secret, player: player}
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)
	router.HandleFunc("/api/play", s.authMiddleware(s.handlePlay)).Methods(http.MethodPost)
	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api server listening", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down api server: %w", err)
	}
	slog.Info("api server stopped")
	return nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(authHeader)
		if s.secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(s.secret)) != 1 {
			slog.Warn("rejected api request", "request_id", w.Header().Get(requestIDHeader), "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, playResponse{Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	requestID := w.Header().Get(requestIDHeader)

	var req playRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, playResponse{Error: "invalid request body"})
		return
	}

	title, err := s.player.PlayRemote(r.Context(), req.GuildID, req.ChannelID, req.UserID, req.Query)
	if err != nil {
		slog.Error("remote play failed", "request_id", requestID, "guild_id", req.GuildID, "error", err)
		writeJSON(w, http.StatusInternalServerError, playResponse{Error: err.Error()})
		return
	}
	slog.Info("remote play started", "request_id", requestID, "guild_id", req.GuildID, "user_id", req.UserID, "title", title)
	writeJSON(w, http.StatusOK, playResponse{OK: true, Title: title})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("failed to write api response", "error", err)
	}
}
