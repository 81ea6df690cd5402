// Package server is the gateway between clients and the canvas: it upgrades
// WebSocket connections into edit sessions and exposes the HTTP endpoint
// that issues edit tokens after the external identity check.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scrawl-dev/scrawl/internal/hub"
	"github.com/scrawl-dev/scrawl/internal/token"
	"github.com/scrawl-dev/scrawl/internal/verify"
	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

// Server bundles the shared state every connection needs. All fields are
// set at construction and never change afterwards.
type Server struct {
	grid     *canvas.Grid
	tokens   *token.Store
	hub      *hub.Hub
	verifier verify.Verifier
	cooldown time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// New assembles a server around the opened stores.
func New(grid *canvas.Grid, tokens *token.Store, h *hub.Hub, verifier verify.Verifier, cooldown time.Duration, log *zap.Logger) *Server {
	return &Server{
		grid:     grid,
		tokens:   tokens,
		hub:      h,
		verifier: verifier,
		cooldown: cooldown,
		log:      log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router returns the HTTP side of the gateway: the token issuance endpoint
// plus the static asset server.
func (s *Server) Router(staticDir string) http.Handler {
	r := chi.NewRouter()
	r.Post("/get_token", s.handleGetToken)
	r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	return r
}

// WSHandler returns the WebSocket side of the gateway. Every accepted
// connection becomes one edit session.
func (s *Server) WSHandler() http.Handler {
	return http.HandlerFunc(s.handleWS)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket handshake failed",
			zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	newSession(s, conn).run()
}

// handleGetToken performs the identity check and issues a token. Responses
// are plain text; business failures (bad credentials, duplicate token) come
// back as readable messages, storage failures as a generic internal error.
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	login := r.PostFormValue("login")
	password := r.PostFormValue("password")
	group, err := strconv.Atoi(r.PostFormValue("group"))
	if err != nil {
		fmt.Fprintf(w, "Unexpected error: invalid group: %v", err)
		return
	}

	ok, err := s.verifier.Check(r.Context(), login, password, group)
	if err != nil {
		fmt.Fprintf(w, "Unexpected error: %v", err)
		return
	}
	if !ok {
		io.WriteString(w, "Invalid credentials")
		return
	}

	tok, err := s.tokens.Issue("ejudge/" + login)
	if err != nil {
		var dup *token.AlreadyIssuedError
		if errors.As(err, &dup) {
			io.WriteString(w, dup.Error())
			return
		}
		s.log.Error("token issuance failed", zap.String("login", login), zap.Error(err))
		io.WriteString(w, "Internal storage error")
		return
	}

	s.log.Info("token issued", zap.String("login", login))
	fmt.Fprintf(w, "Your token: %s", tok)
}
