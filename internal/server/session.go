package server

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scrawl-dev/scrawl/internal/hub"
	"github.com/scrawl-dev/scrawl/internal/token"
	"github.com/scrawl-dev/scrawl/pkg/canvas"
)

// errInternal is what a session reports to its client when the failure is
// in the storage layer rather than in the command itself, so a client is
// never misled into treating a storage fault like a business rejection.
var errInternal = errors.New("internal storage error")

// session drives one subscriber connection through its life cycle:
// handshake, initial grid sync, command processing, cleanup. The gorilla
// connection allows a single concurrent writer, so all outbound frames
// after the sync flow through the one writeLoop goroutine.
type session struct {
	id   string
	srv  *Server
	conn *websocket.Conn
	log  *zap.Logger

	// events carries broadcast mutations from the hub, errs this session's
	// own command failures. done closing ends the writeLoop and releases
	// any hub delivery still blocked on events.
	events chan hub.Event
	errs   chan string
	done   chan struct{}
}

func newSession(s *Server, conn *websocket.Conn) *session {
	id := uuid.New().String()
	return &session{
		id:   id,
		srv:  s,
		conn: conn,
		log: s.log.With(
			zap.String("conn", id),
			zap.String("remote", conn.RemoteAddr().String()),
		),
		events: make(chan hub.Event, 256),
		errs:   make(chan string, 16),
		done:   make(chan struct{}),
	}
}

// run blocks until the connection ends. It must send the dimensions frame
// and the snapshot frame before registering with the hub, so the subscriber
// has the base state before the first live update can arrive.
func (s *session) run() {
	defer s.conn.Close()

	s.log.Info("session connected")

	dims := fmt.Sprintf("grid %d %d", s.srv.grid.Width(), s.srv.grid.Height())
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(dims)); err != nil {
		s.log.Warn("failed to send grid dimensions", zap.Error(err))
		return
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, s.srv.grid.Snapshot()); err != nil {
		s.log.Warn("failed to send grid snapshot", zap.Error(err))
		return
	}

	go s.writeLoop()
	s.srv.hub.Register(s.id, s.events, s.done)
	defer func() {
		s.srv.hub.Unregister(s.id)
		close(s.done)
		s.log.Info("session closed")
	}()

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Info("session disconnected", zap.Error(err))
			return
		}
		if kind != websocket.TextMessage {
			s.log.Warn("protocol violation: non-text frame", zap.Int("kind", kind))
			return
		}

		if err := s.handleCommand(string(data)); err != nil {
			s.log.Debug("command rejected", zap.Error(err))
			select {
			case s.errs <- err.Error():
			case <-s.done:
				return
			}
		}
	}
}

// handleCommand runs one edit through the full pipeline: parse, rate-limit,
// mutate, broadcast. Each returned error reaches only this session.
func (s *session) handleCommand(line string) error {
	cmd, err := parseEditCommand(line)
	if err != nil {
		return err
	}

	if err := s.srv.tokens.Consume(cmd.token, s.srv.cooldown); err != nil {
		var cd *token.CooldownError
		if errors.Is(err, token.ErrUnknownToken) || errors.As(err, &cd) {
			return err
		}
		s.log.Error("token store failure", zap.Error(err))
		return errInternal
	}

	if err := s.srv.grid.Set(cmd.x, cmd.y, cmd.cell); err != nil {
		var oob *canvas.OutOfBoundsError
		if errors.As(err, &oob) {
			return err
		}
		s.log.Error("grid write failure", zap.Error(err))
		return errInternal
	}

	s.srv.hub.Publish(hub.Event{X: cmd.x, Y: cmd.y, Cell: cmd.cell})
	return nil
}

// writeLoop is the session's single writer. After a write failure it closes
// the connection (waking the read loop) and keeps draining until done so
// producers never block on a dead session.
func (s *session) writeLoop() {
	failed := false
	write := func(payload string) {
		if failed {
			return
		}
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
			failed = true
			s.conn.Close()
		}
	}

	for {
		select {
		case ev := <-s.events:
			write(ev.Text())
		case msg := <-s.errs:
			write("error " + msg)
		case <-s.done:
			return
		}
	}
}
