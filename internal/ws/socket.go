package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/pokerplanning/internal/game"
	"github.com/rs/zerolog/log"
)

type ConnCtx struct {
	Code   string
	Name   string
	Avatar string
}

// Server pushes personalised game views to every socket watching a session.
type Server struct {
	M *game.Manager

	io      *socketio.Server
	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // sessionCode -> socketID -> Conn
}

func New(m *game.Manager) *Server {
	return &Server{M: m, members: make(map[string]map[string]socketio.Conn)}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// game:watch subscribes this connection to a session under a display name.
	io.OnEvent("/", "game:watch", func(s socketio.Conn, payload struct {
		SessionCode string `json:"sessionCode"`
		Name        string `json:"name"`
		AvatarSeed  string `json:"avatarSeed"`
	}) map[string]any {
		if err := srv.watch(context.Background(), s, payload.SessionCode, payload.Name, payload.AvatarSeed); err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "game:vote", func(s socketio.Conn, payload struct {
		Vote string `json:"vote"`
	}) map[string]any {
		ctx := connCtx(s)
		if _, err := srv.M.SubmitVote(context.Background(), ctx.Code, ctx.Name, ctx.Avatar, payload.Vote); err != nil {
			return srv.err(s, err)
		}
		log.Info().Str("code", ctx.Code).Str("name", ctx.Name).Msg("game:vote")
		srv.Broadcast(ctx.Code)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "chat:post", func(s socketio.Conn, payload struct {
		Text string `json:"text"`
	}) map[string]any {
		ctx := connCtx(s)
		msg, err := srv.M.PostChatMessage(context.Background(), ctx.Code, ctx.Name, payload.Text)
		if err != nil {
			return srv.err(s, err)
		}
		srv.BroadcastChat(ctx.Code, msg)
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Code != "" {
			srv.removeMember(ctx.Code, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket server stopped")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	return io
}

// watch moves s onto the session code under a display name, leaving the
// session it watched before, and sends it the current view.
func (srv *Server) watch(ctx context.Context, s socketio.Conn, sessionCode, name, avatarSeed string) error {
	code := game.NormalizeCode(sessionCode)
	view, err := srv.M.GetGameView(ctx, code, name)
	if err != nil {
		return err
	}
	if prev, ok := s.Context().(*ConnCtx); ok && prev.Code != "" && prev.Code != code {
		s.Leave(prev.Code)
		srv.removeMember(prev.Code, s)
	}
	s.SetContext(&ConnCtx{Code: code, Name: name, Avatar: avatarSeed})
	s.Join(code)
	srv.addMember(code, s)
	log.Info().Str("sid", s.ID()).Str("code", code).Str("name", name).Msg("game:watch")
	s.Emit("game:state", view)
	return nil
}

// Broadcast sends every watcher of code its own view of the session.
func (srv *Server) Broadcast(code string) {
	for _, c := range srv.snapshotMembers(code) {
		ctx := connCtx(c)
		view, err := srv.M.GetGameView(context.Background(), code, ctx.Name)
		if err != nil {
			log.Error().Err(err).Str("code", code).Str("sid", c.ID()).Msg("failed to build game view")
			continue
		}
		c.Emit("game:state", view)
	}
}

func (srv *Server) BroadcastChat(code string, m game.Message) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", code, "chat:message", m)
}

func (srv *Server) addMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[code] == nil {
		srv.members[code] = make(map[string]socketio.Conn)
	}
	srv.members[code][c.ID()] = c
}

func (srv *Server) removeMember(code string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[code]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, code)
		}
	}
}

func (srv *Server) snapshotMembers(code string) []socketio.Conn {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	out := make([]socketio.Conn, 0, len(srv.members[code]))
	for _, c := range srv.members[code] {
		out = append(out, c)
	}
	return out
}

func (srv *Server) err(s socketio.Conn, err error) map[string]any {
	code := "bad_request"
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		code = "session_not_found"
	case errors.Is(err, game.ErrUnauthenticated):
		code = "not_authenticated"
	case errors.Is(err, game.ErrEmptyMessage):
		code = "empty"
	}
	s.Emit("error", map[string]any{"code": code, "message": err.Error()})
	return map[string]any{"error": code}
}

func connCtx(s socketio.Conn) *ConnCtx {
	if ctx, ok := s.Context().(*ConnCtx); ok {
		return ctx
	}
	return &ConnCtx{}
}
