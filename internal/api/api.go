// Package api maps the game operations onto gin JSON routes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/pokerplanning/internal/config"
	"github.com/kiliankoe/pokerplanning/internal/game"
	"github.com/rs/zerolog/log"
)

const (
	headerPlayer = "X-Player-Name"
	headerAvatar = "X-Player-Avatar"
	cookiePlayer = "player"
	cookieAvatar = "avatar"

	maxImportBytes = 2 << 20
)

// Notifier is told about every session change so connected clients can refresh.
type Notifier interface {
	Broadcast(code string)
	BroadcastChat(code string, m game.Message)
}

type API struct {
	M      *game.Manager
	cfg    config.Config
	notify Notifier
}

func New(m *game.Manager, cfg config.Config) *API {
	return &API{M: m, cfg: cfg}
}

func (a *API) SetNotifier(n Notifier) { a.notify = n }

func (a *API) Mount(r *gin.Engine) {
	r.GET("/api/deck", a.deck)

	r.POST("/api/sessions", a.create)
	r.POST("/api/sessions/:code/join", a.join)
	r.POST("/api/sessions/:code/start", a.start)
	r.POST("/api/sessions/:code/reveal", a.reveal)
	r.POST("/api/sessions/:code/vote", a.vote)
	r.POST("/api/sessions/:code/resume", a.resume)
	r.POST("/api/sessions/:code/next", a.next)
	r.POST("/api/sessions/:code/revote", a.revote)

	r.GET("/api/game/:code", a.gameView)
	r.GET("/api/participants/:code", a.participants)

	r.GET("/api/chat/:code", a.listChat)
	r.POST("/api/chat/:code", a.postChat)

	r.GET("/api/export/:code/state", a.exportState)
	r.GET("/api/export/:code/results", a.exportResults)
	r.POST("/api/import", a.importState)
}

func (a *API) deck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"cards": game.Deck(), "avatars": game.AvatarSeeds()})
}

type createReq struct {
	Organizer    string   `json:"organizer"`
	UserStories  []string `json:"userStories"`
	AvatarSeed   string   `json:"avatarSeed"`
	GameMode     string   `json:"gameMode"`
	TimePerStory any      `json:"timePerStory"`
}

func (a *API) create(c *gin.Context) {
	var req createReq
	var imported *game.Snapshot
	if isForm(c) {
		req.Organizer = c.PostForm("organizer")
		req.UserStories = c.PostFormArray("userStories")
		req.AvatarSeed = c.PostForm("avatar_seed")
		req.GameMode = c.PostForm("game_mode")
		req.TimePerStory = c.PostForm("timePerStory")
		if fh, err := c.FormFile("resume_file"); err == nil && fh.Filename != "" {
			// An unreadable resume file is ignored; the game is created from the form.
			if f, err := fh.Open(); err == nil {
				data, _ := io.ReadAll(io.LimitReader(f, maxImportBytes))
				f.Close()
				if sn, err := game.ParseSnapshot(data); err == nil {
					imported = sn
				} else {
					log.Warn().Err(err).Str("file", fh.Filename).Msg("ignoring resume file")
				}
			}
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	gameMode := strings.TrimSpace(req.GameMode)
	if gameMode == "" {
		gameMode = a.cfg.DefaultGameMode
	}
	s, err := a.M.CreateSession(c.Request.Context(), game.CreateParams{
		Organizer:    req.Organizer,
		Stories:      req.UserStories,
		AvatarSeed:   req.AvatarSeed,
		GameMode:     gameMode,
		TimePerStory: safeInt(req.TimePerStory, a.cfg.DefaultTimePerStory, 1),
		Import:       imported,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	setIdentity(c, s.Organizer, req.AvatarSeed)
	c.JSON(http.StatusCreated, gin.H{"sessionCode": s.ID, "organizer": s.Organizer})
}

type joinReq struct {
	Name       string `json:"name"`
	AvatarSeed string `json:"avatarSeed"`
}

func (a *API) join(c *gin.Context) {
	var req joinReq
	if isForm(c) {
		req.Name = c.PostForm("name")
		req.AvatarSeed = c.PostForm("avatar_seed")
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	s, err := a.M.JoinSession(c.Request.Context(), c.Param("code"), req.Name, req.AvatarSeed)
	if err != nil {
		a.fail(c, err)
		return
	}
	setIdentity(c, strings.TrimSpace(req.Name), req.AvatarSeed)
	a.changed(s.ID)
	c.JSON(http.StatusOK, gin.H{"sessionCode": s.ID})
}

func (a *API) start(c *gin.Context) {
	s, err := a.M.StartGame(c.Request.Context(), c.Param("code"), identity(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.changed(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) reveal(c *gin.Context) {
	s, err := a.M.RevealVotes(c.Request.Context(), c.Param("code"), identity(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.changed(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type voteReq struct {
	Vote string `json:"vote"`
}

func (a *API) vote(c *gin.Context) {
	var req voteReq
	if isForm(c) {
		req.Vote = c.PostForm("vote")
	} else if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	s, err := a.M.SubmitVote(c.Request.Context(), c.Param("code"), identity(c), avatar(c), req.Vote)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.changed(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) gameView(c *gin.Context) {
	view, err := a.M.GetGameView(c.Request.Context(), c.Param("code"), identity(c))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *API) participants(c *gin.Context) {
	ps, status, err := a.M.Participants(c.Request.Context(), c.Param("code"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": ps, "status": status})
}

func (a *API) resume(c *gin.Context) {
	resumed, err := a.M.ResumeFromPause(c.Request.Context(), c.Param("code"))
	if err != nil {
		a.fail(c, err)
		return
	}
	if !resumed {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	a.changed(game.NormalizeCode(c.Param("code")))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) next(c *gin.Context) {
	var req struct {
		Result any `json:"result"`
	}
	// The body is optional; without a result the average of the votes is used.
	_ = c.ShouldBindJSON(&req)

	s, err := a.M.AdvanceStory(c.Request.Context(), c.Param("code"), req.Result)
	if err != nil {
		a.fail(c, err)
		return
	}
	if s.Status == game.StatusFinished && a.cfg.ExportEnabled {
		if err := game.ArchiveResults(s.ExportResultsOnly(), a.cfg.ExportFile, time.Now()); err != nil {
			log.Error().Err(err).Str("code", s.ID).Msg("failed to archive game results")
		} else {
			log.Info().Str("code", s.ID).Str("file", a.cfg.ExportFile).Msg("archived game results")
		}
	}
	a.changed(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) revote(c *gin.Context) {
	s, err := a.M.RequestRevote(c.Request.Context(), c.Param("code"))
	if err != nil {
		a.fail(c, err)
		return
	}
	a.changed(s.ID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) listChat(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	msgs, err := a.M.ListChatMessages(c.Request.Context(), c.Param("code"), limit)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (a *API) postChat(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	_ = c.ShouldBindJSON(&req)
	msg, err := a.M.PostChatMessage(c.Request.Context(), c.Param("code"), identity(c), req.Text)
	if err != nil {
		a.fail(c, err)
		return
	}
	if a.notify != nil {
		a.notify.BroadcastChat(game.NormalizeCode(c.Param("code")), msg)
	}
	c.JSON(http.StatusCreated, gin.H{"status": "ok", "message": msg})
}

func (a *API) exportState(c *gin.Context) {
	sn, err := a.M.ExportFullState(c.Request.Context(), c.Param("code"))
	if err != nil {
		a.fail(c, err)
		return
	}
	attachJSON(c, "poker_state_"+sn.SessionID+".json", sn)
}

func (a *API) exportResults(c *gin.Context) {
	res, err := a.M.ExportResultsOnly(c.Request.Context(), c.Param("code"))
	if err != nil {
		a.fail(c, err)
		return
	}
	attachJSON(c, "poker_results_"+res.SessionID+".json", res)
}

func (a *API) importState(c *gin.Context) {
	var data []byte
	if fh, err := c.FormFile("resume_file"); err == nil {
		f, err := fh.Open()
		if err != nil {
			a.fail(c, game.ErrInvalidImport)
			return
		}
		data, err = io.ReadAll(io.LimitReader(f, maxImportBytes))
		f.Close()
		if err != nil {
			a.fail(c, game.ErrInvalidImport)
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
		if err != nil {
			a.fail(c, game.ErrInvalidImport)
			return
		}
	}
	sn, err := game.ParseSnapshot(data)
	if err != nil {
		a.fail(c, err)
		return
	}
	s, err := a.M.ImportAndResume(c.Request.Context(), sn)
	if err != nil {
		a.fail(c, err)
		return
	}
	setIdentity(c, s.Organizer, s.Participants[len(s.Participants)-1].AvatarSeed)
	c.JSON(http.StatusCreated, gin.H{
		"sessionCode":       s.ID,
		"organizer":         s.Organizer,
		"status":            s.Status,
		"currentStoryIndex": s.CurrentStoryIndex,
	})
}

func (a *API) changed(code string) {
	if a.notify != nil {
		a.notify.Broadcast(code)
	}
}

func (a *API) fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": code})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, game.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized"
	case errors.Is(err, game.ErrGameFinished):
		return http.StatusBadRequest, "game_finished"
	case errors.Is(err, game.ErrUnauthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, game.ErrEmptyMessage):
		return http.StatusBadRequest, "empty"
	case errors.Is(err, game.ErrInvalidImport):
		return http.StatusBadRequest, "invalid_import"
	case errors.Is(err, game.ErrNameRequired):
		return http.StatusBadRequest, "name_required"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func attachJSON(c *gin.Context, filename string, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Error().Err(err).Str("file", filename).Msg("failed to encode export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/json", b)
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "multipart/form-data" || ct == "application/x-www-form-urlencoded"
}

func identity(c *gin.Context) string {
	if v := strings.TrimSpace(c.GetHeader(headerPlayer)); v != "" {
		return v
	}
	v, _ := c.Cookie(cookiePlayer)
	return v
}

func avatar(c *gin.Context) string {
	if v := c.GetHeader(headerAvatar); v != "" {
		return v
	}
	v, _ := c.Cookie(cookieAvatar)
	return v
}

func setIdentity(c *gin.Context, name, avatarSeed string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cookiePlayer, name, 0, "/", "", false, true)
	if avatarSeed != "" {
		c.SetCookie(cookieAvatar, avatarSeed, 0, "/", "", false, true)
	}
}

// safeInt converts a loosely typed form or JSON value, falling back to def and
// clamping to lo.
func safeInt(v any, def, lo int) int {
	n := def
	switch x := v.(type) {
	case float64:
		n = int(x)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			n = i
		}
	case int:
		n = x
	}
	if n < lo {
		n = lo
	}
	return n
}
