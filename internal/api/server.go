// Package api is the HTTP surface for editors and sync clients.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"overworld/internal/game"
	"overworld/internal/hub"
	"overworld/internal/maps"
)

// Response codes carried in the envelope next to the HTTP status.
const (
	CodeSuccess     = 0
	CodeBadParams   = 4000
	CodeNotFound    = 4040
	CodeUnavailable = 5030
)

// Response is the JSON envelope of every REST reply.
type Response struct {
	Timestamp int64  `json:"timestamp"`
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Data      any    `json:"data,omitempty"`
}

// Server serves the REST endpoints and the sync websocket.
type Server struct {
	hub      *hub.Hub
	catalog  *maps.Catalog
	log      logrus.FieldLogger
	upgrader websocket.Upgrader
}

// New creates the API server.
func New(h *hub.Hub, catalog *maps.Catalog, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		hub:     h,
		catalog: catalog,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Router builds the gin engine.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())
	s.Routes(r.Group("/"))
	return r
}

// Routes mounts the endpoints on g.
func (s *Server) Routes(g *gin.RouterGroup) {
	apiGroup := g.Group("/api")
	apiGroup.GET("/maps", s.listMaps)
	apiGroup.GET("/maps/:id", s.getMap)
	apiGroup.POST("/maps/:id/edits", s.applyEdits)

	apiGroup.GET("/sessions", s.listSessions)
	apiGroup.GET("/sessions/:id/view", s.sessionView)
	apiGroup.GET("/sessions/:id/player", s.sessionPlayer)
	apiGroup.POST("/sessions/:id/map", s.setSessionMap)
	apiGroup.POST("/sessions/:id/input", s.sessionInput)

	g.GET("/ws/sync", s.sync)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start),
		}).Debug("http request")
	}
}

func reply(c *gin.Context, status, code int, msg string, data any) {
	c.JSON(status, Response{Timestamp: time.Now().Unix(), Code: code, Msg: msg, Data: data})
}

func ok(c *gin.Context, data any) {
	reply(c, http.StatusOK, CodeSuccess, "success", data)
}

// MapSummary is one entry of the map list.
type MapSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) listMaps(c *gin.Context) {
	ids := s.catalog.IDs()
	out := make([]MapSummary, 0, len(ids))
	for _, id := range ids {
		d, err := s.catalog.Get(id)
		if err != nil {
			continue
		}
		w, h, _ := s.catalog.Size(id)
		out = append(out, MapSummary{ID: id, Name: d.Name, Width: w, Height: h})
	}
	ok(c, out)
}

func (s *Server) getMap(c *gin.Context) {
	d, err := s.catalog.Get(c.Param("id"))
	if err != nil {
		reply(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
		return
	}
	ok(c, d)
}

func (s *Server) applyEdits(c *gin.Context) {
	var ed maps.Edits
	if err := c.ShouldBindJSON(&ed); err != nil {
		reply(c, http.StatusBadRequest, CodeBadParams, err.Error(), nil)
		return
	}
	ed.MapID = c.Param("id")
	if err := s.hub.ApplyEdits(ed); err != nil {
		if errors.Is(err, maps.ErrUnknownMap) {
			reply(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
			return
		}
		reply(c, http.StatusInternalServerError, CodeUnavailable, err.Error(), nil)
		return
	}
	ok(c, nil)
}

// SessionSummary describes one connected session.
type SessionSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	MapID string `json:"mapId"`
	TileX int    `json:"tileX"`
	TileY int    `json:"tileY"`
}

func (s *Server) listSessions(c *gin.Context) {
	members := s.hub.Members()
	out := make([]SessionSummary, 0, len(members))
	for _, m := range members {
		st := m.Peer.PlayerState()
		out = append(out, SessionSummary{ID: m.ID, Name: m.Name, MapID: st.MapID, TileX: st.TileX, TileY: st.TileY})
	}
	ok(c, out)
}

func (s *Server) member(c *gin.Context) (*hub.Member, bool) {
	m, err := s.hub.Member(c.Param("id"))
	if err != nil {
		reply(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
		return nil, false
	}
	return m, true
}

func (s *Server) sessionView(c *gin.Context) {
	if m, found := s.member(c); found {
		ok(c, m.Peer.ViewState())
	}
}

func (s *Server) sessionPlayer(c *gin.Context) {
	if m, found := s.member(c); found {
		ok(c, m.Peer.PlayerState())
	}
}

// SetMapRequest moves a session to another map.
type SetMapRequest struct {
	MapID string      `json:"mapId" binding:"required"`
	Spawn *maps.Spawn `json:"spawn"`
}

func (s *Server) setSessionMap(c *gin.Context) {
	var req SetMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reply(c, http.StatusBadRequest, CodeBadParams, err.Error(), nil)
		return
	}
	if _, err := s.catalog.Get(req.MapID); err != nil {
		reply(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
		return
	}
	err := s.hub.SetMap(c.Param("id"), req.MapID, req.Spawn)
	switch {
	case errors.Is(err, hub.ErrUnknownSession):
		reply(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case err != nil:
		reply(c, http.StatusServiceUnavailable, CodeUnavailable, err.Error(), nil)
	default:
		ok(c, nil)
	}
}

// InputRequest drives a session's player. Action is a wire name such as
// "press", "release", "doubletap" or "select-tile"; X and Y are map tiles.
type InputRequest struct {
	Action string         `json:"action" binding:"required"`
	Dir    maps.Direction `json:"dir"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
}

func (s *Server) sessionInput(c *gin.Context) {
	var req InputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		reply(c, http.StatusBadRequest, CodeBadParams, err.Error(), nil)
		return
	}
	action, found := game.ParseAction(req.Action)
	if !found {
		reply(c, http.StatusBadRequest, CodeBadParams, "unknown action "+req.Action, nil)
		return
	}
	err := s.hub.Input(c.Param("id"), game.Input{Action: action, Dir: req.Dir, X: req.X, Y: req.Y})
	switch {
	case errors.Is(err, hub.ErrUnknownSession):
		reply(c, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case err != nil:
		reply(c, http.StatusServiceUnavailable, CodeUnavailable, err.Error(), nil)
	default:
		ok(c, nil)
	}
}
