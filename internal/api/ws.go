package api

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"overworld/internal/game"
	"overworld/internal/maps"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 64 << 10
)

// Sync message types.
const (
	MsgWelcome = "welcome"
	MsgPlayers = "players"
	MsgPlayer  = "player"
	MsgEdits   = "edits"
	MsgError   = "error"
)

// SyncMessage is the frame exchanged on /ws/sync. The server sends welcome
// and players; clients send player updates and edits.
type SyncMessage struct {
	Type    string              `json:"type"`
	ID      string              `json:"id,omitempty"`
	Players []game.RemotePlayer `json:"players,omitempty"`
	Player  *game.RemotePlayer  `json:"player,omitempty"`
	Edits   *maps.Edits         `json:"edits,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// syncConn is one websocket client: a read pump applying its messages and a
// write pump forwarding snapshots.
type syncConn struct {
	ws   *websocket.Conn
	id   string
	send chan SyncMessage
	log  logrus.FieldLogger
}

// sync upgrades to a websocket streaming players on ?map= (every map when
// empty). ?id= names the client; a random id is assigned otherwise.
func (s *Server) sync(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		id = uuid.NewString()
	}
	mapID := c.Query("map")

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	conn := &syncConn{
		ws:   ws,
		id:   id,
		send: make(chan SyncMessage, 16),
		log:  s.log.WithFields(logrus.Fields{"client": id, "map": mapID}),
	}
	conn.log.Info("sync client connected")

	snapshots, cancel := s.hub.Subscribe(mapID)
	done := make(chan struct{})
	go conn.writePump(snapshots, done)

	conn.queue(SyncMessage{Type: MsgWelcome, ID: id})
	conn.readPump(s)

	close(done)
	cancel()
	s.hub.Forget(id)
	conn.log.Info("sync client disconnected")
}

func (c *syncConn) queue(msg SyncMessage) {
	select {
	case c.send <- msg:
	default:
		c.log.Debug("sync client too slow, dropping message")
	}
}

func (c *syncConn) readPump(s *Server) {
	defer c.ws.Close()
	c.ws.SetReadLimit(maxMessage)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Debug("sync read failed")
			}
			return
		}

		var msg SyncMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.queue(SyncMessage{Type: MsgError, Error: "malformed message"})
			continue
		}
		switch msg.Type {
		case MsgPlayer:
			if msg.Player == nil {
				continue
			}
			p := *msg.Player
			p.ID = c.id
			s.hub.Publish(p)
		case MsgEdits:
			if msg.Edits == nil {
				continue
			}
			if err := s.hub.ApplyEdits(*msg.Edits); err != nil {
				c.queue(SyncMessage{Type: MsgError, Error: err.Error()})
			}
		default:
			c.queue(SyncMessage{Type: MsgError, Error: "unknown message type " + msg.Type})
		}
	}
}

func (c *syncConn) writePump(snapshots <-chan []game.RemotePlayer, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		var msg SyncMessage
		select {
		case <-done:
			c.ws.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		case msg = <-c.send:
		case list := <-snapshots:
			msg = SyncMessage{Type: MsgPlayers, Players: withoutID(list, c.id)}
		}
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			return
		}
	}
}

func withoutID(list []game.RemotePlayer, id string) []game.RemotePlayer {
	out := make([]game.RemotePlayer, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
