// Package hub connects sessions that share a world: it fans each player's
// position out to everyone else on the same map and relays map edits.
package hub

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"overworld/internal/game"
	"overworld/internal/maps"
)

// SyncRate is how many remote-player snapshots are pushed per second.
const SyncRate = 10

// ExternalTTL is how long a player published from outside a session stays
// visible without a fresh update.
const ExternalTTL = 10 * time.Second

var (
	// ErrUnknownSession is returned for a session id that is not registered.
	ErrUnknownSession = errors.New("unknown session")
	// ErrSessionBusy is returned when a session's queue is full.
	ErrSessionBusy = errors.New("session busy")
)

// Peer is a running session as seen by the hub.
type Peer interface {
	PlayerState() game.PlayerState
	ViewState() game.ViewState
	SetOthers(list []game.RemotePlayer, selfID string)
	ApplyEdits(ed maps.Edits)
	SetMap(mapID string, spawn *maps.Spawn) bool
	Input(in game.Input) bool
}

// Member is a registered session.
type Member struct {
	ID     string
	Name   string
	Sprite string
	Peer   Peer
}

type external struct {
	player game.RemotePlayer
	seen   time.Time
}

type subscription struct {
	mapID string
	ch    chan []game.RemotePlayer
}

// Hub owns the session registry.
type Hub struct {
	catalog *maps.Catalog
	log     logrus.FieldLogger

	mu        sync.Mutex
	members   map[string]*Member
	externals map[string]external
	subs      map[*subscription]struct{}
	now       func() time.Time
}

// New creates a hub. Edits are applied to catalog before being relayed.
func New(catalog *maps.Catalog, log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		catalog:   catalog,
		log:       log,
		members:   make(map[string]*Member),
		externals: make(map[string]external),
		subs:      make(map[*subscription]struct{}),
		now:       time.Now,
	}
}

// Join registers a session.
func (h *Hub) Join(m *Member) {
	h.mu.Lock()
	h.members[m.ID] = m
	n := len(h.members)
	h.mu.Unlock()
	h.log.WithFields(logrus.Fields{"session": m.ID, "name": m.Name, "online": n}).Info("session joined")
}

// Leave removes a session.
func (h *Hub) Leave(id string) {
	h.mu.Lock()
	_, ok := h.members[id]
	delete(h.members, id)
	n := len(h.members)
	h.mu.Unlock()
	if ok {
		h.log.WithFields(logrus.Fields{"session": id, "online": n}).Info("session left")
	}
}

// Member looks up a session.
func (h *Hub) Member(id string) (*Member, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.members[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return m, nil
}

// Members lists sessions ordered by id.
func (h *Hub) Members() []*Member {
	h.mu.Lock()
	out := make([]*Member, 0, len(h.members))
	for _, m := range h.members {
		out = append(out, m)
	}
	h.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Online counts sessions and live external players.
func (h *Hub) Online() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.members) + len(h.externals)
}

// Publish records a player driven from outside the hub, such as a sync
// client. It shows up in snapshots until ExternalTTL passes without an update.
func (h *Hub) Publish(p game.RemotePlayer) {
	if p.ID == "" {
		return
	}
	h.mu.Lock()
	h.externals[p.ID] = external{player: p, seen: h.now()}
	h.mu.Unlock()
}

// Forget drops a published player.
func (h *Hub) Forget(id string) {
	h.mu.Lock()
	delete(h.externals, id)
	h.mu.Unlock()
}

// Subscribe streams snapshots of the players on mapID, or on every map when
// mapID is empty. Slow readers only see the latest snapshot. Call cancel to
// stop.
func (h *Hub) Subscribe(mapID string) (<-chan []game.RemotePlayer, func()) {
	sub := &subscription{mapID: mapID, ch: make(chan []game.RemotePlayer, 1)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
		})
	}
}

// Run pushes snapshots at SyncRate until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Second / SyncRate)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.Sync()
		}
	}
}

// Sync collects every player and hands each session the others on its map.
func (h *Hub) Sync() {
	h.mu.Lock()
	now := h.now()
	members := make([]*Member, 0, len(h.members))
	for _, m := range h.members {
		members = append(members, m)
	}
	var players []game.RemotePlayer
	for id, ex := range h.externals {
		if now.Sub(ex.seen) > ExternalTTL {
			delete(h.externals, id)
			continue
		}
		players = append(players, ex.player)
	}
	subs := make([]*subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	onMap := make(map[string]string, len(members))
	for _, m := range members {
		st := m.Peer.PlayerState()
		if st.MapID == "" {
			continue
		}
		onMap[m.ID] = st.MapID
		players = append(players, st.Remote(m.ID, m.Name, m.Sprite))
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	byMap := make(map[string][]game.RemotePlayer)
	for _, p := range players {
		byMap[p.MapID] = append(byMap[p.MapID], p)
	}

	for _, m := range members {
		if mapID, ok := onMap[m.ID]; ok {
			m.Peer.SetOthers(byMap[mapID], m.ID)
		}
	}
	for _, s := range subs {
		list := players
		if s.mapID != "" {
			list = byMap[s.mapID]
		}
		deliver(s.ch, list)
	}
}

// deliver replaces any unread snapshot with list.
func deliver(ch chan []game.RemotePlayer, list []game.RemotePlayer) {
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- list:
	default:
	}
}

// ApplyEdits stores edits in the catalog and hands them to every session.
func (h *Hub) ApplyEdits(ed maps.Edits) error {
	if h.catalog != nil {
		if err := h.catalog.Apply(ed); err != nil {
			return err
		}
	}
	for _, m := range h.Members() {
		m.Peer.ApplyEdits(ed)
	}
	h.log.WithField("map", ed.MapID).Info("map edits applied")
	return nil
}

// SetMap sends a session to another map.
func (h *Hub) SetMap(id, mapID string, spawn *maps.Spawn) error {
	m, err := h.Member(id)
	if err != nil {
		return err
	}
	if !m.Peer.SetMap(mapID, spawn) {
		return ErrSessionBusy
	}
	return nil
}

// Input queues an input on a session as if its own player sent it.
func (h *Hub) Input(id string, in game.Input) error {
	m, err := h.Member(id)
	if err != nil {
		return err
	}
	if !m.Peer.Input(in) {
		return ErrSessionBusy
	}
	return nil
}
