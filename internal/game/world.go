package game

import (
	"overworld/internal/gfx"
	"overworld/internal/maps"
	"overworld/internal/render"
)

// LoadedMap is a map ready for simulation.
type LoadedMap struct {
	Descriptor *maps.Descriptor
	Graphics   *render.MapGraphics // nil when the map has no binary layout
	Flat       *gfx.Bitmap         // pre-rendered image used without a layout
	TilesX     int
	TilesY     int
	Dialogs    map[string]maps.Dialog
}

// WorldState is everything the engine simulates for the active map. It is
// replaced on a map switch; the player and camera carry over.
type WorldState struct {
	MapID    string
	Map      *LoadedMap
	TilesX   int
	TilesY   int
	TileSize int

	Colliders []maps.Rect
	Events    []maps.Event
	NPCs      []maps.NPC
	Jumps     []maps.Jump

	Player Player
	Others map[string]*Remote
	Camera Camera

	// Triggered holds once-events that already fired, keyed by map and id.
	Triggered        map[string]bool
	NPCHold          string
	TeleportCooldown float64
	AnimClock        float64
}

func newWorldState() *WorldState {
	return &WorldState{
		TileSize:  maps.DefaultTileSize,
		Others:    make(map[string]*Remote),
		Triggered: make(map[string]bool),
		Player:    Player{Entity: Entity{Facing: maps.DirDown, MoveTiles: 1}},
	}
}

// enter installs a freshly loaded map.
func (w *WorldState) enter(m *LoadedMap) {
	d := m.Descriptor
	w.MapID = d.ID
	w.Map = m
	w.TilesX, w.TilesY = m.TilesX, m.TilesY
	w.TileSize = d.TileSize
	if w.TileSize <= 0 {
		w.TileSize = maps.DefaultTileSize
	}
	w.Colliders = d.Colliders
	w.Events = d.Events
	w.NPCs = d.NPCs
	w.Jumps = d.Jumps
	w.NPCHold = ""
	// Other players belong to the previous map.
	w.Others = make(map[string]*Remote)
}

// PixelSize is the map's extent in pixels.
func (w *WorldState) PixelSize() (int, int) {
	return w.TilesX * w.TileSize, w.TilesY * w.TileSize
}

// AnimTick is the global animation tick.
func (w *WorldState) AnimTick() int {
	return int(w.AnimClock * TickRate)
}

// IsBlocked reports whether a tile is out of bounds, inside a collider, or
// occupied by a solid NPC.
func (w *WorldState) IsBlocked(x, y int) bool {
	if x < 0 || y < 0 || x >= w.TilesX || y >= w.TilesY {
		return true
	}
	for _, c := range w.Colliders {
		if c.Contains(x, y) {
			return true
		}
	}
	return w.npcBlocks(x, y)
}

func (w *WorldState) npcBlocks(x, y int) bool {
	for i := range w.NPCs {
		if n := &w.NPCs[i]; n.Solid && n.X == x && n.Y == y {
			return true
		}
	}
	return false
}

// NPCAt returns the NPC standing on a tile.
func (w *WorldState) NPCAt(x, y int) *maps.NPC {
	for i := range w.NPCs {
		if n := &w.NPCs[i]; n.X == x && n.Y == y {
			return n
		}
	}
	return nil
}

// JumpAt returns the ledge direction of a tile, DirNone if it has none.
func (w *WorldState) JumpAt(x, y int) maps.Direction {
	for _, j := range w.Jumps {
		if j.X == x && j.Y == y && j.Dir.Valid() {
			return j.Dir
		}
	}
	return maps.DirNone
}

func (w *WorldState) triggerKey(ev *maps.Event) string {
	return w.MapID + "/" + ev.ID
}

func (w *WorldState) spent(ev *maps.Event) bool {
	return ev.Once && w.Triggered[w.triggerKey(ev)]
}

func (w *WorldState) markFired(ev *maps.Event) {
	if ev.Once {
		w.Triggered[w.triggerKey(ev)] = true
	}
}
