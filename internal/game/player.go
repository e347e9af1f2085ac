package game

import (
	"math"
	"strings"

	"overworld/internal/maps"
)

// Action represents a player input action.
type Action int

const (
	ActionNone Action = iota
	ActionMove        // tap a direction: turn, or step when already facing it
	ActionPress       // hold a direction
	ActionRelease     // let go of a held direction
	ActionConfirm
	ActionCancel
	ActionMenu
	ActionSelect
	ActionRun       // toggle running
	ActionEditor    // cycle editor overlays
	ActionDoubleTap // double-activate the tile at X, Y
	ActionSelectTile
)

var actionNames = map[string]Action{
	"move":        ActionMove,
	"press":       ActionPress,
	"release":     ActionRelease,
	"confirm":     ActionConfirm,
	"cancel":      ActionCancel,
	"menu":        ActionMenu,
	"select":      ActionSelect,
	"run":         ActionRun,
	"editor":      ActionEditor,
	"doubletap":   ActionDoubleTap,
	"select-tile": ActionSelectTile,
}

// ParseAction resolves an action by its wire name, such as "press" or
// "select-tile".
func ParseAction(name string) (Action, bool) {
	a, ok := actionNames[strings.ToLower(name)]
	return a, ok
}

// Input carries a player action into the loop.
type Input struct {
	Action Action
	Dir    maps.Direction
	X, Y   int
}

// Entity is anything that walks tile to tile with interpolated pixels.
type Entity struct {
	TileX, TileY  int
	X, Y          float64 // pixel position
	Facing        maps.Direction
	Moving        bool
	VX, VY        float64
	MoveRemaining float64
	MoveTiles     int
	AnimTime      float64
}

// place snaps the entity onto a tile and stops it.
func (e *Entity) place(x, y, tileSize int) {
	e.TileX, e.TileY = x, y
	e.X, e.Y = float64(x*tileSize), float64(y*tileSize)
	e.stop()
}

func (e *Entity) stop() {
	e.Moving = false
	e.VX, e.VY = 0, 0
	e.MoveRemaining = 0
	e.MoveTiles = 1
}

// Player is the local avatar.
type Player struct {
	Entity
	BumpTime float64
}

// Remote is another player replicated from sync snapshots.
type Remote struct {
	Entity
	ID        string
	Name      string
	SpriteID  string
	MoveTotal float64
}

// RemotePlayer is the sync contract for another player. Either X/Y alone, or
// Moving with From/To, is expected.
type RemotePlayer struct {
	ID       string         `json:"id"`
	Name     string         `json:"name,omitempty"`
	SpriteID string         `json:"spriteId,omitempty"`
	MapID    string         `json:"mapId,omitempty"`
	X        *int           `json:"x,omitempty"`
	Y        *int           `json:"y,omitempty"`
	Facing   maps.Direction `json:"facing,omitempty"`
	Moving   bool           `json:"moving,omitempty"`
	FromX    *int           `json:"fromX,omitempty"`
	FromY    *int           `json:"fromY,omitempty"`
	ToX      *int           `json:"toX,omitempty"`
	ToY      *int           `json:"toY,omitempty"`
}

func (p *RemotePlayer) hasMove() bool {
	return p.Moving && p.FromX != nil && p.FromY != nil && p.ToX != nil && p.ToY != nil
}

// PlayerState is the local player as reported to collaborators.
type PlayerState struct {
	MapID         string         `json:"mapId"`
	TileX         int            `json:"tileX"`
	TileY         int            `json:"tileY"`
	X             float64        `json:"x"`
	Y             float64        `json:"y"`
	Facing        maps.Direction `json:"facing"`
	Moving        bool           `json:"moving"`
	VX            float64        `json:"vx"`
	VY            float64        `json:"vy"`
	MoveRemaining float64        `json:"moveRemaining"`
	MoveTiles     int            `json:"moveTiles"`
}

// Target is the tile the player is heading to, or its tile when standing.
func (s PlayerState) Target() (x, y int) {
	if !s.Moving {
		return s.TileX, s.TileY
	}
	return s.TileX + int(math.Round(s.VX))*s.MoveTiles, s.TileY + int(math.Round(s.VY))*s.MoveTiles
}

// Remote converts the state into the sync contract seen by other sessions.
func (s PlayerState) Remote(id, name, sprite string) RemotePlayer {
	tx, ty := s.Target()
	fx, fy := s.TileX, s.TileY
	return RemotePlayer{
		ID: id, Name: name, SpriteID: sprite, MapID: s.MapID,
		X: &tx, Y: &ty, Facing: s.Facing, Moving: s.Moving,
		FromX: &fx, FromY: &fy, ToX: &tx, ToY: &ty,
	}
}
