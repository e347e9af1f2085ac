package maps

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Direction an entity faces or moves in.
type Direction int

const (
	DirNone Direction = iota
	DirDown
	DirUp
	DirLeft
	DirRight
)

var dirNames = map[Direction]string{
	DirDown:  "down",
	DirUp:    "up",
	DirLeft:  "left",
	DirRight: "right",
}

func (d Direction) String() string {
	if s, ok := dirNames[d]; ok {
		return s
	}
	return ""
}

// ParseDirection accepts up/down/left/right in any case; anything else is DirNone.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down":
		return DirDown
	case "up":
		return DirUp
	case "left":
		return DirLeft
	case "right":
		return DirRight
	}
	return DirNone
}

// Vector is the unit tile step for d.
func (d Direction) Vector() (dx, dy int) {
	switch d {
	case DirDown:
		return 0, 1
	case DirUp:
		return 0, -1
	case DirLeft:
		return -1, 0
	case DirRight:
		return 1, 0
	}
	return 0, 0
}

// Valid reports whether d is one of the four directions.
func (d Direction) Valid() bool {
	return d >= DirDown && d <= DirRight
}

func (d Direction) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// non-string facings are ignored
		*d = DirNone
		return nil
	}
	*d = ParseDirection(s)
	return nil
}

// Rect is a tile-space rectangle. JSON accepts w/h or width/height; a missing
// extent is 1.
type Rect struct {
	X, Y, W, H int
}

type rawRect struct {
	X      int  `json:"x"`
	Y      int  `json:"y"`
	W      *int `json:"w,omitempty"`
	H      *int `json:"h,omitempty"`
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

func (r *Rect) UnmarshalJSON(b []byte) error {
	var raw rawRect
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("rect: %w", err)
	}
	r.X, r.Y = raw.X, raw.Y
	r.W = firstInt(1, raw.W, raw.Width)
	r.H = firstInt(1, raw.H, raw.Height)
	return nil
}

func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X int `json:"x"`
		Y int `json:"y"`
		W int `json:"w"`
		H int `json:"h"`
	}{r.X, r.Y, r.W, r.H})
}

// Contains reports whether tile (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

func firstInt(def int, vals ...*int) int {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

// Spawn is a placement request. Nil coordinates mean "map centre" and
// DirNone keeps the current facing.
type Spawn struct {
	X      *int      `json:"x,omitempty"`
	Y      *int      `json:"y,omitempty"`
	Facing Direction `json:"facing,omitempty"`
}

// At returns a spawn at a fixed tile.
func At(x, y int, facing Direction) *Spawn {
	return &Spawn{X: &x, Y: &y, Facing: facing}
}

// HasPosition reports whether either coordinate is set.
func (s *Spawn) HasPosition() bool {
	return s != nil && (s.X != nil || s.Y != nil)
}
