package maps

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMap is returned when a map id has no descriptor.
var ErrUnknownMap = errors.New("unknown map")

// DefaultTileSize is the metatile edge in pixels.
const DefaultTileSize = 16

// NPCTrigger says how an NPC's dialog is started.
type NPCTrigger string

const (
	NPCTouch    NPCTrigger = "touch"
	NPCDblClick NPCTrigger = "dblclick"
)

// NPC is a static map character.
type NPC struct {
	ID       string     `json:"id"`
	Name     string     `json:"name,omitempty"`
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Solid    bool       `json:"solid,omitempty"`
	Trigger  NPCTrigger `json:"trigger,omitempty"`
	DialogID string     `json:"dialogId,omitempty"`
	Text     string     `json:"text,omitempty"`
	Sprite   string     `json:"sprite,omitempty"`
	Facing   Direction  `json:"facing,omitempty"`
}

// Jump is a one-way ledge tile.
type Jump struct {
	X   int
	Y   int
	Dir Direction
}

func (j *Jump) UnmarshalJSON(b []byte) error {
	var raw struct {
		X         int       `json:"x"`
		Y         int       `json:"y"`
		Dir       Direction `json:"dir"`
		Direction Direction `json:"direction"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("jump: %w", err)
	}
	j.X, j.Y, j.Dir = raw.X, raw.Y, raw.Dir
	if !j.Dir.Valid() {
		j.Dir = raw.Direction
	}
	return nil
}

func (j Jump) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		X   int       `json:"x"`
		Y   int       `json:"y"`
		Dir Direction `json:"dir"`
	}{j.X, j.Y, j.Dir})
}

// Dialog is a piece of text referenced by id.
type Dialog struct {
	ID    string   `json:"id"`
	Lines []string `json:"lines,omitempty"`
	Text  *string  `json:"text,omitempty"`
	Title *string  `json:"title,omitempty"`
}

// Body returns the lines joined by newline, else the text, else the title.
func (d *Dialog) Body() string {
	if d == nil {
		return ""
	}
	if d.Lines != nil {
		return strings.Join(d.Lines, "\n")
	}
	if d.Text != nil {
		return *d.Text
	}
	if d.Title != nil {
		return *d.Title
	}
	return ""
}

// Meta links a descriptor to its binary layout.
type Meta struct {
	LayoutID         string `json:"layoutId,omitempty"`
	PrimaryTileset   string `json:"primaryTileset,omitempty"`
	SecondaryTileset string `json:"secondaryTileset,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
}

// Descriptor is the JSON description of one map.
type Descriptor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image,omitempty"`
	TileSize  int       `json:"tileSize"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	Start     Spawn     `json:"start"`
	Colliders []Rect    `json:"colliders"`
	NPCs      []NPC     `json:"npcs"`
	Events    EventList `json:"events"`
	Jumps     []Jump    `json:"jumps"`
	Dialogs   []Dialog  `json:"dialogs,omitempty"`
	Meta      Meta      `json:"meta"`
}

// ParseDescriptor decodes a map file. A top-level {"map": {...}} wrapper
// without an id is unwrapped, and missing fields get defaults.
func ParseDescriptor(id string, data []byte) (*Descriptor, error) {
	var head struct {
		ID  string          `json:"id"`
		Map json.RawMessage `json:"map"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse map JSON: %w", err)
	}
	if head.ID == "" && len(head.Map) > 0 {
		data = head.Map
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse map JSON: %w", err)
	}
	if d.ID == "" {
		d.ID = id
	}
	if d.ID == "" {
		d.ID = "default"
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	if d.TileSize <= 0 {
		d.TileSize = DefaultTileSize
	}
	return &d, nil
}

// Size returns the map's extent in tiles from the descriptor alone.
func (d *Descriptor) Size() (w, h int, ok bool) {
	w, h = d.Width, d.Height
	if w <= 0 {
		w = d.Meta.Width
	}
	if h <= 0 {
		h = d.Meta.Height
	}
	return w, h, w > 0 && h > 0
}

// Edits is a wholesale replacement of a map's editable arrays. Nil slices are
// left untouched.
type Edits struct {
	MapID     string    `json:"mapId"`
	Colliders []Rect    `json:"colliders,omitempty"`
	Events    EventList `json:"events,omitempty"`
	Jumps     []Jump    `json:"jumps,omitempty"`
	NPCs      []NPC     `json:"npcs,omitempty"`
}

// World is the top-level world file: shared dialogs, flags and the start map.
type World struct {
	ActiveMapID string            `json:"activeMapId"`
	Start       *Spawn            `json:"start,omitempty"`
	Dialogs     []Dialog          `json:"dialogs"`
	Flags       map[string]bool   `json:"flags"`
	MapFiles    map[string]string `json:"mapFiles,omitempty"`
}

// ParseWorld decodes a world file.
func ParseWorld(data []byte) (*World, error) {
	var w World
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse world JSON: %w", err)
	}
	if w.Flags == nil {
		w.Flags = map[string]bool{}
	}
	return &w, nil
}

// Layout is one entry of layouts.json.
type Layout struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Width            int    `json:"width"`
	Height           int    `json:"height"`
	PrimaryTileset   string `json:"primary_tileset"`
	SecondaryTileset string `json:"secondary_tileset"`
	BlockdataPath    string `json:"blockdata_filepath"`
}

// ParseLayouts decodes layouts.json into a map keyed by layout id.
func ParseLayouts(data []byte) (map[string]Layout, error) {
	var file struct {
		Layouts []json.RawMessage `json:"layouts"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse layouts: %w", err)
	}
	out := make(map[string]Layout, len(file.Layouts))
	for _, raw := range file.Layouts {
		var l Layout
		// placeholder entries ({}) and malformed ones are skipped
		if err := json.Unmarshal(raw, &l); err != nil || l.ID == "" {
			continue
		}
		out[l.ID] = l
	}
	return out, nil
}
