package game

import (
	"sort"

	"overworld/internal/render"
)

// Scene builds the render description of the current frame.
func (e *Engine) Scene() *render.Scene {
	w := e.state
	ts := float64(w.TileSize)
	vw, vh := e.ViewportSize()
	s := &render.Scene{
		MapID:    w.MapID,
		TilesX:   w.TilesX,
		TilesY:   w.TilesY,
		TileSize: w.TileSize,
		ViewW:    vw,
		ViewH:    vh,
		CamX:     w.Camera.X,
		CamY:     w.Camera.Y,
		Tick:     w.AnimTick(),
		Editor:   e.editor,
	}
	if w.Map != nil {
		s.Graphics = w.Map.Graphics
		s.Flat = w.Map.Flat
	}
	if !e.ready {
		return s
	}

	s.NPCs = make([]render.EntityView, 0, len(w.NPCs))
	for _, n := range w.NPCs {
		sprite := n.Sprite
		if sprite == "" {
			sprite = n.ID
		}
		s.NPCs = append(s.NPCs, render.EntityView{
			ID: n.ID, Name: n.Name, Sprite: sprite,
			PX: float64(n.X) * ts, PY: float64(n.Y) * ts, Facing: n.Facing,
		})
	}

	s.Others = make([]render.EntityView, 0, len(w.Others))
	for _, r := range w.Others {
		s.Others = append(s.Others, render.EntityView{
			ID: r.ID, Name: r.Name, Sprite: r.SpriteID,
			PX: r.X, PY: r.Y, Facing: r.Facing, Moving: r.Moving,
		})
	}
	// Players further down the map draw over those above them.
	sort.Slice(s.Others, func(i, j int) bool {
		a, b := s.Others[i], s.Others[j]
		if a.PY != b.PY {
			return a.PY < b.PY
		}
		return a.ID < b.ID
	})

	p := &w.Player
	s.Player = &render.EntityView{
		ID: "player", Sprite: e.cfg.SpriteID,
		PX: p.X, PY: p.Y, Facing: p.Facing, Moving: p.Moving,
	}
	if s.Editor.Any() {
		s.Colliders = w.Colliders
		s.Events = w.Events
	}
	return s
}
