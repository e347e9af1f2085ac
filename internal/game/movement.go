package game

import (
	"math"

	"overworld/internal/maps"
)

// stepDone is how close to the target counts as arrived.
const stepDone = 0.001

// TryMove handles one directional input. The first input in a new direction
// only turns the player; walking starts once already facing it. A ledge in
// the walking direction turns the step into a two-tile jump.
func (e *Engine) TryMove(dir maps.Direction) {
	w := e.state
	p := &w.Player
	if !dir.Valid() || p.Moving {
		return
	}
	if p.Facing != dir {
		p.Facing = dir
		return
	}

	dx, dy := dir.Vector()
	nx, ny := p.TileX+dx, p.TileY+dy
	if w.JumpAt(nx, ny) == dir {
		if w.IsBlocked(nx+dx, ny+dy) {
			e.bump()
			return
		}
		e.startStep(dx, dy, 2)
		return
	}
	if npc := w.NPCAt(nx, ny); npc != nil && npc.Solid {
		e.bump()
		if npc.Trigger != maps.NPCDblClick && w.NPCHold != npc.ID {
			w.NPCHold = npc.ID
			e.npcDialog(npc)
		}
		return
	}
	if w.IsBlocked(nx, ny) {
		e.bump()
		return
	}
	e.startStep(dx, dy, 1)
}

func (e *Engine) bump() {
	if p := &e.state.Player; p.BumpTime <= 0 {
		p.BumpTime = BumpDuration
	}
}

func (e *Engine) startStep(dx, dy, tiles int) {
	p := &e.state.Player
	p.Moving = true
	p.VX, p.VY = float64(dx), float64(dy)
	p.MoveTiles = tiles
	p.MoveRemaining = float64(e.state.TileSize * tiles)
	p.AnimTime = 0
}

// updatePlayer advances timers and the local player by dt seconds.
func (e *Engine) updatePlayer(dt float64) {
	w := e.state
	p := &w.Player
	w.AnimClock += dt
	w.TeleportCooldown = max(0, w.TeleportCooldown-dt)
	p.BumpTime = max(0, p.BumpTime-dt)
	if e.Paused() {
		e.tapped = maps.DirNone
		return
	}

	speed := 1.0
	if e.running {
		speed = e.cfg.RunMultiplier
	}
	if !p.Moving {
		dir := e.tapped
		e.tapped = maps.DirNone
		if !dir.Valid() {
			dir = e.inputDir()
		}
		if dir.Valid() {
			e.TryMove(dir)
		}
		return
	}

	p.AnimTime += dt * speed
	step := min(p.MoveRemaining, e.cfg.MoveSpeed*speed*dt)
	p.X += p.VX * step
	p.Y += p.VY * step
	p.MoveRemaining -= step
	if p.MoveRemaining > stepDone {
		return
	}
	tiles := max(1, p.MoveTiles)
	p.place(p.TileX+int(p.VX)*tiles, p.TileY+int(p.VY)*tiles, w.TileSize)
	e.checkEvents()
	e.checkNPC()
}

// SetOtherPlayers reconciles remote players with a snapshot. Entries for
// selfID, without an id, or on another map are ignored; players missing from
// the list are removed.
func (e *Engine) SetOtherPlayers(list []RemotePlayer, selfID string) {
	w := e.state
	ts := w.TileSize
	seen := make(map[string]bool, len(list))
	for i := range list {
		rp := &list[i]
		if rp.ID == "" || rp.ID == selfID || (rp.MapID != "" && rp.MapID != w.MapID) {
			continue
		}
		moving := rp.hasMove()
		var tx, ty int
		switch {
		case moving:
			tx, ty = *rp.ToX, *rp.ToY
		case rp.X != nil && rp.Y != nil:
			tx, ty = *rp.X, *rp.Y
		default:
			continue
		}
		seen[rp.ID] = true

		name := rp.Name
		if name == "" {
			name = "Player"
		}
		sprite := rp.SpriteID
		if sprite == "" {
			sprite = rp.ID
		}

		r, ok := w.Others[rp.ID]
		if !ok {
			fx, fy := tx, ty
			if moving {
				fx, fy = *rp.FromX, *rp.FromY
			}
			facing := rp.Facing
			if !facing.Valid() {
				facing = maps.DirDown
			}
			r = &Remote{ID: rp.ID, Name: name, SpriteID: sprite}
			r.TileX, r.TileY, r.Facing = tx, ty, facing
			r.X, r.Y = float64(fx*ts), float64(fy*ts)
			r.MoveTiles = 1
			if moving {
				r.startMove(fx, fy, tx, ty, facing, ts)
			}
			w.Others[rp.ID] = r
			continue
		}

		r.Name, r.SpriteID = name, sprite
		if rp.Facing.Valid() {
			r.Facing = rp.Facing
		}
		if moving {
			if r.Moving && r.TileX == tx && r.TileY == ty {
				continue
			}
			r.startMove(*rp.FromX, *rp.FromY, tx, ty, r.Facing, ts)
			continue
		}
		if r.TileX != tx || r.TileY != ty {
			r.startMove(int(math.Round(r.X/float64(ts))), int(math.Round(r.Y/float64(ts))), tx, ty, r.Facing, ts)
		}
	}
	for id := range w.Others {
		if !seen[id] {
			delete(w.Others, id)
		}
	}
}

// startMove interpolates from the current pixel position to (toX, toY). When
// the target is implausibly far the entity first snaps to (fromX, fromY).
func (r *Remote) startMove(fromX, fromY, toX, toY int, facing maps.Direction, ts int) {
	fromPX, fromPY := float64(fromX*ts), float64(fromY*ts)
	toPX, toPY := float64(toX*ts), float64(toY*ts)
	if math.Hypot(toPX-r.X, toPY-r.Y) > float64(ts*RemoteTeleportTiles) {
		r.X, r.Y = fromPX, fromPY
	}

	dx, dy := toPX-r.X, toPY-r.Y
	dist := math.Hypot(dx, dy)
	r.TileX, r.TileY = toX, toY
	if dist <= stepDone {
		r.X, r.Y = toPX, toPY
		r.stop()
		r.MoveTotal = 0
		if facing.Valid() {
			r.Facing = facing
		}
		return
	}
	if facing.Valid() {
		r.Facing = facing
	} else {
		r.Facing = facingFromDelta(dx, dy, r.Facing)
	}
	r.Moving = true
	r.VX, r.VY = dx/dist, dy/dist
	r.MoveRemaining, r.MoveTotal = dist, dist
	r.AnimTime = 0
}

func facingFromDelta(dx, dy float64, fallback maps.Direction) maps.Direction {
	ax, ay := math.Abs(dx), math.Abs(dy)
	switch {
	case ax == 0 && ay == 0:
		if fallback.Valid() {
			return fallback
		}
		return maps.DirDown
	case ax >= ay && dx >= 0:
		return maps.DirRight
	case ax >= ay:
		return maps.DirLeft
	case dy >= 0:
		return maps.DirDown
	default:
		return maps.DirUp
	}
}

func (e *Engine) updateOthers(dt float64) {
	if e.Paused() {
		return
	}
	ts := e.state.TileSize
	for _, r := range e.state.Others {
		if !r.Moving {
			continue
		}
		r.AnimTime += dt
		step := min(r.MoveRemaining, e.cfg.MoveSpeed*dt)
		r.X += r.VX * step
		r.Y += r.VY * step
		r.MoveRemaining -= step
		if r.MoveRemaining <= stepDone {
			r.place(r.TileX, r.TileY, ts)
			r.MoveTotal = 0
		}
	}
}
