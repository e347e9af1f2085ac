package game

import (
	"strings"

	"overworld/internal/maps"
)

const defaultLockMessage = "The way is blocked."

// Interact handles the action input: an NPC in front of or under the player,
// else the first interact, double-click or door event covering either tile.
func (e *Engine) Interact() {
	w := e.state
	p := &w.Player
	if e.Paused() || w.TeleportCooldown > 0 {
		return
	}
	dx, dy := p.Facing.Vector()
	tiles := [2][2]int{{p.TileX + dx, p.TileY + dy}, {p.TileX, p.TileY}}

	npc := w.NPCAt(tiles[0][0], tiles[0][1])
	if npc == nil {
		npc = w.NPCAt(p.TileX, p.TileY)
	}
	if npc != nil {
		e.npcDialog(npc)
		return
	}

	for i := range w.Events {
		ev := &w.Events[i]
		if w.spent(ev) {
			continue
		}
		if ev.Trigger != maps.TriggerInteract && ev.Trigger != maps.TriggerDblClick && ev.Kind() != maps.KindDoor {
			continue
		}
		for _, t := range tiles {
			if !ev.Rect.Contains(t[0], t[1]) {
				continue
			}
			e.fireEvent(ev)
			return
		}
	}
}

// checkEvents fires the first enter event under the player after a step.
func (e *Engine) checkEvents() {
	w := e.state
	if e.Paused() || w.TeleportCooldown > 0 {
		return
	}
	p := &w.Player
	for i := range w.Events {
		ev := &w.Events[i]
		if w.spent(ev) || ev.Trigger == maps.TriggerInteract || ev.Trigger == maps.TriggerDblClick {
			continue
		}
		if ev.Rect.Contains(p.TileX, p.TileY) {
			e.fireEvent(ev)
			return
		}
	}
}

// DoubleClick handles a double-activate on a map tile.
func (e *Engine) DoubleClick(x, y int) {
	w := e.state
	if e.Paused() || w.TeleportCooldown > 0 {
		return
	}
	if npc := w.NPCAt(x, y); npc != nil && npc.Trigger == maps.NPCDblClick {
		e.npcDialog(npc)
		return
	}
	for i := range w.Events {
		ev := &w.Events[i]
		if ev.Trigger != maps.TriggerDblClick || w.spent(ev) {
			continue
		}
		if ev.Rect.Contains(x, y) {
			e.fireEvent(ev)
			return
		}
	}
}

// checkNPC fires a touch NPC the player stands on, once per stay.
func (e *Engine) checkNPC() {
	w := e.state
	if e.Paused() {
		return
	}
	npc := w.NPCAt(w.Player.TileX, w.Player.TileY)
	switch {
	case npc == nil:
		w.NPCHold = ""
	case npc.Trigger == maps.NPCDblClick:
		w.NPCHold = npc.ID
	case w.NPCHold != npc.ID:
		w.NPCHold = npc.ID
		e.npcDialog(npc)
	}
}

// fireEvent dispatches on the event kind and marks once-events.
func (e *Engine) fireEvent(ev *maps.Event) {
	w := e.state
	switch a := ev.Action.(type) {
	case maps.Message:
		e.showMessage(firstNonEmpty(a.Text, "Event"))
	case maps.Door:
		e.doorEvent(ev, a)
	case maps.ServerCall:
		e.serverEvent(ev, a)
	case maps.WorldAction:
		if a.Action != "" {
			e.fireWorldAction(a.Action, a.Data)
		}
	case maps.DialogRef:
		e.dialogEvent(a)
	default:
		e.showMessage("Event")
	}
	w.markFired(ev)
}

func (e *Engine) dialog(id string) (maps.Dialog, bool) {
	if e.state.Map == nil || id == "" {
		return maps.Dialog{}, false
	}
	d, ok := e.state.Map.Dialogs[id]
	return d, ok
}

func (e *Engine) dialogEvent(a maps.DialogRef) {
	text := a.Text
	if d, ok := e.dialog(a.DialogID); ok {
		text = d.Body()
	}
	switch {
	case text != "":
		e.showMessage(text)
	case a.DialogID != "":
		e.showMessage("Dialog not found: " + a.DialogID)
	default:
		e.showMessage("Dialog")
	}
}

func (e *Engine) npcDialog(npc *maps.NPC) {
	if npc.DialogID != "" {
		d, _ := e.dialog(npc.DialogID)
		e.showMessage(firstNonEmpty(d.Body(), "Dialog"))
		return
	}
	e.showMessage(npc.Text)
}

// Locked reports whether a door is gated: locked outright, or its flag unset.
func (e *Engine) Locked(ev *maps.Event) bool {
	if ev.Lock.Locked {
		return true
	}
	flag := strings.TrimSpace(ev.Lock.Flag)
	if flag == "" {
		return false
	}
	return e.source == nil || !e.source.Flag(flag)
}

func (e *Engine) doorEvent(ev *maps.Event, door maps.Door) {
	w := e.state
	if e.Locked(ev) {
		e.showMessage(firstNonEmpty(strings.TrimSpace(ev.Lock.Message), defaultLockMessage))
		return
	}
	mapID, spawn := e.resolveDoor(door.Target)
	w.TeleportCooldown = TeleportCooldown
	if mapID != w.MapID {
		e.SetActiveMap(mapID, &spawn)
		return
	}
	if spawn.HasPosition() {
		e.placePlayer(spawn)
		e.updateCamera()
	}
}

// resolveDoor turns a door target into a map and spawn. An empty map id means
// the current map.
func (e *Engine) resolveDoor(t maps.DoorTarget) (string, maps.Spawn) {
	w := e.state
	mapID := firstNonEmpty(t.MapID, w.MapID)
	spawn := maps.Spawn{X: t.X, Y: t.Y, Facing: t.Facing}
	if t.Connection == nil || t.MapID == "" || e.source == nil {
		return mapID, spawn
	}
	width, height, ok := e.source.Size(t.MapID)
	if !ok {
		return mapID, spawn
	}
	x, y, ok := ResolveConnection(*t.Connection, width, height, w.Player.TileX, w.Player.TileY)
	if !ok {
		return mapID, spawn
	}
	spawn.X, spawn.Y = &x, &y
	if !spawn.Facing.Valid() {
		spawn.Facing = w.Player.Facing
	}
	return t.MapID, spawn
}

// ResolveConnection computes the arrival tile on a neighbour of size w x h
// for a player leaving from (px, py). The offset shifts the axis along the
// shared edge.
func ResolveConnection(c maps.Connection, w, h, px, py int) (x, y int, ok bool) {
	maxX, maxY := max(0, w-1), max(0, h-1)
	switch c.Direction {
	case maps.DirUp:
		x, y = px-c.Offset, max(0, h-2)
	case maps.DirDown:
		x, y = px-c.Offset, min(maxY, 1)
	case maps.DirLeft:
		x, y = max(0, w-2), py-c.Offset
	case maps.DirRight:
		x, y = min(maxX, 1), py-c.Offset
	default:
		return 0, 0, false
	}
	return clamp(x, 0, maxX), clamp(y, 0, maxY), true
}

func (e *Engine) serverEvent(ev *maps.Event, call maps.ServerCall) {
	eventType := strings.TrimSpace(call.EventType)
	if eventType == "" || ev.ID == "" || e.hooks.OnServerEvent == nil {
		return
	}
	payload := call.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	e.hooks.OnServerEvent(ServerEvent{ID: ev.ID, Name: ev.Name, EventType: eventType, Payload: payload, MapID: e.state.MapID})
}

// fireWorldAction hands a named action to the collaborator, with the
// player's map and tile merged under the action's own data.
func (e *Engine) fireWorldAction(name string, extra map[string]any) {
	if e.hooks.OnAction == nil {
		return
	}
	p := &e.state.Player
	data := map[string]any{"mapId": e.state.MapID, "tileX": p.TileX, "tileY": p.TileY}
	for k, v := range extra {
		data[k] = v
	}
	e.hooks.OnAction(name, data)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
