package hub

import (
	"overworld/internal/game"
	"overworld/internal/maps"
)

// LoopPeer adapts a session loop to the hub. Writes are queued onto the
// loop's goroutine; reads come from its last published snapshot.
type LoopPeer struct {
	Loop *game.Loop
}

func (p LoopPeer) PlayerState() game.PlayerState {
	st, _ := p.Loop.Snapshot()
	return st
}

func (p LoopPeer) ViewState() game.ViewState {
	_, v := p.Loop.Snapshot()
	return v
}

func (p LoopPeer) SetOthers(list []game.RemotePlayer, selfID string) {
	p.Loop.Do(func(e *game.Engine) { e.SetOtherPlayers(list, selfID) })
}

func (p LoopPeer) ApplyEdits(ed maps.Edits) {
	p.Loop.Do(func(e *game.Engine) { e.ApplyEdits(ed) })
}

func (p LoopPeer) SetMap(mapID string, spawn *maps.Spawn) bool {
	return p.Loop.Do(func(e *game.Engine) { e.SetActiveMap(mapID, spawn) })
}

func (p LoopPeer) Input(in game.Input) bool {
	select {
	case p.Loop.InputChan() <- in:
		return true
	default:
		return false
	}
}

var _ Peer = LoopPeer{}
