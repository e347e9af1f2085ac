package game

import "time"

// TickRate is the animation clock rate: ticks per simulated second.
const TickRate = 60

// FrameRate is how often a session loop steps and renders.
const FrameRate = 20

// Timing constants, in seconds.
const (
	MaxFrameDelta    = 0.05 // longer frames are clamped
	BumpDuration     = 0.12 // wobble after walking into a blocker
	TeleportCooldown = 0.35 // events are ignored this long after a door
)

// Movement defaults.
const (
	DefaultMoveSpeed     = 96.0 // pixels per second
	DefaultRunMultiplier = 1.5
)

// RemoteTeleportTiles is how far a remote entity may be from its target
// before it is snapped to the reported origin instead of walking there.
const RemoteTeleportTiles = 6

// Save intervals, in unpaused time.
const (
	DefaultAutosaveEvery   = 30 * time.Second
	DefaultCheckpointEvery = 5 * time.Minute
)
