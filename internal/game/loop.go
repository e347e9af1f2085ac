package game

import (
	"sync"
	"time"

	"overworld/internal/gfx"
	"overworld/internal/render"
)

const (
	InputChanSize = 64
	cmdChanSize   = 16
)

// Frame is one rendered view with its text overlay.
type Frame struct {
	Image *gfx.Bitmap
	HUD   render.HUD
}

// Loop drives one engine on its own goroutine. Inputs and commands from other
// goroutines are applied at the start of the next tick; frames are delivered
// to a channel and dropped when the reader is slow.
type Loop struct {
	engine    *Engine
	renderer  *render.Renderer
	frameRate int

	inputCh chan Input
	cmdCh   chan func(*Engine)
	frames  chan Frame

	// OnTick runs on the loop goroutine after each simulation step.
	OnTick func(*Engine)

	mu     sync.RWMutex
	player PlayerState
	view   ViewState

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a loop stepping engine frameRate times a second.
func NewLoop(engine *Engine, renderer *render.Renderer, frameRate int) *Loop {
	if frameRate <= 0 {
		frameRate = FrameRate
	}
	return &Loop{
		engine:    engine,
		renderer:  renderer,
		frameRate: frameRate,
		inputCh:   make(chan Input, InputChanSize),
		cmdCh:     make(chan func(*Engine), cmdChanSize),
		frames:    make(chan Frame, 2),
		stopCh:    make(chan struct{}),
	}
}

// InputChan returns the channel sessions send input on.
func (l *Loop) InputChan() chan<- Input {
	return l.inputCh
}

// Frames returns the channel rendered frames arrive on.
func (l *Loop) Frames() <-chan Frame {
	return l.frames
}

// Do queues fn to run on the loop goroutine. It reports false when the queue
// is full or the loop has stopped.
func (l *Loop) Do(fn func(*Engine)) bool {
	select {
	case <-l.stopCh:
		return false
	default:
	}
	select {
	case l.cmdCh <- fn:
		return true
	default:
		return false
	}
}

// Snapshot returns the player and view as of the last tick.
func (l *Loop) Snapshot() (PlayerState, ViewState) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.player, l.view
}

// Run steps the engine until Stop is called.
func (l *Loop) Run() {
	ticker := time.NewTicker(time.Second / time.Duration(l.frameRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-l.stopCh:
			return
		case now := <-ticker.C:
			l.Step(now.Sub(last))
			last = now
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.engine.Close()
	})
}

// Step applies pending input, advances the engine by dt and publishes a frame.
func (l *Loop) Step(dt time.Duration) {
	l.drain()
	e := l.engine
	e.Tick(dt)

	l.mu.Lock()
	l.player, l.view = e.PlayerState(), e.ViewState()
	l.mu.Unlock()

	if l.OnTick != nil {
		l.OnTick(e)
	}
	if l.renderer == nil {
		return
	}
	frame := Frame{Image: l.renderer.Render(e.Scene()), HUD: e.HUD()}
	select {
	case l.frames <- frame:
	default:
		// Drop frame for slow client
	}
}

func (l *Loop) drain() {
	for {
		select {
		case in := <-l.inputCh:
			l.engine.HandleInput(in)
		case fn := <-l.cmdCh:
			fn(l.engine)
		default:
			return
		}
	}
}

// HandleInput applies one input action.
func (e *Engine) HandleInput(in Input) {
	switch in.Action {
	case ActionMove:
		e.Tap(in.Dir)
	case ActionPress:
		e.Press(in.Dir)
	case ActionRelease:
		e.Release(in.Dir)
	case ActionConfirm:
		e.Confirm()
	case ActionCancel:
		e.Cancel()
	case ActionMenu:
		e.ToggleMenu()
	case ActionSelect:
		e.Select()
	case ActionRun:
		e.SetRun(!e.running)
	case ActionEditor:
		e.CycleEditor()
	case ActionDoubleTap:
		e.DoubleClick(in.X, in.Y)
	case ActionSelectTile:
		e.SelectTile(in.X, in.Y)
	}
}

// HUD is the text overlay for the current frame. Online is left for the
// caller to fill in.
func (e *Engine) HUD() render.HUD {
	w := e.state
	hud := render.HUD{TileX: w.Player.TileX, TileY: w.Player.TileY, Message: e.message}
	if w.Map != nil {
		hud.MapName = w.Map.Descriptor.Name
	}
	if e.loading {
		hud.MapName += " (loading)"
	}
	if e.menuOpen {
		hud.Menu = e.MenuLines()
	}
	return hud
}
