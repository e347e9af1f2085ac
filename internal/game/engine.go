package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"overworld/internal/maps"
	"overworld/internal/render"
)

// Config tunes an engine.
type Config struct {
	ViewTilesX      int
	ViewTilesY      int
	Scale           int
	MoveSpeed       float64 // pixels per second
	RunMultiplier   float64
	AutosaveEvery   time.Duration
	CheckpointEvery time.Duration
	// SpriteID tints the local player; other sessions tint it the same way.
	SpriteID string
}

// DefaultConfig is a 20x15 tile view walking at 96 px/s.
func DefaultConfig() Config {
	return Config{
		ViewTilesX:      20,
		ViewTilesY:      15,
		Scale:           1,
		MoveSpeed:       DefaultMoveSpeed,
		RunMultiplier:   DefaultRunMultiplier,
		AutosaveEvery:   DefaultAutosaveEvery,
		CheckpointEvery: DefaultCheckpointEvery,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ViewTilesX <= 0 {
		c.ViewTilesX = d.ViewTilesX
	}
	if c.ViewTilesY <= 0 {
		c.ViewTilesY = d.ViewTilesY
	}
	if c.Scale <= 0 {
		c.Scale = d.Scale
	}
	if c.MoveSpeed <= 0 {
		c.MoveSpeed = d.MoveSpeed
	}
	if c.RunMultiplier <= 0 {
		c.RunMultiplier = d.RunMultiplier
	}
	if c.AutosaveEvery <= 0 {
		c.AutosaveEvery = d.AutosaveEvery
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = d.CheckpointEvery
	}
	if c.SpriteID == "" {
		c.SpriteID = "player"
	}
	return c
}

// ServerEvent is a server event handed to the event service.
type ServerEvent struct {
	ID        string         `json:"id"`
	Name      string         `json:"name,omitempty"`
	EventType string         `json:"eventType"`
	Payload   map[string]any `json:"payload"`
	MapID     string         `json:"mapId"`
}

// Hooks are the engine's outbound calls. Any of them may be nil.
type Hooks struct {
	OnAction      func(name string, data map[string]any)
	OnServerEvent func(ev ServerEvent)
	OnTileSelect  func(x, y int)
	OnMapChange   func(mapID string)
}

// SaveState is a saved position.
type SaveState struct {
	MapID  string         `json:"mapId"`
	X      int            `json:"x"`
	Y      int            `json:"y"`
	Facing maps.Direction `json:"facing"`
}

// Saver persists positions. Calls are fire-and-forget.
type Saver interface {
	Autosave(ctx context.Context, s SaveState) error
	Checkpoint(ctx context.Context, s SaveState, reason string) error
}

const maxFrameDelta = time.Duration(MaxFrameDelta * float64(time.Second))

var errNoSource = errors.New("no map source")

type loadResult struct {
	gen   uint64
	mapID string
	spawn *maps.Spawn
	m     *LoadedMap
	err   error
}

// Engine simulates one session's overworld. Every method must be called from
// the goroutine that drives Tick; other goroutines go through a Loop.
type Engine struct {
	cfg    Config
	source MapSource
	hooks  Hooks
	saver  Saver
	log    logrus.FieldLogger

	state *WorldState
	ready bool

	loadGen uint64
	loads   chan loadResult
	loading bool
	ctx     context.Context
	cancel  context.CancelFunc

	dirStack []maps.Direction
	tapped   maps.Direction
	running  bool
	paused   bool
	message  string
	menuOpen bool
	editor   render.EditorSettings

	autosaveTimer   time.Duration
	checkpointTimer time.Duration
	lastSaved       *SaveState
}

// NewEngine creates an engine. Nothing is loaded until SetActiveMap.
func NewEngine(cfg Config, source MapSource, hooks Hooks, saver Saver, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:    cfg.withDefaults(),
		source: source,
		hooks:  hooks,
		saver:  saver,
		log:    log,
		state:  newWorldState(),
		loads:  make(chan loadResult, 4),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Close abandons loads still in flight. It is safe to call more than once.
func (e *Engine) Close() { e.cancel() }

// State exposes the world state for rendering and inspection.
func (e *Engine) State() *WorldState { return e.state }

// Ready reports whether a map is loaded.
func (e *Engine) Ready() bool { return e.ready }

// Loading reports whether a map switch is in flight.
func (e *Engine) Loading() bool { return e.loading }

// Message is the text box currently shown, if any.
func (e *Engine) Message() string { return e.message }

// MenuOpen reports whether the menu overlay is shown.
func (e *Engine) MenuOpen() bool { return e.menuOpen }

// Paused reports whether the simulation is frozen by a message, the menu or
// SetPaused.
func (e *Engine) Paused() bool {
	return e.paused || e.menuOpen || e.message != ""
}

// SetPaused freezes or resumes the simulation.
func (e *Engine) SetPaused(v bool) { e.paused = v }

// SetActiveMap starts a switch to mapID. The previous map stays active until
// the load lands; an older load landing later is discarded.
func (e *Engine) SetActiveMap(mapID string, spawn *maps.Spawn) {
	if mapID == "" {
		return
	}
	e.loadGen++
	gen := e.loadGen
	if e.source == nil {
		e.finishLoad(loadResult{gen: gen, mapID: mapID, spawn: spawn, err: errNoSource})
		return
	}
	e.loading = true
	source, ctx := e.source, e.ctx
	go func() {
		m, err := source.Load(ctx, mapID)
		select {
		case e.loads <- loadResult{gen: gen, mapID: mapID, spawn: spawn, m: m, err: err}:
		case <-ctx.Done():
		}
	}()
}

// drainLoads applies finished loads, newest generation only.
func (e *Engine) drainLoads() {
	for {
		select {
		case res := <-e.loads:
			e.finishLoad(res)
		default:
			return
		}
	}
}

func (e *Engine) finishLoad(res loadResult) {
	log := e.log.WithField("map", res.mapID)
	if res.gen != e.loadGen {
		log.WithField("generation", res.gen).Debug("discarding stale map load")
		return
	}
	e.loading = false
	if res.err != nil {
		log.WithError(res.err).Info("map load failed")
		e.showMessage(fmt.Sprintf("Failed to load map %s.", res.mapID))
		if e.ready {
			return
		}
		res.m = defaultLoadedMap()
		res.spawn = nil
	}
	e.enterMap(res.m, res.spawn)
}

func (e *Engine) enterMap(m *LoadedMap, spawn *maps.Spawn) {
	e.state.enter(m)
	e.placePlayer(e.resolveSpawn(m.Descriptor, spawn))
	e.ready = true
	e.updateCamera()
	e.log.WithFields(logrus.Fields{"map": m.Descriptor.ID, "x": e.state.Player.TileX, "y": e.state.Player.TileY}).Debug("entered map")
	if e.hooks.OnMapChange != nil {
		e.hooks.OnMapChange(m.Descriptor.ID)
	}
}

// resolveSpawn falls back to the map's start for a spawn without a position.
func (e *Engine) resolveSpawn(d *maps.Descriptor, spawn *maps.Spawn) maps.Spawn {
	var s maps.Spawn
	if spawn != nil {
		s = *spawn
	}
	if !s.HasPosition() {
		s.X, s.Y = d.Start.X, d.Start.Y
		if s.Facing == maps.DirNone {
			s.Facing = d.Start.Facing
		}
	}
	return s
}

// placePlayer puts the player on a spawn tile. Missing coordinates default to
// the map centre; facing is kept unless the spawn names one.
func (e *Engine) placePlayer(s maps.Spawn) {
	w := e.state
	x, y := w.TilesX/2, w.TilesY/2
	if s.X != nil {
		x = *s.X
	}
	if s.Y != nil {
		y = *s.Y
	}
	w.Player.place(x, y, w.TileSize)
	if s.Facing.Valid() {
		w.Player.Facing = s.Facing
	}
}

// Tick advances the simulation by dt, clamped to MaxFrameDelta.
func (e *Engine) Tick(dt time.Duration) {
	e.drainLoads()
	if !e.ready {
		return
	}
	dt = min(maxFrameDelta, max(0, dt))
	secs := dt.Seconds()
	e.updatePlayer(secs)
	e.updateOthers(secs)
	e.updateCamera()
	e.maybeSave(dt)
}

// ViewportSize is the view in pixels for the current map.
func (e *Engine) ViewportSize() (int, int) {
	ts := e.state.TileSize
	return e.cfg.ViewTilesX * ts, e.cfg.ViewTilesY * ts
}

func (e *Engine) updateCamera() {
	w := e.state
	vw, vh := e.ViewportSize()
	mw, mh := w.PixelSize()
	w.Camera.Follow(w.Player.X, w.Player.Y, w.TileSize, vw, vh, mw, mh)
}

// ViewState reports the view for overlay alignment.
func (e *Engine) ViewState() ViewState {
	w := e.state
	vw, vh := e.ViewportSize()
	return ViewState{
		TileSize: w.TileSize, ViewportW: vw, ViewportH: vh,
		CameraX: w.Camera.X, CameraY: w.Camera.Y, Scale: e.cfg.Scale,
		MapID: w.MapID, TilesX: w.TilesX, TilesY: w.TilesY,
	}
}

// PlayerState reports the local player for saving and sync.
func (e *Engine) PlayerState() PlayerState {
	p := &e.state.Player
	return PlayerState{
		MapID: e.state.MapID, TileX: p.TileX, TileY: p.TileY, X: p.X, Y: p.Y,
		Facing: p.Facing, Moving: p.Moving, VX: p.VX, VY: p.VY,
		MoveRemaining: p.MoveRemaining, MoveTiles: p.MoveTiles,
	}
}

// ApplyEdits replaces the named arrays when the edits target the active map.
func (e *Engine) ApplyEdits(ed maps.Edits) {
	w := e.state
	if ed.MapID != "" && ed.MapID != w.MapID {
		return
	}
	if ed.Colliders != nil {
		w.Colliders = ed.Colliders
	}
	if ed.Events != nil {
		w.Events = ed.Events
	}
	if ed.Jumps != nil {
		w.Jumps = ed.Jumps
	}
	if ed.NPCs != nil {
		w.NPCs = ed.NPCs
	}
}

// Press holds a direction. The most recent held direction wins.
func (e *Engine) Press(d maps.Direction) {
	if !d.Valid() {
		return
	}
	e.Release(d)
	e.dirStack = append(e.dirStack, d)
}

// Release lets go of a held direction.
func (e *Engine) Release(d maps.Direction) {
	for i, held := range e.dirStack {
		if held == d {
			e.dirStack = append(e.dirStack[:i], e.dirStack[i+1:]...)
			return
		}
	}
}

// Tap queues a single directional press, for inputs without key-up events.
// Only the latest tap is kept while a step is in progress.
func (e *Engine) Tap(d maps.Direction) {
	if d.Valid() {
		e.tapped = d
	}
}

func (e *Engine) inputDir() maps.Direction {
	if n := len(e.dirStack); n > 0 {
		return e.dirStack[n-1]
	}
	return maps.DirNone
}

// SetRun sets whether the run input is held.
func (e *Engine) SetRun(v bool) { e.running = v }

// Running reports whether the run input is held.
func (e *Engine) Running() bool { return e.running }

// Confirm closes the menu, else dismisses a message, else interacts.
func (e *Engine) Confirm() {
	switch {
	case e.menuOpen:
		e.menuOpen = false
	case e.message != "":
		e.hideMessage()
	default:
		e.Interact()
	}
}

// Cancel closes the menu or dismisses a message.
func (e *Engine) Cancel() {
	switch {
	case e.menuOpen:
		e.menuOpen = false
	case e.message != "":
		e.hideMessage()
	}
}

// ToggleMenu opens or closes the menu. It does nothing while a message shows.
func (e *Engine) ToggleMenu() {
	if e.message != "" {
		return
	}
	e.menuOpen = !e.menuOpen
}

// MenuLines is the menu overlay's text.
func (e *Engine) MenuLines() []string {
	p := &e.state.Player
	mapID := e.state.MapID
	if mapID == "" {
		mapID = "-"
	}
	return []string{
		"MENU",
		"Map: " + mapID,
		fmt.Sprintf("Position: %d, %d", p.TileX, p.TileY),
		"A: Z/Enter  B: X/Esc",
		"Start: M  Select: Tab",
		"Run: R",
	}
}

// Select fires the select world action.
func (e *Engine) Select() {
	if e.menuOpen || e.message != "" {
		return
	}
	e.fireWorldAction("select", nil)
}

// SelectTile reports a single click on a tile.
func (e *Engine) SelectTile(x, y int) {
	if e.hooks.OnTileSelect != nil {
		e.hooks.OnTileSelect(x, y)
	}
}

// Editor returns the overlay settings.
func (e *Engine) Editor() render.EditorSettings { return e.editor }

// SetEditor replaces the overlay settings.
func (e *Engine) SetEditor(s render.EditorSettings) { e.editor = s }

// CycleEditor steps through no overlays, grid, grid with colliders and
// events, and everything.
func (e *Engine) CycleEditor() {
	switch s := e.editor; {
	case !s.Any():
		e.editor = render.EditorSettings{Grid: true}
	case s.Grid && !s.Colliders:
		e.editor = render.EditorSettings{Grid: true, Colliders: true, Events: true}
	case !s.NPCs:
		e.editor = render.EditorSettings{Grid: true, Colliders: true, Events: true, NPCs: true}
	default:
		e.editor = render.EditorSettings{}
	}
}

func (e *Engine) showMessage(text string) {
	if text == "" {
		return
	}
	e.message = text
}

func (e *Engine) hideMessage() {
	e.message = ""
}

// maybeSave runs the autosave and checkpoint timers on unpaused time.
func (e *Engine) maybeSave(dt time.Duration) {
	if e.saver == nil || e.Paused() {
		return
	}
	p := &e.state.Player
	cur := SaveState{MapID: e.state.MapID, X: p.TileX, Y: p.TileY, Facing: p.Facing}

	e.autosaveTimer += dt
	if e.autosaveTimer >= e.cfg.AutosaveEvery {
		e.autosaveTimer = 0
		last := e.lastSaved
		if last == nil || last.MapID != cur.MapID || last.X != cur.X || last.Y != cur.Y {
			e.lastSaved = &cur
			e.fire("autosave", func(ctx context.Context) error { return e.saver.Autosave(ctx, cur) })
		}
	}

	e.checkpointTimer += dt
	if e.checkpointTimer >= e.cfg.CheckpointEvery {
		e.checkpointTimer = 0
		e.fire("checkpoint", func(ctx context.Context) error { return e.saver.Checkpoint(ctx, cur, "idle") })
	}
}

// fire runs a network call without waiting for it; failures are only logged.
func (e *Engine) fire(what string, fn func(context.Context) error) {
	log := e.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.WithError(err).Debug(what + " failed")
		}
	}()
}
