package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"overworld/internal/game"
	"overworld/internal/hub"
	"overworld/internal/maps"
	"overworld/internal/render"
	"overworld/internal/save"
)

// Deps are the shared services every session uses.
type Deps struct {
	Engine  game.Config
	Source  game.MapSource
	Catalog *maps.Catalog
	Sprites *render.SpriteSet
	Hub     *hub.Hub
	Store   *save.Store // optional
	Log     logrus.FieldLogger
}

// SSHServer wraps the SSH listener. Each session runs its own engine.
type SSHServer struct {
	deps    Deps
	addr    string
	hostKey string
	srv     *ssh.Server
}

// NewSSHServer creates a new SSH server bound to the given address.
func NewSSHServer(addr string, hostKey string, deps Deps) *SSHServer {
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	return &SSHServer{
		deps:    deps,
		addr:    addr,
		hostKey: hostKey,
	}
}

// Start begins listening for SSH connections.
func (s *SSHServer) Start() error {
	s.srv = &ssh.Server{
		Addr: s.addr,
		Handler: func(sess ssh.Session) {
			s.handleSession(sess)
		},
	}

	if err := s.srv.SetOption(ssh.HostKeyFile(s.hostKey)); err != nil {
		return fmt.Errorf("set host key: %w", err)
	}

	s.deps.Log.WithField("addr", s.addr).Info("SSH server listening")
	err := s.srv.ListenAndServe()
	if errors.Is(err, ssh.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting sessions and waits for open ones to end.
func (s *SSHServer) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// spawnFor picks the map and tile a player starts on.
func (s *SSHServer) spawnFor(ctx context.Context, name string, log logrus.FieldLogger) (string, *maps.Spawn) {
	if s.deps.Store != nil {
		rec, err := s.deps.Store.Restore(ctx, name)
		switch {
		case err == nil:
			if _, gerr := s.deps.Catalog.Get(rec.MapID); gerr == nil {
				log.WithFields(logrus.Fields{"map": rec.MapID, "state": rec.State}).Info("restoring saved position")
				return rec.MapID, rec.Spawn()
			}
		case !errors.Is(err, save.ErrNotFound):
			log.WithError(err).Warn("could not read save")
		}
	}
	if w := s.deps.Catalog.World(); w.Start != nil {
		start := *w.Start
		return s.deps.Catalog.StartMap(), &start
	}
	return s.deps.Catalog.StartMap(), nil
}

func (s *SSHServer) hooks(name string, log logrus.FieldLogger, loop **game.Loop) game.Hooks {
	return game.Hooks{
		OnAction: func(action string, data map[string]any) {
			log.WithField("action", action).WithFields(logrus.Fields(data)).Info("world action")
		},
		OnServerEvent: func(ev game.ServerEvent) {
			log.WithFields(logrus.Fields{"event": ev.ID, "type": ev.EventType, "map": ev.MapID}).Info("server event")
			if s.deps.Store == nil || *loop == nil {
				return
			}
			state := save.StateEvent
			if ev.EventType == "battle" {
				state = save.StateBattle
			}
			st, _ := (*loop).Snapshot()
			cp := game.SaveState{MapID: ev.MapID, X: st.TileX, Y: st.TileY, Facing: st.Facing}
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := s.deps.Store.Checkpoint(ctx, name, cp, state); err != nil {
					log.WithError(err).Debug("event checkpoint failed")
				}
			}()
		},
		OnTileSelect: func(x, y int) {
			log.WithFields(logrus.Fields{"x": x, "y": y}).Debug("tile selected")
		},
		OnMapChange: func(mapID string) {
			log.WithField("map", mapID).Debug("map changed")
		},
	}
}

func (s *SSHServer) handleSession(sess ssh.Session) {
	ptyReq, winCh, ok := sess.Pty()
	if !ok {
		fmt.Fprintln(sess, "Error: PTY required. Use: ssh -t ...")
		return
	}

	username := sess.User()
	if username == "" {
		username = "Anonymous"
	}
	sessionID := uuid.NewString()
	log := s.deps.Log.WithFields(logrus.Fields{"session": sessionID, "user": username})

	var saver game.Saver
	if s.deps.Store != nil {
		saver = s.deps.Store.ForPlayer(username)
	}
	cfg := s.deps.Engine
	cfg.SpriteID = username

	var loop *game.Loop
	engine := game.NewEngine(cfg, s.deps.Source, s.hooks(username, log, &loop), saver, log)
	loop = game.NewLoop(engine, render.NewRenderer(s.deps.Sprites), game.FrameRate)

	mapID, spawn := s.spawnFor(sess.Context(), username, log)
	engine.SetActiveMap(mapID, spawn)

	s.deps.Hub.Join(&hub.Member{ID: sessionID, Name: username, Sprite: username, Peer: hub.LoopPeer{Loop: loop}})
	go loop.Run()

	log.Info("player connected")
	defer func() {
		loop.Stop()
		s.deps.Hub.Leave(sessionID)
		s.saveOnExit(username, loop, log)
		log.Info("player disconnected")
	}()

	term := render.NewTerminal(ptyReq.Window.Width, ptyReq.Window.Height)
	var termMu sync.Mutex
	termW, termH := ptyReq.Window.Width, ptyReq.Window.Height

	io.WriteString(sess, render.EnableAltScreen)
	io.WriteString(sess, render.HideCursor)
	io.WriteString(sess, render.EnableMouse)
	io.WriteString(sess, render.ClearScreen)
	defer func() {
		io.WriteString(sess, render.DisableMouse)
		io.WriteString(sess, render.ShowCursor)
		io.WriteString(sess, render.DisableAltScreen)
	}()

	inputCh := loop.InputChan()
	quitCh := make(chan struct{})
	send := func(in game.Input) {
		select {
		case inputCh <- in:
		default:
		}
	}
	clicks := &tileClicks{now: time.Now}

	// Goroutine: read input
	go func() {
		defer close(quitCh)
		buf := make([]byte, 64)
		for {
			n, err := sess.Read(buf)
			if err != nil {
				return
			}
			inputs, quit := parseInput(buf[:n])
			for _, in := range inputs {
				if in.Action != game.ActionSelectTile {
					send(in)
					continue
				}
				termMu.Lock()
				w, h := termW, termH
				termMu.Unlock()
				_, view := loop.Snapshot()
				x, y, ok := cellToTile(w, h, in.X, in.Y, view)
				if !ok {
					continue
				}
				for _, tap := range clicks.resolve(x, y) {
					send(tap)
				}
			}
			if quit {
				return
			}
		}
	}()

	// Goroutine: handle window resizes
	go func() {
		for win := range winCh {
			termMu.Lock()
			termW, termH = win.Width, win.Height
			termMu.Unlock()
		}
	}()

	frames := loop.Frames()
	for {
		select {
		case <-quitCh:
			return
		case <-sess.Context().Done():
			return
		case f := <-frames:
			termMu.Lock()
			w, h := termW, termH
			termMu.Unlock()
			if tw, th := term.Size(); tw != w || th != h {
				term.Resize(w, h)
			}

			hud := f.HUD
			hud.Online = s.deps.Hub.Online()
			if out := term.Frame(f.Image, hud); out != "" {
				io.WriteString(sess, out)
			}
		}
	}
}

// saveOnExit writes a final autosave so a reconnect resumes in place.
func (s *SSHServer) saveOnExit(name string, loop *game.Loop, log logrus.FieldLogger) {
	if s.deps.Store == nil {
		return
	}
	st, _ := loop.Snapshot()
	if st.MapID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.deps.Store.Save(ctx, name, game.SaveState{MapID: st.MapID, X: st.TileX, Y: st.TileY, Facing: st.Facing})
	if err != nil {
		log.WithError(err).Warn("final save failed")
	}
}

// DoubleClickWindow is how soon a second click on the same tile must follow
// the first to count as a double click.
const DoubleClickWindow = 400 * time.Millisecond

// tileClicks turns clicks on map tiles into tile selections. A second click
// on the same tile within DoubleClickWindow also double-taps it.
type tileClicks struct {
	now          func() time.Time
	lastAt       time.Time
	lastX, lastY int
}

func (c *tileClicks) resolve(x, y int) []game.Input {
	out := []game.Input{{Action: game.ActionSelectTile, X: x, Y: y}}
	now := c.now()
	if !c.lastAt.IsZero() && x == c.lastX && y == c.lastY && now.Sub(c.lastAt) <= DoubleClickWindow {
		c.lastAt = time.Time{}
		return append(out, game.Input{Action: game.ActionDoubleTap, X: x, Y: y})
	}
	c.lastAt, c.lastX, c.lastY = now, x, y
	return out
}

// cellToTile finds the map tile drawn in a terminal cell.
func cellToTile(termW, termH, col, row int, view game.ViewState) (x, y int, ok bool) {
	px, py, ok := render.CellToImage(termW, termH, col, row, view.ViewportW, view.ViewportH)
	if !ok {
		return 0, 0, false
	}
	return view.TileAt(px, py)
}

// parseMouse reads an SGR mouse report, ESC [ < b ; col ; row M (press) or m
// (release). n is the bytes consumed; click is set for a left-button press,
// with X, Y the 0-based cell.
func parseMouse(data []byte) (click *game.Input, n int) {
	var fields [3]int
	field := 0
	for n = 3; n < len(data); n++ {
		switch c := data[n]; {
		case c >= '0' && c <= '9':
			fields[field] = fields[field]*10 + int(c-'0')
		case c == ';' && field < 2:
			field++
		case (c == 'M' || c == 'm') && field == 2:
			btn := fields[0] &^ (4 | 8 | 16) // shift, meta, ctrl
			if c == 'M' && btn == 0 && fields[1] > 0 && fields[2] > 0 {
				click = &game.Input{Action: game.ActionSelectTile, X: fields[1] - 1, Y: fields[2] - 1}
			}
			return click, n + 1
		default:
			return nil, n
		}
	}
	return nil, n
}

// parseInput converts raw bytes into inputs. Terminals send no key-up events,
// so directions are taps: the first turns, a repeat walks.
// Handles WASD, arrow key escape sequences, Q, and Ctrl-C. Mouse clicks come
// out as ActionSelectTile carrying the terminal cell, not a map tile.
func parseInput(data []byte) (inputs []game.Input, quit bool) {
	move := func(d maps.Direction) {
		inputs = append(inputs, game.Input{Action: game.ActionMove, Dir: d})
	}
	act := func(a game.Action) {
		inputs = append(inputs, game.Input{Action: a})
	}

	i := 0
	for i < len(data) {
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' && data[i+2] == '<' {
			click, n := parseMouse(data[i:])
			if click != nil {
				inputs = append(inputs, *click)
			}
			i += n
			continue
		}

		// Check for escape sequences (arrow keys)
		if i+2 < len(data) && data[i] == 0x1b && data[i+1] == '[' {
			switch data[i+2] {
			case 'A':
				move(maps.DirUp)
			case 'B':
				move(maps.DirDown)
			case 'C':
				move(maps.DirRight)
			case 'D':
				move(maps.DirLeft)
			}
			i += 3
			continue
		}

		// Single byte inputs
		r, size := utf8.DecodeRune(data[i:])
		switch r {
		case 'w', 'W':
			move(maps.DirUp)
		case 's', 'S':
			move(maps.DirDown)
		case 'a', 'A':
			move(maps.DirLeft)
		case 'd', 'D':
			move(maps.DirRight)
		case 'z', 'Z', '\r', '\n', ' ':
			act(game.ActionConfirm)
		case 'x', 'X', 0x1b:
			act(game.ActionCancel)
		case 'm', 'M':
			act(game.ActionMenu)
		case '\t':
			act(game.ActionSelect)
		case 'r', 'R':
			act(game.ActionRun)
		case 'g', 'G':
			act(game.ActionEditor)
		case 'q', 'Q', 3: // 3 is Ctrl-C
			return inputs, true
		}
		i += size
	}
	return inputs, false
}
