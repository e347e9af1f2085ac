package render

import (
	"image/color"
	"math"

	"overworld/internal/gfx"
	"overworld/internal/maps"
)

// EntityView is an entity as the renderer sees it. PX, PY is the pixel
// position of the tile it stands on.
type EntityView struct {
	ID     string
	Name   string
	Sprite string
	PX, PY float64
	Facing maps.Direction
	Moving bool
}

// EditorSettings toggles the editor overlays.
type EditorSettings struct {
	Grid      bool
	Colliders bool
	Events    bool
	NPCs      bool
}

// Any reports whether an overlay is on.
func (e EditorSettings) Any() bool {
	return e.Grid || e.Colliders || e.Events || e.NPCs
}

// Scene is everything needed to draw one frame.
type Scene struct {
	MapID    string
	Graphics *MapGraphics
	Flat     *gfx.Bitmap // drawn instead of Graphics when there is no layout

	TilesX, TilesY int
	TileSize       int
	ViewW, ViewH   int
	CamX, CamY     int
	Tick           int

	NPCs   []EntityView
	Others []EntityView
	Player *EntityView

	Editor    EditorSettings
	Colliders []maps.Rect
	Events    []maps.Event
}

// Offset is where map pixel (0, 0) lands on screen when the camera is at 0:
// maps narrower or shorter than the view are centred.
func (s *Scene) Offset() (x, y int) {
	mw, mh := s.TilesX*s.TileSize, s.TilesY*s.TileSize
	if mw < s.ViewW {
		x = (s.ViewW - mw) / 2
	}
	if mh < s.ViewH {
		y = (s.ViewH - mh) / 2
	}
	return x, y
}

var (
	letterbox     = color.NRGBA{0, 0, 0, 255}
	flatFill      = color.NRGBA{56, 104, 64, 255}
	gridColour    = color.NRGBA{255, 255, 255, 40}
	colliderFill  = color.NRGBA{220, 40, 40, 90}
	eventFill     = color.NRGBA{40, 120, 220, 90}
	eventStroke   = color.NRGBA{40, 120, 220, 200}
	npcEditStroke = color.NRGBA{240, 200, 40, 220}
)

// Renderer composes frames for one viewer. It owns the background cache, so
// each session needs its own.
type Renderer struct {
	Sprites *SpriteSet
	Cache   BackgroundCache
	// NoCache forces the background to be composited live every frame.
	NoCache bool
}

// NewRenderer creates a renderer drawing entities with sprites.
func NewRenderer(sprites *SpriteSet) *Renderer {
	if sprites == nil {
		sprites = NewSpriteSet(nil, "", nil)
	}
	return &Renderer{Sprites: sprites}
}

// Compose records a frame: the map backdrop and background, then NPCs, other players and the
// player, then the foreground of normal metatiles, then editor overlays.
func (r *Renderer) Compose(s *Scene) *DisplayList {
	dl := &DisplayList{}
	offX, offY := s.Offset()
	originX, originY := offX-s.CamX, offY-s.CamY

	g := s.Graphics
	switch {
	case g != nil:
		visible := g.visibleRange(s.CamX, s.CamY, s.ViewW, s.ViewH)
		surface, ok := (*gfx.Bitmap)(nil), false
		if !r.NoCache {
			surface, ok = r.Cache.Surface(g)
		}
		if ok {
			mw, mh := g.PixelSize()
			dl.add(DrawOp{
				Layer: LayerBackground, Kind: OpSurface, Src: surface,
				SX: s.CamX, SY: s.CamY,
				W: min(s.ViewW, mw-s.CamX), H: min(s.ViewH, mh-s.CamY),
				DX: offX, DY: offY,
			})
			g.appendPass(dl, passAnimated, LayerBackground, visible, originX, originY, s.Tick)
		} else {
			mw, mh := g.PixelSize()
			dl.add(DrawOp{
				Layer: LayerBackground, Kind: OpFill, Color: g.Backdrop(),
				DX: originX, DY: originY, W: mw, H: mh,
			})
			g.appendPass(dl, passBase, LayerBackground, visible, originX, originY, s.Tick)
		}
	case s.Flat != nil:
		dl.add(DrawOp{
			Layer: LayerBackground, Kind: OpSurface, Src: s.Flat,
			SX: s.CamX, SY: s.CamY, W: s.ViewW, H: s.ViewH, DX: offX, DY: offY,
		})
	default:
		dl.add(DrawOp{
			Layer: LayerBackground, Kind: OpFill, Color: flatFill,
			DX: originX, DY: originY, W: s.TilesX * s.TileSize, H: s.TilesY * s.TileSize,
		})
	}

	for i := range s.NPCs {
		r.addEntity(dl, s, &s.NPCs[i], originX, originY)
	}
	for i := range s.Others {
		r.addEntity(dl, s, &s.Others[i], originX, originY)
	}
	if s.Player != nil {
		r.addEntity(dl, s, s.Player, originX, originY)
	}

	if g != nil {
		visible := g.visibleRange(s.CamX, s.CamY, s.ViewW, s.ViewH)
		g.appendPass(dl, passOverlay, LayerForeground, visible, originX, originY, s.Tick)
	}

	if s.Editor.Any() {
		r.addEditor(dl, s, originX, originY)
	}
	return dl
}

// Render composes and draws a frame into a new ViewW x ViewH bitmap.
func (r *Renderer) Render(s *Scene) *gfx.Bitmap {
	out := gfx.NewBitmap(s.ViewW, s.ViewH)
	out.Clear(letterbox)
	r.Compose(s).Draw(out)
	return out
}

func (r *Renderer) addEntity(dl *DisplayList, s *Scene, e *EntityView, originX, originY int) {
	sprite := r.Sprites.Sprite(e.Sprite, e.Facing)
	x := originX + int(math.Round(e.PX)) + (s.TileSize-sprite.W)/2
	y := originY + int(math.Round(e.PY)) + s.TileSize - sprite.H
	if e.Moving && (s.Tick/8)%2 == 1 {
		y--
	}
	if x+sprite.W <= 0 || y+sprite.H <= 0 || x >= s.ViewW || y >= s.ViewH {
		return
	}
	dl.add(DrawOp{
		Layer: LayerEntities, Kind: OpSprite, Src: sprite,
		DX: x, DY: y, EntityID: e.ID,
		MapX: int(math.Round(e.PX)) / max(1, s.TileSize),
		MapY: int(math.Round(e.PY)) / max(1, s.TileSize),
	})
}

func (r *Renderer) addEditor(dl *DisplayList, s *Scene, originX, originY int) {
	ts := s.TileSize
	rect := func(kind OpKind, c color.NRGBA, rc maps.Rect) {
		dl.add(DrawOp{
			Layer: LayerEditor, Kind: kind, Color: c,
			DX: originX + rc.X*ts, DY: originY + rc.Y*ts, W: rc.W * ts, H: rc.H * ts,
			MapX: rc.X, MapY: rc.Y,
		})
	}
	if s.Editor.Grid {
		mw, mh := s.TilesX*ts, s.TilesY*ts
		for x := 0; x <= s.TilesX; x++ {
			dl.add(DrawOp{Layer: LayerEditor, Kind: OpFill, Color: gridColour, DX: originX + x*ts, DY: originY, W: 1, H: mh})
		}
		for y := 0; y <= s.TilesY; y++ {
			dl.add(DrawOp{Layer: LayerEditor, Kind: OpFill, Color: gridColour, DX: originX, DY: originY + y*ts, W: mw, H: 1})
		}
	}
	if s.Editor.Colliders {
		for _, c := range s.Colliders {
			rect(OpFill, colliderFill, c)
		}
	}
	if s.Editor.Events {
		for _, ev := range s.Events {
			rect(OpFill, eventFill, ev.Rect)
			rect(OpStroke, eventStroke, ev.Rect)
		}
	}
	if s.Editor.NPCs {
		for _, n := range s.NPCs {
			x, y := int(math.Round(n.PX))/max(1, ts), int(math.Round(n.PY))/max(1, ts)
			rect(OpStroke, npcEditStroke, maps.Rect{X: x, Y: y, W: 1, H: 1})
		}
	}
}
