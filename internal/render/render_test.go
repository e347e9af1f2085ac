package render

import (
	"encoding/binary"
	"image/color"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overworld/internal/assets"
	"overworld/internal/gfx"
	"overworld/internal/maps"
	"overworld/internal/tileset"
)

var (
	red  = gfx.RGB{200, 0, 0}
	blue = gfx.RGB{0, 0, 200}
)

func metatileBytes(mts ...[8]int) []byte {
	buf := make([]byte, 0, len(mts)*16)
	for _, mt := range mts {
		for _, tile := range mt {
			buf = binary.LittleEndian.AppendUint16(buf, tileset.TileEntry{TileIndex: tile}.Encode())
		}
	}
	return buf
}

func attrBytes(layers ...tileset.LayerType) []byte {
	buf := make([]byte, 0, len(layers)*4)
	for _, l := range layers {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(l)<<29)
	}
	return buf
}

// testSheet is a 3-cell atlas: cell 0 transparent, cell 1 red, cell 2 blue.
func testSheet() *SheetSet {
	b := gfx.NewBitmap(24, 8)
	b.Fill(8, 0, 8, 8, red.NRGBA())
	b.Fill(16, 0, 8, 8, blue.NRGBA())
	return &SheetSet{Raw: b, Cols: 3, Count: 3}
}

// testGraphics is a 2x1 map: a normal metatile with a blue foreground, then a
// covered one with a transparent foreground. Both have a red background.
func testGraphics(id string) *MapGraphics {
	primary := tileset.Assemble("gTileset_Test", tileset.Primary,
		metatileBytes([8]int{1, 1, 1, 1, 2, 2, 2, 2}, [8]int{1, 1, 1, 1, 0, 0, 0, 0}),
		attrBytes(tileset.LayerNormal, tileset.LayerCovered), nil)
	return NewMapGraphics(id, 2, 1, 16, []uint16{0, 1}, primary, nil, testSheet(), nil, nil)
}

func testScene(g *MapGraphics) *Scene {
	return &Scene{
		MapID: g.MapID, Graphics: g,
		TilesX: g.TilesX, TilesY: g.TilesY, TileSize: g.TileSize,
		ViewW: 32, ViewH: 16,
		Player: &EntityView{ID: "p1", Sprite: "p1", Facing: maps.DirDown},
	}
}

func TestComposeLayerOrder(t *testing.T) {
	r := NewRenderer(nil)
	r.NoCache = true
	dl := r.Compose(testScene(testGraphics("m")))

	sprite := -1
	for i, op := range dl.Ops {
		if op.Kind == OpSprite {
			sprite = i
		}
	}
	require.NotEqual(t, -1, sprite, "player sprite not drawn")

	var normalFG, coveredFG int
	for i, op := range dl.Ops {
		if op.Kind != OpTile || op.Slot < 4 {
			continue
		}
		switch op.MapX {
		case 0:
			normalFG++
			assert.Greater(t, i, sprite, "normal foreground must follow entities")
			assert.Equal(t, LayerForeground, op.Layer)
		case 1:
			coveredFG++
			assert.Less(t, i, sprite, "covered foreground belongs to the background")
			assert.Equal(t, LayerBackground, op.Layer)
		}
	}
	assert.Equal(t, 4, normalFG)
	assert.Equal(t, 4, coveredFG)
}

func TestRenderPixels(t *testing.T) {
	r := NewRenderer(nil)
	out := r.Render(testScene(testGraphics("m")))

	// Top-left: red background, player, then the blue foreground over both.
	cr, cg, cb, ca := out.RGBAAt(0, 0)
	assert.Equal(t, [4]uint8{blue.R, blue.G, blue.B, 255}, [4]uint8{cr, cg, cb, ca})
	cr, cg, cb, _ = out.RGBAAt(20, 4)
	assert.Equal(t, [3]uint8{red.R, red.G, red.B}, [3]uint8{cr, cg, cb})
}

func TestPlaceholderForMissingSecondary(t *testing.T) {
	primary := tileset.Assemble("gTileset_Test", tileset.Primary,
		metatileBytes([8]int{1, 700, 1, 1, 0, 0, 0, 0}), attrBytes(tileset.LayerNormal), nil)
	g := NewMapGraphics("m", 1, 1, 16, []uint16{0}, primary, nil, testSheet(), nil, nil)

	var dl DisplayList
	require.True(t, g.appendPass(&dl, passBase, LayerBackground, g.fullRange(), 0, 0, 0))
	require.Len(t, dl.Ops, 4)
	assert.Equal(t, OpTile, dl.Ops[0].Kind)
	assert.Equal(t, OpPlaceholder, dl.Ops[1].Kind)
	assert.Equal(t, OwnerSecondary, dl.Ops[1].Owner)
	assert.Equal(t, 8, dl.Ops[1].DX)

	out := g.RenderFull(0)
	_, _, _, a := out.RGBAAt(12, 4)
	assert.NotZero(t, a, "placeholder should be visible")
}

func TestEmptyMetatileDrawsNothing(t *testing.T) {
	g := testGraphics("m")
	g.Blocks = []uint16{tileset.EmptyMetatile, 0xffff}
	var dl DisplayList
	g.appendPass(&dl, passBase, LayerBackground, g.fullRange(), 0, 0, 0)
	assert.Empty(t, dl.Ops)
}

func TestVisibleRange(t *testing.T) {
	g := NewMapGraphics("m", 10, 10, 16, make([]uint16, 100), nil, nil, nil, nil, nil)
	tests := []struct {
		name       string
		camX, camY int
		want       tileRange
	}{
		{"origin", 0, 0, tileRange{0, 0, 3, 3}},
		{"offset", 20, 0, tileRange{1, 0, 4, 3}},
		{"negative", -8, -8, tileRange{0, 0, 2, 2}},
		{"end", 140, 140, tileRange{8, 8, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.visibleRange(tt.camX, tt.camY, 32, 32))
		})
	}
}

func TestGrayRoundTrip(t *testing.T) {
	pal := &gfx.Palette{}
	for i := range pal {
		pal[i] = gfx.RGB{uint8(i * 10), uint8(255 - i), 7}
	}
	img := GrayEncode(4, 1, []uint8{0, 1, 5, 15})
	require.True(t, IsGrayscale(img))

	out := Recolor(img, pal)
	_, _, _, a := out.RGBAAt(0, 0)
	assert.Zero(t, a, "index 0 is transparent")
	for x, idx := range []int{1, 5, 15} {
		r, g, b, a := out.RGBAAt(x+1, 0)
		assert.Equal(t, [4]uint8{pal[idx].R, pal[idx].G, pal[idx].B, 255}, [4]uint8{r, g, b, a}, "index %d", idx)
	}
}

func TestGrayIndex(t *testing.T) {
	for i, v := range gfx.GrayRamp {
		assert.Equal(t, i, GrayIndex(v))
	}
	assert.Equal(t, 0, GrayIndex(250))
	assert.Equal(t, 15, GrayIndex(3))
}

func TestIsGrayscale(t *testing.T) {
	tests := []struct {
		name string
		c    color.NRGBA
		want bool
	}{
		{"gray", color.NRGBA{100, 101, 102, 255}, true},
		{"transparent colour", color.NRGBA{255, 0, 0, 0}, true},
		{"tinted", color.NRGBA{100, 110, 100, 255}, false},
		{"partial alpha", color.NRGBA{100, 100, 100, 128}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := gfx.NewBitmap(2, 2)
			b.Pix[0], b.Pix[1], b.Pix[2], b.Pix[3] = tt.c.R, tt.c.G, tt.c.B, tt.c.A
			assert.Equal(t, tt.want, IsGrayscale(b))
		})
	}
}

func TestKeyTransparent(t *testing.T) {
	magenta := gfx.RGB{0xff, 0x00, 0xff}
	green := gfx.RGB{10, 120, 10}

	t.Run("explicit key", func(t *testing.T) {
		b := gfx.NewBitmap(2, 1)
		b.Fill(0, 0, 1, 1, green.NRGBA())
		b.Fill(1, 0, 1, 1, magenta.NRGBA())
		out := KeyTransparent(b, &green)
		_, _, _, a0 := out.RGBAAt(0, 0)
		_, _, _, a1 := out.RGBAAt(1, 0)
		assert.Zero(t, a0)
		assert.Equal(t, uint8(255), a1)
	})
	t.Run("magic colour", func(t *testing.T) {
		b := gfx.NewBitmap(2, 1)
		b.Fill(0, 0, 1, 1, green.NRGBA())
		b.Fill(1, 0, 1, 1, magenta.NRGBA())
		out := KeyTransparent(b, nil)
		_, _, _, a1 := out.RGBAAt(1, 0)
		assert.Zero(t, a1)
	})
	t.Run("dominant colour", func(t *testing.T) {
		b := gfx.NewBitmap(4, 1)
		b.Clear(green.NRGBA())
		b.Fill(3, 0, 1, 1, color.NRGBA{1, 2, 3, 255})
		out := KeyTransparent(b, nil)
		_, _, _, a0 := out.RGBAAt(0, 0)
		_, _, _, a3 := out.RGBAAt(3, 0)
		assert.Zero(t, a0)
		assert.Equal(t, uint8(255), a3)
	})
	t.Run("existing alpha untouched", func(t *testing.T) {
		b := gfx.NewBitmap(2, 1)
		b.Fill(0, 0, 1, 1, magenta.NRGBA())
		assert.Same(t, b, KeyTransparent(b, nil))
	})
	t.Run("too many colours untouched", func(t *testing.T) {
		b := gfx.NewBitmap(maxKeyColours+1, 1)
		for x := 0; x < b.W; x++ {
			b.SetRGBA(x, 0, uint8(x), 0, 0, 255)
		}
		assert.Same(t, b, KeyTransparent(b, nil))
	})
}

func TestBuildSheets(t *testing.T) {
	pal := gfx.RampPalette()
	other := &gfx.Palette{}
	other[1] = red
	var bank tileset.Bank
	bank[0], bank[1], bank[2] = pal, pal, other

	img := &gfx.DecodedImage{Bitmap: GrayEncode(16, 8, []uint8{1, 1, 1})}
	set := BuildSheets(img, bank, nil)
	assert.Equal(t, 2, set.Cols)
	assert.Equal(t, 2, set.Count)
	assert.Same(t, set.Sheets[0], set.Sheets[1], "shared palettes recolour once")
	assert.NotSame(t, set.Sheets[0], set.Sheets[2])
	assert.Same(t, set.Sheets[0], set.For(3), "missing palettes fall back to palette 0")

	r, g, b, _ := set.For(2).RGBAAt(0, 0)
	assert.Equal(t, red, gfx.RGB{r, g, b})

	colour := gfx.NewBitmap(8, 8)
	colour.Clear(color.NRGBA{0xff, 0x00, 0xff, 255})
	raw := BuildSheets(&gfx.DecodedImage{Bitmap: colour}, bank, nil)
	assert.Nil(t, raw.Sheets[0])
	_, _, _, a := raw.For(0).RGBAAt(0, 0)
	assert.Zero(t, a, "non-gray atlases are keyed instead of recoloured")
}

func TestSheetCacheReuses(t *testing.T) {
	c, err := NewSheetCache(0)
	require.NoError(t, err)
	defer c.Close()

	var bank tileset.Bank
	bank[0] = gfx.RampPalette()
	img := &gfx.DecodedImage{Bitmap: GrayEncode(8, 8, nil)}
	first := c.Sheets("a.png", img, bank, nil)
	assert.Same(t, first, c.Sheets("a.png", img, bank, nil))

	bank[1] = &gfx.Palette{}
	assert.NotEqual(t, BankFingerprint(bank), BankFingerprint(tileset.Bank{0: gfx.RampPalette()}))
}

func TestAnimFrameAt(t *testing.T) {
	tests := []struct {
		name string
		def  AnimDef
		tick int
		want int
	}{
		{"first", AnimDef{StepTicks: 16, Frames: 5}, 0, 0},
		{"second", AnimDef{StepTicks: 16, Frames: 5}, 16, 1},
		{"wraps", AnimDef{StepTicks: 16, Frames: 5}, 16 * 5, 0},
		{"sequence", AnimDef{StepTicks: 16, Frames: 3, Sequence: []int{0, 1, 2, 1}}, 16 * 3, 1},
		{"sequence wraps", AnimDef{StepTicks: 16, Frames: 3, Sequence: []int{0, 1, 2, 1}}, 16 * 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.def.FrameAt(tt.tick))
		})
	}
}

func TestAnimDefsFor(t *testing.T) {
	defs := AnimDefsFor("gTileset_General", "gTileset_CeladonGym")
	ids := make([]string, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{"general_flower", "general_water_current", "general_sand_edge", "celadon_gym_flowers"}, ids)
	assert.Empty(t, AnimDefsFor("gTileset_CeladonGym", ""), "kinds must match")
}

func testAnim() (*AnimSet, [2]*gfx.Bitmap) {
	var frames [2]*gfx.Bitmap
	sets := make([]*SheetSet, 2)
	for i, c := range []gfx.RGB{{0, 200, 0}, {200, 200, 0}} {
		frames[i] = gfx.NewBitmap(8, 8)
		frames[i].Clear(c.NRGBA())
		sets[i] = &SheetSet{Raw: frames[i], Cols: 1, Count: 1}
	}
	a := &Anim{
		Def:       AnimDef{ID: "test", Offset: 1, Count: 2, StepTicks: 4, Frames: 2},
		Frames:    sets,
		FrameCols: 1, FrameTiles: 1,
	}
	return NewAnimSet(a), frames
}

func TestAnimSetFrame(t *testing.T) {
	set, frames := testAnim()

	sheet, cols, cell, ok := set.Frame(1, 0, 0)
	require.True(t, ok)
	assert.Same(t, frames[0], sheet)
	assert.Equal(t, 1, cols)
	assert.Equal(t, 0, cell)

	sheet, _, _, ok = set.Frame(1, 0, 4)
	require.True(t, ok)
	assert.Same(t, frames[1], sheet)

	_, _, _, ok = set.Frame(2, 0, 0)
	assert.False(t, ok, "index past the frame's tiles falls back to the atlas")
	_, _, _, ok = set.Frame(9, 0, 0)
	assert.False(t, ok)

	var nilSet *AnimSet
	_, _, _, ok = nilSet.Frame(1, 0, 0)
	assert.False(t, ok)
}

func TestAnimatedTilesBypassCache(t *testing.T) {
	set, frames := testAnim()
	g := testGraphics("m")
	g.anims = assets.Resolved(set, nil)
	g.AnimDefs = []AnimDef{set.anims[0].Def}

	r := NewRenderer(nil)
	s := testScene(g)
	dl := r.Compose(s)
	require.Equal(t, OpSurface, dl.Ops[0].Kind)

	var animOps int
	for _, op := range dl.Ops {
		if op.Kind == OpTile && op.Src == frames[0] {
			animOps++
		}
	}
	// Tile 1 fills the 4 background slots of both metatiles.
	assert.Equal(t, 8, animOps)

	s.Tick = 4
	out := r.Render(s)
	cr, cg, cb, _ := out.RGBAAt(20, 12)
	assert.Equal(t, [3]uint8{200, 200, 0}, [3]uint8{cr, cg, cb})
	assert.Equal(t, 1, r.Cache.Builds, "animation must not rebuild the cache")
}

func TestBackgroundCache(t *testing.T) {
	var c BackgroundCache
	a := testGraphics("a")

	s1, ok := c.Surface(a)
	require.True(t, ok)
	s2, ok := c.Surface(a)
	require.True(t, ok)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, c.Builds)

	_, ok = c.Surface(testGraphics("b"))
	require.True(t, ok)
	assert.Equal(t, 2, c.Builds)

	// Same id, new load: rebuild.
	_, ok = c.Surface(testGraphics("b"))
	require.True(t, ok)
	assert.Equal(t, 3, c.Builds)

	c.Invalidate()
	_, ok = c.Surface(a)
	require.True(t, ok)
	assert.Equal(t, 4, c.Builds)
}

func TestBackgroundCacheWaitsForAtlas(t *testing.T) {
	g := testGraphics("m")
	release := make(chan struct{})
	sheet := testSheet()
	g.primarySheets = assets.Go(func() (*SheetSet, error) {
		<-release
		return sheet, nil
	})

	var c BackgroundCache
	assert.False(t, g.Ready())
	_, ok := c.Surface(g)
	assert.False(t, ok)
	assert.Zero(t, c.Builds)

	close(release)
	<-g.primarySheets.Done()
	assert.True(t, g.Ready())
	surface, ok := c.Surface(g)
	require.True(t, ok)
	assert.Equal(t, 1, c.Builds)
	r, _, _, _ := surface.RGBAAt(2, 2)
	assert.Equal(t, red.R, r)
}

func TestBackdropFillsMapArea(t *testing.T) {
	tests := []struct {
		name    string
		noCache bool
	}{
		{"cached", false},
		{"live", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := tileset.Assemble("gTileset_Test", tileset.Primary,
				metatileBytes([8]int{}), attrBytes(tileset.LayerNormal), nil)
			g := NewMapGraphics("m", 2, 1, 16, []uint16{0, 0}, primary, nil, testSheet(), nil, nil)
			g.Bank[0] = &gfx.Palette{{R: 10, G: 20, B: 30}}

			r := NewRenderer(nil)
			r.NoCache = tt.noCache
			s := testScene(g)
			s.Player = nil
			s.ViewH = 32
			out := r.Render(s)

			// The 32x16 map is centred vertically in a 32x32 view.
			cr, cg, cb, ca := out.RGBAAt(4, 12)
			assert.Equal(t, [4]uint8{10, 20, 30, 255}, [4]uint8{cr, cg, cb, ca})
			cr, cg, cb, _ = out.RGBAAt(4, 2)
			assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{cr, cg, cb}, "letterbox stays black")
		})
	}
}

func TestCoveredAnimatedMetatileDrawnWhole(t *testing.T) {
	set, frames := testAnim()
	set.anims[0].Def.Count = 1 // tile 2 stays static
	primary := tileset.Assemble("gTileset_Test", tileset.Primary,
		metatileBytes([8]int{1, 1, 1, 1, 2, 0, 0, 0}), attrBytes(tileset.LayerCovered), nil)
	g := NewMapGraphics("m", 1, 1, 16, []uint16{0}, primary, nil, testSheet(), nil, set)

	var static DisplayList
	require.True(t, g.appendPass(&static, passStatic, LayerBackground, g.fullRange(), 0, 0, 0))
	assert.Empty(t, static.Ops)

	var live DisplayList
	g.appendPass(&live, passAnimated, LayerBackground, g.fullRange(), 0, 0, 0)
	require.Len(t, live.Ops, 8)
	for i, op := range live.Ops {
		assert.Equal(t, i, op.Slot)
	}
	assert.Same(t, frames[0], live.Ops[0].Src)

	r := NewRenderer(nil)
	s := testScene(g)
	s.Player = nil
	s.ViewW = 16
	out := r.Render(s)
	tests := []struct {
		name string
		x, y int
		want gfx.RGB
	}{
		{"foreground over animation", 2, 2, blue},
		{"animation under empty foreground", 12, 4, gfx.RGB{R: 0, G: 200, B: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cr, cg, cb, _ := out.RGBAAt(tt.x, tt.y)
			assert.Equal(t, [3]uint8{tt.want.R, tt.want.G, tt.want.B}, [3]uint8{cr, cg, cb})
		})
	}
	assert.Equal(t, 1, r.Cache.Builds)
}

func TestSceneOffset(t *testing.T) {
	tests := []struct {
		name       string
		s          Scene
		wantX, wantY int
	}{
		{"larger map", Scene{TilesX: 30, TilesY: 30, TileSize: 16, ViewW: 240, ViewH: 160}, 0, 0},
		{"narrow map", Scene{TilesX: 10, TilesY: 30, TileSize: 16, ViewW: 240, ViewH: 160}, 40, 0},
		{"small map", Scene{TilesX: 10, TilesY: 6, TileSize: 16, ViewW: 240, ViewH: 160}, 40, 32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.s.Offset()
			assert.Equal(t, tt.wantX, x)
			assert.Equal(t, tt.wantY, y)
		})
	}
}

func TestEditorOverlays(t *testing.T) {
	s := testScene(testGraphics("m"))
	s.Editor = EditorSettings{Colliders: true, Events: true}
	s.Colliders = []maps.Rect{{X: 1, Y: 0, W: 1, H: 1}}
	s.Events = []maps.Event{{ID: "e", Rect: maps.Rect{X: 0, Y: 0, W: 1, H: 1}}}

	dl := NewRenderer(nil).Compose(s)
	var editor []DrawOp
	for _, op := range dl.Ops {
		if op.Layer == LayerEditor {
			editor = append(editor, op)
		}
	}
	require.Len(t, editor, 3)
	assert.Equal(t, 16, editor[0].DX)
	assert.Equal(t, OpStroke, editor[2].Kind)
	assert.Equal(t, LayerEditor, dl.Ops[len(dl.Ops)-1].Layer, "editor overlays draw last")
}

func TestSpriteSetTints(t *testing.T) {
	set := NewSpriteSet(nil, "", nil)
	sprite := set.Sprite("player-1", maps.DirDown)
	want := EntityColours[ColourIndex("player-1")]

	var shirt, key int
	for i := 0; i+3 < len(sprite.Pix); i += 4 {
		c := gfx.RGB{sprite.Pix[i], sprite.Pix[i+1], sprite.Pix[i+2]}
		if sprite.Pix[i+3] == 0 {
			continue
		}
		switch c {
		case want:
			shirt++
		case shirtKey, pantsKey:
			key++
		}
	}
	assert.Positive(t, shirt)
	assert.Zero(t, key, "template colours must be swapped out")
	assert.Equal(t, ColourIndex("player-1"), ColourIndex("player-1"))
}

func TestSpriteSetLoadsTemplates(t *testing.T) {
	fs := afero.NewMemMapFs()
	tmpl := gfx.NewBitmap(4, 4)
	tmpl.Clear(color.NRGBA{0xff, 0x00, 0xff, 255})
	tmpl.Fill(1, 1, 2, 2, shirtKey.NRGBA())
	data, err := gfx.EncodePNG(tmpl)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "sprites/player_up.png", data, 0o644))

	set := NewSpriteSet(fs, "sprites", nil)
	up := set.Sprite("x", maps.DirUp)
	assert.Equal(t, 4, up.W)
	_, _, _, a := up.RGBAAt(0, 0)
	assert.Zero(t, a, "magenta is keyed out")
	r, g, b, _ := up.RGBAAt(1, 1)
	assert.Equal(t, EntityColours[ColourIndex("x")], gfx.RGB{r, g, b})

	assert.Equal(t, 16, set.Sprite("x", maps.DirDown).W, "missing templates use the built-in")
}

func TestTerminalDiff(t *testing.T) {
	term := NewTerminal(20, 8)
	img := gfx.NewBitmap(20, 10)
	img.Clear(red.NRGBA())
	hud := HUD{MapName: "Town", TileX: 3, TileY: 4}

	first := term.Frame(img, hud)
	assert.True(t, strings.HasPrefix(first, CSI+"1;1H"))
	assert.Contains(t, first, "T")
	assert.Empty(t, term.Frame(img, hud), "identical frame emits nothing")

	hud.TileX = 4
	next := term.Frame(img, hud)
	assert.NotEmpty(t, next)
	assert.Less(t, len(next), len(first))
	assert.True(t, strings.HasSuffix(next, Reset))

	term.Resize(20, 8)
	assert.Equal(t, len(first), len(term.Frame(img, HUD{MapName: "Town", TileX: 3, TileY: 4})))
}

func TestTerminalMessageBox(t *testing.T) {
	term := NewTerminal(30, 12)
	out := term.Frame(nil, HUD{Message: "Hello there"})
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "H")
	w, h := term.MapArea()
	assert.Equal(t, 30, w)
	assert.Equal(t, 18, h)
}

func TestWrap(t *testing.T) {
	tests := []struct {
		text  string
		width int
		want  []string
	}{
		{"hello world foo", 11, []string{"hello world", "foo"}},
		{"a\nb", 10, []string{"a", "b"}},
		{"", 5, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, wrap(tt.text, tt.width))
		})
	}
}
