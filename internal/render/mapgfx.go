package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"path"

	"github.com/sirupsen/logrus"

	"overworld/internal/assets"
	"overworld/internal/gfx"
	"overworld/internal/maps"
	"overworld/internal/tileset"
)

// MapGraphics is everything needed to composite one map: block data, both
// tilesets, the merged bank, and the atlas and animation loads still in flight.
type MapGraphics struct {
	MapID          string
	TilesX, TilesY int
	TileSize       int
	Blocks         []uint16
	Primary        *tileset.Tileset
	Secondary      *tileset.Tileset
	Bank           tileset.Bank
	AnimDefs       []AnimDef

	primarySheets   *assets.Future[*SheetSet]
	secondarySheets *assets.Future[*SheetSet]
	anims           *assets.Future[*AnimSet]
}

// GraphicsLoader builds MapGraphics from the asset tree.
type GraphicsLoader struct {
	Loader *assets.Loader
	Cache  *SheetCache
	Root   string
	Log    logrus.FieldLogger
}

// Load reads a map's block data and tilesets. It returns once the binary
// data is in; atlases and animation frames keep loading in the background and
// are polled at draw time. At least one tileset must load.
func (gl *GraphicsLoader) Load(ctx context.Context, mapID string, layout maps.Layout, primaryName, secondaryName string, tileSize int) (*MapGraphics, error) {
	if layout.BlockdataPath == "" {
		return nil, fmt.Errorf("map %s: layout %q has no block data", mapID, layout.ID)
	}
	if tileSize <= 0 {
		tileSize = maps.DefaultTileSize
	}
	log := gl.logger().WithField("map", mapID)

	var blocks []byte
	if err := assets.WaitAll(ctx, assets.Await(gl.Loader.Bytes(path.Join(gl.Root, layout.BlockdataPath)), &blocks)); err != nil {
		return nil, fmt.Errorf("map %s blocks: %w", mapID, err)
	}

	g := &MapGraphics{
		MapID:    mapID,
		TilesX:   layout.Width,
		TilesY:   layout.Height,
		TileSize: tileSize,
		Blocks:   tileset.DecodeBlocks(blocks),
	}
	g.Primary = gl.tileset(ctx, log, primaryName, tileset.Primary)
	g.Secondary = gl.tileset(ctx, log, secondaryName, tileset.Secondary)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.Primary == nil && g.Secondary == nil {
		return nil, fmt.Errorf("map %s: no tileset loaded", mapID)
	}

	var primaryBank, secondaryBank tileset.Bank
	if g.Primary != nil {
		primaryBank = g.Primary.Palettes
	}
	if g.Secondary != nil {
		secondaryBank = g.Secondary.Palettes
	}
	g.Bank = tileset.MergeBank(primaryBank, secondaryBank)
	g.primarySheets = gl.sheets(g.Primary, g.Bank)
	g.secondarySheets = gl.sheets(g.Secondary, g.Bank)

	g.AnimDefs = AnimDefsFor(primaryName, secondaryName)
	if len(g.AnimDefs) > 0 {
		defs, bank := g.AnimDefs, g.Bank
		g.anims = assets.Go(func() (*AnimSet, error) {
			set := LoadAnimations(context.Background(), gl.Loader, gl.Cache, gl.Root, defs, bank, log)
			log.WithField("count", set.Len()).Debug("tile animations loaded")
			return set, nil
		})
	}
	return g, nil
}

func (gl *GraphicsLoader) logger() logrus.FieldLogger {
	if gl.Log == nil {
		return logrus.StandardLogger()
	}
	return gl.Log
}

func (gl *GraphicsLoader) tileset(ctx context.Context, log logrus.FieldLogger, name string, kind tileset.Kind) *tileset.Tileset {
	if name == "" {
		return nil
	}
	ts, err := gl.Loader.Tileset(gl.Root, name, kind).Wait(ctx)
	if err != nil {
		log.WithField("tileset", name).WithError(err).Warn("tileset missing, its tiles draw as placeholders")
		return nil
	}
	return ts
}

func (gl *GraphicsLoader) sheets(ts *tileset.Tileset, bank tileset.Bank) *assets.Future[*SheetSet] {
	if ts == nil {
		return nil
	}
	p := ts.Paths.Tiles
	return assets.Go(func() (*SheetSet, error) {
		img, err := gl.Loader.Image(p).Wait(context.Background())
		if err != nil {
			return nil, err
		}
		return gl.Cache.Sheets(p, img, bank, nil), nil
	})
}

// NewMapGraphics assembles graphics from parts already in memory. Nil sheet
// sets are treated as atlases that failed to load.
func NewMapGraphics(mapID string, tilesX, tilesY, tileSize int, blocks []uint16, primary, secondary *tileset.Tileset, primarySheets, secondarySheets *SheetSet, anims *AnimSet) *MapGraphics {
	g := &MapGraphics{
		MapID: mapID, TilesX: tilesX, TilesY: tilesY, TileSize: tileSize,
		Blocks: blocks, Primary: primary, Secondary: secondary,
	}
	var pb, sb tileset.Bank
	if primary != nil {
		pb = primary.Palettes
	}
	if secondary != nil {
		sb = secondary.Palettes
	}
	g.Bank = tileset.MergeBank(pb, sb)
	if primary != nil {
		g.primarySheets = assets.Resolved(primarySheets, nilSheetErr(primarySheets))
	}
	if secondary != nil {
		g.secondarySheets = assets.Resolved(secondarySheets, nilSheetErr(secondarySheets))
	}
	if anims != nil {
		g.anims = assets.Resolved(anims, nil)
		for _, a := range anims.anims {
			g.AnimDefs = append(g.AnimDefs, a.Def)
		}
	}
	return g
}

var errNoAtlas = errors.New("atlas unavailable")

func nilSheetErr(s *SheetSet) error {
	if s == nil {
		return errNoAtlas
	}
	return nil
}

// PixelSize is the map's extent in pixels.
func (g *MapGraphics) PixelSize() (w, h int) {
	return g.TilesX * g.TileSize, g.TilesY * g.TileSize
}

// Backdrop is colour 0 of palette 0, seen wherever every layer of a tile is
// transparent.
func (g *MapGraphics) Backdrop() color.NRGBA {
	if g.Bank[0] == nil {
		return letterbox
	}
	return g.Bank[0][0].NRGBA()
}

// Ready reports whether every atlas has finished loading, successfully or not.
func (g *MapGraphics) Ready() bool {
	return futureSettled(g.primarySheets) && futureSettled(g.secondarySheets)
}

func futureSettled[T any](f *assets.Future[T]) bool {
	return f == nil || f.Ready()
}

// Metatile resolves a metatile id to its subtiles and layer type.
func (g *MapGraphics) Metatile(id int) (tileset.Metatile, tileset.LayerType, bool) {
	ts, local := g.Primary, id
	if id >= tileset.PrimaryTiles {
		ts, local = g.Secondary, id-tileset.PrimaryTiles
	}
	mt, ok := ts.Metatile(local)
	if !ok {
		return mt, tileset.LayerNormal, false
	}
	return mt, ts.LayerType(local), true
}

func (g *MapGraphics) animated(tile int) bool {
	for i := range g.AnimDefs {
		if g.AnimDefs[i].Contains(tile) {
			return true
		}
	}
	return false
}

func (g *MapGraphics) anyAnimated(mt tileset.Metatile) bool {
	if len(g.AnimDefs) == 0 {
		return false
	}
	for _, e := range mt {
		if g.animated(e.TileIndex) {
			return true
		}
	}
	return false
}

func (g *MapGraphics) animSet() *AnimSet {
	if g.anims == nil {
		return nil
	}
	set, _ := g.anims.Value()
	return set
}

// pass selects which subtiles of each metatile are drawn.
type pass int

const (
	passBase     pass = iota // background slots, plus foreground of covered metatiles
	passStatic               // passBase without animated subtiles or the covered metatiles holding them
	passAnimated             // the rest of passBase
	passOverlay              // foreground slots of normal metatiles
)

// tileRange is a half-open rectangle of map tiles.
type tileRange struct {
	X0, Y0, X1, Y1 int
}

func (g *MapGraphics) fullRange() tileRange {
	return tileRange{0, 0, g.TilesX, g.TilesY}
}

// visibleRange is the tiles a camera at (camX, camY) can see.
func (g *MapGraphics) visibleRange(camX, camY, viewW, viewH int) tileRange {
	ts := g.TileSize
	x0, y0 := floorDiv(camX, ts), floorDiv(camY, ts)
	r := tileRange{
		X0: max(0, x0),
		Y0: max(0, y0),
		X1: min(g.TilesX, x0+ceilDiv(viewW, ts)+1),
		Y1: min(g.TilesY, y0+ceilDiv(viewH, ts)+1),
	}
	return r
}

// appendPass records one compositing pass over r. originX/Y is the screen
// position of map pixel (0, 0). It reports false when an atlas was still
// loading, meaning the recorded ops contain placeholders that will change.
func (g *MapGraphics) appendPass(dl *DisplayList, p pass, layer Layer, r tileRange, originX, originY, tick int) bool {
	complete := true
	ts := g.TileSize
	half := ts / 2
	for y := r.Y0; y < r.Y1; y++ {
		for x := r.X0; x < r.X1; x++ {
			idx := y*g.TilesX + x
			if idx < 0 || idx >= len(g.Blocks) {
				continue
			}
			id := tileset.MetatileID(g.Blocks[idx])
			if id == tileset.EmptyMetatile {
				continue
			}
			mt, layerType, ok := g.Metatile(id)
			if !ok {
				continue
			}
			first, last := 0, 4
			switch {
			case p == passOverlay && layerType.Covered():
				continue
			case p == passOverlay:
				first, last = 4, 8
			case layerType.Covered():
				last = 8
			}
			// A covered metatile with any animated subtile is drawn whole by
			// the live pass so its foreground stays above the animation.
			live := layerType.Covered() && g.anyAnimated(mt)
			if p == passStatic && live {
				continue
			}
			bx, by := originX+x*ts, originY+y*ts
			for slot := first; slot < last; slot++ {
				e := mt[slot]
				anim := g.animated(e.TileIndex)
				if (p == passStatic && anim) || (p == passAnimated && !anim && !live) {
					continue
				}
				q := slot % 4
				op := DrawOp{
					Layer: layer,
					DX:    bx + (q%2)*half,
					DY:    by + (q/2)*half,
					Size:  half,
					MapX:  x,
					MapY:  y,
					Slot:  slot,
				}
				if !g.appendEntry(dl, op, e, tick, p != passStatic) {
					complete = false
				}
			}
		}
	}
	return complete
}

// appendEntry records the draw of one subtile: the live animation frame if the
// tile is animated, else the owning atlas, else a placeholder. It returns false
// if the owning atlas is still loading.
func (g *MapGraphics) appendEntry(dl *DisplayList, op DrawOp, e tileset.TileEntry, tick int, useAnim bool) bool {
	op.HFlip, op.VFlip = e.HFlip, e.VFlip
	if useAnim {
		if sheet, cols, cell, ok := g.animSet().Frame(e.TileIndex, e.Palette, tick); ok {
			op.Kind, op.Src = OpTile, sheet
			op.SX, op.SY = (cell%cols)*tileset.CellSize, (cell/cols)*tileset.CellSize
			dl.add(op)
			return true
		}
	}

	ts, sheets, owner, local := g.Primary, g.primarySheets, OwnerPrimary, e.TileIndex
	if e.Secondary() {
		ts, sheets, owner, local = g.Secondary, g.secondarySheets, OwnerSecondary, e.LocalIndex()
	}
	placeholder := func(o Owner) {
		op.Kind, op.Owner = OpPlaceholder, o
		dl.add(op)
	}
	if ts == nil || sheets == nil {
		placeholder(owner)
		return true
	}
	set, err := sheets.Result()
	if errors.Is(err, assets.ErrPending) {
		placeholder(owner)
		return false
	}
	if err != nil || set == nil || set.Cols == 0 || local >= set.Count {
		placeholder(owner)
		return true
	}
	sheet := set.For(e.Palette)
	if sheet == nil {
		placeholder(OwnerUnknown)
		return true
	}
	op.Kind, op.Src = OpTile, sheet
	op.SX, op.SY = (local%set.Cols)*tileset.CellSize, (local/set.Cols)*tileset.CellSize
	dl.add(op)
	return true
}

// RenderFull composites the whole map, both passes, at tick into a new bitmap.
// Used for offline export.
func (g *MapGraphics) RenderFull(tick int) *gfx.Bitmap {
	w, h := g.PixelSize()
	out := gfx.NewBitmap(w, h)
	out.Clear(g.Backdrop())
	var dl DisplayList
	g.appendPass(&dl, passBase, LayerBackground, g.fullRange(), 0, 0, tick)
	g.appendPass(&dl, passOverlay, LayerForeground, g.fullRange(), 0, 0, tick)
	dl.Draw(out)
	return out
}

// WaitReady blocks until every atlas and animation has settled.
func (g *MapGraphics) WaitReady(ctx context.Context) error {
	for _, f := range []*assets.Future[*SheetSet]{g.primarySheets, g.secondarySheets} {
		if f == nil {
			continue
		}
		select {
		case <-f.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if g.anims != nil {
		if _, err := g.anims.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
