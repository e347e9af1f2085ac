package render

import "overworld/internal/gfx"

// BackgroundCache holds the static background of the current map, composited
// once over the whole map. Animated and foreground subtiles are not part of it.
type BackgroundCache struct {
	mapID   string
	source  *MapGraphics
	surface *gfx.Bitmap
	ready   bool

	// Builds counts completed rebuilds.
	Builds int
}

// Surface returns the cached background for g, building it when the map
// changed. ok is false while an atlas is still loading; the next call retries.
func (c *BackgroundCache) Surface(g *MapGraphics) (*gfx.Bitmap, bool) {
	if g == nil {
		return nil, false
	}
	if c.ready && c.mapID == g.MapID && c.source == g {
		return c.surface, true
	}
	c.Invalidate()

	var dl DisplayList
	if !g.appendPass(&dl, passStatic, LayerBackground, g.fullRange(), 0, 0, 0) {
		return nil, false
	}
	w, h := g.PixelSize()
	surface := gfx.NewBitmap(w, h)
	surface.Clear(g.Backdrop())
	dl.Draw(surface)

	c.mapID, c.source, c.surface, c.ready = g.MapID, g, surface, true
	c.Builds++
	return surface, true
}

// Invalidate drops the cached surface.
func (c *BackgroundCache) Invalidate() {
	c.mapID, c.source, c.surface, c.ready = "", nil, nil, false
}
