package game

import "math"

// Camera is the top-left map pixel of the view. It never goes negative: maps
// smaller than the view are centred by the renderer instead.
type Camera struct {
	X, Y int
}

// Follow centres the camera on an entity at pixel (px, py), clamped to the
// map.
func (c *Camera) Follow(px, py float64, tileSize, viewW, viewH, mapW, mapH int) {
	camX := px + float64(tileSize)/2 - float64(viewW)/2
	camY := py + float64(tileSize)/2 - float64(viewH)/2
	c.X = clamp(int(math.Round(camX)), 0, max(0, mapW-viewW))
	c.Y = clamp(int(math.Round(camY)), 0, max(0, mapH-viewH))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}

// ViewState describes the view for overlays and editors lining up with it.
type ViewState struct {
	TileSize  int    `json:"tileSize"`
	ViewportW int    `json:"viewportW"`
	ViewportH int    `json:"viewportH"`
	CameraX   int    `json:"cameraX"`
	CameraY   int    `json:"cameraY"`
	Scale     int    `json:"scale"`
	MapID     string `json:"mapId"`
	TilesX    int    `json:"tilesX"`
	TilesY    int    `json:"tilesY"`
}

// TileAt converts a pixel of the rendered view to the map tile under it. Maps
// smaller than the view are centred, as the renderer draws them.
func (v ViewState) TileAt(px, py int) (x, y int, ok bool) {
	if v.TileSize <= 0 || px < 0 || py < 0 || px >= v.ViewportW || py >= v.ViewportH {
		return 0, 0, false
	}
	mw, mh := v.TilesX*v.TileSize, v.TilesY*v.TileSize
	offX, offY := 0, 0
	if mw < v.ViewportW {
		offX = (v.ViewportW - mw) / 2
	}
	if mh < v.ViewportH {
		offY = (v.ViewportH - mh) / 2
	}
	mx, my := px-offX+v.CameraX, py-offY+v.CameraY
	if mx < 0 || my < 0 || mx >= mw || my >= mh {
		return 0, 0, false
	}
	return mx / v.TileSize, my / v.TileSize, true
}
