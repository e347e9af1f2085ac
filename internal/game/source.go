package game

import (
	"context"
	"fmt"
	"path"

	"github.com/sirupsen/logrus"

	"overworld/internal/maps"
	"overworld/internal/render"
)

// MapSource loads maps for an engine.
type MapSource interface {
	// Load returns the map once its descriptor and binary data are in.
	// Tile atlases may still be loading.
	Load(ctx context.Context, mapID string) (*LoadedMap, error)
	// Size is a map's extent in tiles, for connection doors.
	Size(mapID string) (w, h int, ok bool)
	// Flag looks up a world flag.
	Flag(name string) bool
}

// CatalogSource serves maps from a catalog, with graphics from the asset tree.
type CatalogSource struct {
	Catalog  *maps.Catalog
	Graphics *render.GraphicsLoader
	Log      logrus.FieldLogger
}

// Load resolves a descriptor and its layout. Missing graphics are not an
// error: the map falls back to its flat image, or to a plain fill.
func (s *CatalogSource) Load(ctx context.Context, mapID string) (*LoadedMap, error) {
	d, err := s.Catalog.Get(mapID)
	if err != nil {
		if mapID != maps.DefaultMapID {
			return nil, err
		}
		d = maps.DefaultMap()
	}
	log := s.logger().WithField("map", d.ID)
	m := &LoadedMap{Descriptor: d, Dialogs: s.Catalog.Dialogs(d)}

	layout, hasLayout := s.Catalog.Layout(d)
	if hasLayout && layout.BlockdataPath != "" && s.Graphics != nil {
		primary, secondary := s.Catalog.Tilesets(d)
		g, err := s.Graphics.Load(ctx, d.ID, layout, primary, secondary, d.TileSize)
		switch {
		case err == nil:
			m.Graphics = g
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			log.WithError(err).Warn("map graphics unavailable, drawing flat")
		}
	}
	if d.Image != "" && m.Graphics == nil && s.Graphics != nil {
		p := path.Join(s.Graphics.Root, d.Image)
		img, err := s.Graphics.Loader.Image(p).Wait(ctx)
		if err != nil {
			log.WithField("path", p).WithError(err).Warn("map image unavailable")
		} else {
			m.Flat = img.Bitmap
		}
	}

	m.TilesX, m.TilesY = s.tiles(d, m)
	if m.TilesX <= 0 || m.TilesY <= 0 {
		return nil, fmt.Errorf("map %s has no size", d.ID)
	}
	return m, nil
}

func (s *CatalogSource) tiles(d *maps.Descriptor, m *LoadedMap) (int, int) {
	if w, h, ok := s.Catalog.Size(d.ID); ok {
		return w, h
	}
	if w, h, ok := d.Size(); ok {
		return w, h
	}
	if m.Graphics != nil {
		return m.Graphics.TilesX, m.Graphics.TilesY
	}
	if m.Flat != nil && d.TileSize > 0 {
		return m.Flat.W / d.TileSize, m.Flat.H / d.TileSize
	}
	return 0, 0
}

// Size implements MapSource.
func (s *CatalogSource) Size(mapID string) (int, int, bool) {
	return s.Catalog.Size(mapID)
}

// Flag implements MapSource.
func (s *CatalogSource) Flag(name string) bool {
	return s.Catalog.World().Flags[name]
}

func (s *CatalogSource) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}

// defaultLoadedMap is the built-in map used when nothing else loads.
func defaultLoadedMap() *LoadedMap {
	d := maps.DefaultMap()
	return &LoadedMap{Descriptor: d, TilesX: d.Width, TilesY: d.Height, Dialogs: map[string]maps.Dialog{}}
}

var _ MapSource = (*CatalogSource)(nil)

