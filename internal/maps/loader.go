package maps

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// WorldFile is the name of the world file inside a maps directory. It is not
// loaded as a map.
const WorldFile = "world.json"

// Catalog holds every map descriptor of a world plus the shared world file and
// binary layouts. Descriptors are replaced wholesale by Apply, never mutated.
type Catalog struct {
	mu      sync.RWMutex
	maps    map[string]*Descriptor
	world   *World
	layouts map[string]Layout
}

// NewCatalog builds a catalog from already parsed parts.
func NewCatalog(world *World, layouts map[string]Layout, descs ...*Descriptor) *Catalog {
	if world == nil {
		world = &World{Flags: map[string]bool{}}
	}
	if layouts == nil {
		layouts = map[string]Layout{}
	}
	c := &Catalog{maps: make(map[string]*Descriptor), world: world, layouts: layouts}
	for _, d := range descs {
		c.maps[d.ID] = d
	}
	return c
}

// LoadCatalog scans dir for *.json map files, indexes them by id and reads the
// optional world file and layouts.json. A missing layouts file leaves every map
// without block data.
func LoadCatalog(fsys afero.Fs, dir, layoutsPath string) (*Catalog, error) {
	entries, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read maps directory: %w", err)
	}

	c := NewCatalog(nil, nil)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		p := path.Join(dir, entry.Name())
		data, err := afero.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if entry.Name() == WorldFile {
			w, err := ParseWorld(data)
			if err != nil {
				return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
			}
			c.world = w
			continue
		}
		d, err := ParseDescriptor(strings.TrimSuffix(entry.Name(), ".json"), data)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", entry.Name(), err)
		}
		if _, exists := c.maps[d.ID]; exists {
			return nil, fmt.Errorf("duplicate map id %q in %s", d.ID, entry.Name())
		}
		c.maps[d.ID] = d
	}

	if layoutsPath != "" {
		data, err := afero.ReadFile(fsys, layoutsPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read layouts: %w", err)
		default:
			if c.layouts, err = ParseLayouts(data); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Get returns the descriptor for id.
func (c *Catalog) Get(id string) (*Descriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.maps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMap, id)
	}
	return d, nil
}

// IDs lists map ids in sorted order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.maps))
	for id := range c.maps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// World returns the world file.
func (c *Catalog) World() *World {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.world
}

// StartMap picks the map a new session begins on: the world's active map if
// it exists, else the first map id, else the built-in default.
func (c *Catalog) StartMap() string {
	if w := c.World(); w.ActiveMapID != "" {
		if _, err := c.Get(w.ActiveMapID); err == nil {
			return w.ActiveMapID
		}
	}
	if ids := c.IDs(); len(ids) > 0 {
		return ids[0]
	}
	return DefaultMapID
}

// Layout returns the binary layout a descriptor points at.
func (c *Catalog) Layout(d *Descriptor) (Layout, bool) {
	if d == nil || d.Meta.LayoutID == "" {
		return Layout{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.layouts[d.Meta.LayoutID]
	return l, ok
}

// Tilesets resolves the primary and secondary tileset names of a map. Names
// in the layout win over the descriptor's meta block.
func (c *Catalog) Tilesets(d *Descriptor) (primary, secondary string) {
	l, _ := c.Layout(d)
	primary = firstNonEmpty(l.PrimaryTileset, d.Meta.PrimaryTileset)
	secondary = firstNonEmpty(l.SecondaryTileset, d.Meta.SecondaryTileset)
	return primary, secondary
}

// Size returns a map's extent in tiles from its descriptor or, failing that,
// its layout.
func (c *Catalog) Size(id string) (w, h int, ok bool) {
	d, err := c.Get(id)
	if err != nil {
		return 0, 0, false
	}
	if w, h, ok = d.Size(); ok {
		return w, h, true
	}
	if l, found := c.Layout(d); found && l.Width > 0 && l.Height > 0 {
		return l.Width, l.Height, true
	}
	return 0, 0, false
}

// Dialogs returns the world dialogs overlaid with the map's own, keyed by id.
func (c *Catalog) Dialogs(d *Descriptor) map[string]Dialog {
	w := c.World()
	out := make(map[string]Dialog, len(w.Dialogs))
	for _, dl := range w.Dialogs {
		out[dl.ID] = dl
	}
	if d != nil {
		for _, dl := range d.Dialogs {
			out[dl.ID] = dl
		}
	}
	return out
}

// Apply stores edits as a new descriptor revision. Sessions that load the map
// later see them.
func (c *Catalog) Apply(e Edits) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.maps[e.MapID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMap, e.MapID)
	}
	next := *d
	if e.Colliders != nil {
		next.Colliders = e.Colliders
	}
	if e.Events != nil {
		next.Events = e.Events
	}
	if e.Jumps != nil {
		next.Jumps = e.Jumps
	}
	if e.NPCs != nil {
		next.NPCs = e.NPCs
	}
	c.maps[e.MapID] = &next
	return nil
}

// Validate checks cross references: door targets, connection sizes, layouts
// and in-bounds placement. It returns every problem found.
func (c *Catalog) Validate() []error {
	var errs []error
	for _, id := range c.IDs() {
		d, _ := c.Get(id)
		w, h, sized := c.Size(id)
		if d.Meta.LayoutID != "" {
			if _, ok := c.Layout(d); !ok {
				errs = append(errs, fmt.Errorf("map %q: unknown layout %q", id, d.Meta.LayoutID))
			}
		}
		inBounds := func(x, y int) bool { return !sized || (x >= 0 && y >= 0 && x < w && y < h) }

		if d.Start.X != nil && d.Start.Y != nil && !inBounds(*d.Start.X, *d.Start.Y) {
			errs = append(errs, fmt.Errorf("map %q: start (%d,%d) out of bounds", id, *d.Start.X, *d.Start.Y))
		}
		for _, n := range d.NPCs {
			if !inBounds(n.X, n.Y) {
				errs = append(errs, fmt.Errorf("map %q: npc %q at (%d,%d) out of bounds", id, n.ID, n.X, n.Y))
			}
		}
		seen := make(map[string]bool, len(d.Events))
		for _, ev := range d.Events {
			if seen[ev.ID] {
				errs = append(errs, fmt.Errorf("map %q: duplicate event id %q", id, ev.ID))
			}
			seen[ev.ID] = true
			door, ok := ev.Action.(Door)
			if !ok {
				continue
			}
			target := firstNonEmpty(door.Target.MapID, id)
			if _, err := c.Get(target); err != nil {
				errs = append(errs, fmt.Errorf("map %q: door %q references unknown map %q", id, ev.ID, target))
				continue
			}
			if door.Target.Connection != nil {
				if _, _, ok := c.Size(target); !ok {
					errs = append(errs, fmt.Errorf("map %q: door %q connects to %q which has no size", id, ev.ID, target))
				}
			}
		}
	}
	return errs
}

// DefaultMapID is the id of the built-in fallback map.
const DefaultMapID = "default"

// DefaultMap returns a simple walled map used when nothing else loads.
func DefaultMap() *Descriptor {
	w, h := 20, 15
	return &Descriptor{
		ID:       DefaultMapID,
		Name:     "Default",
		TileSize: DefaultTileSize,
		Width:    w,
		Height:   h,
		Start:    *At(w/2, h/2, DirDown),
		Colliders: []Rect{
			{X: 0, Y: 0, W: w, H: 1},
			{X: 0, Y: h - 1, W: w, H: 1},
			{X: 0, Y: 0, W: 1, H: h},
			{X: w - 1, Y: 0, W: 1, H: h},
		},
	}
}
