package tileset

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Kind distinguishes the two tilesets a map references.
type Kind int

const (
	Primary Kind = iota
	Secondary
)

func (k Kind) String() string {
	if k == Secondary {
		return "secondary"
	}
	return "primary"
}

// CellSize is the edge of one atlas cell in pixels.
const CellSize = 8

// Tileset is the decoded binary part of a tileset: metatile table, layer
// attributes and palette files. It is immutable once assembled. The atlas image
// is loaded and composited separately by the renderer.
type Tileset struct {
	Name      string
	Kind      Kind
	Paths     Paths
	Metatiles []Metatile
	Layers    []LayerType
	Palettes  Bank
}

// Metatile returns the local metatile, or false if the table is too short.
func (t *Tileset) Metatile(local int) (Metatile, bool) {
	if t == nil || local < 0 || local >= len(t.Metatiles) {
		return Metatile{}, false
	}
	return t.Metatiles[local], true
}

// LayerType of a local metatile; missing attributes read as normal.
func (t *Tileset) LayerType(local int) LayerType {
	if t == nil || local < 0 || local >= len(t.Layers) {
		return LayerNormal
	}
	return t.Layers[local]
}

// Assemble builds a tileset from raw files. palettes holds up to 16 palette
// files, nil for absent ones.
func Assemble(name string, kind Kind, metatiles, attrs []byte, palettes [][]byte) *Tileset {
	ts := &Tileset{
		Name:      name,
		Kind:      kind,
		Metatiles: DecodeMetatiles(metatiles),
		Layers:    DecodeAttributes(attrs),
	}
	for i := 0; i < len(palettes) && i < MaxPalettes; i++ {
		ts.Palettes[i] = ParsePalette(palettes[i])
	}
	return ts
}

var (
	reAcronym    = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	reCamel      = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	reAlphaDigit = regexp.MustCompile(`([a-zA-Z])([0-9])`)
	reDigitAlpha = regexp.MustCompile(`([0-9])([a-zA-Z])`)
)

// tilesFolderOverrides lists tilesets whose atlas and palettes live in a
// different folder from their metatile tables.
var tilesFolderOverrides = map[string]string{
	"gTileset_SilphCo": "condominiums",
}

// FolderName converts a tileset symbol like gTileset_PalletTown to its
// directory name, pallet_town.
func FolderName(name string) string {
	base := strings.TrimPrefix(name, "gTileset_")
	base = reAcronym.ReplaceAllString(base, "${1}_${2}")
	base = reCamel.ReplaceAllString(base, "${1}_${2}")
	base = reAlphaDigit.ReplaceAllString(base, "${1}_${2}")
	base = reDigitAlpha.ReplaceAllString(base, "${1}_${2}")
	return strings.ToLower(base)
}

// Paths are the conventional asset locations of one tileset.
type Paths struct {
	Tiles       string
	Metatiles   string
	Attributes  string
	PalettesDir string
	AnimDir     string
}

// PathsFor returns the asset paths of a tileset under root, or false for an
// empty name.
func PathsFor(root, name string, kind Kind) (Paths, bool) {
	folder := FolderName(name)
	if folder == "" {
		return Paths{}, false
	}
	tilesFolder := folder
	if o, ok := tilesFolderOverrides[name]; ok {
		tilesFolder = o
	}
	base := path.Join(root, "data", "tilesets", kind.String(), folder)
	tilesBase := path.Join(root, "data", "tilesets", kind.String(), tilesFolder)
	return Paths{
		Tiles:       path.Join(tilesBase, "tiles.png"),
		Metatiles:   path.Join(base, "metatiles.bin"),
		Attributes:  path.Join(base, "metatile_attributes.bin"),
		PalettesDir: path.Join(tilesBase, "palettes"),
		AnimDir:     path.Join(base, "anim"),
	}, true
}

// AnimFramePath is the path of frame i of the named tile animation.
func (p Paths) AnimFramePath(anim string, i int) string {
	return path.Join(p.AnimDir, anim, fmt.Sprintf("%d.png", i))
}

// PalettePath is the path of palette slot i.
func (p Paths) PalettePath(i int) string {
	return path.Join(p.PalettesDir, fmt.Sprintf("%02d.pal", i))
}
