package render

import (
	"image/color"

	"overworld/internal/gfx"
	"overworld/internal/tileset"
)

// grayEpsilon is how far apart the channels of a pixel may be for it to still
// count as gray.
const grayEpsilon = 2

// maxKeyColours disables transparency keying for images that are clearly not
// indexed art.
const maxKeyColours = 64

// magicKeys are the conventional "transparent" colours, in preference order.
var magicKeys = []gfx.RGB{
	{0xff, 0x00, 0xff},
	{0xff, 0x00, 0x00},
	{0x00, 0xff, 0x00},
	{0x00, 0x00, 0xff},
	{0x00, 0x00, 0x00},
}

// GrayIndex maps a gray level to the nearest index of the ramp, preferring an
// exact match.
func GrayIndex(v uint8) int {
	best, bestDist := 0, 256
	for i, g := range gfx.GrayRamp {
		if g == v {
			return i
		}
		d := int(g) - int(v)
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// IsGrayscale reports whether every pixel is gray within grayEpsilon and fully
// opaque or fully transparent.
func IsGrayscale(b *gfx.Bitmap) bool {
	for i := 0; i+3 < len(b.Pix); i += 4 {
		r, g, bl, a := b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
		if a == 0 {
			continue
		}
		if a != 0xff {
			return false
		}
		if absDiff(r, g) > grayEpsilon || absDiff(g, bl) > grayEpsilon {
			return false
		}
	}
	return true
}

// Recolor remaps a gray-encoded bitmap through pal. Index 0 and transparent
// source pixels come out transparent.
func Recolor(src *gfx.Bitmap, pal *gfx.Palette) *gfx.Bitmap {
	out := gfx.NewBitmap(src.W, src.H)
	for i := 0; i+3 < len(src.Pix); i += 4 {
		if src.Pix[i+3] == 0 {
			continue
		}
		idx := GrayIndex(src.Pix[i])
		if idx == 0 {
			continue
		}
		c := pal[idx]
		out.Pix[i] = c.R
		out.Pix[i+1] = c.G
		out.Pix[i+2] = c.B
		out.Pix[i+3] = 0xff
	}
	return out
}

// GrayEncode writes indexed pixels as ramp grays; index 0 stays opaque so the
// result survives IsGrayscale. Out of range indices are clamped.
func GrayEncode(w, h int, indices []uint8) *gfx.Bitmap {
	out := gfx.NewBitmap(w, h)
	for i := 0; i < w*h && i < len(indices); i++ {
		idx := int(indices[i])
		if idx >= gfx.ColorsPerPalette {
			idx = gfx.ColorsPerPalette - 1
		}
		v := gfx.GrayRamp[idx]
		out.Pix[i*4] = v
		out.Pix[i*4+1] = v
		out.Pix[i*4+2] = v
		out.Pix[i*4+3] = 0xff
	}
	return out
}

// KeyTransparent returns a copy of b with the background colour made
// transparent. The key is chosen as the caller's key if present in the image,
// else the first magic colour present, else the dominant colour when it covers
// at least half the pixels. Images that already carry alpha, or have more
// than maxKeyColours colours, are returned unchanged.
func KeyTransparent(b *gfx.Bitmap, key *gfx.RGB) *gfx.Bitmap {
	counts := make(map[uint32]int)
	for i := 0; i+3 < len(b.Pix); i += 4 {
		if b.Pix[i+3] != 0xff {
			return b
		}
		c := gfx.RGB{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2]}.Key()
		counts[c]++
		if len(counts) > maxKeyColours {
			return b
		}
	}

	chosen, found := uint32(0), false
	if key != nil && counts[key.Key()] > 0 {
		chosen, found = key.Key(), true
	}
	for _, m := range magicKeys {
		if found {
			break
		}
		if counts[m.Key()] > 0 {
			chosen, found = m.Key(), true
		}
	}
	if !found {
		best, bestCount := uint32(0), 0
		for c, n := range counts {
			if n > bestCount || (n == bestCount && c < best) {
				best, bestCount = c, n
			}
		}
		if bestCount*2 < b.W*b.H || bestCount == 0 {
			return b
		}
		chosen = best
	}

	out := b.Clone()
	for i := 0; i+3 < len(out.Pix); i += 4 {
		c := gfx.RGB{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2]}.Key()
		if c == chosen {
			out.Pix[i+3] = 0
		}
	}
	return out
}

// SheetSet is an atlas ready for drawing: one recoloured sheet per bank
// palette, or a single keyed sheet when the atlas was not gray-encoded.
type SheetSet struct {
	Sheets [tileset.MaxPalettes]*gfx.Bitmap
	Raw    *gfx.Bitmap
	Cols   int // 8x8 cells per row
	Count  int // total 8x8 cells
}

// For returns the sheet to sample for a palette index.
func (s *SheetSet) For(pal int) *gfx.Bitmap {
	if s == nil {
		return nil
	}
	if pal >= 0 && pal < len(s.Sheets) && s.Sheets[pal] != nil {
		return s.Sheets[pal]
	}
	if s.Sheets[0] != nil {
		return s.Sheets[0]
	}
	return s.Raw
}

// Cost approximates the memory held, in bytes.
func (s *SheetSet) Cost() int64 {
	var n int64
	seen := make(map[*gfx.Bitmap]bool)
	for _, b := range append(s.Sheets[:], s.Raw) {
		if b != nil && !seen[b] {
			seen[b] = true
			n += int64(len(b.Pix))
		}
	}
	return n
}

// BuildSheets composites an atlas for every palette of a bank. Palettes shared
// between slots are recoloured once. Non-gray atlases fall back to a keyed copy.
func BuildSheets(img *gfx.DecodedImage, bank tileset.Bank, key *gfx.RGB) *SheetSet {
	src := img.Bitmap
	set := &SheetSet{
		Cols:  src.W / tileset.CellSize,
		Count: (src.W / tileset.CellSize) * (src.H / tileset.CellSize),
	}
	if !IsGrayscale(src) || !bank.HasData() {
		set.Raw = KeyTransparent(src, key)
		return set
	}
	done := make(map[*gfx.Palette]*gfx.Bitmap)
	for i, pal := range bank {
		if pal == nil {
			pal = bank[0]
		}
		if pal == nil {
			continue
		}
		if sheet, ok := done[pal]; ok {
			set.Sheets[i] = sheet
			continue
		}
		sheet := Recolor(src, pal)
		done[pal] = sheet
		set.Sheets[i] = sheet
	}
	set.Raw = src
	return set
}

// placeholder tints, by which atlas was expected to own the tile.
var (
	placeholderFill = map[Owner]color.NRGBA{
		OwnerPrimary:   {100, 100, 100, 77},
		OwnerSecondary: {150, 100, 50, 77},
		OwnerUnknown:   {200, 50, 50, 77},
	}
	placeholderStroke = color.NRGBA{0, 0, 0, 51}
	placeholderCross  = color.NRGBA{255, 255, 255, 77}
)

func drawPlaceholder(dst *gfx.Bitmap, owner Owner, x, y, size int) {
	dst.Fill(x, y, size, size, placeholderFill[owner])
	dst.StrokeRect(x, y, size, size, placeholderStroke)
	if size >= 4 {
		dst.Line(x, y, x+size-1, y+size-1, placeholderCross)
		dst.Line(x+size-1, y, x, y+size-1, placeholderCross)
	}
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}
