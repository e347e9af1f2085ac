// Package gfx holds the renderer-independent pixel types: an in-memory RGBA
// bitmap, 16-colour palettes and the blit primitives the compositors use.
package gfx

import (
	"image"
	"image/color"
)

// RGB is an opaque colour.
type RGB struct {
	R, G, B uint8
}

// NRGBA returns the colour as an opaque color.NRGBA.
func (c RGB) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Key packs the colour into 24 bits for counting and comparisons.
func (c RGB) Key() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Bitmap is a width x height RGBA surface, 4 bytes per pixel, non-premultiplied.
// It satisfies draw.Image so it can be handed to image/png and x/image/draw.
type Bitmap struct {
	W, H int
	Pix  []byte
}

// NewBitmap allocates a fully transparent bitmap.
func NewBitmap(w, h int) *Bitmap {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Bitmap{W: w, H: h, Pix: make([]byte, w*h*4)}
}

// FromImage copies any image.Image into a new bitmap.
func FromImage(img image.Image) *Bitmap {
	b := img.Bounds()
	bm := NewBitmap(b.Dx(), b.Dy())
	for y := 0; y < bm.H; y++ {
		for x := 0; x < bm.W; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			i := (y*bm.W + x) * 4
			bm.Pix[i] = c.R
			bm.Pix[i+1] = c.G
			bm.Pix[i+2] = c.B
			bm.Pix[i+3] = c.A
		}
	}
	return bm
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	out := &Bitmap{W: b.W, H: b.H, Pix: make([]byte, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// ColorModel implements image.Image.
func (b *Bitmap) ColorModel() color.Model { return color.NRGBAModel }

// Bounds implements image.Image.
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.W, b.H) }

// At implements image.Image.
func (b *Bitmap) At(x, y int) color.Color {
	if !b.in(x, y) {
		return color.NRGBA{}
	}
	i := (y*b.W + x) * 4
	return color.NRGBA{R: b.Pix[i], G: b.Pix[i+1], B: b.Pix[i+2], A: b.Pix[i+3]}
}

// Set implements draw.Image.
func (b *Bitmap) Set(x, y int, c color.Color) {
	if !b.in(x, y) {
		return
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	i := (y*b.W + x) * 4
	b.Pix[i] = n.R
	b.Pix[i+1] = n.G
	b.Pix[i+2] = n.B
	b.Pix[i+3] = n.A
}

// RGBAAt returns the raw channels at (x, y); out of range reads are transparent.
func (b *Bitmap) RGBAAt(x, y int) (r, g, bl, a uint8) {
	if !b.in(x, y) {
		return 0, 0, 0, 0
	}
	i := (y*b.W + x) * 4
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]
}

// SetRGBA writes raw channels at (x, y).
func (b *Bitmap) SetRGBA(x, y int, r, g, bl, a uint8) {
	if !b.in(x, y) {
		return
	}
	i := (y*b.W + x) * 4
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
	b.Pix[i+3] = a
}

func (b *Bitmap) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.W && y < b.H
}

// blend composites one source pixel over the destination.
func (b *Bitmap) blend(x, y int, r, g, bl, a uint8) {
	if a == 0 || !b.in(x, y) {
		return
	}
	i := (y*b.W + x) * 4
	if a == 0xff {
		b.Pix[i] = r
		b.Pix[i+1] = g
		b.Pix[i+2] = bl
		b.Pix[i+3] = 0xff
		return
	}
	sa := uint32(a)
	da := uint32(b.Pix[i+3])
	inv := 255 - sa
	outA := sa + da*inv/255
	if outA == 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa + uint32(d)*da*inv/255) / outA)
	}
	b.Pix[i] = mix(r, b.Pix[i])
	b.Pix[i+1] = mix(g, b.Pix[i+1])
	b.Pix[i+2] = mix(bl, b.Pix[i+2])
	b.Pix[i+3] = uint8(outA)
}

// Fill paints a rectangle with a colour, blending when alpha < 255.
func (b *Bitmap) Fill(x, y, w, h int, c color.NRGBA) {
	x0, y0 := max(x, 0), max(y, 0)
	x1, y1 := min(x+w, b.W), min(y+h, b.H)
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			b.blend(xx, yy, c.R, c.G, c.B, c.A)
		}
	}
}

// Clear overwrites every pixel with c (no blending).
func (b *Bitmap) Clear(c color.NRGBA) {
	for i := 0; i < len(b.Pix); i += 4 {
		b.Pix[i] = c.R
		b.Pix[i+1] = c.G
		b.Pix[i+2] = c.B
		b.Pix[i+3] = c.A
	}
}

// Line draws a 1px line with Bresenham stepping.
func (b *Bitmap) Line(x0, y0, x1, y1 int, c color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		b.blend(x0, y0, c.R, c.G, c.B, c.A)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// StrokeRect outlines a rectangle.
func (b *Bitmap) StrokeRect(x, y, w, h int, c color.NRGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	b.Fill(x, y, w, 1, c)
	b.Fill(x, y+h-1, w, 1, c)
	b.Fill(x, y+1, 1, h-2, c)
	b.Fill(x+w-1, y+1, 1, h-2, c)
}

// Blit copies a cell x cell square from src at (sx, sy) into a size x size
// square of dst at (dx, dy), nearest-neighbour scaled and optionally mirrored.
// Transparent source pixels are skipped.
func Blit(dst, src *Bitmap, sx, sy, cell, dx, dy, size int, hflip, vflip bool) {
	if dst == nil || src == nil || cell <= 0 || size <= 0 {
		return
	}
	for j := 0; j < size; j++ {
		v := j * cell / size
		if vflip {
			v = cell - 1 - v
		}
		for i := 0; i < size; i++ {
			u := i * cell / size
			if hflip {
				u = cell - 1 - u
			}
			r, g, bl, a := src.RGBAAt(sx+u, sy+v)
			dst.blend(dx+i, dy+j, r, g, bl, a)
		}
	}
}

// BlitRect copies a w x h region 1:1, clipping against both surfaces.
func BlitRect(dst, src *Bitmap, sx, sy, w, h, dx, dy int) {
	if dst == nil || src == nil {
		return
	}
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			r, g, bl, a := src.RGBAAt(sx+i, sy+j)
			dst.blend(dx+i, dy+j, r, g, bl, a)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
