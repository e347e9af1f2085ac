package gfx

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"
)

// ColorsPerPalette is the fixed size of a hardware palette.
const ColorsPerPalette = 16

// Palette is exactly 16 colours; entry 0 is the transparent/backdrop colour.
type Palette [ColorsPerPalette]RGB

// GrayRamp is the descending gray level the art pipeline writes for each
// 4-bit palette index.
var GrayRamp = [ColorsPerPalette]uint8{255, 238, 222, 205, 189, 172, 156, 139, 115, 98, 82, 65, 49, 32, 16, 0}

// RampPalette returns the gray ramp itself as a palette. Used when a map has
// no palette data at all.
func RampPalette() *Palette {
	var p Palette
	for i, v := range GrayRamp {
		p[i] = RGB{v, v, v}
	}
	return &p
}

// DecodedImage is a decoded PNG plus its first palette entry when the file was
// stored paletted; that entry is the preferred transparency key.
type DecodedImage struct {
	Bitmap *Bitmap
	Key    *RGB
}

// DecodePNG decodes a PNG into a bitmap.
func DecodePNG(data []byte) (*DecodedImage, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	out := &DecodedImage{Bitmap: FromImage(img)}
	if pm, ok := img.(*image.Paletted); ok && len(pm.Palette) > 0 {
		r, g, b, _ := pm.Palette[0].RGBA()
		out.Key = &RGB{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
	}
	return out, nil
}

// EncodePNG writes the bitmap as PNG bytes.
func EncodePNG(b *Bitmap) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, b); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Scale returns a nearest-neighbour upscale of b by an integer factor.
func Scale(b *Bitmap, factor int) *Bitmap {
	if factor <= 1 {
		return b
	}
	out := NewBitmap(b.W*factor, b.H*factor)
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), b, b.Bounds(), xdraw.Src, nil)
	return out
}
