package gfx

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cellWithMarker() *Bitmap {
	// 8x8 cell, top-left pixel red, everything else opaque white
	src := NewBitmap(8, 8)
	src.Clear(color.NRGBA{255, 255, 255, 255})
	src.SetRGBA(0, 0, 255, 0, 0, 255)
	return src
}

func TestBlitFlips(t *testing.T) {
	tests := []struct {
		name         string
		hflip, vflip bool
		wantX, wantY int
	}{
		{"none", false, false, 0, 0},
		{"hflip", true, false, 7, 0},
		{"vflip", false, true, 0, 7},
		{"both", true, true, 7, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := NewBitmap(8, 8)
			Blit(dst, cellWithMarker(), 0, 0, 8, 0, 0, 8, tt.hflip, tt.vflip)
			r, g, b, a := dst.RGBAAt(tt.wantX, tt.wantY)
			assert.Equal(t, [4]uint8{255, 0, 0, 255}, [4]uint8{r, g, b, a})
		})
	}
}

func TestBlitScalesDown(t *testing.T) {
	dst := NewBitmap(4, 4)
	Blit(dst, cellWithMarker(), 0, 0, 8, 0, 0, 4, false, false)
	r, g, _, _ := dst.RGBAAt(0, 0)
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(0), g)
	_, g, _, _ = dst.RGBAAt(1, 0)
	assert.Equal(t, uint8(255), g, "second column samples source x=2")
}

func TestBlitSkipsTransparent(t *testing.T) {
	dst := NewBitmap(8, 8)
	dst.Clear(color.NRGBA{0, 0, 255, 255})
	src := NewBitmap(8, 8)
	Blit(dst, src, 0, 0, 8, 0, 0, 8, false, false)
	_, _, b, a := dst.RGBAAt(3, 3)
	assert.Equal(t, uint8(255), b)
	assert.Equal(t, uint8(255), a)
}

func TestFillBlendsTranslucent(t *testing.T) {
	dst := NewBitmap(1, 1)
	dst.Clear(color.NRGBA{0, 0, 0, 255})
	dst.Fill(0, 0, 1, 1, color.NRGBA{255, 255, 255, 128})
	r, _, _, a := dst.RGBAAt(0, 0)
	assert.InDelta(t, 128, int(r), 2)
	assert.Equal(t, uint8(255), a)
}

func TestPNGRoundTrip(t *testing.T) {
	src := cellWithMarker()
	data, err := EncodePNG(src)
	require.NoError(t, err)
	dec, err := DecodePNG(data)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, dec.Bitmap.Pix)
	assert.Nil(t, dec.Key, "non-paletted PNG has no key colour")
}

func TestScale(t *testing.T) {
	out := Scale(cellWithMarker(), 2)
	require.Equal(t, 16, out.W)
	r, g, _, _ := out.RGBAAt(1, 1)
	assert.Equal(t, uint8(255), r)
	assert.Equal(t, uint8(0), g)
}
