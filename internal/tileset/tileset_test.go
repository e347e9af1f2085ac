package tileset

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overworld/internal/gfx"
)

func TestDecodeTileEntryAllValues(t *testing.T) {
	for v := 0; v <= 0xffff; v++ {
		e := DecodeTileEntry(uint16(v))
		if e.TileIndex < 0 || e.TileIndex > 1023 || e.Palette < 0 || e.Palette > 15 {
			t.Fatalf("value %#04x decoded out of range: %+v", v, e)
		}
		if e.Encode() != uint16(v) {
			t.Fatalf("value %#04x re-encoded as %#04x", v, e.Encode())
		}
	}
}

func TestDecodeTileEntryFields(t *testing.T) {
	tests := []struct {
		name string
		v    uint16
		want TileEntry
	}{
		{"plain", 0x0001, TileEntry{TileIndex: 1}},
		{"hflip", 0x0401, TileEntry{TileIndex: 1, HFlip: true}},
		{"vflip", 0x0801, TileEntry{TileIndex: 1, VFlip: true}},
		{"palette 7 secondary", 0x7280, TileEntry{TileIndex: 640, Palette: 7}},
		{"all bits", 0xffff, TileEntry{TileIndex: 1023, HFlip: true, VFlip: true, Palette: 15}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeTileEntry(tt.v))
		})
	}
	assert.Equal(t, 0, DecodeTileEntry(0x0280).LocalIndex())
	assert.True(t, DecodeTileEntry(0x0280).Secondary())
}

func TestDecodeMetatilesDropsPartial(t *testing.T) {
	buf := make([]byte, 16*2+5)
	binary.LittleEndian.PutUint16(buf[0:], 0x0005)
	binary.LittleEndian.PutUint16(buf[14:], 0x0406)
	binary.LittleEndian.PutUint16(buf[16:], 0x1007)
	mts := DecodeMetatiles(buf)
	require.Len(t, mts, 2)
	assert.Equal(t, 5, mts[0][0].TileIndex)
	assert.True(t, mts[0][7].HFlip)
	assert.Equal(t, 1, mts[1][0].Palette)
}

func TestDecodeAttributes(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:], 0)
	binary.LittleEndian.PutUint32(buf[4:], 1<<29|0x1234)
	binary.LittleEndian.PutUint32(buf[8:], 2<<29)
	layers := DecodeAttributes(buf[:11])
	require.Len(t, layers, 2)
	assert.False(t, layers[0].Covered())
	assert.True(t, layers[1].Covered())
	assert.Equal(t, LayerSplit, DecodeAttributes(buf)[2])
}

func TestParsePaletteJASC(t *testing.T) {
	data := []byte("\ufeffJASC-PAL\r\n0100\r\n3\r\n255 0 0\r\n300 -5 12\r\n0 0 255\r\n9 9 9\r\n")
	p := ParsePalette(data)
	require.NotNil(t, p)
	assert.Equal(t, gfx.RGB{255, 0, 0}, p[0])
	assert.Equal(t, gfx.RGB{255, 0, 12}, p[1], "channels clamp to 0..255")
	assert.Equal(t, gfx.RGB{0, 0, 255}, p[2])
	assert.Equal(t, gfx.RGB{}, p[3], "entries past the declared count stay black")
	assert.Equal(t, gfx.RGB{}, p[15])
}

func TestParsePaletteRGB555(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:], 0x001f)
	binary.LittleEndian.PutUint16(buf[2:], 0x7fff)
	p := ParsePalette(buf)
	require.NotNil(t, p)
	assert.Equal(t, gfx.RGB{255, 0, 0}, p[0])
	assert.Equal(t, gfx.RGB{255, 255, 255}, p[1])
	assert.Equal(t, gfx.RGB{}, p[2])

	assert.Nil(t, ParsePalette(nil))
	assert.Nil(t, ParsePalette([]byte{0x1f}), "a single byte holds no colour")
}

func TestRGB555RoundTrip(t *testing.T) {
	for v := uint16(0); v < 0x8000; v += 7 {
		assert.Equal(t, v, EncodeRGB555(DecodeRGB555(v)))
	}
}

func TestFormatJASCParsesBack(t *testing.T) {
	p := gfx.RampPalette()
	p[3] = gfx.RGB{10, 20, 30}
	got := ParsePalette(FormatJASC(p))
	require.NotNil(t, got)
	assert.Equal(t, *p, *got)
}

func TestMergeBankIsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pal := func(n uint8) *gfx.Palette {
		p := &gfx.Palette{}
		p[1] = gfx.RGB{n, n, n}
		return p
	}
	for i := 0; i < 500; i++ {
		var primary, secondary Bank
		pm, sm := rng.Uint32(), rng.Uint32()
		if i == 0 {
			pm, sm = 0, 0
		}
		for s := 0; s < MaxPalettes; s++ {
			if pm&(1<<s) != 0 {
				primary[s] = pal(uint8(s))
			}
			if sm&(1<<s) != 0 {
				secondary[s] = pal(uint8(100 + s))
			}
		}
		out := MergeBank(primary, secondary)
		for s, p := range out {
			if p == nil {
				t.Fatalf("pattern %x/%x: slot %d is nil", pm, sm, s)
			}
		}
	}
}

func TestMergeBankRules(t *testing.T) {
	p0, p3 := &gfx.Palette{{R: 1}}, &gfx.Palette{{R: 3}}
	s7, s9 := &gfx.Palette{{R: 7}}, &gfx.Palette{{R: 9}}
	var primary, secondary Bank
	primary[0], primary[3] = p0, p3
	primary[9] = &gfx.Palette{{R: 99}}
	secondary[7], secondary[9] = s7, s9
	secondary[2] = &gfx.Palette{{R: 22}}

	out := MergeBank(primary, secondary)
	assert.Same(t, p0, out[0])
	assert.Same(t, p0, out[1], "missing primary slot falls back to primary slot 0")
	assert.Same(t, p3, out[3])
	assert.Same(t, s7, out[7])
	assert.Same(t, s7, out[8], "missing secondary slot falls back to secondary slot 7")
	assert.Same(t, s9, out[9], "secondary owns slots 7-12")
	assert.Same(t, p0, out[13])
	assert.Same(t, p0, out[15])

	empty := MergeBank(Bank{}, Bank{})
	assert.Equal(t, *gfx.RampPalette(), *empty[5])
}

func TestFolderName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"gTileset_PalletTown", "pallet_town"},
		{"gTileset_General", "general"},
		{"gTileset_SSAnne", "ss_anne"},
		{"gTileset_Route1", "route_1"},
		{"gTileset_MtEmber", "mt_ember"},
		{"gTileset_SeviiIslands123", "sevii_islands_123"},
		{"gTileset_PokemonCenter", "pokemon_center"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FolderName(tt.in))
		})
	}
}

func TestPathsFor(t *testing.T) {
	p, ok := PathsFor("assets", "gTileset_SilphCo", Secondary)
	require.True(t, ok)
	assert.Equal(t, "assets/data/tilesets/secondary/silph_co/metatiles.bin", p.Metatiles)
	assert.Equal(t, "assets/data/tilesets/secondary/condominiums/tiles.png", p.Tiles)
	assert.Equal(t, "assets/data/tilesets/secondary/condominiums/palettes/07.pal", p.PalettePath(7))
	assert.Equal(t, "assets/data/tilesets/secondary/silph_co/anim/fountain/3.png", p.AnimFramePath("fountain", 3))

	_, ok = PathsFor("assets", "", Primary)
	assert.False(t, ok)
}

func TestAssembleLookups(t *testing.T) {
	mt := make([]byte, 32)
	binary.LittleEndian.PutUint16(mt[16:], 0x0003)
	attrs := make([]byte, 4)
	binary.LittleEndian.PutUint32(attrs, 1<<29)
	ts := Assemble("gTileset_General", Primary, mt, attrs, [][]byte{nil, {0x1f, 0x00}})

	m, ok := ts.Metatile(1)
	require.True(t, ok)
	assert.Equal(t, 3, m[0].TileIndex)
	_, ok = ts.Metatile(2)
	assert.False(t, ok)
	assert.True(t, ts.LayerType(0).Covered())
	assert.Equal(t, LayerNormal, ts.LayerType(1), "missing attributes read as normal")
	assert.Nil(t, ts.Palettes[0])
	require.NotNil(t, ts.Palettes[1])
	assert.Equal(t, gfx.RGB{255, 0, 0}, ts.Palettes[1][0])

	var nilSet *Tileset
	_, ok = nilSet.Metatile(0)
	assert.False(t, ok)
}
