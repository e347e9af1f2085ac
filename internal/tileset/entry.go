/*
Package tileset decodes the binary tileset format: metatile tables, metatile
attributes, map block data and the two palette file forms.

A metatile is 8 packed 16-bit tile entries, 4 background slots followed by 4
foreground slots, in top-left, top-right, bottom-left, bottom-right order. Each
entry is laid out as

	PPPP VHcc cccccccc
	P: palette index  V: vertical flip  H: horizontal flip  c: tile index

Tile indices below 640 address the primary atlas; the rest address the
secondary atlas at index-640. The same split applies to metatile ids in map
block data. Nothing in this package fails on malformed bits: out-of-range
values are clamped or reported as missing.
*/
package tileset

import "encoding/binary"

const (
	// PrimaryTiles is both the primary atlas tile count and the first
	// secondary metatile id.
	PrimaryTiles = 640

	TileIndexMask = 0x03ff
	HFlipBit      = 0x0400
	VFlipBit      = 0x0800

	// EmptyMetatile is the block value (all index bits set) for "draw nothing".
	EmptyMetatile = TileIndexMask

	SubtilesPerMetatile = 8

	NumPalsInPrimary = 7
	NumPalsTotal     = 13
	MaxPalettes      = 16
)

// TileEntry is one decoded subtile reference.
type TileEntry struct {
	TileIndex int // 0..1023
	HFlip     bool
	VFlip     bool
	Palette   int // 0..15
}

// DecodeTileEntry unpacks a 16-bit tile entry. Every input is valid.
func DecodeTileEntry(v uint16) TileEntry {
	return TileEntry{
		TileIndex: int(v & TileIndexMask),
		HFlip:     v&HFlipBit != 0,
		VFlip:     v&VFlipBit != 0,
		Palette:   int(v>>12) & 0x0f,
	}
}

// Encode packs the entry back into 16 bits.
func (e TileEntry) Encode() uint16 {
	v := uint16(e.TileIndex) & TileIndexMask
	if e.HFlip {
		v |= HFlipBit
	}
	if e.VFlip {
		v |= VFlipBit
	}
	return v | uint16(e.Palette&0x0f)<<12
}

// Secondary reports whether the entry addresses the secondary atlas.
func (e TileEntry) Secondary() bool {
	return e.TileIndex >= PrimaryTiles
}

// LocalIndex is the index within the owning atlas.
func (e TileEntry) LocalIndex() int {
	if e.Secondary() {
		return e.TileIndex - PrimaryTiles
	}
	return e.TileIndex
}

// Metatile is 8 subtile entries: [0:4] background, [4:8] foreground.
type Metatile [SubtilesPerMetatile]TileEntry

// LayerType is the 2-bit layer attribute of a metatile.
type LayerType uint8

const (
	LayerNormal  LayerType = 0
	LayerCovered LayerType = 1
	LayerSplit   LayerType = 2
)

// Covered reports whether all 8 slots belong to the background pass.
func (l LayerType) Covered() bool {
	return l == LayerCovered
}

// DecodeLayerType extracts bits 29-30 of a metatile attribute word.
func DecodeLayerType(attr uint32) LayerType {
	return LayerType((attr >> 29) & 0x3)
}

// DecodeMetatiles reads a metatiles.bin buffer. A trailing partial metatile is
// dropped.
func DecodeMetatiles(buf []byte) []Metatile {
	n := len(buf) / (SubtilesPerMetatile * 2)
	out := make([]Metatile, n)
	for i := 0; i < n; i++ {
		for s := 0; s < SubtilesPerMetatile; s++ {
			off := (i*SubtilesPerMetatile + s) * 2
			out[i][s] = DecodeTileEntry(binary.LittleEndian.Uint16(buf[off:]))
		}
	}
	return out
}

// DecodeAttributes reads a metatile_attributes.bin buffer of 32-bit words.
func DecodeAttributes(buf []byte) []LayerType {
	n := len(buf) / 4
	out := make([]LayerType, n)
	for i := 0; i < n; i++ {
		out[i] = DecodeLayerType(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

// DecodeBlocks reads map block data as little-endian 16-bit values.
func DecodeBlocks(buf []byte) []uint16 {
	n := len(buf) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint16(buf[i*2:])
	}
	return out
}

// MetatileID masks a block value down to its metatile id.
func MetatileID(block uint16) int {
	return int(block & TileIndexMask)
}
