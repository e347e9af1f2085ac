package tileset

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"

	"overworld/internal/gfx"
)

const jascHeader = "JASC-PAL"

// ParsePalette decodes a palette file in either JASC-PAL text form or raw
// RGB555 form. Missing or short data (nothing that yields a single colour)
// returns nil; partial palettes are padded with black to 16 entries.
func ParsePalette(data []byte) *gfx.Palette {
	if len(data) == 0 {
		return nil
	}
	text := strings.TrimSpace(strings.TrimPrefix(string(data), "\ufeff"))
	if strings.HasPrefix(text, jascHeader) {
		return parseJASC(text)
	}
	return parseRGB555(data)
}

// parseJASC reads "JASC-PAL", a version line, a colour count, then "R G B" lines.
func parseJASC(text string) *gfx.Palette {
	var p gfx.Palette
	sc := bufio.NewScanner(strings.NewReader(text))
	line := 0
	count := -1
	n := 0
	for sc.Scan() && n < gfx.ColorsPerPalette {
		l := strings.TrimSpace(sc.Text())
		line++
		switch {
		case line <= 2:
			continue
		case line == 3:
			if c, err := strconv.Atoi(l); err == nil {
				count = c
			}
			continue
		}
		if count >= 0 && n >= count {
			break
		}
		fields := strings.Fields(l)
		if len(fields) < 3 {
			continue
		}
		var rgb [3]uint8
		ok := true
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(fields[i])
			if err != nil {
				ok = false
				break
			}
			rgb[i] = clampByte(v)
		}
		if !ok {
			continue
		}
		p[n] = gfx.RGB{R: rgb[0], G: rgb[1], B: rgb[2]}
		n++
	}
	return &p
}

// parseRGB555 reads packed 0BBBBBGGGGGRRRRR little-endian colours.
func parseRGB555(data []byte) *gfx.Palette {
	count := len(data) / 2
	if count == 0 {
		return nil
	}
	if count > gfx.ColorsPerPalette {
		count = gfx.ColorsPerPalette
	}
	var p gfx.Palette
	for i := 0; i < count; i++ {
		p[i] = DecodeRGB555(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return &p
}

// DecodeRGB555 expands a 15-bit colour to 8 bits per channel, rounding to nearest.
func DecodeRGB555(v uint16) gfx.RGB {
	expand := func(c uint16) uint8 {
		return uint8((uint32(c&0x1f)*255 + 15) / 31)
	}
	return gfx.RGB{R: expand(v), G: expand(v >> 5), B: expand(v >> 10)}
}

// EncodeRGB555 packs a colour into 15 bits.
func EncodeRGB555(c gfx.RGB) uint16 {
	pack := func(v uint8) uint16 {
		return uint16((uint32(v)*31 + 127) / 255)
	}
	return pack(c.R) | pack(c.G)<<5 | pack(c.B)<<10
}

// FormatJASC renders a palette in JASC-PAL text form.
func FormatJASC(p *gfx.Palette) []byte {
	var b bytes.Buffer
	b.WriteString(jascHeader + "\r\n0100\r\n16\r\n")
	for _, c := range p {
		b.WriteString(strconv.Itoa(int(c.R)))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(int(c.G)))
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(int(c.B)))
		b.WriteString("\r\n")
	}
	return b.Bytes()
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// Bank is the 16 palettes available to a map.
type Bank [MaxPalettes]*gfx.Palette

// MergeBank assembles a map's bank from the primary and secondary tilesets'
// palette files. Slots 0-6 come from the primary, 7-12 from the secondary (same
// absolute slot numbers), missing slots fall back to slot 0 of their owner then
// to absolute slot 0, and 13-15 duplicate slot 0. The result never has a nil
// slot: with no palette data at all every slot is the gray ramp.
func MergeBank(primary, secondary Bank) Bank {
	var out Bank
	for i := 0; i < NumPalsInPrimary; i++ {
		out[i] = firstPalette(primary[i], primary[0])
	}
	for i := NumPalsInPrimary; i < NumPalsTotal; i++ {
		out[i] = firstPalette(secondary[i], secondary[NumPalsInPrimary], out[0])
	}
	for i := NumPalsTotal; i < MaxPalettes; i++ {
		out[i] = out[0]
	}

	fallback := out[0]
	if fallback == nil {
		for _, p := range out {
			if p != nil {
				fallback = p
				break
			}
		}
	}
	if fallback == nil {
		fallback = gfx.RampPalette()
	}
	for i := range out {
		if out[i] == nil {
			out[i] = fallback
		}
	}
	return out
}

// HasData reports whether any slot holds a palette.
func (b Bank) HasData() bool {
	for _, p := range b {
		if p != nil {
			return true
		}
	}
	return false
}

func firstPalette(ps ...*gfx.Palette) *gfx.Palette {
	for _, p := range ps {
		if p != nil {
			return p
		}
	}
	return nil
}
