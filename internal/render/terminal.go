package render

import (
	"fmt"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"

	"overworld/internal/gfx"
)

// Terminal control sequences.
const (
	CSI              = "\x1b["
	Reset            = CSI + "0m"
	ClearScreen      = CSI + "2J"
	HideCursor       = CSI + "?25l"
	ShowCursor       = CSI + "?25h"
	EnableAltScreen  = CSI + "?1049h"
	DisableAltScreen = CSI + "?1049l"
	// Button-press reporting in SGR encoding: ESC [ < b ; col ; row M.
	EnableMouse  = CSI + "?1000h" + CSI + "?1006h"
	DisableMouse = CSI + "?1006l" + CSI + "?1000l"
)

// moveTo positions the cursor at row, col (1-based).
func moveTo(sb *strings.Builder, row, col int) {
	sb.WriteString(CSI)
	sb.WriteString(strconv.Itoa(row))
	sb.WriteByte(';')
	sb.WriteString(strconv.Itoa(col))
	sb.WriteByte('H')
}

// writeCell writes a cell's full SGR and character. Every cell resets the
// attributes so no state leaks between cells.
func writeCell(sb *strings.Builder, c Cell) {
	if c.Bold {
		sb.WriteString(CSI + "0;1;38;2;")
	} else {
		sb.WriteString(CSI + "0;38;2;")
	}
	for i, v := range [6]uint8{c.FgR, c.FgG, c.FgB, c.BgR, c.BgG, c.BgB} {
		switch i {
		case 0:
		case 3:
			sb.WriteString(";48;2;")
		default:
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.Itoa(int(v)))
	}
	sb.WriteByte('m')
	sb.WriteRune(c.Ch)
}

// HUDRows is the number of terminal rows reserved below the map.
const HUDRows = 3

// Cell represents a single terminal cell with full RGB color.
type Cell struct {
	Ch            rune
	FgR, FgG, FgB uint8
	BgR, BgG, BgB uint8
	Bold          bool
}

var sentinel = Cell{Ch: '\x00', FgR: 255, BgB: 255, Bold: true}

// HUD is the text shown around the map.
type HUD struct {
	MapName      string
	TileX, TileY int
	Online       int
	Message      string
	Menu         []string
}

// Terminal is a per-session double-buffer diff renderer that prints frames as
// half-block cells, two pixels per cell.
type Terminal struct {
	width, height int
	current       [][]Cell
	next          [][]Cell
	firstFrame    bool
}

// NewTerminal creates a renderer for the given terminal dimensions.
func NewTerminal(width, height int) *Terminal {
	t := &Terminal{}
	t.Resize(width, height)
	return t
}

// Resize adjusts the renderer for a new terminal size and forces a full redraw.
func (t *Terminal) Resize(width, height int) {
	t.width = max(0, width)
	t.height = max(0, height)
	t.current = t.makeBuffer(sentinel)
	t.next = t.makeBuffer(Cell{})
	t.firstFrame = true
}

// Size returns the terminal dimensions.
func (t *Terminal) Size() (w, h int) {
	return t.width, t.height
}

// MapArea is the pixel size a frame should have to fill the map area without
// scaling: one pixel per column, two per row.
func (t *Terminal) MapArea() (w, h int) {
	return t.width, max(0, t.height-HUDRows) * 2
}

func (t *Terminal) makeBuffer(fill Cell) [][]Cell {
	buf := make([][]Cell, t.height)
	for y := range buf {
		buf[y] = make([]Cell, t.width)
		for x := range buf[y] {
			buf[y][x] = fill
		}
	}
	return buf
}

// Frame produces the ANSI output that turns the previous frame into this one.
func (t *Terminal) Frame(img *gfx.Bitmap, hud HUD) string {
	bg := Cell{Ch: ' ', BgR: 10, BgG: 10, BgB: 15}
	for y := range t.next {
		for x := range t.next[y] {
			t.next[y][x] = bg
		}
	}

	t.drawImage(img)
	if len(hud.Menu) > 0 {
		t.drawBox(1, hud.Menu)
	}
	if hud.Message != "" {
		lines := wrap(hud.Message, t.width-4)
		t.drawBox(t.height-HUDRows-len(lines)-2, lines)
	}
	t.drawHUD(hud)
	return t.flush()
}

// drawImage fits img into the map area, keeping its aspect ratio.
func (t *Terminal) drawImage(img *gfx.Bitmap) {
	if img == nil {
		return
	}
	areaW, areaH := t.MapArea()
	tw, th, ox, oy, ok := fitImage(areaW, areaH, img.W, img.H)
	if !ok {
		return
	}
	fitted := img
	if tw != img.W || th != img.H {
		fitted = gfx.NewBitmap(tw, th)
		xdraw.NearestNeighbor.Scale(fitted, fitted.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	}

	for row := 0; row < areaH/2; row++ {
		for col := 0; col < areaW; col++ {
			tr, tg, tb, ta := fitted.RGBAAt(col-ox, row*2-oy)
			br, bgc, bb, ba := fitted.RGBAAt(col-ox, row*2+1-oy)
			if ta == 0 && ba == 0 {
				continue
			}
			t.next[row][col] = Cell{Ch: '▀', FgR: tr, FgG: tg, FgB: tb, BgR: br, BgG: bgc, BgB: bb}
		}
	}
}

// fitImage scales an imgW x imgH image into the map area keeping its aspect
// ratio. ox, oy place it in area pixels; oy is even so rows align with cells.
func fitImage(areaW, areaH, imgW, imgH int) (tw, th, ox, oy int, ok bool) {
	if imgW <= 0 || imgH <= 0 || areaW <= 0 || areaH <= 0 {
		return 0, 0, 0, 0, false
	}
	scale := min(float64(areaW)/float64(imgW), float64(areaH)/float64(imgH))
	tw, th = max(1, int(float64(imgW)*scale)), max(1, int(float64(imgH)*scale))
	return tw, th, (areaW - tw) / 2, ((areaH - th) / 2) &^ 1, true
}

// CellToImage maps a 0-based terminal cell of a width x height terminal to
// the pixel of an imgW x imgH frame drawn in its top half-block.
func CellToImage(width, height, col, row, imgW, imgH int) (x, y int, ok bool) {
	areaW, areaH := width, max(0, height-HUDRows)*2
	tw, th, ox, oy, ok := fitImage(areaW, areaH, imgW, imgH)
	if !ok {
		return 0, 0, false
	}
	fx, fy := col-ox, row*2-oy
	if fx < 0 || fy < 0 || fx >= tw || fy >= th {
		return 0, 0, false
	}
	return fx * imgW / tw, fy * imgH / th, true
}

// drawBox draws a bordered text box at row, centred horizontally.
func (t *Terminal) drawBox(row int, lines []string) {
	inner := 0
	for _, l := range lines {
		inner = max(inner, len([]rune(l)))
	}
	boxW := min(inner+4, t.width)
	boxX := max(0, (t.width-boxW)/2)
	row = max(0, row)

	borderR, borderG, borderB := uint8(200), uint8(180), uint8(120)
	bgR, bgG, bgB := uint8(30), uint8(25), uint8(45)
	textR, textG, textB := uint8(240), uint8(230), uint8(200)

	setCell := func(x, y int, ch rune, fr, fg, fb uint8) {
		if x >= 0 && x < t.width && y >= 0 && y < t.height {
			t.next[y][x] = Cell{Ch: ch, FgR: fr, FgG: fg, FgB: fb, BgR: bgR, BgG: bgG, BgB: bgB}
		}
	}

	for i := 0; i < boxW; i++ {
		top, bottom := '─', '─'
		switch i {
		case 0:
			top, bottom = '┌', '└'
		case boxW - 1:
			top, bottom = '┐', '┘'
		}
		setCell(boxX+i, row, top, borderR, borderG, borderB)
		setCell(boxX+i, row+len(lines)+1, bottom, borderR, borderG, borderB)
	}
	for j, l := range lines {
		y := row + 1 + j
		for i := 0; i < boxW; i++ {
			setCell(boxX+i, y, ' ', textR, textG, textB)
		}
		setCell(boxX, y, '│', borderR, borderG, borderB)
		setCell(boxX+boxW-1, y, '│', borderR, borderG, borderB)
		for i, r := range []rune(l) {
			if i >= boxW-4 {
				break
			}
			setCell(boxX+2+i, y, r, textR, textG, textB)
		}
	}
}

func (t *Terminal) drawHUD(hud HUD) {
	hudY := t.height - HUDRows
	if hudY < 0 {
		return
	}
	bgR, bgG, bgB := uint8(15), uint8(18), uint8(30)

	for x := 0; x < t.width; x++ {
		shade := uint8(60 - x*40/max(t.width, 1))
		t.next[hudY][x] = Cell{Ch: '━', FgR: 40 + shade, FgG: 70 + shade, FgB: 90 + shade, BgR: bgR, BgG: bgG, BgB: bgB}
	}
	for row := 1; row < HUDRows; row++ {
		for x := 0; x < t.width; x++ {
			t.next[hudY+row][x] = Cell{Ch: ' ', BgR: bgR, BgG: bgG, BgB: bgB}
		}
	}

	col := t.writeText(hudY+1, 1, hud.MapName, 230, 220, 160, bgR, bgG, bgB, true)
	col = t.writeText(hudY+1, col, "  │  ", 60, 65, 85, bgR, bgG, bgB, false)
	col = t.writeText(hudY+1, col, fmt.Sprintf("(%d,%d)", hud.TileX, hud.TileY), 180, 180, 195, bgR, bgG, bgB, false)
	if hud.Online > 0 {
		col = t.writeText(hudY+1, col, "  │  ", 60, 65, 85, bgR, bgG, bgB, false)
		t.writeText(hudY+1, col, fmt.Sprintf("%d Online", hud.Online), 180, 180, 195, bgR, bgG, bgB, false)
	}
	if HUDRows > 2 {
		t.writeText(hudY+2, 1, "←↑↓→/WASD Move  │  Z/Enter Act  │  X Run  │  M Menu  │  Q Quit", 130, 130, 145, bgR, bgG, bgB, false)
	}
}

// writeText writes colored text at row from col. Returns the next column.
func (t *Terminal) writeText(row, col int, text string, fgR, fgG, fgB, bgR, bgG, bgB uint8, bold bool) int {
	for _, r := range text {
		if col >= t.width {
			break
		}
		if row >= 0 && row < t.height && col >= 0 {
			t.next[row][col] = Cell{Ch: r, FgR: fgR, FgG: fgG, FgB: fgB, BgR: bgR, BgG: bgG, BgB: bgB, Bold: bold}
		}
		col++
	}
	return col
}

// flush diffs current against next, emits only changed cells and swaps.
func (t *Terminal) flush() string {
	var sb strings.Builder
	sb.Grow(16384)

	lastRow, lastCol := -1, -1
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			nc := t.next[y][x]
			if t.firstFrame || nc != t.current[y][x] {
				if y != lastRow || x != lastCol {
					moveTo(&sb, y+1, x+1)
				}
				writeCell(&sb, nc)
				lastRow = y
				lastCol = x + 1
			}
		}
	}
	if sb.Len() > 0 {
		sb.WriteString(Reset)
	}

	t.current, t.next = t.next, t.current
	t.firstFrame = false
	return sb.String()
}

// wrap splits text into lines of at most width runes, on spaces and newlines.
func wrap(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len([]rune(line))+1+len([]rune(word)) <= width:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		out = append(out, line)
	}
	return out
}
