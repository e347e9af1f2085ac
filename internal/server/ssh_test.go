package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overworld/internal/game"
	"overworld/internal/maps"
)

func move(d maps.Direction) game.Input {
	return game.Input{Action: game.ActionMove, Dir: d}
}

func act(a game.Action) game.Input {
	return game.Input{Action: a}
}

func click(col, row int) game.Input {
	return game.Input{Action: game.ActionSelectTile, X: col, Y: row}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []game.Input
		quit bool
	}{
		{"wasd", "wasd", []game.Input{move(maps.DirUp), move(maps.DirLeft), move(maps.DirDown), move(maps.DirRight)}, false},
		{"upper case", "W", []game.Input{move(maps.DirUp)}, false},
		{"arrows", "\x1b[A\x1b[B\x1b[C\x1b[D", []game.Input{move(maps.DirUp), move(maps.DirDown), move(maps.DirRight), move(maps.DirLeft)}, false},
		{"confirm", "z\r", []game.Input{act(game.ActionConfirm), act(game.ActionConfirm)}, false},
		{"lone escape cancels", "\x1b", []game.Input{act(game.ActionCancel)}, false},
		{"menu run select editor", "mr\tg", []game.Input{act(game.ActionMenu), act(game.ActionRun), act(game.ActionSelect), act(game.ActionEditor)}, false},
		{"quit keeps earlier input", "dq", []game.Input{move(maps.DirRight)}, true},
		{"ctrl-c", "\x03", nil, true},
		{"input after quit is ignored", "qw", nil, true},
		{"unknown keys", "1é", nil, false},
		{"left click", "\x1b[<0;10;5M", []game.Input{click(9, 4)}, false},
		{"release ignored", "\x1b[<0;10;5m", nil, false},
		{"right click ignored", "\x1b[<2;10;5M", nil, false},
		{"wheel ignored", "\x1b[<64;1;1M", nil, false},
		{"ctrl click", "\x1b[<16;3;4M", []game.Input{click(2, 3)}, false},
		{"click then key", "\x1b[<0;1;1Mw", []game.Input{click(0, 0), move(maps.DirUp)}, false},
		{"truncated report", "\x1b[<0;1", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, quit := parseInput([]byte(tt.data))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.quit, quit)
		})
	}
}

func TestTileClicks(t *testing.T) {
	now := time.Unix(100, 0)
	c := &tileClicks{now: func() time.Time { return now }}
	sel := func(x, y int) game.Input { return game.Input{Action: game.ActionSelectTile, X: x, Y: y} }
	dbl := func(x, y int) game.Input { return game.Input{Action: game.ActionDoubleTap, X: x, Y: y} }

	steps := []struct {
		name  string
		after time.Duration
		x, y  int
		want  []game.Input
	}{
		{"first click selects", 0, 3, 4, []game.Input{sel(3, 4)}},
		{"quick second click double taps", 200 * time.Millisecond, 3, 4, []game.Input{sel(3, 4), dbl(3, 4)}},
		{"third click starts over", 100 * time.Millisecond, 3, 4, []game.Input{sel(3, 4)}},
		{"other tile", 100 * time.Millisecond, 5, 4, []game.Input{sel(5, 4)}},
		{"too slow", time.Second, 5, 4, []game.Input{sel(5, 4)}},
	}
	for _, st := range steps {
		t.Run(st.name, func(t *testing.T) {
			now = now.Add(st.after)
			assert.Equal(t, st.want, c.resolve(st.x, st.y))
		})
	}
}

func TestCellToTile(t *testing.T) {
	// A 40x18 terminal leaves a 40x30 pixel map area: a 320x240 view at 1/8.
	view := game.ViewState{TileSize: 16, ViewportW: 320, ViewportH: 240, TilesX: 20, TilesY: 15}

	tests := []struct {
		name     string
		col, row int
		x, y     int
		ok       bool
	}{
		{"top left", 0, 0, 0, 0, true},
		{"centre", 20, 7, 10, 7, true},
		{"bottom right", 39, 14, 19, 14, true},
		{"hud rows", 5, 15, 0, 0, false},
		{"right of the terminal", 40, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y, ok := cellToTile(40, 18, tt.col, tt.row, view)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.x, x)
				assert.Equal(t, tt.y, y)
			}
		})
	}
}
