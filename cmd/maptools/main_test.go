package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overworld/internal/gfx"
	"overworld/internal/maps"
)

func testMap() *maps.Descriptor {
	return &maps.Descriptor{
		ID: "town", Name: "Town", Width: 4, Height: 3,
		Start:     *maps.At(2, 1, maps.DirDown),
		Colliders: []maps.Rect{{X: 0, Y: 0, W: 4, H: 1}},
		NPCs:      []maps.NPC{{ID: "guard", X: 1, Y: 2}},
		Events: maps.EventList{
			{ID: "sign", Rect: maps.Rect{X: 0, Y: 1, W: 1, H: 1}, Action: maps.Message{Text: "Hi"}},
			{ID: "exit", Rect: maps.Rect{X: 3, Y: 2, W: 1, H: 1}, Action: maps.Door{}},
		},
	}
}

func TestGrid(t *testing.T) {
	g := grid(testMap())
	require.Len(t, g, 3)

	var rows []string
	for _, row := range g {
		var b []rune
		for _, c := range row {
			b = append(b, c.ch)
		}
		rows = append(rows, string(b))
	}
	assert.Equal(t, []string{"####", "E.@.", ".N.D"}, rows)

	assert.Nil(t, grid(&maps.Descriptor{ID: "empty"}))
}

func TestStats(t *testing.T) {
	s := collectStats(testMap())
	assert.Equal(t, 12, s.total)
	assert.Equal(t, 8, s.walkable)
	assert.Equal(t, map[maps.EventKind]int{maps.KindMessage: 1, maps.KindDoor: 1}, s.kinds)

	var out bytes.Buffer
	runStats(&out, testMap())
	assert.Contains(t, out.String(), "Walkable: 8/12 (66.7%)")
	assert.Contains(t, out.String(), "NPCs:     1")
}

func TestRunValidate(t *testing.T) {
	good := testMap()
	good.Events = good.Events[:1]
	bad := testMap()
	bad.ID = "broken"
	bad.NPCs = []maps.NPC{{ID: "lost", X: 9, Y: 9}}

	tests := []struct {
		name  string
		descs []*maps.Descriptor
		want  int
		text  string
	}{
		{"valid", []*maps.Descriptor{good}, 0, "All 1 maps valid"},
		{"npc out of bounds", []*maps.Descriptor{good, bad}, 1, `npc "lost" at (9,9) out of bounds`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			n := runValidate(&out, maps.NewCatalog(nil, nil, tt.descs...))
			assert.Equal(t, tt.want, n)
			assert.Contains(t, out.String(), tt.text)
		})
	}
}

func TestPalettize(t *testing.T) {
	key := gfx.RGB{R: 255, G: 0, B: 255}
	red := gfx.RGB{R: 200, G: 16, B: 16}
	green := gfx.RGB{R: 16, G: 200, B: 16}

	b := gfx.NewBitmap(5, 1)
	for x, c := range []gfx.RGB{key, red, green, red} {
		b.SetRGBA(x, 0, c.R, c.G, c.B, 0xff)
	}
	b.SetRGBA(4, 0, 10, 10, 10, 0) // fully transparent

	pal, idx := palettize(b, &key)
	require.Len(t, idx, 5)
	assert.Equal(t, key, pal[0])
	assert.Zero(t, idx[0])
	assert.Zero(t, idx[4])
	assert.NotZero(t, idx[1])
	assert.NotZero(t, idx[2])
	assert.Equal(t, idx[1], idx[3])
	assert.NotEqual(t, idx[1], idx[2])
	assert.Equal(t, red, pal[idx[1]])
	assert.Equal(t, green, pal[idx[2]])
}

func TestPalettizeAllTransparent(t *testing.T) {
	b := gfx.NewBitmap(2, 2)
	pal, idx := palettize(b, nil)
	assert.Equal(t, []uint8{0, 0, 0, 0}, idx)
	assert.Equal(t, gfx.RGB{}, pal[0])
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"40x30", 40, 30, false},
		{"10x10", 10, 10, false},
		{"9x30", 0, 0, true},
		{"40", 0, 0, true},
		{"axb", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			w, h, err := parseSize(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)
		})
	}
}

func TestMergeRects(t *testing.T) {
	tiles := [][]terrain{
		{tTree, tTree, tGrass, tWater},
		{tTree, tTree, tGrass, tGrass},
		{tGrass, tRock, tRock, tGrass},
	}
	got := mergeRects(tiles, terrain.blocked)
	assert.Equal(t, []maps.Rect{
		{X: 0, Y: 0, W: 2, H: 2},
		{X: 3, Y: 0, W: 1, H: 1},
		{X: 1, Y: 2, W: 2, H: 1},
	}, got)
}

func TestGenerateWilderness(t *testing.T) {
	d := generateWilderness("wild", "Wild", 30, 20, 42)
	again := generateWilderness("wild", "Wild", 30, 20, 42)
	assert.Equal(t, d, again, "same seed, same map")

	c := maps.NewCatalog(nil, nil, d)
	assert.Empty(t, c.Validate())

	g := grid(d)
	require.Len(t, g, 20)
	// The border is solid and the start is open.
	for x := 0; x < 30; x++ {
		assert.Equal(t, cellCollider, g[0][x])
		assert.Equal(t, cellCollider, g[19][x])
	}
	sx, sy := *d.Start.X, *d.Start.Y
	for _, r := range d.Colliders {
		assert.False(t, r.Contains(sx, sy), "start inside collider %+v", r)
	}
	for _, j := range d.Jumps {
		for _, r := range d.Colliders {
			assert.False(t, r.Contains(j.X, j.Y+1), "ledge at (%d,%d) lands in a collider", j.X, j.Y)
		}
	}
	for _, ev := range d.Events {
		assert.Equal(t, maps.KindServer, ev.Kind())
	}
}
