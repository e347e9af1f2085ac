package maps

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRectJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Rect
	}{
		{"short names", `{"x":1,"y":2,"w":3,"h":4}`, Rect{1, 2, 3, 4}},
		{"long names", `{"x":1,"y":2,"width":5,"height":6}`, Rect{1, 2, 5, 6}},
		{"default extent", `{"x":7,"y":8}`, Rect{7, 8, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Rect
			require.NoError(t, json.Unmarshal([]byte(tt.in), &r))
			assert.Equal(t, tt.want, r)
		})
	}
	assert.True(t, Rect{1, 1, 2, 2}.Contains(2, 2))
	assert.False(t, Rect{1, 1, 2, 2}.Contains(3, 1))
}

func TestDirectionJSON(t *testing.T) {
	var d Direction
	require.NoError(t, json.Unmarshal([]byte(`"LEFT"`), &d))
	assert.Equal(t, DirLeft, d)
	require.NoError(t, json.Unmarshal([]byte(`5`), &d))
	assert.Equal(t, DirNone, d)
	b, err := json.Marshal(DirUp)
	require.NoError(t, err)
	assert.JSONEq(t, `"up"`, string(b))
}

func TestNormalizeEvents(t *testing.T) {
	var evs EventList
	require.NoError(t, json.Unmarshal([]byte(`[
		{"type":"message","text":"hi","rect":{"x":1,"y":1}},
		{"type":"dialog","dialogId":"d1"},
		{"type":"dialog","dialog":"d2","rect":{"x":2,"y":2},"once":false},
		{"type":"battle","rect":{"x":3,"y":3},"server":{"payload":{"level":5}}},
		{"id":"door-1","type":"door","rect":{"x":4,"y":4},"lockFlag":"  key ","target":{"mapId":"b","connection":{"direction":"up","offset":3}}},
		{"type":"action","action":"heal","data":{"n":1},"rect":{"x":5,"y":5},"trigger":"dblclick"},
		{"type":"sign","text":"read me","rect":{"x":6,"y":6}}
	]`), &evs))
	require.Len(t, evs, 6)

	assert.Equal(t, "event-0", evs[0].ID)
	assert.Equal(t, Message{Text: "hi"}, evs[0].Action)
	assert.Equal(t, TriggerEnter, evs[0].Trigger)
	assert.True(t, evs[0].Once)

	assert.Equal(t, "event-2", evs[1].ID, "ids follow the raw position")
	assert.Equal(t, DialogRef{DialogID: "d2"}, evs[1].Action)
	assert.False(t, evs[1].Once)

	assert.Equal(t, TriggerInteract, evs[2].Trigger)
	assert.Equal(t, ServerCall{EventType: "battle", Payload: map[string]any{"level": float64(5)}}, evs[2].Action)

	door, ok := evs[3].Action.(Door)
	require.True(t, ok)
	assert.Equal(t, "key", evs[3].Lock.Flag)
	assert.Equal(t, "b", door.Target.MapID)
	assert.Equal(t, &Connection{Direction: DirUp, Offset: 3}, door.Target.Connection)

	assert.Equal(t, TriggerDblClick, evs[4].Trigger)
	assert.Equal(t, KindAction, evs[4].Kind())

	assert.Equal(t, DialogRef{Text: "read me"}, evs[5].Action)
}

func TestEventRoundTripKeepsKind(t *testing.T) {
	in := `[{"id":"e","type":"door","rect":{"x":1,"y":2,"w":2,"h":1},"locked":true,"target":{"mapId":"m","x":3,"y":4,"facing":"left"}}]`
	var evs EventList
	require.NoError(t, json.Unmarshal([]byte(in), &evs))
	out, err := json.Marshal(evs)
	require.NoError(t, err)

	var again EventList
	require.NoError(t, json.Unmarshal(out, &again))
	assert.Equal(t, evs, again)
}

func TestParseDescriptor(t *testing.T) {
	d, err := ParseDescriptor("route1", []byte(`{"map":{"name":"Route 1","jumps":[{"x":1,"y":2,"direction":"down"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, "route1", d.ID)
	assert.Equal(t, "Route 1", d.Name)
	assert.Equal(t, DefaultTileSize, d.TileSize)
	require.Len(t, d.Jumps, 1)
	assert.Equal(t, Jump{X: 1, Y: 2, Dir: DirDown}, d.Jumps[0])

	_, err = ParseDescriptor("x", []byte(`{`))
	assert.Error(t, err)
}

func TestDialogBody(t *testing.T) {
	text, title := "text", "title"
	tests := []struct {
		name string
		d    *Dialog
		want string
	}{
		{"lines", &Dialog{Lines: []string{"a", "b"}, Text: &text}, "a\nb"},
		{"text", &Dialog{Text: &text, Title: &title}, "text"},
		{"title", &Dialog{Title: &title}, "title"},
		{"nil", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.d.Body())
		})
	}
}

func buildTestWorld(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	files := map[string]string{
		"maps/a.json": `{"id":"a","name":"A","width":10,"height":8,
			"dialogs":[{"id":"hello","text":"map hello"}],
			"events":[{"id":"to-b","type":"door","rect":{"x":1,"y":0},"target":{"mapId":"b","connection":{"direction":"up","offset":0}}},
			          {"id":"to-c","type":"door","rect":{"x":2,"y":0},"target":{"mapId":"c"}}]}`,
		"maps/b.json": `{"id":"b","meta":{"layoutId":"LAYOUT_B"}}`,
		"maps/world.json": `{"activeMapId":"b","dialogs":[{"id":"hello","text":"world hello"},{"id":"bye","lines":["bye"]}],
			"flags":{"key":true}}`,
		"maps/notes.txt": "ignored",
		"root/data/layouts/layouts.json": `{"layouts":[{},{"id":"LAYOUT_B","width":12,"height":9,
			"primary_tileset":"gTileset_General","secondary_tileset":"gTileset_PalletTown",
			"blockdata_filepath":"data/layouts/B/map.bin"}]}`,
	}
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	return fs
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog(buildTestWorld(t), "maps", "root/data/layouts/layouts.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, c.IDs())
	assert.Equal(t, "b", c.StartMap())
	assert.True(t, c.World().Flags["key"])

	w, h, ok := c.Size("b")
	require.True(t, ok, "size falls back to the layout")
	assert.Equal(t, [2]int{12, 9}, [2]int{w, h})

	b, err := c.Get("b")
	require.NoError(t, err)
	p, s := c.Tilesets(b)
	assert.Equal(t, "gTileset_General", p)
	assert.Equal(t, "gTileset_PalletTown", s)

	a, err := c.Get("a")
	require.NoError(t, err)
	dialogs := c.Dialogs(a)
	hello, bye := dialogs["hello"], dialogs["bye"]
	assert.Equal(t, "map hello", hello.Body())
	assert.Equal(t, "bye", bye.Body())

	_, err = c.Get("nope")
	assert.True(t, errors.Is(err, ErrUnknownMap))

	errs := c.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `unknown map "c"`)
}

func TestLoadCatalogRejectsDuplicates(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "maps/one.json", []byte(`{"id":"same"}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "maps/two.json", []byte(`{"id":"same"}`), 0o644))
	_, err := LoadCatalog(fs, "maps", "")
	assert.ErrorContains(t, err, "duplicate map id")
}

func TestCatalogApply(t *testing.T) {
	c := NewCatalog(nil, nil, DefaultMap())
	before, err := c.Get(DefaultMapID)
	require.NoError(t, err)

	require.NoError(t, c.Apply(Edits{MapID: DefaultMapID, Colliders: []Rect{{X: 3, Y: 3, W: 1, H: 1}}}))
	after, err := c.Get(DefaultMapID)
	require.NoError(t, err)
	assert.Len(t, before.Colliders, 4, "previous revision is untouched")
	assert.Equal(t, []Rect{{3, 3, 1, 1}}, after.Colliders)

	assert.ErrorIs(t, c.Apply(Edits{MapID: "missing"}), ErrUnknownMap)
}
