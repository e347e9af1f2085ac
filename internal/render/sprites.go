package render

import (
	"hash/fnv"
	"path"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"overworld/internal/gfx"
	"overworld/internal/maps"
)

// EntityColours are the shirt tints handed out to entities.
var EntityColours = []gfx.RGB{
	{180, 50, 50},  // red
	{50, 160, 50},  // green
	{190, 160, 40}, // yellow
	{50, 80, 180},  // blue
	{160, 50, 160}, // magenta
	{50, 160, 160}, // cyan
}

// Template colours swapped per entity.
var (
	shirtKey = gfx.RGB{0xff, 0x00, 0x00}
	pantsKey = gfx.RGB{0xaa, 0x00, 0x00}
)

// Fixed palette of the built-in character.
var (
	hairColour = gfx.RGB{100, 60, 25}
	skinColour = gfx.RGB{237, 195, 155}
	eyeColour  = gfx.RGB{30, 20, 15}
	shoeColour = gfx.RGB{62, 42, 28}
)

// builtinCharacter is a 5x5 block-art character per facing, scaled 3x.
// H hair, S skin, E skin with an eye, R shirt, P pants, O shoe.
var builtinCharacter = map[maps.Direction][5]string{
	maps.DirDown:  {".HHH.", ".ESE.", "RRRRR", ".PPP.", ".O.O."},
	maps.DirUp:    {".HHH.", ".HHH.", "RRRRR", ".PPP.", ".O.O."},
	maps.DirRight: {"..HH.", "..HE.", ".RRRR", "..PP.", "..O.O"},
	maps.DirLeft:  {".HH..", ".EH..", "RRRR.", ".PP..", "O.O.."},
}

const builtinScale = 3

var facingOrder = []maps.Direction{maps.DirDown, maps.DirUp, maps.DirLeft, maps.DirRight}

// SpriteSet hands out tinted character sprites per colour and facing.
type SpriteSet struct {
	variants [][4]*gfx.Bitmap // [colour][facing-1]
}

// NewSpriteSet loads player_{down,up,left,right}.png from dir as templates,
// falling back to the built-in character for any that are missing. Pure red
// in a template is the shirt and dark red the pants.
func NewSpriteSet(fs afero.Fs, dir string, log logrus.FieldLogger) *SpriteSet {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var templates [4]*gfx.Bitmap
	for i, d := range facingOrder {
		templates[i] = builtinTemplate(d)
		if fs == nil || dir == "" {
			continue
		}
		p := path.Join(dir, "player_"+d.String()+".png")
		data, err := afero.ReadFile(fs, p)
		if err != nil {
			log.WithField("path", p).Debug("player sprite not found, using built-in")
			continue
		}
		img, err := gfx.DecodePNG(data)
		if err != nil {
			log.WithField("path", p).WithError(err).Warn("player sprite undecodable, using built-in")
			continue
		}
		templates[i] = KeyTransparent(img.Bitmap, &gfx.RGB{0xff, 0x00, 0xff})
	}

	s := &SpriteSet{variants: make([][4]*gfx.Bitmap, len(EntityColours))}
	for c, target := range EntityColours {
		pants := gfx.RGB{target.R * 2 / 3, target.G * 2 / 3, target.B * 2 / 3}
		for i, t := range templates {
			s.variants[c][i] = swapColours(t, map[gfx.RGB]gfx.RGB{shirtKey: target, pantsKey: pants})
		}
	}
	return s
}

// Sprite returns the sprite for an entity's sprite id and facing. The colour
// is derived from the id so every client tints an entity the same way.
func (s *SpriteSet) Sprite(spriteID string, facing maps.Direction) *gfx.Bitmap {
	c := ColourIndex(spriteID)
	i := 0
	for j, d := range facingOrder {
		if d == facing {
			i = j
		}
	}
	return s.variants[c][i]
}

// ColourIndex picks an EntityColours index for an id.
func ColourIndex(id string) int {
	h := fnv.New32a()
	h.Write([]byte(id))
	return int(h.Sum32() % uint32(len(EntityColours)))
}

func builtinTemplate(d maps.Direction) *gfx.Bitmap {
	rows := builtinCharacter[d]
	b := gfx.NewBitmap(16, 16)
	for y, row := range rows {
		for x, ch := range row {
			var c gfx.RGB
			switch ch {
			case 'H':
				c = hairColour
			case 'S', 'E':
				c = skinColour
			case 'R':
				c = shirtKey
			case 'P':
				c = pantsKey
			case 'O':
				c = shoeColour
			default:
				continue
			}
			b.Fill(x*builtinScale, 1+y*builtinScale, builtinScale, builtinScale, c.NRGBA())
			if ch == 'E' {
				b.SetRGBA(x*builtinScale+1, 1+y*builtinScale+1, eyeColour.R, eyeColour.G, eyeColour.B, 0xff)
			}
		}
	}
	return b
}

func swapColours(src *gfx.Bitmap, swaps map[gfx.RGB]gfx.RGB) *gfx.Bitmap {
	out := src.Clone()
	for i := 0; i+3 < len(out.Pix); i += 4 {
		if out.Pix[i+3] == 0 {
			continue
		}
		if to, ok := swaps[gfx.RGB{R: out.Pix[i], G: out.Pix[i+1], B: out.Pix[i+2]}]; ok {
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = to.R, to.G, to.B
		}
	}
	return out
}
