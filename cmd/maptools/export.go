package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"overworld/internal/assets"
	"overworld/internal/game"
	"overworld/internal/gfx"
	"overworld/internal/render"
	"overworld/internal/tileset"
)

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Export a map's composited background as PNG",
		ArgsUsage: "MAP-ID OUT.png",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "scale", Value: 1, Usage: "integer upscale factor"},
			&cli.IntFlag{Name: "tick", Value: 0, Usage: "animation tick to draw"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "give up waiting for tiles after"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
			}
			catalog, err := openCatalog(c)
			if err != nil {
				return err
			}
			log := logrus.New()
			fsys := assetFs(c)
			cache, err := render.NewSheetCache(64 << 20)
			if err != nil {
				return cli.Exit(err, 1)
			}
			defer cache.Close()

			source := &game.CatalogSource{
				Catalog:  catalog,
				Graphics: &render.GraphicsLoader{Loader: assets.NewLoader(fsys, log), Cache: cache, Log: log},
				Log:      log,
			}
			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			m, err := source.Load(ctx, c.Args().Get(0))
			if err != nil {
				return cli.Exit(err, 1)
			}
			var img *gfx.Bitmap
			switch {
			case m.Graphics != nil:
				if err := m.Graphics.WaitReady(ctx); err != nil {
					return cli.Exit(err, 1)
				}
				img = m.Graphics.RenderFull(c.Int("tick"))
			case m.Flat != nil:
				img = m.Flat
			default:
				return cli.Exit(fmt.Sprintf("map %s has no graphics", m.Descriptor.ID), 1)
			}

			data, err := gfx.EncodePNG(gfx.Scale(img, c.Int("scale")))
			if err != nil {
				return cli.Exit(err, 1)
			}
			out := c.Args().Get(1)
			if err := afero.WriteFile(afero.NewOsFs(), out, data, 0o644); err != nil {
				return cli.Exit(err, 1)
			}
			fmt.Printf("Wrote %s (%dx%d)\n", out, img.W*max(1, c.Int("scale")), img.H*max(1, c.Int("scale")))
			return nil
		},
	}
}

func palettizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "palettize",
		Usage:     "Reduce a colour image to a 16-colour gray-ramp tile sheet and its palette",
		ArgsUsage: "IN.png OUT.png OUT.pal",
		Action: func(c *cli.Context) error {
			if c.NArg() < 3 {
				cli.ShowCommandHelpAndExit(c, c.Command.Name, 1)
			}
			fsys := afero.NewOsFs()
			raw, err := afero.ReadFile(fsys, c.Args().Get(0))
			if err != nil {
				return cli.Exit(err, 1)
			}
			img, err := gfx.DecodePNG(raw)
			if err != nil {
				return cli.Exit(err, 1)
			}

			pal, indices := palettize(img.Bitmap, img.Key)
			sheet, err := gfx.EncodePNG(render.GrayEncode(img.Bitmap.W, img.Bitmap.H, indices))
			if err != nil {
				return cli.Exit(err, 1)
			}
			if err := afero.WriteFile(fsys, c.Args().Get(1), sheet, 0o644); err != nil {
				return cli.Exit(err, 1)
			}
			if err := afero.WriteFile(fsys, c.Args().Get(2), tileset.FormatJASC(pal), 0o644); err != nil {
				return cli.Exit(err, 1)
			}
			return nil
		},
	}
}

// palettize reduces b to at most 16 colours with a median cut and returns the
// palette plus one index per pixel. Index 0 is the transparency key: key when
// given, else black; translucent pixels map to it.
func palettize(b *gfx.Bitmap, key *gfx.RGB) (*gfx.Palette, []uint8) {
	backdrop := gfx.RGB{}
	if key != nil {
		backdrop = *key
	}

	skip := func(r, g, bl, a uint8) bool {
		return a < 0x80 || (key != nil && (gfx.RGB{R: r, G: g, B: bl}) == backdrop)
	}

	// Key and translucent pixels are painted with the first kept colour so
	// they add no colour of their own and the key keeps slot 0.
	opaque := image.NewNRGBA(b.Bounds())
	var fillColour *color.NRGBA
	var holes []int
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			r, g, bl, a := b.RGBAAt(x, y)
			if skip(r, g, bl, a) {
				holes = append(holes, y*b.W+x)
				continue
			}
			c := color.NRGBA{r, g, bl, 0xff}
			if fillColour == nil {
				fillColour = &c
			}
			opaque.SetNRGBA(x, y, c)
		}
	}
	indices := make([]uint8, b.W*b.H)
	var pal gfx.Palette
	pal[0] = backdrop
	if fillColour == nil {
		return &pal, indices
	}
	for _, i := range holes {
		opaque.SetNRGBA(i%b.W, i/b.W, *fillColour)
	}

	q := quantize.MedianCutQuantizer{}
	colours := q.Quantize(make(color.Palette, 0, gfx.ColorsPerPalette-1), opaque)

	var lookup color.Palette
	for i, c := range colours {
		if i+1 >= gfx.ColorsPerPalette {
			break
		}
		r, g, bl, _ := c.RGBA()
		pal[i+1] = gfx.RGB{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8)}
		lookup = append(lookup, pal[i+1].NRGBA())
	}

	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			r, g, bl, a := b.RGBAAt(x, y)
			if skip(r, g, bl, a) {
				continue
			}
			indices[y*b.W+x] = uint8(lookup.Index(color.NRGBA{r, g, bl, 0xff}) + 1)
		}
	}
	return &pal, indices
}
