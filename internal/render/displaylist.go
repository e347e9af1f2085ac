package render

import (
	"image/color"

	"overworld/internal/gfx"
)

// Layer orders the passes of a frame.
type Layer int

const (
	LayerBackground Layer = iota
	LayerEntities
	LayerForeground
	LayerEditor
)

func (l Layer) String() string {
	switch l {
	case LayerBackground:
		return "background"
	case LayerEntities:
		return "entities"
	case LayerForeground:
		return "foreground"
	case LayerEditor:
		return "editor"
	}
	return "unknown"
}

// Owner is the atlas a missing tile was expected to come from.
type Owner int

const (
	OwnerPrimary Owner = iota
	OwnerSecondary
	OwnerUnknown
)

// OpKind selects how a DrawOp is executed.
type OpKind int

const (
	OpTile        OpKind = iota // 8x8 atlas cell, scaled and mirrored
	OpPlaceholder               // missing tile marker
	OpSurface                   // 1:1 region copy (cached background, flat map)
	OpSprite                    // whole entity sprite
	OpFill
	OpStroke
)

// DrawOp is one recorded draw call. MapX, MapY, Slot and EntityID identify
// what produced it.
type DrawOp struct {
	Layer Layer
	Kind  OpKind

	Src          *gfx.Bitmap
	SX, SY       int
	W, H         int // source region for OpSurface, rect for fills
	DX, DY, Size int
	HFlip, VFlip bool
	Owner        Owner
	Color        color.NRGBA

	MapX, MapY int
	Slot       int
	EntityID   string
}

// DisplayList is the ordered draw calls of one frame.
type DisplayList struct {
	Ops []DrawOp
}

func (d *DisplayList) add(op DrawOp) {
	d.Ops = append(d.Ops, op)
}

// Draw executes the list onto dst in order.
func (d *DisplayList) Draw(dst *gfx.Bitmap) {
	for i := range d.Ops {
		op := &d.Ops[i]
		switch op.Kind {
		case OpTile:
			gfx.Blit(dst, op.Src, op.SX, op.SY, 8, op.DX, op.DY, op.Size, op.HFlip, op.VFlip)
		case OpPlaceholder:
			drawPlaceholder(dst, op.Owner, op.DX, op.DY, op.Size)
		case OpSurface:
			gfx.BlitRect(dst, op.Src, op.SX, op.SY, op.W, op.H, op.DX, op.DY)
		case OpSprite:
			if op.Src != nil {
				gfx.BlitRect(dst, op.Src, 0, 0, op.Src.W, op.Src.H, op.DX, op.DY)
			}
		case OpFill:
			dst.Fill(op.DX, op.DY, op.W, op.H, op.Color)
		case OpStroke:
			dst.StrokeRect(op.DX, op.DY, op.W, op.H, op.Color)
		}
	}
}
