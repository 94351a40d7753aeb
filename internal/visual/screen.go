package visual

import (
	"image"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

var (
	circleIdle  = color.RGBA{90, 96, 128, 140}
	circleLit   = color.RGBA{255, 110, 200, 255}
	keyWhite    = color.RGBA{236, 236, 236, 255}
	keyBlack    = color.RGBA{32, 32, 40, 255}
	keyWhiteLit = color.RGBA{120, 200, 255, 255}
	keyBlackLit = color.RGBA{40, 90, 200, 255}
	keyBorder   = color.RGBA{64, 64, 64, 255}
)

// DrawBoard paints the board into rect of dst in the given mode.
func DrawBoard(dst *ebiten.Image, rect image.Rectangle, b *Board, mode Mode) {
	pads := b.Snapshot()
	if mode == Keyboard {
		drawKeys(dst, rect, pads)
		return
	}
	drawCircles(dst, rect, pads)
}

// CircleLayout returns the centre of pad i of n and its resting radius.
func CircleLayout(rect image.Rectangle, i, n int) (cx, cy, r float32) {
	if n <= 0 {
		return 0, 0, 0
	}
	slot := float32(rect.Dx()) / float32(n)
	r = min(slot, float32(rect.Dy())) * 0.35
	cx = float32(rect.Min.X) + slot*(float32(i)+0.5)
	cy = float32(rect.Min.Y) + float32(rect.Dy())/2
	return cx, cy, r
}

// drawCircles lays pads out left to right but paints them by Z, so the most
// recently pulsed circle ends up on top.
func drawCircles(dst *ebiten.Image, rect image.Rectangle, pads []PadState) {
	slot := make(map[string]int, len(pads))
	for i, p := range pads {
		slot[p.Sound] = i
	}
	for _, p := range byZ(pads) {
		cx, cy, r := CircleLayout(rect, slot[p.Sound], len(pads))
		clr := circleIdle
		if p.Lit {
			clr = circleLit
		}
		vector.DrawFilledCircle(dst, cx, cy, r+float32(p.Grow), clr, true)
		ebitenutil.DebugPrintAt(dst, p.Sound, int(cx)-len(p.Sound)*3, int(cy)-8)
	}
}

func drawKeys(dst *ebiten.Image, rect image.Rectangle, pads []PadState) {
	if len(pads) == 0 {
		return
	}
	w := float64(rect.Dx()) / float64(len(pads))
	for i, p := range pads {
		x := float64(rect.Min.X) + float64(i)*w
		y := float64(rect.Min.Y)
		h := float64(rect.Dy())
		fill := keyWhite
		switch {
		case p.Black && p.Lit:
			fill = keyBlackLit
		case p.Black:
			fill = keyBlack
		case p.Lit:
			fill = keyWhiteLit
		}
		if p.Black {
			h *= 0.62
		}
		ebitenutil.DrawRect(dst, x, y, w, h, keyBorder)
		ebitenutil.DrawRect(dst, x+1, y+1, w-2, h-2, fill)
		ebitenutil.DebugPrintAt(dst, p.Sound, int(x+w/2)-len(p.Sound)*3, int(y+h)-20)
	}
}
