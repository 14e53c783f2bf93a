package render

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// HUD is the text drawn under the map
type HUD struct {
	Lines []string
}

var glyphs = map[Kind]rune{
	KindWall:        '█',
	KindBox:         '▓',
	KindRamp:        '░',
	KindStartMarker: 'S',
	KindEndMarker:   'E',
	KindBall:        '●',
}

// draw order, later kinds overwrite earlier ones
var layers = []Kind{KindRamp, KindBox, KindWall, KindStartMarker, KindEndMarker, KindBall}

// Quality selects how much detail the terminal draws
type Quality uint8

const (
	QualityLow    Quality = iota // glyphs only, no color, no floor texture
	QualityMedium                // material colors
	QualityHigh                  // colors plus the ball's heading
)

// ParseQuality maps a settings name to a Quality; unknown names are medium
func ParseQuality(name string) Quality {
	switch name {
	case "low":
		return QualityLow
	case "high":
		return QualityHigh
	default:
		return QualityMedium
	}
}

// Terminal draws a Scene top-down onto a tcell screen
// Terminal cells are about twice as tall as wide, so z is scaled by half
type Terminal struct {
	screen  tcell.Screen
	scene   *Scene
	quality Quality
	lastPos mgl64.Vec3 // ball position on the previous frame
}

// NewTerminal binds a screen and the scene it displays
func NewTerminal(screen tcell.Screen, scene *Scene) *Terminal {
	return &Terminal{screen: screen, scene: scene, quality: QualityMedium}
}

// SetQuality changes the detail level from the next frame on
func (t *Terminal) SetQuality(q Quality) { t.quality = q }

// Quality returns the detail level
func (t *Terminal) Quality() Quality { return t.quality }

type viewport struct {
	cx, cy float64
	sx, sz float64
	w, h   int
}

func (v viewport) cell(x, z float64) (int, int, bool) {
	col := int(math.Floor(v.cx + x*v.sx))
	row := int(math.Floor(v.cy + z*v.sz))
	return col, row, col >= 0 && col < v.w && row >= 0 && row < v.h
}

// Draw renders the scene and hud, then shows the frame
func (t *Terminal) Draw(hud HUD) {
	t.screen.Clear()
	sw, sh := t.screen.Size()
	mapH := sh - len(hud.Lines)

	if floor, ok := t.scene.Find(KindFloor); ok && mapH > 2 && sw > 2 {
		vp := t.fit(floor, sw, mapH)
		if t.quality > QualityLow {
			t.drawFloor(vp, floor)
		}
		for _, kind := range layers {
			for _, n := range t.scene.Nodes() {
				if n.Spec.Kind == kind {
					t.drawNode(vp, n)
				}
			}
		}
	}

	hudStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	for i, line := range hud.Lines {
		t.drawText(0, mapH+i, line, hudStyle)
	}
	t.screen.Show()
}

func (t *Terminal) fit(floor *Node, w, h int) viewport {
	width, depth := floor.Spec.Size.X(), floor.Spec.Size.Z()
	sx := math.Min(float64(w-1)/width, 2*float64(h-1)/depth)
	return viewport{
		cx: float64(w) / 2,
		cy: float64(h) / 2,
		sx: sx,
		sz: sx / 2,
		w:  w,
		h:  h,
	}
}

func (t *Terminal) styleOf(m Material) tcell.Style {
	if t.quality == QualityLow {
		return tcell.StyleDefault
	}
	return tcell.StyleDefault.Foreground(tcell.NewHexColor(int32(m.Color & 0xFFFFFF)))
}

// headingGlyphs are indexed by octant, starting east and turning toward +z
var headingGlyphs = [8]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}

// drawHeading marks the cell ahead of a moving ball
func (t *Terminal) drawHeading(vp viewport, ball *Node, style tcell.Style) {
	d := ball.Position.Sub(t.lastPos)
	t.lastPos = ball.Position
	dx, dz := d.X(), d.Z()
	if math.Hypot(dx, dz) < 1e-3 {
		return
	}
	angle := math.Atan2(dz, dx)
	octant := int(math.Round(angle/(math.Pi/4))+8) % 8
	col, row, ok := vp.cell(ball.Position.X(), ball.Position.Z())
	if !ok {
		return
	}
	steps := [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	col += steps[octant][0]
	row += steps[octant][1]
	if col >= 0 && col < vp.w && row >= 0 && row < vp.h {
		t.screen.SetContent(col, row, headingGlyphs[octant], nil, style)
	}
}

func (t *Terminal) drawFloor(vp viewport, floor *Node) {
	style := t.styleOf(floor.Spec.Material).Dim(true)
	t.fill(vp, floor, '·', style)
}

func (t *Terminal) drawNode(vp viewport, n *Node) {
	r := glyphs[n.Spec.Kind]
	style := t.styleOf(n.Spec.Material)
	switch n.Spec.Kind {
	case KindBall:
		if t.quality == QualityHigh {
			t.drawHeading(vp, n, style)
		}
		if col, row, ok := vp.cell(n.Position.X(), n.Position.Z()); ok {
			t.screen.SetContent(col, row, r, nil, style.Bold(true))
		}
	case KindStartMarker, KindEndMarker:
		if col, row, ok := vp.cell(n.Position.X(), n.Position.Z()); ok {
			t.screen.SetContent(col, row, r, nil, style.Bold(true))
		}
	default:
		t.fill(vp, n, r, style)
	}
}

// fill rasterizes the node's rotated footprint
func (t *Terminal) fill(vp viewport, n *Node, r rune, style tcell.Style) {
	hx, hz := n.Spec.Size.X()/2, n.Spec.Size.Z()/2
	stepX, stepZ := 0.5/vp.sx, 0.5/vp.sz
	rot := n.Rotation
	for lx := -hx; lx <= hx+1e-9; lx += stepX {
		for lz := -hz; lz <= hz+1e-9; lz += stepZ {
			p := n.Position.Add(rot.Rotate(mgl64.Vec3{lx, 0, lz}))
			if col, row, ok := vp.cell(p.X(), p.Z()); ok {
				t.screen.SetContent(col, row, r, nil, style)
			}
		}
	}
}

func (t *Terminal) drawText(x, y int, s string, style tcell.Style) {
	w, _ := t.screen.Size()
	for _, r := range s {
		if x >= w {
			return
		}
		t.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
