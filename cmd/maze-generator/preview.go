package main

import (
	"math"

	"github.com/lixenwraith/roller/level"
	"github.com/lixenwraith/roller/maze"
)

// colsPerUnit widens the preview so cells look square in a terminal
const colsPerUnit = 2

// preview rasterizes a layout top-down: one row per world unit of depth
func preview(l maze.Layout, cellSize float64) []string {
	d := l.Level
	hw, hd := d.Size.Width/2, d.Size.Depth/2
	cols := int(math.Ceil(d.Size.Width*colsPerUnit)) + 1
	rows := int(math.Ceil(d.Size.Depth)) + 1

	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = make([]rune, cols)
		for c := range grid[r] {
			grid[r][c] = ' '
		}
	}
	plot := func(x, z float64, ch rune) {
		c := int(math.Round((x + hw) * colsPerUnit))
		r := int(math.Round(z + hd))
		if r >= 0 && r < rows && c >= 0 && c < cols {
			grid[r][c] = ch
		}
	}

	// Solution path first so walls and markers overwrite it
	if l.Grid != nil {
		for _, cell := range l.Grid.Path(l.StartCell, l.EndCell) {
			plot(-hw+(float64(cell.Col)+0.5)*cellSize, -hd+(float64(cell.Row)+0.5)*cellSize, '•')
		}
	}

	for _, o := range d.Obstacles {
		ch := '▓'
		if o.Kind == level.ObstacleRamp {
			ch = '░'
		}
		for x := o.Position.X - o.Size.Width/2; x <= o.Position.X+o.Size.Width/2; x += 0.5 {
			for z := o.Position.Z - o.Size.Depth/2; z <= o.Position.Z+o.Size.Depth/2; z += 1 {
				plot(x, z, ch)
			}
		}
	}

	for _, w := range d.Walls {
		steps := int(math.Ceil(w.Length()*colsPerUnit*2)) + 1
		for i := 0; i <= steps; i++ {
			t := float64(i) / float64(steps)
			plot(w.Start.X+(w.End.X-w.Start.X)*t, w.Start.Z+(w.End.Z-w.Start.Z)*t, '█')
		}
	}

	plot(d.Start.X, d.Start.Z, 'S')
	plot(d.End.X, d.End.Z, 'E')

	out := make([]string, rows)
	for r, row := range grid {
		out[r] = string(row)
	}
	return out
}
