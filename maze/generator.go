// Package maze builds level descriptions from a difficulty and a seed
package maze

import (
	"fmt"
	"math"

	"github.com/lixenwraith/roller/level"
)

var (
	ballMaterial     = level.Material{Type: "standard", Color: 0x1E88E5, Metalness: 0.8, Roughness: 0.2}
	floorMaterial    = level.Material{Type: "standard", Color: 0xCCCCCC, Metalness: 0.1, Roughness: 0.8}
	obstacleMaterial = level.Material{Type: "standard", Color: 0xAAAAAA, Metalness: 0.2, Roughness: 0.8}
)

// Layout is a generated description plus the carving graph behind it
// Grid is nil for template difficulties
type Layout struct {
	Level     level.Description
	Grid      *Grid
	StartCell Cell
	EndCell   Cell
}

// Generator produces level descriptions; it holds no per-call state
type Generator struct {
	cfg Config
}

// NewGenerator validates cfg and returns a generator
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Generator{cfg: cfg}, nil
}

// Config returns the generator tuning
func (g *Generator) Config() Config { return g.cfg }

// Generate creates the description for difficulty and seed
// The same inputs always produce the same description
func (g *Generator) Generate(difficulty int, seed int64) (level.Description, error) {
	l, err := g.Layout(difficulty, seed)
	if err != nil {
		return level.Description{}, err
	}
	return l.Level, nil
}

// Size returns the floor edge length for difficulty
func (g *Generator) Size(difficulty int) float64 {
	t := float64(difficulty-1) / float64(MaxDifficulty-1)
	return math.Round(g.cfg.MinSize + (g.cfg.MaxSize-g.cfg.MinSize)*t)
}

// Complexity returns the interior wall probability for difficulty
func (g *Generator) Complexity(difficulty int) float64 {
	return math.Min(1, g.cfg.Complexity*float64(difficulty)/3)
}

// ParTime is the default target time when no catalog entry overrides it
func ParTime(difficulty int) float64 {
	return 30 + 15*float64(difficulty-1)
}

// Layout generates the description together with its cell graph
func (g *Generator) Layout(difficulty int, seed int64) (Layout, error) {
	if difficulty < MinDifficulty || difficulty > MaxDifficulty {
		return Layout{}, fmt.Errorf("%w: %d", ErrDifficulty, difficulty)
	}

	// 1. Dimensions and stream
	size := g.Size(difficulty)
	half := size / 2
	rng := NewLCG(seed)

	desc := level.Description{
		Difficulty: difficulty,
		Seed:       seed,
		ParTime:    ParTime(difficulty),
		Size:       level.Size{Width: size, Height: 1, Depth: size},
		Start:      level.Point3{X: -half + 2, Y: 0.5, Z: -half + 2},
		End:        level.Point3{X: half - 2, Y: 0.5, Z: half - 2},
		Walls:      []level.Wall{},
		Obstacles:  []level.Obstacle{},
		Ball:       level.Ball{Radius: 0.5, Mass: 1, Material: ballMaterial},
		Floor:      level.Floor{Material: floorMaterial},
	}

	// 2. Boundary
	desc.Walls = append(desc.Walls, g.outerWalls(size)...)

	// 3. Interior
	layout := Layout{}
	switch difficulty {
	case 1:
		desc.Walls = append(desc.Walls, g.corridor(size)...)
		desc.Start = level.Point3{X: -half + 2, Y: 0.5, Z: 0}
		desc.End = level.Point3{X: half - 2, Y: 0.5, Z: 0}
	case 2:
		desc.Walls = append(desc.Walls, g.fixedMaze(size)...)
	default:
		grid, walls := g.carve(size, g.Complexity(difficulty), rng)
		desc.Walls = append(desc.Walls, walls...)
		layout.Grid = grid
		layout.StartCell = g.cellOf(grid, size, desc.Start)
		layout.EndCell = g.cellOf(grid, size, desc.End)
	}

	// 4. Obstacles
	desc.Obstacles = append(desc.Obstacles, g.boxes(size, g.cfg.BoxCount[difficulty], desc.Start, desc.End, rng)...)
	desc.Obstacles = append(desc.Obstacles, g.ramps(size, g.cfg.RampCount[difficulty], desc.Start, desc.End, rng)...)

	layout.Level = desc
	return layout, nil
}

func (g *Generator) outerWalls(size float64) []level.Wall {
	h, wh := size/2, g.cfg.WallHeight
	return []level.Wall{
		{Start: level.Point2{X: -h, Z: -h}, End: level.Point2{X: h, Z: -h}, Height: wh},
		{Start: level.Point2{X: h, Z: -h}, End: level.Point2{X: h, Z: h}, Height: wh},
		{Start: level.Point2{X: h, Z: h}, End: level.Point2{X: -h, Z: h}, Height: wh},
		{Start: level.Point2{X: -h, Z: h}, End: level.Point2{X: -h, Z: -h}, Height: wh},
	}
}

// corridor is a straight run between two full-width walls
func (g *Generator) corridor(size float64) []level.Wall {
	h, q := size/2, size/4
	return []level.Wall{
		{Start: level.Point2{X: -h, Z: -q}, End: level.Point2{X: h, Z: -q}, Height: g.cfg.WallHeight},
		{Start: level.Point2{X: -h, Z: q}, End: level.Point2{X: h, Z: q}, Height: g.cfg.WallHeight},
	}
}

// fixedMaze is a hand-authored layout on a 20-unit floor, scaled to size
func (g *Generator) fixedMaze(size float64) []level.Wall {
	template := [][4]float64{
		{-5, -5, 5, -5},
		{-5, 0, 0, 0},
		{0, 0, 0, 5},
		{-5, 5, -2, 5},
	}
	k := size / 20
	walls := make([]level.Wall, 0, len(template))
	for _, s := range template {
		walls = append(walls, level.Wall{
			Start:  level.Point2{X: s[0] * k, Z: s[1] * k},
			End:    level.Point2{X: s[2] * k, Z: s[3] * k},
			Height: g.cfg.WallHeight,
		})
	}
	return walls
}

func (g *Generator) cellCenter(size float64, c Cell) (x, z float64) {
	cs := g.cfg.CellSize
	return -size/2 + float64(c.Col)*cs + cs/2, -size/2 + float64(c.Row)*cs + cs/2
}

// cellOf maps a floor point to its cell, clamping into the grid
func (g *Generator) cellOf(grid *Grid, size float64, p level.Point3) Cell {
	clampIdx := func(v, n int) int {
		if v < 0 {
			return 0
		}
		if v >= n {
			return n - 1
		}
		return v
	}
	cs := g.cfg.CellSize
	return Cell{
		Row: clampIdx(int(math.Floor((p.Z+size/2)/cs)), grid.Rows),
		Col: clampIdx(int(math.Floor((p.X+size/2)/cs)), grid.Cols),
	}
}

func (g *Generator) carve(size, complexity float64, rng *LCG) (*Grid, []level.Wall) {
	cols := int(math.Floor(size / g.cfg.CellSize))
	rows := cols
	start := Cell{Row: rows / 4, Col: cols / 4}
	span := g.cfg.CellSize * g.cfg.WallGapRatio

	var walls []level.Wall
	grid := Carve(rows, cols, start, rng, func(from, to Cell) {
		if rng.Float64() >= complexity {
			return
		}
		x1, z1 := g.cellCenter(size, from)
		x2, z2 := g.cellCenter(size, to)
		var w level.Wall
		if from.Row != to.Row {
			z := (z1 + z2) / 2
			w = level.Wall{Start: level.Point2{X: x1 - span/2, Z: z}, End: level.Point2{X: x1 + span/2, Z: z}}
		} else {
			x := (x1 + x2) / 2
			w = level.Wall{Start: level.Point2{X: x, Z: z1 - span/2}, End: level.Point2{X: x, Z: z1 + span/2}}
		}
		w.Height = g.cfg.WallHeight
		walls = append(walls, w)
	})
	return grid, walls
}

func clearOf(x, z, clearance float64, points ...level.Point3) bool {
	for _, p := range points {
		if math.Hypot(x-p.X, z-p.Z) < clearance {
			return false
		}
	}
	return true
}

func (g *Generator) boxes(size float64, count int, start, end level.Point3, rng *LCG) []level.Obstacle {
	var out []level.Obstacle
	half := size / 2
	for i := 0; i < count; i++ {
		for attempt := 0; attempt < g.cfg.PlacementAttempts; attempt++ {
			x := rng.Float64()*(size-4) - half + 2
			z := rng.Float64()*(size-4) - half + 2
			if !clearOf(x, z, g.cfg.BoxClearance, start, end) {
				continue
			}
			s := 1 + rng.Float64()*2
			out = append(out, level.Obstacle{
				Kind:     level.ObstacleBox,
				Position: level.Point3{X: x, Y: s / 2, Z: z},
				Size:     level.Size{Width: s, Height: s, Depth: s},
				Material: obstacleMaterial,
			})
			break
		}
	}
	return out
}

func (g *Generator) ramps(size float64, count int, start, end level.Point3, rng *LCG) []level.Obstacle {
	var out []level.Obstacle
	half := size / 2
	for i := 0; i < count; i++ {
		for attempt := 0; attempt < g.cfg.PlacementAttempts; attempt++ {
			x := rng.Float64()*(size-8) - half + 4
			z := rng.Float64()*(size-8) - half + 4
			if !clearOf(x, z, g.cfg.RampClearance, start, end) {
				continue
			}
			width := 3 + rng.Float64()*3
			depth := 5 + rng.Float64()*5
			angle := rng.Float64()*math.Pi/6 + math.Pi/12

			var rot level.Euler
			if rng.Float64() < 0.5 {
				rot.X = angle
			} else {
				rot.Z = angle
			}
			out = append(out, level.Obstacle{
				Kind:     level.ObstacleRamp,
				Position: level.Point3{X: x, Y: 0.5, Z: z},
				Size:     level.Size{Width: width, Height: 1, Depth: depth},
				Rotation: rot,
				Material: obstacleMaterial,
			})
			break
		}
	}
	return out
}
