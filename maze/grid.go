package maze

// Cell addresses a carving cell
type Cell struct {
	Row, Col int
}

type direction uint8

const (
	north direction = 1 << iota // row-1
	south                       // row+1
	west                        // col-1
	east                        // col+1
)

// carve order
var directions = []struct {
	dir        direction
	dRow, dCol int
}{
	{north, -1, 0},
	{south, 1, 0},
	{west, 0, -1},
	{east, 0, 1},
}

func opposite(d direction) direction {
	switch d {
	case north:
		return south
	case south:
		return north
	case west:
		return east
	default:
		return west
	}
}

// Grid is the cell graph left behind by carving
// A passage exists between two cells the carver moved between
type Grid struct {
	Rows, Cols int
	open       [][]direction
	visited    [][]bool
}

func newGrid(rows, cols int) *Grid {
	g := &Grid{Rows: rows, Cols: cols}
	g.open = make([][]direction, rows)
	g.visited = make([][]bool, rows)
	for r := range g.open {
		g.open[r] = make([]direction, cols)
		g.visited[r] = make([]bool, cols)
	}
	return g
}

// Contains reports whether c is inside the grid
func (g *Grid) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// Visited reports whether carving reached c
func (g *Grid) Visited(c Cell) bool {
	return g.Contains(c) && g.visited[c.Row][c.Col]
}

// Linked reports a passage between adjacent cells a and b
func (g *Grid) Linked(a, b Cell) bool {
	if !g.Contains(a) || !g.Contains(b) {
		return false
	}
	for _, d := range directions {
		if a.Row+d.dRow == b.Row && a.Col+d.dCol == b.Col {
			return g.open[a.Row][a.Col]&d.dir != 0
		}
	}
	return false
}

func (g *Grid) link(a, b Cell, d direction) {
	g.open[a.Row][a.Col] |= d
	g.open[b.Row][b.Col] |= opposite(d)
}

// Path returns the passage route from start to end, nil if none exists
func (g *Grid) Path(start, end Cell) []Cell {
	if !g.Contains(start) || !g.Contains(end) {
		return nil
	}

	queue := []Cell{start}
	cameFrom := make(map[Cell]Cell)
	visited := map[Cell]bool{start: true}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		if curr == end {
			path := []Cell{}
			for curr != start {
				path = append([]Cell{curr}, path...)
				curr = cameFrom[curr]
			}
			return append([]Cell{start}, path...)
		}

		for _, d := range directions {
			if g.open[curr.Row][curr.Col]&d.dir == 0 {
				continue
			}
			next := Cell{curr.Row + d.dRow, curr.Col + d.dCol}
			if !visited[next] {
				visited[next] = true
				cameFrom[next] = curr
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// Reachable reports whether a passage route joins a and b
func (g *Grid) Reachable(a, b Cell) bool {
	return g.Path(a, b) != nil
}

// Carve runs a depth-first backtracker from start and calls onMove for every
// step onto a new cell; the stream is consumed as: neighbor pick, then onMove
func Carve(rows, cols int, start Cell, rng *LCG, onMove func(from, to Cell)) *Grid {
	g := newGrid(rows, cols)
	if rows == 0 || cols == 0 {
		return g
	}
	if !g.Contains(start) {
		start = Cell{}
	}

	stack := []Cell{start}
	g.visited[start.Row][start.Col] = true

	type candidate struct {
		cell Cell
		dir  direction
	}
	candidates := make([]candidate, 0, 4)

	for len(stack) > 0 {
		curr := stack[len(stack)-1]
		candidates = candidates[:0]
		for _, d := range directions {
			next := Cell{curr.Row + d.dRow, curr.Col + d.dCol}
			if g.Contains(next) && !g.visited[next.Row][next.Col] {
				candidates = append(candidates, candidate{next, d.dir})
			}
		}

		if len(candidates) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		c := candidates[rng.Intn(len(candidates))]
		g.visited[c.cell.Row][c.cell.Col] = true
		g.link(curr, c.cell, c.dir)
		if onMove != nil {
			onMove(curr, c.cell)
		}
		stack = append(stack, c.cell)
	}
	return g
}
