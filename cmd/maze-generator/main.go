package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/lixenwraith/roller/level"
	"github.com/lixenwraith/roller/maze"
)

func main() {
	difficulty := flag.Int("difficulty", 3, "Difficulty 1-5")
	seed := flag.Int64("seed", 0, "Generation seed; 0 uses the clock")
	out := flag.String("out", "", "Write the level to this path (.json, or .zst for compressed)")
	quiet := flag.Bool("quiet", false, "Skip the preview")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	gen, err := maze.NewGenerator(maze.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "maze-generator: %v\n", err)
		os.Exit(1)
	}

	startT := time.Now()
	layout, err := gen.Layout(*difficulty, *seed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "maze-generator: %v\n", err)
		os.Exit(2)
	}
	dur := time.Since(startT)

	d := layout.Level
	fmt.Printf("Difficulty %d, seed %d: %gx%g floor, %d walls, %d obstacles, par %gs (%v)\n",
		d.Difficulty, d.Seed, d.Size.Width, d.Size.Depth, len(d.Walls), len(d.Obstacles), d.ParTime, dur)
	if layout.Grid != nil {
		if path := layout.Grid.Path(layout.StartCell, layout.EndCell); path != nil {
			fmt.Printf("Solution Path Length: %d cells\n", len(path))
		} else {
			fmt.Println("Status: Unsolvable (Isolated Start/End)")
		}
	}

	if !*quiet {
		for _, row := range preview(layout, gen.Config().CellSize) {
			fmt.Println(row)
		}
	}

	if *out != "" {
		if err := level.WriteFile(*out, d); err != nil {
			fmt.Fprintf(os.Stderr, "maze-generator: write %s: %v\n", *out, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *out)
	}
}
