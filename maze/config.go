package maze

import (
	"errors"
	"fmt"
)

// MinDifficulty and MaxDifficulty bound the supported difficulty range
const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// ErrDifficulty marks a difficulty outside [MinDifficulty, MaxDifficulty]
var ErrDifficulty = errors.New("maze: difficulty out of range")

type Config struct {
	// Floor edge length at difficulty 1 and 5; interpolated in between
	MinSize, MaxSize float64

	// Probability scale for interior walls; complexity = min(1, Complexity*d/3)
	Complexity float64

	CellSize     float64
	WallHeight   float64
	WallGapRatio float64 // share of a cell edge covered by an interior wall

	// Obstacle counts keyed by difficulty
	BoxCount  map[int]int
	RampCount map[int]int

	// Resampling budget per obstacle before it is dropped
	PlacementAttempts int
	BoxClearance      float64
	RampClearance     float64
}

// DefaultConfig returns the generator tuning used by the game
func DefaultConfig() Config {
	return Config{
		MinSize:           10,
		MaxSize:           30,
		Complexity:        0.5,
		CellSize:          4,
		WallHeight:        2,
		WallGapRatio:      0.6,
		BoxCount:          map[int]int{4: 2, 5: 4},
		RampCount:         map[int]int{5: 2},
		PlacementAttempts: 16,
		BoxClearance:      3,
		RampClearance:     5,
	}
}

// Validate rejects configurations that cannot produce a playable level
func (c Config) Validate() error {
	switch {
	case c.MinSize <= 4 || c.MaxSize < c.MinSize:
		return fmt.Errorf("maze: size range [%v, %v] invalid", c.MinSize, c.MaxSize)
	case c.Complexity < 0:
		return fmt.Errorf("maze: complexity %v is negative", c.Complexity)
	case c.CellSize <= 0:
		return fmt.Errorf("maze: cell size %v must be positive", c.CellSize)
	case c.WallHeight <= 0:
		return fmt.Errorf("maze: wall height %v must be positive", c.WallHeight)
	case c.WallGapRatio <= 0 || c.WallGapRatio > 1:
		return fmt.Errorf("maze: wall gap ratio %v outside (0, 1]", c.WallGapRatio)
	case c.PlacementAttempts < 1:
		return fmt.Errorf("maze: placement attempts %d must be at least 1", c.PlacementAttempts)
	}
	return nil
}
