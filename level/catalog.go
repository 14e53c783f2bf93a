package level

import (
	"errors"
	"fmt"
)

// ErrUnknownLevel marks a level id missing from the catalog
var ErrUnknownLevel = errors.New("level: unknown level")

// Info is one catalog entry
// File, when set, names a level resource that replaces generation
type Info struct {
	ID         int     `yaml:"id"`
	Name       string  `yaml:"name"`
	Difficulty int     `yaml:"difficulty"`
	ParTime    float64 `yaml:"par_time"`
	Seed       int64   `yaml:"seed"`
	File       string  `yaml:"file,omitempty"`
}

// Catalog is the ordered list of playable levels
type Catalog struct {
	entries []Info
	index   map[int]int
}

// NewCatalog indexes entries in the given order
func NewCatalog(entries []Info) (*Catalog, error) {
	c := &Catalog{index: make(map[int]int, len(entries))}
	for _, e := range entries {
		if _, dup := c.index[e.ID]; dup {
			return nil, fmt.Errorf("level: duplicate catalog id %d", e.ID)
		}
		if e.File == "" && (e.Difficulty < 1 || e.Difficulty > 5) {
			return nil, fmt.Errorf("level: catalog id %d: difficulty %d outside 1..5", e.ID, e.Difficulty)
		}
		if e.ParTime <= 0 {
			return nil, fmt.Errorf("level: catalog id %d: par time must be positive", e.ID)
		}
		c.index[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

// DefaultEntries is the shipped campaign
func DefaultEntries() []Info {
	return []Info{
		{ID: 1, Name: "Tutorial", Difficulty: 1, ParTime: 30, Seed: 1001},
		{ID: 2, Name: "Simple Maze", Difficulty: 2, ParTime: 45, Seed: 1002},
		{ID: 3, Name: "Ramp Challenge", Difficulty: 3, ParTime: 60, Seed: 1003},
		{ID: 4, Name: "Complex Maze", Difficulty: 4, ParTime: 90, Seed: 1004},
		{ID: 5, Name: "Ultimate Challenge", Difficulty: 5, ParTime: 120, Seed: 1005},
	}
}

// DefaultCatalog returns the shipped campaign
func DefaultCatalog() *Catalog {
	c, _ := NewCatalog(DefaultEntries())
	return c
}

// Lookup returns the entry for id
func (c *Catalog) Lookup(id int) (Info, error) {
	i, ok := c.index[id]
	if !ok {
		return Info{}, fmt.Errorf("%w: %d", ErrUnknownLevel, id)
	}
	return c.entries[i], nil
}

// Len returns the number of levels
func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the ordered entries
func (c *Catalog) Entries() []Info {
	return append([]Info(nil), c.entries...)
}

// First returns the id of the first level
func (c *Catalog) First() (int, bool) {
	if len(c.entries) == 0 {
		return 0, false
	}
	return c.entries[0].ID, true
}

// Next returns the id after id; false at the end of the campaign
func (c *Catalog) Next(id int) (int, bool) {
	i, ok := c.index[id]
	if !ok || i+1 >= len(c.entries) {
		return 0, false
	}
	return c.entries[i+1].ID, true
}
