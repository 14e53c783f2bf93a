package level

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() != 5 {
		t.Fatalf("Len = %d, want 5", c.Len())
	}
	pars := []float64{30, 45, 60, 90, 120}
	for i, want := range pars {
		info, err := c.Lookup(i + 1)
		if err != nil {
			t.Fatalf("Lookup(%d) error = %v", i+1, err)
		}
		if info.ParTime != want {
			t.Errorf("level %d par = %v, want %v", i+1, info.ParTime, want)
		}
		if info.Difficulty != i+1 {
			t.Errorf("level %d difficulty = %d, want %d", i+1, info.Difficulty, i+1)
		}
	}
}

func TestCatalogNext(t *testing.T) {
	c := DefaultCatalog()
	if next, ok := c.Next(2); !ok || next != 3 {
		t.Errorf("Next(2) = %d, %v; want 3, true", next, ok)
	}
	if _, ok := c.Next(5); ok {
		t.Error("Next(5) reported a level after the last")
	}
	if first, ok := c.First(); !ok || first != 1 {
		t.Errorf("First = %d, %v; want 1, true", first, ok)
	}
}

func TestCatalogErrors(t *testing.T) {
	c := DefaultCatalog()
	if _, err := c.Lookup(42); !errors.Is(err, ErrUnknownLevel) {
		t.Errorf("Lookup(42) error = %v, want ErrUnknownLevel", err)
	}
	dup := []Info{
		{ID: 1, Difficulty: 1, ParTime: 30},
		{ID: 1, Difficulty: 2, ParTime: 45},
	}
	if _, err := NewCatalog(dup); err == nil {
		t.Error("NewCatalog accepted duplicate ids")
	}
	if _, err := NewCatalog([]Info{{ID: 1, Difficulty: 9, ParTime: 30}}); err == nil {
		t.Error("NewCatalog accepted difficulty 9")
	}
	// Hand-authored entries need no difficulty
	if _, err := NewCatalog([]Info{{ID: 7, File: "levels/custom.json", ParTime: 50}}); err != nil {
		t.Errorf("NewCatalog(file entry) error = %v", err)
	}
}
