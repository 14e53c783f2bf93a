package level

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
)

func TestCompressedRoundTrip(t *testing.T) {
	desc := testDescription()
	desc.Obstacles = []Obstacle{
		{Kind: ObstacleRamp, Position: Point3{1, 0.5, 2}, Size: Size{3, 1, 6}, Rotation: Euler{Z: 0.4}},
	}

	var buf bytes.Buffer
	if err := WriteCompressed(&buf, desc); err != nil {
		t.Fatalf("WriteCompressed error = %v", err)
	}
	plain, _ := Marshal(desc)
	if bytes.Equal(buf.Bytes(), plain) {
		t.Fatal("compressed output equals plain JSON")
	}

	got, err := Decode("level"+CompressedExt, buf.Bytes())
	if err != nil {
		t.Fatalf("Decode error = %v", err)
	}
	again, _ := Marshal(got)
	if !bytes.Equal(plain, again) {
		t.Errorf("decoded description differs:\n got %s\nwant %s", again, plain)
	}
}

func TestUnmarshalSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing ball", `{"size":{"width":10,"height":1,"depth":10},"start":{"x":0,"y":0,"z":0},"end":{"x":1,"y":0,"z":1},"walls":[]}`},
		{"unknown obstacle", `{"size":{"width":10,"height":1,"depth":10},"start":{"x":0,"y":0,"z":0},"end":{"x":1,"y":0,"z":1},"walls":[],"ball":{"radius":0.5,"mass":1},"obstacles":[{"type":"spike","position":{"x":0,"y":0,"z":0},"size":{"width":1,"height":1,"depth":1}}]}`},
		{"negative width", `{"size":{"width":-10,"height":1,"depth":10},"start":{"x":0,"y":0,"z":0},"end":{"x":1,"y":0,"z":1},"walls":[],"ball":{"radius":0.5,"mass":1}}`},
		{"start outside floor", `{"size":{"width":10,"height":1,"depth":10},"start":{"x":50,"y":0,"z":0},"end":{"x":1,"y":0,"z":1},"walls":[],"ball":{"radius":0.5,"mass":1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Unmarshal([]byte(tt.doc)); !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("Unmarshal error = %v, want ErrInvalidLevel", err)
			}
		})
	}
}

func TestUnmarshalHandAuthored(t *testing.T) {
	doc := `{
	  "name": "courtyard",
	  "parTime": 40,
	  "size": {"width": 12, "height": 1, "depth": 12},
	  "start": {"x": -4, "y": 0.5, "z": -4},
	  "end": {"x": 4, "y": 0.5, "z": 4},
	  "walls": [{"start": {"x": -2, "z": 0}, "end": {"x": 2, "z": 0}, "height": 2}],
	  "ball": {"radius": 0.5, "mass": 1, "material": {"color": 255}}
	}`
	d, err := Unmarshal([]byte(doc))
	if err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if d.Name != "courtyard" || len(d.Walls) != 1 || d.Ball.Material.Color != 255 {
		t.Errorf("Unmarshal = %+v", d)
	}
}

func TestWriteFileReadFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json.zst"} {
		path := filepath.Join(dir, "levels", name)
		if err := WriteFile(path, testDescription()); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s) error = %v", name, err)
		}
		if got.Size.Width != 20 || len(got.Walls) != 4 {
			t.Errorf("ReadFile(%s) = %+v", name, got)
		}
	}
}

func TestReadCompressedSizeLimit(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd.NewWriter error = %v", err)
	}
	if _, err := enc.Write(bytes.Repeat([]byte(" "), MaxDecodedSize+1)); err != nil {
		t.Fatalf("Write error = %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("Close error = %v", err)
	}
	if buf.Len() >= MaxDecodedSize {
		t.Fatalf("compressed size = %d, want far below the limit", buf.Len())
	}

	_, err = ReadCompressed(&buf)
	if !errors.Is(err, ErrInvalidLevel) || !strings.Contains(err.Error(), "exceeds") {
		t.Errorf("ReadCompressed error = %v, want size limit", err)
	}
}

func TestWriteFileReportsErrors(t *testing.T) {
	dir := t.TempDir()
	if err := WriteFile(dir, testDescription()); err == nil {
		t.Error("WriteFile onto a directory succeeded")
	}
}

func TestValidateWalls(t *testing.T) {
	d := testDescription()
	d.Walls = append(d.Walls, Wall{Start: Point2{1, 1}, End: Point2{1, 1}, Height: 2})
	err := d.Validate()
	if !errors.Is(err, ErrInvalidLevel) || !strings.Contains(err.Error(), "zero length") {
		t.Errorf("Validate error = %v, want zero length wall", err)
	}
}
