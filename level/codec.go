package level

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "embed"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed level.schema.json
var schemaSource string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func levelSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("level.schema.json", schemaSource)
	})
	return schema, schemaErr
}

// CompressedExt marks zstd-compressed level files
const CompressedExt = ".zst"

// MaxDecodedSize bounds the JSON a compressed level may expand to
const MaxDecodedSize = 4 << 20

// Marshal encodes a description as compact JSON
// Equal descriptions encode to identical bytes
func Marshal(d Description) ([]byte, error) {
	return json.Marshal(d)
}

// Unmarshal decodes hand-authored or generated JSON
// The document is checked against the level schema, then Validate
func Unmarshal(data []byte) (Description, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	s, err := levelSchema()
	if err != nil {
		return Description{}, fmt.Errorf("level: compile schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	if err := d.Validate(); err != nil {
		return Description{}, err
	}
	return d, nil
}

// WriteCompressed writes the JSON encoding through a zstd stream
func WriteCompressed(w io.Writer, d Description) error {
	data, err := Marshal(d)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadCompressed reads a zstd stream written by WriteCompressed
func ReadCompressed(r io.Reader) (Description, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Description{}, err
	}
	defer dec.Close()

	data, err := io.ReadAll(io.LimitReader(dec, MaxDecodedSize+1))
	if err != nil {
		return Description{}, fmt.Errorf("level: decompress: %w", err)
	}
	if len(data) > MaxDecodedSize {
		return Description{}, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrInvalidLevel, MaxDecodedSize)
	}
	return Unmarshal(data)
}

// Decode picks the codec from name: a ".zst" suffix means compressed JSON
func Decode(name string, data []byte) (Description, error) {
	if strings.HasSuffix(name, CompressedExt) {
		return ReadCompressed(bytes.NewReader(data))
	}
	return Unmarshal(data)
}

// WriteFile stores d at path, compressing when path ends in ".zst"
func WriteFile(path string, d Description) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if strings.HasSuffix(path, CompressedExt) {
		return WriteCompressed(f, d)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return err
}

// ReadFile loads a level written by WriteFile or by hand
func ReadFile(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, err
	}
	return Decode(path, data)
}
