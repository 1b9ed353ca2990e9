package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/masonry/pkg/errors"
)

func TestSnapshotCodecs(t *testing.T) {
	s, err := Calculate(manyTiles(12), DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	s = s.WithPassID("pass-1")

	for _, format := range []string{FormatJSON, FormatCBOR} {
		t.Run(format, func(t *testing.T) {
			data, err := MarshalSnapshot(s, format)
			if err != nil {
				t.Fatalf("MarshalSnapshot() error: %v", err)
			}
			got, err := UnmarshalSnapshot(data, format)
			if err != nil {
				t.Fatalf("UnmarshalSnapshot() error: %v", err)
			}
			if !got.Equal(s) {
				t.Error("decoded snapshot differs from original")
			}
			if got.PassID != "pass-1" {
				t.Errorf("PassID = %q", got.PassID)
			}
			if _, ok := got.Position("pin-005"); !ok {
				t.Error("decoded snapshot lost its index")
			}
		})
	}
}

func TestSnapshotCodecRejectsUnknownFormat(t *testing.T) {
	if _, err := MarshalSnapshot(Empty(DefaultConfig()), "svg"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error = %v, want invalid format", err)
	}
	if _, err := UnmarshalSnapshot([]byte("{}"), "xml"); !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("error = %v, want invalid format", err)
	}
}

func TestWriteSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.json")
	if err := WriteSnapshotFile(Empty(DefaultConfig()), path, FormatJSON); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s, err := UnmarshalSnapshot(data, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 0 || s.Columns != 5 {
		t.Errorf("decoded = %+v", s)
	}
}
