package layout

import (
	"encoding/json"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/matzehuels/masonry/pkg/errors"
)

// Snapshot encodings.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// ValidFormats is the set of supported snapshot encodings.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatCBOR: true,
}

// cborEnc uses Core Deterministic Encoding so equal snapshots encode to
// identical bytes.
var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("layout: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("layout: CBOR decoder initialization failed: " + err.Error())
	}
}

// ValidateFormat checks that a format is a supported snapshot encoding.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: json, cbor)", format)
	}
	return nil
}

// MarshalSnapshot encodes s in the given format. JSON is pretty-printed.
func MarshalSnapshot(s *Snapshot, format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatCBOR:
		return cborEnc.Marshal(s)
	default:
		return nil, ValidateFormat(format)
	}
}

// UnmarshalSnapshot decodes a snapshot in the given format.
func UnmarshalSnapshot(data []byte, format string) (*Snapshot, error) {
	var s Snapshot
	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &s)
	case FormatCBOR:
		err = cborDec.Unmarshal(data, &s)
	default:
		return nil, ValidateFormat(format)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "unmarshal %s snapshot", format)
	}
	if s.Placements == nil {
		s.Placements = []Placement{}
	}
	s.reindex()
	return &s, nil
}

// WriteSnapshotFile writes s to path in the given format.
func WriteSnapshotFile(s *Snapshot, path, format string) error {
	data, err := MarshalSnapshot(s, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
