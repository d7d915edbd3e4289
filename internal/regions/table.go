package regions

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"os"
	"strings"
)

//go:embed standard.json
var standardTable []byte

type tableFile struct {
	Regions []tableEntry `json:"regions"`
}

type tableEntry struct {
	Name string `json:"name"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Load reads a JSON region table of the form
//
//	{"regions":[{"name":"PAR","x":240,"y":480}, ...]}
//
// Names are upper-cased. Entries keep their file order, which decides ties
// in Resolve.
func Load(r io.Reader, bounds image.Rectangle) (*Index, error) {
	var tf tableFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&tf); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	regions := make([]Region, 0, len(tf.Regions))
	for _, e := range tf.Regions {
		regions = append(regions, Region{
			Name:   strings.ToUpper(strings.TrimSpace(e.Name)),
			Center: image.Pt(e.X, e.Y),
		})
	}
	return New(regions, bounds)
}

// LoadFile loads a region table from path.
func LoadFile(path string, bounds image.Rectangle) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	defer f.Close()
	return Load(f, bounds)
}

// Standard returns the built-in table for the classic map.
func Standard(bounds image.Rectangle) (*Index, error) {
	return Load(bytes.NewReader(standardTable), bounds)
}
