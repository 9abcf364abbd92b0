package catalog

import (
	"errors"
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Sentinel kinds for catalog loading.
var (
	ErrLoadCatalog  = errors.New("load catalog failed")
	ErrEmptyCatalog = errors.New("catalog has no charts")
)

// chartFile mirrors the catalog YAML layout.
type chartFile struct {
	Charts []Chart `koanf:"charts"`
}

// LoadCharts reads the raw chart rows from a YAML catalog:
//
//	charts:
//	  - song_id: fracture
//	    difficulty: 2
//	    rating: 11.2
//	    title: Fracture Ray
func LoadCharts(path string) ([]Chart, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	var cf chartFile
	if err := k.UnmarshalWithConf("", &cf, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadCatalog, err)
	}
	if len(cf.Charts) == 0 {
		return nil, ErrEmptyCatalog
	}
	return cf.Charts, nil
}

// LoadFile reads a YAML chart catalog into a Memory catalog.
func LoadFile(path string) (*Memory, error) {
	charts, err := LoadCharts(path)
	if err != nil {
		return nil, err
	}
	m := New(charts...)
	if m.Size() == 0 {
		return nil, ErrEmptyCatalog
	}
	return m, nil
}
