package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/citybike-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed curation.yaml
var defaultCuration []byte

type curationFile struct {
	ExcludedPrefixes []string          `yaml:"excluded_prefixes"`
	Renames          map[string]string `yaml:"renames"`
}

// LoadCuration reads the rename table and excluded prefixes from path, or
// from the embedded default when path is empty.
func LoadCuration(path string) (domain.Curation, error) {
	data := defaultCuration
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return domain.Curation{}, fmt.Errorf("read curation file: %w", err)
		}
		data = b
	}
	return ParseCuration(data)
}

// ParseCuration decodes a curation YAML document.
func ParseCuration(data []byte) (domain.Curation, error) {
	var f curationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Curation{}, fmt.Errorf("decode curation: %w", err)
	}

	for _, p := range f.ExcludedPrefixes {
		if p == "" {
			return domain.Curation{}, errors.New("curation: empty excluded prefix would drop every trip")
		}
	}
	if f.Renames == nil {
		f.Renames = map[string]string{}
	}
	for from, to := range f.Renames {
		if to == "" {
			return domain.Curation{}, fmt.Errorf("curation: rename of %q has an empty target", from)
		}
	}
	if name := domain.RenameCycle(f.Renames); name != "" {
		return domain.Curation{}, fmt.Errorf("curation: rename chain from %q loops back on itself", name)
	}

	return domain.Curation{
		Renames:          f.Renames,
		ExcludedPrefixes: f.ExcludedPrefixes,
	}, nil
}
