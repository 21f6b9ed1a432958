// Package formatspec loads the per-tree format specification that tells the
// extractor how scan paths map to metadata fields.
//
// A specification is a YAML (or JSON) document:
//
//	pathTemplate: Images/W<wave_number>/<plant_qr_code>/<frame_number>.png
//	fixedValues:
//	  species: Arabidopsis
//	  experiment: Drought
//	accessionSource:
//	  location: ../accessions.xlsx
//	  sheet: Sheet1
//	  idColumn: QR Code
//	  nameColumn: Accession
package formatspec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
)

// FileNames are the specification file names searched for, in priority order
var FileNames = []string{"plantscan.yaml", "plantscan.yml", "plantscan.json"}

// ErrNotFound is returned when no specification exists in a directory or its ancestors
var ErrNotFound = errors.New("format specification not found")

// AccessionSource points at the spreadsheet mapping QR codes to accession names
type AccessionSource struct {
	Location   string `yaml:"location"`
	Sheet      string `yaml:"sheet"`
	IDColumn   string `yaml:"idColumn"`
	NameColumn string `yaml:"nameColumn"`
}

// Spec is a loaded and validated format specification
type Spec struct {
	PathTemplate    string
	FixedValues     map[string]string
	AccessionSource AccessionSource

	// Fixed holds FixedValues decoded through the field catalog
	Fixed fields.Record

	// Path is the specification file; Dir is the directory it governs
	Path string
	Dir  string
}

// AccessionPath resolves the accession source location against the specification's directory
func (s *Spec) AccessionPath() string {
	if filepath.IsAbs(s.AccessionSource.Location) {
		return s.AccessionSource.Location
	}
	return filepath.Join(s.Dir, s.AccessionSource.Location)
}

// Find searches dir and its ancestors for a specification file and returns its path
func Find(dir string) (string, error) {
	start, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	current := start
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(current, name)
			info, err := os.Stat(candidate)
			if err == nil && !info.IsDir() {
				return candidate, nil
			}
			if err != nil && !os.IsNotExist(err) {
				return "", fmt.Errorf("failed to check %s: %w", candidate, err)
			}
		}

		parent := filepath.Dir(current)
		if parent == current {
			return "", fmt.Errorf("%w: searched %s and its parent directories for %v", ErrNotFound, start, FileNames)
		}
		current = parent
	}
}

// Load reads and validates the specification at path
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read format specification: %w", err)
	}

	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid format specification %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	spec.Path = abs
	spec.Dir = filepath.Dir(abs)
	return spec, nil
}

// FindAndLoad locates the nearest specification above dir and loads it
func FindAndLoad(dir string) (*Spec, error) {
	path, err := Find(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Parse validates and decodes a specification document.
// Structural problems are reported together as ValidationErrors.
func Parse(data []byte) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	spec := &Spec{FixedValues: make(map[string]string)}
	if errs := validate(&doc, spec); len(errs) > 0 {
		return nil, errs
	}
	return spec, nil
}
