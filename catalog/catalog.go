package catalog

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrMalformedCatalog = errors.New("catalog: malformed case catalog")
	ErrEmptyCatalog     = errors.New("catalog: no plates")
)

// Injection is a candidate gate location; Direction is carried from the
// catalog but does not enter the solve
type Injection struct {
	X, Y      float64
	Direction string
}

type Plate struct {
	Name          string
	Width, Height float64
	Injections    []Injection
}

func (p Plate) ReferenceLength() float64 {
	return math.Max(p.Width, p.Height)
}

// Catalog keeps plates in file order
type Catalog struct {
	Plates []Plate
}

// Case is one plate and injection location pair
type Case struct {
	Plate           string
	Injection       Injection
	Index           int // Position in catalog order
	MeshPath        string
	OutputBase      string // MeshPath without extension
	ReferenceLength float64
}

func (c Case) String() string {
	return fmt.Sprintf("%s (%g, %g)", c.Plate, c.Injection.X, c.Injection.Y)
}

func ReadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// Parse reads the mapping
//
//	<plate>:
//	  plate: [width, height]
//	  injection_locations:
//	    - [[x, y], direction]
func Parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCatalog, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, ErrEmptyCatalog
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level is not a mapping (line %d)", ErrMalformedCatalog, root.Line)
	}
	cat := &Catalog{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		plate, err := parsePlate(root.Content[i].Value, root.Content[i+1])
		if err != nil {
			return nil, err
		}
		cat.Plates = append(cat.Plates, plate)
	}
	if len(cat.Plates) == 0 {
		return nil, ErrEmptyCatalog
	}
	return cat, nil
}

type plateEntry struct {
	Plate              []float64     `yaml:"plate"`
	InjectionLocations [][]yaml.Node `yaml:"injection_locations"`
}

func parsePlate(name string, node *yaml.Node) (p Plate, err error) {
	p.Name = name
	var entry plateEntry
	if err = node.Decode(&entry); err != nil {
		return p, fmt.Errorf("%w: plate %q: %v", ErrMalformedCatalog, name, err)
	}
	if len(entry.Plate) != 2 {
		return p, fmt.Errorf("%w: plate %q dimensions need [width, height], got %v",
			ErrMalformedCatalog, name, entry.Plate)
	}
	p.Width, p.Height = entry.Plate[0], entry.Plate[1]
	if !(p.Width > 0 && p.Height > 0) {
		return p, fmt.Errorf("%w: plate %q has dimensions %g x %g", ErrMalformedCatalog, name, p.Width, p.Height)
	}
	for k, loc := range entry.InjectionLocations {
		if len(loc) != 2 {
			return p, fmt.Errorf("%w: plate %q injection %d needs [[x, y], direction]",
				ErrMalformedCatalog, name, k)
		}
		var xy []float64
		if err = loc[0].Decode(&xy); err != nil || len(xy) != 2 {
			return p, fmt.Errorf("%w: plate %q injection %d needs [x, y] (line %d)",
				ErrMalformedCatalog, name, k, loc[0].Line)
		}
		if loc[1].Kind != yaml.ScalarNode {
			return p, fmt.Errorf("%w: plate %q injection %d direction (line %d)",
				ErrMalformedCatalog, name, k, loc[1].Line)
		}
		p.Injections = append(p.Injections, Injection{X: xy[0], Y: xy[1], Direction: loc[1].Value})
	}
	return p, nil
}

// MeshPath is <dataDir>/<plate>/<plate>_<ix>_<iy>_study.msh with the
// coordinates truncated toward zero
func MeshPath(dataDir, plate string, inj Injection) string {
	name := fmt.Sprintf("%s_%d_%d_study.msh", plate, int(inj.X), int(inj.Y))
	return filepath.Join(dataDir, plate, name)
}

// Cases lists every plate and injection pair in catalog order
func (cat *Catalog) Cases(dataDir string) (cases []Case) {
	for _, p := range cat.Plates {
		for _, inj := range p.Injections {
			mp := MeshPath(dataDir, p.Name, inj)
			cases = append(cases, Case{
				Plate:           p.Name,
				Injection:       inj,
				Index:           len(cases),
				MeshPath:        mp,
				OutputBase:      strings.TrimSuffix(mp, filepath.Ext(mp)),
				ReferenceLength: p.ReferenceLength(),
			})
		}
	}
	return
}
