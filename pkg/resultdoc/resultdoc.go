// Package resultdoc builds the persisted result document a run writes
// out after a search or analysis completes, and marshals it to YAML or
// JSON.
package resultdoc

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/latticeforge/sqs/pkg/cache"
	"github.com/latticeforge/sqs/pkg/lattice"
)

// StructureRecord is the YAML/JSON-friendly projection of a
// lattice.Structure.
type StructureRecord struct {
	Lattice    [3][3]float64 `yaml:"lattice" json:"lattice"`
	FracCoords [][3]float64  `yaml:"coords" json:"coords"`
	Species    []string      `yaml:"species" json:"species"`
	PBC        [3]bool       `yaml:"pbc" json:"pbc"`
}

// Build reconstructs a lattice.Structure from its persisted form, the
// inverse of NewStructureRecord.
func (r StructureRecord) Build() (*lattice.Structure, error) {
	return lattice.New(r.Lattice, r.FracCoords, r.Species, r.PBC)
}

// NewStructureRecord projects s into its persisted form.
func NewStructureRecord(s *lattice.Structure) StructureRecord {
	lat := s.Lattice()
	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = lat.At(i, j)
		}
	}
	return StructureRecord{
		Lattice:    rows,
		FracCoords: s.FracCoords(),
		Species:    s.Species(),
		PBC:        s.PBC(),
	}
}

// ConfigurationEntry is one ranked result. Which fields are populated
// depends on the fields the caller asked BuildDocument to include.
type ConfigurationEntry struct {
	Configuration []string        `yaml:"configuration,omitempty" json:"configuration,omitempty"`
	Objective     *float64        `yaml:"objective,omitempty" json:"objective,omitempty"`
	Parameters    [][][]float64   `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// Document is the full persisted result: the base structure, every
// retained configuration keyed by rank, and optionally the mutated
// sublattice site list and per-thread timing samples.
type Document struct {
	Structure      StructureRecord         `yaml:"structure" json:"structure"`
	Configurations map[int]ConfigurationEntry `yaml:"configurations" json:"configurations"`
	Which          []int                   `yaml:"which,omitempty" json:"which,omitempty"`
	Timings        map[int][]float64       `yaml:"timings,omitempty" json:"timings,omitempty"`
}

// Fields selects which per-configuration data BuildDocument populates.
// Configuration is always included, matching the reference CLI's
// "configuration is always force-included in dump_include" behavior.
type Fields struct {
	Objective  bool
	Parameters bool
}

// ParameterSource supplies the SRO parameter tensor for a given rank's
// configuration, when Fields.Parameters is set. Callers that only need
// the configuration and objective can pass a nil source.
type ParameterSource func(rank int, configuration []int) [][][]float64

// BuildDocument assembles a Document from the drained cache entries.
// speciesSymbols maps a species ordinal to its chemical symbol (ordered
// the same way lattice.Structure.UniqueSpecies returns them). which is
// the mutated sublattice site list, or nil when the composition covered
// the whole structure. timings maps thread id to its elapsed-seconds
// samples; pass nil to omit it.
func BuildDocument(structure *lattice.Structure, entries []cache.Entry, speciesSymbols []string, which []int, fields Fields, parameters ParameterSource, timings map[int][]float64) *Document {
	configs := make(map[int]ConfigurationEntry, len(entries))
	for _, e := range entries {
		entry := ConfigurationEntry{Configuration: symbolsFromOrdinals(e.Configuration, speciesSymbols)}
		if fields.Objective {
			obj := e.Objective
			entry.Objective = &obj
		}
		if fields.Parameters && parameters != nil {
			entry.Parameters = parameters(e.Rank, e.Configuration)
		}
		configs[e.Rank] = entry
	}

	return &Document{
		Structure:      NewStructureRecord(structure),
		Configurations: configs,
		Which:          which,
		Timings:        timings,
	}
}

func symbolsFromOrdinals(ordinals []int, symbols []string) []string {
	out := make([]string, len(ordinals))
	for i, o := range ordinals {
		if o < 0 || o >= len(symbols) {
			out[i] = fmt.Sprintf("?%d", o)
			continue
		}
		out[i] = symbols[o]
	}
	return out
}

// Format selects the on-disk encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Marshal encodes doc in the requested format.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatYAML, "":
		return yaml.Marshal(doc)
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	default:
		return nil, fmt.Errorf("resultdoc: unsupported dump format %q", format)
	}
}
