package resultdoc

import (
	"strings"
	"testing"

	"github.com/latticeforge/sqs/pkg/cache"
	"github.com/latticeforge/sqs/pkg/lattice"
)

func cscl(t *testing.T) *lattice.Structure {
	t.Helper()
	a := 4.12
	lat := [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
	coords := [][3]float64{{0, 0, 0}, {0.5, 0.5, 0.5}}
	s, err := lattice.New(lat, coords, []string{"Cs", "Cl"}, [3]bool{true, true, true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestBuildDocumentIncludesConfigurationByDefault(t *testing.T) {
	s := cscl(t)
	entries := []cache.Entry{{Objective: 0.1, Configuration: []int{0, 1}, Rank: 0}}
	doc := BuildDocument(s, entries, []string{"Cl", "Cs"}, nil, Fields{}, nil, nil)
	entry, ok := doc.Configurations[0]
	if !ok {
		t.Fatal("expected rank 0 in Configurations")
	}
	if len(entry.Configuration) != 2 || entry.Configuration[0] != "Cl" || entry.Configuration[1] != "Cs" {
		t.Fatalf("Configuration = %v, want [Cl Cs]", entry.Configuration)
	}
	if entry.Objective != nil {
		t.Fatal("expected Objective to be omitted when Fields.Objective is false")
	}
}

func TestBuildDocumentIncludesObjectiveWhenRequested(t *testing.T) {
	s := cscl(t)
	entries := []cache.Entry{{Objective: 0.25, Configuration: []int{0, 1}, Rank: 0}}
	doc := BuildDocument(s, entries, []string{"Cl", "Cs"}, nil, Fields{Objective: true}, nil, nil)
	entry := doc.Configurations[0]
	if entry.Objective == nil || *entry.Objective != 0.25 {
		t.Fatalf("Objective = %v, want 0.25", entry.Objective)
	}
}

func TestBuildDocumentIncludesWhichForSublattice(t *testing.T) {
	s := cscl(t)
	doc := BuildDocument(s, nil, []string{"Cl", "Cs"}, []int{0}, Fields{}, nil, nil)
	if len(doc.Which) != 1 || doc.Which[0] != 0 {
		t.Fatalf("Which = %v, want [0]", doc.Which)
	}
}

func TestMarshalYAMLRoundTripsStructureFields(t *testing.T) {
	s := cscl(t)
	doc := BuildDocument(s, nil, []string{"Cl", "Cs"}, nil, Fields{}, nil, nil)
	out, err := Marshal(doc, FormatYAML)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "species:") {
		t.Fatalf("expected YAML to contain species field, got:\n%s", out)
	}
}

func TestMarshalJSON(t *testing.T) {
	s := cscl(t)
	doc := BuildDocument(s, nil, []string{"Cl", "Cs"}, nil, Fields{}, nil, nil)
	out, err := Marshal(doc, FormatJSON)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(out), "\"structure\"") {
		t.Fatalf("expected JSON to contain structure key, got:\n%s", out)
	}
}

func TestMarshalRejectsUnknownFormat(t *testing.T) {
	s := cscl(t)
	doc := BuildDocument(s, nil, []string{"Cl", "Cs"}, nil, Fields{}, nil, nil)
	if _, err := Marshal(doc, Format("pickle")); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
