// Package settings validates the raw parameters a run is configured
// with and turns them into an IterationSettings a search can execute
// against. Every parameter is read by its own small function returning
// (value, error); there is no central parameter registry or singleton
// — each reader is just a function of the raw input, composed by
// Build. This mirrors the shape of validation-by-
// reader-function the reference implementation uses, without its
// decorator/registry machinery.
package settings

import (
	"math"
	"sort"

	"github.com/latticeforge/sqs/pkg/errs"
	"github.com/latticeforge/sqs/pkg/lattice"
	"github.com/latticeforge/sqs/pkg/objective"
)

const (
	DefaultAtol = 1e-3
	DefaultRtol = 1e-5

	defaultRandomIterations     = 1e5
	defaultMaxOutputConfigs     = 10
	systematicDefaultIterations = -1
)

// Mode selects how the search space is traversed.
type Mode int

const (
	ModeRandom Mode = iota
	ModeSystematic
)

func (m Mode) String() string {
	if m == ModeSystematic {
		return "systematic"
	}
	return "random"
}

func parseMode(s string) (Mode, error) {
	switch s {
	case "", "random":
		return ModeRandom, nil
	case "systematic":
		return ModeSystematic, nil
	default:
		return 0, errs.NewBadSettings("mode", "unknown mode %q, want \"random\" or \"systematic\"", s)
	}
}

// Raw is the as-decoded (YAML or JSON) settings document, before any
// validation or defaulting.
type Raw struct {
	Atol                    *float64          `yaml:"atol,omitempty" json:"atol,omitempty"`
	Rtol                    *float64          `yaml:"rtol,omitempty" json:"rtol,omitempty"`
	Mode                    string            `yaml:"mode,omitempty" json:"mode,omitempty"`
	Iterations              *float64          `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	MaxOutputConfigurations *float64          `yaml:"max_output_configurations,omitempty" json:"max_output_configurations,omitempty"`
	Composition             map[string]any    `yaml:"composition,omitempty" json:"composition,omitempty"` // species symbol -> count, plus optional "which"
	ShellDistances          []float64         `yaml:"shell_distances,omitempty" json:"shell_distances,omitempty"`
	ShellWeights            map[int]float64   `yaml:"shell_weights,omitempty" json:"shell_weights,omitempty"`
	PairWeights             [][]float64       `yaml:"pair_weights,omitempty" json:"pair_weights,omitempty"`
	TargetObjective         any               `yaml:"target_objective,omitempty" json:"target_objective,omitempty"` // nil | float64 | [][]float64 | [][][]float64
	ThreadsPerRank          any               `yaml:"threads_per_rank,omitempty" json:"threads_per_rank,omitempty"` // nil | number | []number
	Seed                    *uint64           `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// ReadAtol validates the absolute distance tolerance used to cluster
// interatomic distances into coordination shells.
func ReadAtol(r Raw) (float64, error) {
	if r.Atol == nil {
		return DefaultAtol, nil
	}
	if *r.Atol < 0 {
		return 0, errs.NewBadSettings("atol", "must be non-negative, got %v", *r.Atol)
	}
	return *r.Atol, nil
}

// ReadRtol validates the relative distance tolerance.
func ReadRtol(r Raw) (float64, error) {
	if r.Rtol == nil {
		return DefaultRtol, nil
	}
	if *r.Rtol < 0 {
		return 0, errs.NewBadSettings("rtol", "must be non-negative, got %v", *r.Rtol)
	}
	return *r.Rtol, nil
}

// ReadMode validates the traversal mode.
func ReadMode(r Raw) (Mode, error) {
	return parseMode(r.Mode)
}

// ReadIterations validates the iteration budget. Its default depends on
// mode: unbounded (run to completion) for systematic, a fixed sample
// count for random.
func ReadIterations(r Raw, mode Mode) (int64, error) {
	if r.Iterations == nil {
		if mode == ModeSystematic {
			return systematicDefaultIterations, nil
		}
		return int64(defaultRandomIterations), nil
	}
	v := *r.Iterations
	if v != math.Trunc(v) || v < 0 {
		return 0, errs.NewBadSettings("iterations", "must be a nonnegative integer, got %v", v)
	}
	return int64(v), nil
}

// ReadMaxOutputConfigurations validates how many top configurations the
// run retains.
func ReadMaxOutputConfigurations(r Raw) (int, error) {
	if r.MaxOutputConfigurations == nil {
		return defaultMaxOutputConfigs, nil
	}
	v := *r.MaxOutputConfigurations
	if v != math.Trunc(v) || v <= 0 {
		return 0, errs.NewBadSettings("max_output_configurations", "must be a positive integer, got %v", v)
	}
	return int(v), nil
}

// Composition is the validated species/sublattice assignment.
type Composition struct {
	Counts       map[int]int // species ordinal -> count, over the sublattice
	Which        []int       // sorted site indices the composition applies to
	IsSublattice bool
}

// ReadComposition validates the requested species counts against the
// structure and, if present, a restricted sublattice ("which"). which
// may be absent (defaults to the whole structure), the literal "all",
// a single species symbol (every site currently carrying that species),
// or an explicit list of site indices. Every species named in the
// composition must already occur in the structure; any other symbol is
// rejected.
func ReadComposition(r Raw, s *lattice.Structure) (Composition, error) {
	if len(r.Composition) == 0 {
		return Composition{}, errs.NewBadSettings("composition", "must not be empty")
	}

	raw := make(map[string]any, len(r.Composition))
	var whichSpec any
	for k, v := range r.Composition {
		if k == "which" {
			whichSpec = v
			continue
		}
		raw[k] = v
	}

	which, isSublattice, err := resolveWhich(whichSpec, s)
	if err != nil {
		return Composition{}, err
	}

	unique := s.UniqueSpecies()
	ordinal := make(map[string]int, len(unique))
	for i, sym := range unique {
		ordinal[sym] = i
	}

	counts := make(map[int]int, len(raw))
	total := 0
	for sym, rawCount := range raw {
		ord, ok := ordinal[sym]
		if !ok {
			return Composition{}, errs.NewBadSettings("composition", "species %q is not one of the structure's species %v", sym, unique)
		}
		f, ok := rawCount.(float64)
		if i, isInt := rawCount.(int); isInt {
			f, ok = float64(i), true
		}
		if !ok || f != math.Trunc(f) {
			return Composition{}, errs.NewBadSettings("composition", "count for %q must be an integer, got %v", sym, rawCount)
		}
		n := int(f)
		if n < 0 {
			return Composition{}, errs.NewBadSettings("composition", "count for %q must be non-negative, got %d", sym, n)
		}
		counts[ord] = n
		total += n
	}

	if total != len(which) {
		return Composition{}, errs.NewBadSettings("composition", "counts sum to %d atoms, want %d (size of the target sublattice)", total, len(which))
	}
	if len(counts) < 1 {
		return Composition{}, errs.NewBadSettings("composition", "must name at least one species")
	}

	return Composition{Counts: counts, Which: which, IsSublattice: isSublattice}, nil
}

func resolveWhich(spec any, s *lattice.Structure) ([]int, bool, error) {
	switch v := spec.(type) {
	case nil, string:
		sym, _ := spec.(string)
		if spec == nil || sym == "" || sym == "all" {
			which := make([]int, s.NumAtoms())
			for i := range which {
				which[i] = i
			}
			return which, false, nil
		}
		species := s.Species()
		var which []int
		for i, sp := range species {
			if sp == sym {
				which = append(which, i)
			}
		}
		if len(which) == 0 {
			return nil, false, errs.NewBadSettings("composition.which", "species %q does not occur in the structure", sym)
		}
		return which, true, nil
	case []int:
		if err := validateIndices(v, s.NumAtoms()); err != nil {
			return nil, false, err
		}
		sorted := append([]int(nil), v...)
		sort.Ints(sorted)
		return sorted, true, nil
	case []any:
		indices := make([]int, len(v))
		for i, e := range v {
			switch n := e.(type) {
			case int:
				indices[i] = n
			case float64:
				if n != math.Trunc(n) {
					return nil, false, errs.NewBadSettings("composition.which", "site index must be an integer, got %v", n)
				}
				indices[i] = int(n)
			default:
				return nil, false, errs.NewBadSettings("composition.which", "site index must be an integer, got %T", e)
			}
		}
		return resolveWhich(indices, s)
	default:
		return nil, false, errs.NewBadSettings("composition.which", "must be a species symbol, \"all\", or a list of site indices, got %T", spec)
	}
}

func validateIndices(indices []int, numAtoms int) error {
	if len(indices) == 0 {
		return errs.NewBadSettings("composition.which", "must not be empty")
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= numAtoms {
			return errs.NewBadSettings("composition.which", "site index %d is out of range [0,%d)", idx, numAtoms)
		}
		if seen[idx] {
			return errs.NewBadSettings("composition.which", "duplicate site index %d", idx)
		}
		seen[idx] = true
	}
	return nil
}

// ReadShellDistances validates explicit shell boundaries, or derives
// them from the structure's pairwise distances when absent. A leading
// zero (the reserved self-pair shell) is injected if the caller did not
// supply one.
func ReadShellDistances(r Raw, s *lattice.Structure, atol, rtol float64) ([]float64, error) {
	if len(r.ShellDistances) == 0 {
		return lattice.DefaultShellDistances(s, atol, rtol), nil
	}
	d := append([]float64(nil), r.ShellDistances...)
	if len(d) > 0 && d[0] != 0 {
		d = append([]float64{0}, d...)
	}
	if len(d) < 2 {
		return nil, errs.NewBadSettings("shell_distances", "must name at least one non-zero shell")
	}
	for i := 1; i < len(d); i++ {
		if d[i] <= d[i-1] {
			return nil, errs.NewBadSettings("shell_distances", "must be strictly increasing, got %v", d)
		}
	}
	return d, nil
}

// ReadShellWeights validates the per-shell weights used to scope which
// shells the SRO tensor and objective consider. Defaults to 1/shell for
// every shell present in shellDistances.
func ReadShellWeights(r Raw, shellDistances []float64) (map[int]float64, error) {
	numShells := len(shellDistances) - 1
	if len(r.ShellWeights) == 0 {
		w := make(map[int]float64, numShells)
		for i := 1; i <= numShells; i++ {
			w[i] = 1.0 / float64(i)
		}
		return w, nil
	}
	for shell := range r.ShellWeights {
		if shell < 1 || shell > numShells {
			return nil, errs.NewBadSettings("shell_weights", "shell %d is out of range [1,%d]", shell, numShells)
		}
	}
	return r.ShellWeights, nil
}

// ReadPairWeights validates the K x K {0,1} mask selecting which
// species pairs the objective scores. Defaults to every cross pair
// (off-diagonal ones, zero diagonal) — same-species correlations are
// excluded from the objective unless explicitly requested.
func ReadPairWeights(r Raw, numSpecies int) ([][]int, error) {
	if len(r.PairWeights) == 0 {
		out := make([][]int, numSpecies)
		for a := range out {
			out[a] = make([]int, numSpecies)
			for b := range out[a] {
				if a != b {
					out[a][b] = 1
				}
			}
		}
		return out, nil
	}
	if len(r.PairWeights) != numSpecies {
		return nil, errs.NewBadSettings("pair_weights", "must be %d x %d, got %d rows", numSpecies, numSpecies, len(r.PairWeights))
	}
	out := make([][]int, numSpecies)
	for a, row := range r.PairWeights {
		if len(row) != numSpecies {
			return nil, errs.NewBadSettings("pair_weights", "row %d has %d columns, want %d", a, len(row), numSpecies)
		}
		out[a] = make([]int, numSpecies)
		for b, v := range row {
			if v != 0 && v != 1 {
				return nil, errs.NewBadSettings("pair_weights", "entries must be 0 or 1, got %v at (%d,%d)", v, a, b)
			}
			out[a][b] = int(v)
		}
	}
	for a := 0; a < numSpecies; a++ {
		for b := a + 1; b < numSpecies; b++ {
			if out[a][b] != out[b][a] {
				return nil, errs.NewBadSettings("pair_weights", "must be symmetric, (%d,%d)=%d but (%d,%d)=%d", a, b, out[a][b], b, a, out[b][a])
			}
		}
	}
	return out, nil
}

// ReadTargetObjective validates and normalizes the target SRO tensor
// into shape (numShells, numSpecies, numSpecies), aligned with the
// ascending shell indices of shellWeights. A scalar broadcasts to every
// (a,b) entry of every weighted shell scaled by that shell's weight
// (matching "target_objective: N" meaning "N perfectly random
// neighborhoods"); a (numSpecies,numSpecies) matrix broadcasts across
// shells, scaled per-shell by its weight; a full (numShells,
// numSpecies, numSpecies) tensor is used as given. Absent, the target
// is all zeros — the random-reference value every alpha converges to.
func ReadTargetObjective(r Raw, shellWeights map[int]float64, numSpecies int) (*objective.Target, error) {
	shells := make([]int, 0, len(shellWeights))
	for s, w := range shellWeights {
		if w > 0 {
			shells = append(shells, s)
		}
	}
	sort.Ints(shells)

	values := make([][][]float64, len(shells))
	for i := range values {
		values[i] = zeroMatrix(numSpecies)
	}

	switch t := r.TargetObjective.(type) {
	case nil:
		// all zero, already built above
	case float64:
		for i, s := range shells {
			w := shellWeights[s]
			values[i] = fillMatrix(numSpecies, w*t)
		}
	case [][]float64:
		if err := validateSquareSymmetric(t, numSpecies, "target_objective"); err != nil {
			return nil, err
		}
		for i, s := range shells {
			w := shellWeights[s]
			values[i] = scaleMatrix(t, w)
		}
	case [][][]float64:
		if len(t) != len(shells) {
			return nil, errs.NewBadSettings("target_objective", "has %d shells, want %d", len(t), len(shells))
		}
		for i, layer := range t {
			if err := validateSquareSymmetric(layer, numSpecies, "target_objective"); err != nil {
				return nil, err
			}
			values[i] = layer
		}
	default:
		return nil, errs.NewBadSettings("target_objective", "must be a number, a 2D matrix, or a 3D tensor, got %T", r.TargetObjective)
	}

	return &objective.Target{Shells: shells, Values: values}, nil
}

func zeroMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func fillMatrix(n int, v float64) [][]float64 {
	m := zeroMatrix(n)
	for a := range m {
		for b := range m[a] {
			m[a][b] = v
		}
	}
	return m
}

func scaleMatrix(m [][]float64, w float64) [][]float64 {
	out := zeroMatrix(len(m))
	for a := range m {
		for b := range m[a] {
			out[a][b] = m[a][b] * w
		}
	}
	return out
}

func validateSquareSymmetric(m [][]float64, n int, param string) error {
	if len(m) != n {
		return errs.NewBadSettings(param, "must be %dx%d, got %d rows", n, n, len(m))
	}
	for a, row := range m {
		if len(row) != n {
			return errs.NewBadSettings(param, "row %d has %d columns, want %d", a, len(row), n)
		}
	}
	for a := 0; a < n; a++ {
		for b := a + 1; b < n; b++ {
			if m[a][b] != m[b][a] {
				return errs.NewBadSettings(param, "must be symmetric, (%d,%d)=%v but (%d,%d)=%v", a, b, m[a][b], b, a, m[b][a])
			}
		}
	}
	return nil
}

// ReadThreadsPerRank validates the per-rank thread count. Multi-value
// (multi-rank) specs require MPI support, which this implementation
// does not provide — a run is always a single rank, so anything other
// than a single thread count is rejected.
func ReadThreadsPerRank(r Raw) ([]int, error) {
	if r.ThreadsPerRank == nil {
		return []int{-1}, nil
	}
	switch v := r.ThreadsPerRank.(type) {
	case float64:
		if v != math.Trunc(v) || v == 0 {
			return nil, errs.NewBadSettings("threads_per_rank", "must be a non-zero integer, got %v", v)
		}
		return []int{int(v)}, nil
	case int:
		return ReadThreadsPerRank(Raw{ThreadsPerRank: float64(v)})
	case []float64:
		if len(v) != 1 {
			return nil, errs.NewBadSettings("threads_per_rank", "multiple ranks require MPI support, which this build does not provide")
		}
		return ReadThreadsPerRank(Raw{ThreadsPerRank: v[0]})
	case []any:
		if len(v) != 1 {
			return nil, errs.NewBadSettings("threads_per_rank", "multiple ranks require MPI support, which this build does not provide")
		}
		return ReadThreadsPerRank(Raw{ThreadsPerRank: v[0]})
	default:
		return nil, errs.NewBadSettings("threads_per_rank", "must be a number or single-element list, got %T", r.ThreadsPerRank)
	}
}

// ReadSeed validates the global PRNG seed used to derive per-worker
// seeds in random mode. Defaults to a fixed, documented value so runs
// are reproducible unless the caller explicitly asks for a fresh seed.
func ReadSeed(r Raw) uint64 {
	if r.Seed == nil {
		return 0x5351536765656E65 // "SQSgeene" — arbitrary fixed default
	}
	return *r.Seed
}

// IterationSettings is the fully validated, ready-to-run configuration
// for one search.
type IterationSettings struct {
	Atol, Rtol              float64
	Mode                    Mode
	Iterations              int64
	MaxOutputConfigurations int
	Structure               *lattice.Structure
	Composition             Composition
	ShellDistances          []float64
	ShellWeights            map[int]float64
	PairWeights             [][]int
	TargetObjective         *objective.Target
	ThreadsPerRank          []int
	Seed                    uint64
}

// Build validates every parameter of r against structure and assembles
// IterationSettings, or returns the first validation error encountered.
func Build(r Raw, structure *lattice.Structure) (*IterationSettings, error) {
	atol, err := ReadAtol(r)
	if err != nil {
		return nil, err
	}
	rtol, err := ReadRtol(r)
	if err != nil {
		return nil, err
	}
	mode, err := ReadMode(r)
	if err != nil {
		return nil, err
	}
	iterations, err := ReadIterations(r, mode)
	if err != nil {
		return nil, err
	}
	maxOutput, err := ReadMaxOutputConfigurations(r)
	if err != nil {
		return nil, err
	}
	composition, err := ReadComposition(r, structure)
	if err != nil {
		return nil, err
	}
	shellDistances, err := ReadShellDistances(r, structure, atol, rtol)
	if err != nil {
		return nil, err
	}
	shellWeights, err := ReadShellWeights(r, shellDistances)
	if err != nil {
		return nil, err
	}
	numSpecies := len(structure.UniqueSpecies())
	pairWeights, err := ReadPairWeights(r, numSpecies)
	if err != nil {
		return nil, err
	}
	target, err := ReadTargetObjective(r, shellWeights, numSpecies)
	if err != nil {
		return nil, err
	}
	threadsPerRank, err := ReadThreadsPerRank(r)
	if err != nil {
		return nil, err
	}

	return &IterationSettings{
		Atol:                    atol,
		Rtol:                    rtol,
		Mode:                    mode,
		Iterations:              iterations,
		MaxOutputConfigurations: maxOutput,
		Structure:               structure,
		Composition:             composition,
		ShellDistances:          shellDistances,
		ShellWeights:            shellWeights,
		PairWeights:             pairWeights,
		TargetObjective:         target,
		ThreadsPerRank:          threadsPerRank,
		Seed:                    ReadSeed(r),
	}, nil
}
