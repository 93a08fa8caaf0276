package generator

import "math/big"

// Systematic enumerates every distinct multiset permutation of the
// sublattice composition in ascending lexicographic order, striped
// across totalThreads workers: thread threadID visits global ranks
// threadID, threadID+totalThreads, threadID+2*totalThreads, ...
//
// Each rank is unranked directly via the multinomial combinatorial
// number system, so a thread never has to materialize the ranks that
// belong to its siblings — striping costs O(|W|·K) multinomial
// evaluations per produced configuration (|W| sublattice sites, K
// species), not O(totalPermutations).
type Systematic struct {
	base       *Base
	fact       []*big.Int
	total      *big.Int
	threadID   int
	numThreads int
	nextRank   *big.Int
	limit      int64 // -1 means run until total is exhausted
	produced   int64
}

// NewSystematic builds a Systematic generator for the given sublattice
// composition. threadID must be in [0, numThreads). iterations bounds
// how many configurations this thread will produce; pass -1 to run
// until the thread's share of the permutation space is exhausted.
func NewSystematic(base *Base, threadID, numThreads int, iterations int64) *Systematic {
	n := len(base.Which)
	fact := factorials(n)
	total := multinomial(base.Counts, fact)
	return &Systematic{
		base:       base,
		fact:       fact,
		total:      total,
		threadID:   threadID,
		numThreads: numThreads,
		nextRank:   big.NewInt(int64(threadID)),
		limit:      iterations,
	}
}

// Total returns |W|! / prod(n_k!), the full (unstriped) permutation
// count.
func (s *Systematic) Total() *big.Int {
	return new(big.Int).Set(s.total)
}

func (s *Systematic) Next() ([]int, int64, bool) {
	if s.limit >= 0 && s.produced >= s.limit {
		return nil, 0, false
	}
	if s.nextRank.Cmp(s.total) >= 0 {
		return nil, 0, false
	}

	rank := s.nextRank.Int64()
	vector := s.unrank(s.nextRank)
	config := s.base.realize(vector)

	s.nextRank = new(big.Int).Add(s.nextRank, big.NewInt(int64(s.numThreads)))
	s.produced++
	return config, rank, true
}

// unrank decodes the rank-th lexicographically ordered distinct
// permutation of the sublattice composition, picking each position's
// value by comparing rank against how many permutations of the
// remaining multiset start with each ascending candidate.
func (s *Systematic) unrank(rank *big.Int) []int {
	remaining := make(map[int]int, len(s.base.Counts))
	for v, c := range s.base.Counts {
		remaining[v] = c
	}

	n := len(s.base.Which)
	idx := new(big.Int).Set(rank)
	out := make([]int, n)

	for pos := 0; pos < n; pos++ {
		for _, v := range s.base.Values {
			if remaining[v] == 0 {
				continue
			}
			remaining[v]--
			count := multinomial(remaining, s.fact)
			if idx.Cmp(count) < 0 {
				out[pos] = v
				break
			}
			idx.Sub(idx, count)
			remaining[v]++
		}
	}
	return out
}
