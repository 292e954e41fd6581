package matching

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity scores how closely two column name sets correspond, in [0,1].
// Both inputs are normalized first. Sets of different cardinality are scored
// with Jaccard similarity over the normalized name sets, penalized by the
// length ratio. Equal-cardinality sets are scored by the best assignment of
// pairwise name similarities: exhaustive for small n, greedy beyond
// exactAssignmentLimit. The score is symmetric in its arguments.
func (e *Engine) Similarity(colsA, colsB []string) float64 {
	if len(colsA) == 0 || len(colsB) == 0 {
		return 0.0
	}

	cacheKey := similarityCacheKey(colsA, colsB)
	if v, ok := e.cachedSimilarity(cacheKey); ok {
		return v
	}

	normA := make([]string, len(colsA))
	for i, c := range colsA {
		normA[i] = e.Normalize(c)
	}
	normB := make([]string, len(colsB))
	for i, c := range colsB {
		normB[i] = e.Normalize(c)
	}

	var similarity float64
	if len(normA) != len(normB) {
		similarity = jaccard(normA, normB) * lengthRatio(len(normA), len(normB))
	} else {
		similarity = bestAssignmentScore(normA, normB)
	}

	e.storeSimilarity(cacheKey, similarity)
	return similarity
}

// ColumnSimilarity scores a single pair of column names after normalizing
// both. Used to grade individual column mappings once a whole-schema match
// has already been decided.
func (e *Engine) ColumnSimilarity(a, b string) float64 {
	return pairSimilarity(e.Normalize(a), e.Normalize(b))
}

// similarityCacheKey is order-independent both within each set and between
// the two arguments, so Similarity(A,B) and Similarity(B,A) share an entry.
func similarityCacheKey(a, b []string) string {
	ka := sortedJoin(a)
	kb := sortedJoin(b)
	if ka <= kb {
		return ka + "##" + kb
	}
	return kb + "##" + ka
}

func sortedJoin(cols []string) string {
	s := make([]string, len(cols))
	copy(s, cols)
	sort.Strings(s)
	return strings.Join(s, "|")
}

// jaccard computes intersection-over-union of two normalized name sets.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

func lengthRatio(a, b int) float64 {
	if a > b {
		a, b = b, a
	}
	return float64(a) / float64(b)
}

// pairSimilarity scores two normalized names with a Ratcliff/Obershelp
// matching-blocks ratio (2*matches / total length). Arguments are ordered
// canonically before diffing so the score is exactly symmetric.
func pairSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	if a > b {
		a, b = b, a
	}
	return difflib.NewMatcher(splitChars(a), splitChars(b)).Ratio()
}

func splitChars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// bestAssignmentScore finds the column-to-column assignment between two
// equal-length normalized name lists that maximizes the average pairwise
// similarity.
func bestAssignmentScore(a, b []string) float64 {
	n := len(a)
	if n == 0 {
		return 1.0
	}

	matrix := make([][]float64, n)
	for i := range matrix {
		matrix[i] = make([]float64, n)
		for j := range matrix[i] {
			matrix[i][j] = pairSimilarity(a[i], b[j])
		}
	}

	if n <= exactAssignmentLimit {
		return exactAssignment(matrix)
	}
	return greedyAssignment(matrix)
}

// exactAssignment evaluates every permutation and returns the best average
// score. Factorial in n; callers bound n by exactAssignmentLimit.
func exactAssignment(matrix [][]float64) float64 {
	n := len(matrix)
	used := make([]bool, n)
	best := 0.0

	var walk func(row int, sum float64)
	walk = func(row int, sum float64) {
		if row == n {
			if avg := sum / float64(n); avg > best {
				best = avg
			}
			return
		}
		for col := 0; col < n; col++ {
			if used[col] {
				continue
			}
			used[col] = true
			walk(row+1, sum+matrix[row][col])
			used[col] = false
		}
	}
	walk(0, 0)
	return best
}

// greedyAssignment approximates the optimum: each row in order takes its
// best unused column. It can miss the true optimum; the thresholds layered
// on top tolerate the error, and this path only runs for wide schemas where
// the exact search is factorial.
func greedyAssignment(matrix [][]float64) float64 {
	n := len(matrix)
	used := make([]bool, n)
	total := 0.0

	for i := 0; i < n; i++ {
		bestCol := -1
		bestSim := 0.0
		for j := 0; j < n; j++ {
			if !used[j] && matrix[i][j] > bestSim {
				bestSim = matrix[i][j]
				bestCol = j
			}
		}
		if bestCol >= 0 {
			used[bestCol] = true
			total += bestSim
		}
	}
	return total / float64(n)
}
