// Package matching implements the schema recognition core: column name
// normalization, set similarity scoring, and schema fingerprinting. These are
// the primitives the grouping service uses to decide whether an uploaded
// spreadsheet belongs to an existing logical table.
package matching

import "sync"

// Similarity thresholds used by the grouping pipeline. A file whose column
// set scores at or above MinSimilarity against an existing group is merged
// into it; HighSimilarity gates the fast path in group creation.
const (
	ExactMatchThreshold     = 1.0
	HighSimilarityThreshold = 0.95
	MinSimilarityThreshold  = 0.85
)

// maxCacheEntries bounds both memo caches. Once full the caches saturate:
// new results are computed but not stored. They are pure-function memos, so
// saturation costs recomputation, never correctness.
const maxCacheEntries = 1000

// exactAssignmentLimit is the largest column count for which the scorer
// evaluates every assignment permutation. Beyond it the greedy approximation
// is used.
const exactAssignmentLimit = 10

// Engine computes normalized forms, similarities, and fingerprints for
// column name sets. It owns its caches; construct one per process and share
// it. All methods are safe for concurrent use.
type Engine struct {
	mu               sync.Mutex
	similarityCache  map[string]float64
	fingerprintCache map[string]string
}

// NewEngine returns an Engine with empty caches.
func NewEngine() *Engine {
	return &Engine{
		similarityCache:  make(map[string]float64),
		fingerprintCache: make(map[string]string),
	}
}

func (e *Engine) cachedSimilarity(key string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.similarityCache[key]
	return v, ok
}

func (e *Engine) storeSimilarity(key string, v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.similarityCache) < maxCacheEntries {
		e.similarityCache[key] = v
	}
}

func (e *Engine) cachedFingerprint(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.fingerprintCache[key]
	return v, ok
}

func (e *Engine) storeFingerprint(key, v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.fingerprintCache) < maxCacheEntries {
		e.fingerprintCache[key] = v
	}
}

// ClearCaches drops all memoized similarities and fingerprints.
func (e *Engine) ClearCaches() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.similarityCache = make(map[string]float64)
	e.fingerprintCache = make(map[string]string)
}
