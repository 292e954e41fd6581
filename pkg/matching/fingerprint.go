package matching

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint hashes a column name set into a fixed-length hex digest that
// is independent of column order, whitespace, casing, punctuation, and known
// synonyms: names are normalized, empties dropped, the remainder sorted and
// joined, and the result md5-hashed. Two column sets the scorer considers an
// exact match produce the same fingerprint, and equal fingerprints imply
// equal normalized sets (up to hash collision, which the matcher re-checks
// with a column count comparison).
func (e *Engine) Fingerprint(columns []string) string {
	if len(columns) == 0 {
		return md5hex("")
	}

	cacheKey := strings.Join(columns, "|")
	if v, ok := e.cachedFingerprint(cacheKey); ok {
		return v
	}

	normalized := make([]string, 0, len(columns))
	for _, col := range columns {
		if n := e.Normalize(col); n != "" {
			normalized = append(normalized, n)
		}
	}
	sort.Strings(normalized)

	fp := md5hex(strings.Join(normalized, "|"))
	e.storeFingerprint(cacheKey, fp)
	return fp
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
