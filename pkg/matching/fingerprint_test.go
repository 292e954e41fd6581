package matching

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestFingerprintOrderIndependent(t *testing.T) {
	engine := NewEngine()

	a := engine.Fingerprint([]string{"name", "age", "department"})
	b := engine.Fingerprint([]string{"department", "name", "age"})
	if a != b {
		t.Errorf("fingerprints differ across column order: %q vs %q", a, b)
	}
}

func TestFingerprintAliasConvergence(t *testing.T) {
	engine := NewEngine()

	a := engine.Fingerprint([]string{"编号", "名称"})
	b := engine.Fingerprint([]string{"Number", "Name"})
	if a != b {
		t.Errorf("aliased schemas fingerprint differently: %q vs %q", a, b)
	}
}

func TestFingerprintWhitespaceInvariant(t *testing.T) {
	engine := NewEngine()

	a := engine.Fingerprint([]string{"order id", "total amount"})
	b := engine.Fingerprint([]string{"OrderID", "TotalAmount"})
	if a != b {
		t.Errorf("whitespace variants fingerprint differently: %q vs %q", a, b)
	}
}

func TestFingerprintDistinguishesSchemas(t *testing.T) {
	engine := NewEngine()

	a := engine.Fingerprint([]string{"name", "age"})
	b := engine.Fingerprint([]string{"name", "age", "city"})
	if a == b {
		t.Error("different schemas produced the same fingerprint")
	}
}

func TestFingerprintEmpty(t *testing.T) {
	engine := NewEngine()

	sum := md5.Sum([]byte(""))
	want := hex.EncodeToString(sum[:])

	if got := engine.Fingerprint(nil); got != want {
		t.Errorf("Fingerprint(nil) = %q, want md5 of empty string %q", got, want)
	}

	// Names that normalize to nothing drop out entirely.
	if got := engine.Fingerprint([]string{"!!!", "---"}); got != want {
		t.Errorf("all-symbol schema fingerprinted %q, want %q", got, want)
	}
}

func TestFingerprintStable(t *testing.T) {
	engine := NewEngine()

	cols := []string{"项目编号", "项目名称", "负责人"}
	first := engine.Fingerprint(cols)
	second := engine.Fingerprint(cols)
	if first != second {
		t.Errorf("fingerprint not stable: %q vs %q", first, second)
	}
	if len(first) != 32 {
		t.Errorf("fingerprint %q is not a 32-char md5 hex digest", first)
	}
}
