package matching

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// aliasEntry is one synonym -> canonical token substitution. Entries are
// applied as substring replacements in slice order, so a name containing
// several alias keys can have several replaced. Order matters: longer keys
// that contain shorter ones ("number" vs "num") must come first.
type aliasEntry struct {
	key       string
	canonical string
}

// columnAliases folds common synonym clusters (Chinese and English) onto one
// canonical token each, so that e.g. "编号", "Number" and "ID" all compare
// equal. Every canonical token is chosen so that no alias key expands inside
// it, which keeps Normalize idempotent.
var columnAliases = []aliasEntry{
	// identifiers
	{"编号", "id"}, {"number", "id"}, {"num", "id"}, {"序号", "id"}, {"id", "id"},
	// names
	{"名称", "name"}, {"name", "name"}, {"姓名", "name"}, {"名字", "name"},
	// dates; the compound keys come before the bare ones they contain
	{"创建日期", "createdate"}, {"创建时间", "createdate"},
	{"更新日期", "updatedate"}, {"更新时间", "updatedate"},
	{"日期", "date"}, {"date", "date"}, {"时间", "date"}, {"time", "date"},
	// status
	{"状态", "status"}, {"status", "status"}, {"情况", "status"},
	// remarks
	{"备注", "remark"}, {"remark", "remark"}, {"说明", "remark"}, {"description", "remark"},
	// money
	{"金额", "amount"}, {"amount", "amount"}, {"价格", "amount"}, {"price", "amount"},
	// quantities
	{"数量", "quantity"}, {"quantity", "quantity"}, {"个数", "quantity"}, {"数目", "quantity"},
	// org
	{"部门", "department"}, {"department", "department"}, {"dept", "department"},
	// contact
	{"电话", "phone"}, {"phone", "phone"}, {"手机", "phone"}, {"mobile", "phone"},
	{"邮箱", "mail"}, {"email", "mail"}, {"邮件", "mail"}, {"mail", "mail"},
	// location
	{"地址", "address"}, {"address", "address"}, {"位置", "address"}, {"location", "address"},
}

// Normalize reduces a raw column name to its canonical comparison form:
// NFKC fold, all whitespace removed, everything except ASCII alphanumerics
// and CJK ideographs stripped, ASCII lowercased, then alias substitution.
// The result is used only for comparison and fingerprinting, never shown to
// users. Empty output is valid and matches only other empty outputs.
func (e *Engine) Normalize(name string) string {
	if name == "" {
		return ""
	}

	s := norm.NFKC.String(name)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 0x4E00 && r <= 0x9FFF:
			b.WriteRune(r)
		}
		// everything else (whitespace of any width, punctuation, symbols,
		// control characters, emoji) is dropped outright
	}
	s = b.String()

	for _, a := range columnAliases {
		if a.key != a.canonical && strings.Contains(s, a.key) {
			s = strings.ReplaceAll(s, a.key, a.canonical)
		}
	}
	return s
}

// invisible marks characters stripped from display names: directional marks
// and the BOM, which survive NFKC but render as nothing.
func invisible(r rune) bool {
	return r == '\u200e' || r == '\u200f' || r == '\ufeff'
}

// cleanOne produces the display form of a single column name: NFKC fold,
// invisible characters removed, every whitespace run collapsed to one plain
// space, trimmed. Returns "" when nothing printable remains.
func cleanOne(raw string) string {
	s := norm.NFKC.String(raw)

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch {
		case invisible(r):
			// dropped
		case unicode.IsSpace(r) || r == '\u200b':
			inSpace = true
		default:
			if inSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			inSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupeAttempts caps the collision-suffix probe in CleanColumnNames before
// falling back to an index-based suffix.
const dedupeAttempts = 100

// CleanColumnNames produces the canonical display forms for a header row:
// each name cleaned (see cleanOne), empties replaced with a positional
// "Unnamed_<n>" placeholder, and duplicates disambiguated with "_1", "_2", …
// suffixes. This is the form persisted as the group schema; Normalize is
// applied on top of it whenever names are compared.
func (e *Engine) CleanColumnNames(columns []string) []string {
	cleaned := make([]string, 0, len(columns))
	seen := make(map[string]bool, len(columns))

	for i, raw := range columns {
		name := cleanOne(raw)
		if name == "" {
			name = fmt.Sprintf("Unnamed_%d", i+1)
		}

		base := name
		for counter := 1; seen[name]; counter++ {
			name = fmt.Sprintf("%s_%d", base, counter)
			if counter > dedupeAttempts {
				name = fmt.Sprintf("%s_%d", base, i+1)
				break
			}
		}

		seen[name] = true
		cleaned = append(cleaned, name)
	}
	return cleaned
}
