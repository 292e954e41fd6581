package matching

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases ascii", "Name", "name"},
		{"strips whitespace", "  created at  ", "createdat"},
		{"strips fullwidth space", "名　称", "name"},
		{"strips punctuation", "user-id_(primary)", "useridprimary"},
		{"keeps cjk", "部门", "department"},
		{"alias number to id", "Number", "id"},
		{"alias num to id", "num", "id"},
		{"alias chinese id", "编号", "id"},
		{"alias 序号 to id", "序号", "id"},
		{"alias email to mail", "email", "mail"},
		{"alias 邮箱 to mail", "邮箱", "mail"},
		{"alias compound date", "创建日期", "createdate"},
		{"alias compound time", "创建时间", "createdate"},
		{"alias bare date", "日期", "date"},
		{"alias price to amount", "Price", "amount"},
		{"empty stays empty", "", ""},
		{"symbols only become empty", "!!!", ""},
		{"nfkc folds fullwidth digits", "ＩＤ１２", "id12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := engine.Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// Normalizing an already normalized name must be a no-op, otherwise
// fingerprints drift between the first and second pass over a schema.
func TestNormalizeIdempotent(t *testing.T) {
	engine := NewEngine()

	inputs := []string{
		"Name", "Number", "email", "Email Address", "邮箱", "创建日期",
		"项目编号", "  Total Amount  ", "电话号码", "status", "情况",
		"id", "mail", "createdate", "updatedate",
	}

	for _, input := range inputs {
		once := engine.Normalize(input)
		twice := engine.Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestCleanColumnNames(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "collapses whitespace",
			input: []string{"First   Name", "Last\tName"},
			want:  []string{"First Name", "Last Name"},
		},
		{
			name:  "replaces empties with placeholders",
			input: []string{"", "Name", "  "},
			want:  []string{"Unnamed_1", "Name", "Unnamed_3"},
		},
		{
			name:  "dedupes with suffixes",
			input: []string{"Name", "Name", "Name"},
			want:  []string{"Name", "Name_1", "Name_2"},
		},
		{
			name:  "strips invisible characters",
			input: []string{"Na\u200eme", "\ufeffID"},
			want:  []string{"Name", "ID"},
		},
		{
			name:  "dedupe collides with existing suffix",
			input: []string{"Col", "Col_1", "Col"},
			want:  []string{"Col", "Col_1", "Col_2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.CleanColumnNames(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("CleanColumnNames(%v) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("CleanColumnNames(%v)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

// Whitespace variants of a header must clean to the same display names and
// normalize to the same comparison forms.
func TestWhitespaceVariantsConverge(t *testing.T) {
	engine := NewEngine()

	a := engine.CleanColumnNames([]string{"Order Number", "Customer  Name"})
	b := engine.CleanColumnNames([]string{"Order　Number", "Customer\tName"})

	for i := range a {
		if engine.Normalize(a[i]) != engine.Normalize(b[i]) {
			t.Errorf("variants diverge at %d: %q vs %q", i, a[i], b[i])
		}
	}
}
