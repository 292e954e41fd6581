package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/config"
)

func TestSuggestNameFallback(t *testing.T) {
	state := newFakeState()
	// No base URL configured, so the client stays nil and the
	// deterministic fallback is the only path.
	svc := NewNamingService(config.NamingConfig{}, &fakeSchemaRepo{s: state}, zap.NewNop())

	tests := []struct {
		name    string
		columns []string
		want    string
	}{
		{
			name:    "ascii columns are singularized and title cased",
			columns: []string{"names", "ages", "departments"},
			want:    "Name Age Department Table",
		},
		{
			name:    "only the first three columns contribute",
			columns: []string{"orders", "items", "prices", "dates", "notes"},
			want:    "Order Item Price Table",
		},
		{
			name:    "non ascii columns pass through unchanged",
			columns: []string{"项目编号", "负责人"},
			want:    "项目编号 负责人 Table",
		},
		{
			name:    "mixed",
			columns: []string{"Users", "邮箱"},
			want:    "User 邮箱 Table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SuggestName(context.Background(), uuid.New(), tt.columns)
			if err != nil {
				t.Fatalf("SuggestName: %v", err)
			}
			if got.Generated {
				t.Error("fallback names must not report Generated")
			}
			if got.Name != tt.want {
				t.Errorf("SuggestName = %q, want %q", got.Name, tt.want)
			}
		})
	}
}

func TestSuggestNameRequiresColumns(t *testing.T) {
	state := newFakeState()
	svc := NewNamingService(config.NamingConfig{}, &fakeSchemaRepo{s: state}, zap.NewNop())

	if _, err := svc.SuggestName(context.Background(), uuid.New(), nil); err == nil {
		t.Fatal("expected an error for an empty column list")
	}
}

func TestTitleWord(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"names", "Name"},
		{"ADDRESSES", "Address"},
		{"price", "Price"},
		{"编号", "编号"},
		{"order_id", "order_id"}, // underscore disqualifies the ASCII path
		{"", ""},
	}

	for _, tt := range tests {
		if got := titleWord(tt.in); got != tt.want {
			t.Errorf("titleWord(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
