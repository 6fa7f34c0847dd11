package minlength

import (
	"context"
	"testing"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	if New(DefaultMinChars).Name() != "minlength" {
		t.Error("unexpected name")
	}
}

func TestProcessor_Process(t *testing.T) {
	chunks := []domain.Chunk{
		{Text: "0123456789", Page: 1},
		{Text: "   0123456789   ", Page: 2},
		{Text: "01234567890", Page: 3},
		{Text: "a perfectly ordinary passage", Page: 4},
	}

	got, err := New(DefaultMinChars).Process(context.Background(), nil, chunks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
	if got[0].Page != 3 || got[1].Page != 4 {
		t.Errorf("order not preserved: %+v", got)
	}
	if chunks[0].Page != 1 {
		t.Error("input slice must not be modified")
	}
}

func TestKeep(t *testing.T) {
	tests := []struct {
		text string
		min  int
		want bool
	}{
		{"", 0, false},
		{" x ", 0, true},
		{"ten chars!", 10, false},
		{"eleven char", 10, true},
		{"éééééééééééé", 10, true},
	}
	for _, tt := range tests {
		if got := Keep(tt.text, tt.min); got != tt.want {
			t.Errorf("Keep(%q, %d) = %v, want %v", tt.text, tt.min, got, tt.want)
		}
	}
}
