package token

import "testing"

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   \n\t ", 0},
		{"hello", 1},
		{"hello world", 2},
		{"hello, world!", 4},
		{"internationalization", 4}, // 20 letters: 1 + 19/6
		{"a b c", 3},
	}
	for _, tt := range tests {
		if got := c.Count(tt.text); got != tt.want {
			t.Errorf("Count(%q)=%d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestHeuristicCounter_Deterministic(t *testing.T) {
	c := HeuristicCounter{}
	text := "The quick brown fox jumps over the lazy dog."
	first := c.Count(text)
	for i := 0; i < 10; i++ {
		if c.Count(text) != first {
			t.Fatal("count changed between calls")
		}
	}
}

func TestApproxCounter(t *testing.T) {
	c := ApproxCounter{}
	if got := c.Count("12345678"); got != 2 {
		t.Errorf("Count=%d, want 2", got)
	}
	if got := c.Count(""); got != 0 {
		t.Errorf("Count(empty)=%d, want 0", got)
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default returned nil")
	}
}
