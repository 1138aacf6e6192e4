package cmd

import "testing"

func TestIsAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"yes\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"no\n", false},
		{"\n", false},
		{"yep\n", false},
	}

	for _, tt := range tests {
		if got := isAffirmative(tt.answer); got != tt.want {
			t.Errorf("isAffirmative(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}
