package main

import "testing"

func TestBackgroundHealthServer(t *testing.T) {
	tests := []struct {
		mode string
		want bool
	}{
		{"engine", true},
		{"ingest", true},
		{"all", true},
		{"serve", false},
	}

	for _, tt := range tests {
		if got := backgroundHealthServer(tt.mode); got != tt.want {
			t.Fatalf("backgroundHealthServer(%q) = %v, want %v", tt.mode, got, tt.want)
		}
	}
}
