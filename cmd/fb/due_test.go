package main

import (
	"testing"
	"time"
)

func TestParseDue(t *testing.T) {
	now := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "", false},
		{"none", "", false},
		{"2026-03-01", "2026-03-01", false},
		{"  2026-03-01 ", "2026-03-01", false},
		{"tomorrow", "2026-02-13", false},
		{"whenever it feels right", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDue(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseDue(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseDue(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
