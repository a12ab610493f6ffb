package commands

import (
	"testing"
	"time"
)

func TestParseMuteDuration(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"10m", 10 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"1h30m", 90 * time.Minute, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"0.5d", 12 * time.Hour, false},
		{"-10m", 0, true},
		{"-1d", 0, true},
		{"0d", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMuteDuration(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMuteDuration(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseMuteDuration(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
