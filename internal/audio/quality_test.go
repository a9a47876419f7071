package audio

import (
	"strings"
	"testing"
)

func TestCheckQuality(t *testing.T) {
	tests := []struct {
		name     string
		info     WAVInfo
		expected []string
	}{
		{"good", WAVInfo{SampleRate: 44100, Duration: 3.2}, nil},
		{"short", WAVInfo{SampleRate: 44100, Duration: 0.5}, []string{"too short"}},
		{"low rate", WAVInfo{SampleRate: 8000, Duration: 5}, []string{"low sampling rate"}},
		{"both", WAVInfo{SampleRate: 8000, Duration: 0.2}, []string{"too short", "low sampling rate"}},
		{"boundary", WAVInfo{SampleRate: MinSampleRate, Duration: MinDurationSeconds}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := CheckQuality(&tt.info)
			if len(warnings) != len(tt.expected) {
				t.Fatalf("Expected %d warnings, got %d: %v", len(tt.expected), len(warnings), warnings)
			}
			for i, want := range tt.expected {
				if !strings.Contains(warnings[i], want) {
					t.Errorf("Warning %d: expected %q in %q", i, want, warnings[i])
				}
			}
		})
	}
}
