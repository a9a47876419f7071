package audio

import "fmt"

// Minimum recording properties for reliable jitter and shimmer estimates
const (
	MinDurationSeconds = 1.0
	MinSampleRate      = 16000
)

// CheckQuality returns human-readable warnings about a recording.
// An empty result means the audio looks usable.
func CheckQuality(info *WAVInfo) []string {
	var warnings []string

	if info.Duration < MinDurationSeconds {
		warnings = append(warnings,
			fmt.Sprintf("audio too short (%.2fs), try recording longer", info.Duration))
	}

	if info.SampleRate < MinSampleRate {
		warnings = append(warnings,
			fmt.Sprintf("low sampling rate (%d Hz), please record with %d Hz or higher", info.SampleRate, MinSampleRate))
	}

	return warnings
}
