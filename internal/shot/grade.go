package shot

import (
	"time"

	"github.com/kirbo/swishsensei/internal/models"
)

// Build grades a jump summary. The result has no ID and is unscored.
func Build(summary models.JumpSummary, perfectWindow time.Duration) models.Shot {
	apex := float64(summary.StartTS+summary.EndTS) / 2
	release := float64(ReleaseTS(summary.Glove, summary.EndTS))

	return models.Shot{
		ReleaseTS:      release,
		ApexTS:         apex,
		Classification: Classify(release, apex, perfectWindow),
		GripPeak:       GripPeak(summary.Glove),
		JumpHeight:     summary.HeightM,
	}
}

// Classify compares release with apex. Inside +/- window is Perfect.
func Classify(releaseTS, apexTS float64, window time.Duration) models.Classification {
	delta := releaseTS - apexTS
	limit := float64(window) / float64(time.Millisecond)
	switch {
	case delta < -limit:
		return models.Early
	case delta > limit:
		return models.Late
	default:
		return models.Perfect
	}
}

// GripPeak is the highest combined grip among the samples.
func GripPeak(glove []models.GloveSample) int {
	peak := 0
	for _, g := range glove {
		if grip := g.Grip(); grip > peak {
			peak = grip
		}
	}
	return peak
}

// ReleaseTS finds the first sample after the grip peak whose grip fell below
// half the peak. Without such a sample it returns the last sample's
// timestamp, and fallback when there are no samples.
func ReleaseTS(glove []models.GloveSample, fallback int64) int64 {
	if len(glove) == 0 {
		return fallback
	}

	peakIdx := 0
	for i, g := range glove {
		if g.Grip() > glove[peakIdx].Grip() {
			peakIdx = i
		}
	}

	peak := glove[peakIdx].Grip()
	for _, g := range glove[peakIdx+1:] {
		if 2*g.Grip() < peak {
			return g.Timestamp
		}
	}
	return glove[len(glove)-1].Timestamp
}
