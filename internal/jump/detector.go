// Package jump detects jumps in the foot accelerometer stream and collects
// the glove readings taken while the player is airborne.
package jump

import (
	"math"
	"sync"

	"github.com/kirbo/swishsensei/internal/models"
)

const (
	// StartThreshold is the takeoff acceleration that opens a jump.
	StartThreshold = 20000
	// LandingThreshold is 1 g in raw units. Dropping to it closes a jump.
	LandingThreshold = 16384

	gravity     = 9.81
	heightScale = 0.001
)

// Detector is an Idle/Airborne state machine. It is safe for concurrent use.
type Detector struct {
	mu      sync.Mutex
	active  bool
	startTS int64
	peakAZ  int
	maxFSR  [2]int
	glove   []models.GloveSample
}

// New returns an idle detector.
func New() *Detector {
	return &Detector{}
}

// Active reports whether a jump is in progress.
func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Foot feeds one foot sample. It returns a JumpStarted or JumpEnded event on
// a transition and nil otherwise.
func (d *Detector) Foot(s models.FootSample) *models.JumpEvent {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		if s.AZ > StartThreshold {
			d.active = true
			d.startTS = s.Timestamp
			d.peakAZ = s.AZ
			return &models.JumpEvent{Phase: models.JumpStarted, Timestamp: s.Timestamp}
		}
		return nil
	}

	if s.AZ <= LandingThreshold {
		summary := Summarize(d.startTS, s.Timestamp, d.peakAZ, d.maxFSR, d.glove)
		d.reset()
		return &models.JumpEvent{Phase: models.JumpEnded, Timestamp: s.Timestamp, Summary: &summary}
	}

	if s.AZ > d.peakAZ {
		d.peakAZ = s.AZ
	}
	return nil
}

// Glove records a glove sample if a jump is in progress and reports whether
// it was kept.
func (d *Detector) Glove(s models.GloveSample) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return false
	}
	d.glove = append(d.glove, s)
	if s.FSR1 > d.maxFSR[0] {
		d.maxFSR[0] = s.FSR1
	}
	if s.FSR2 > d.maxFSR[1] {
		d.maxFSR[1] = s.FSR2
	}
	return true
}

func (d *Detector) reset() {
	d.active = false
	d.startTS = 0
	d.peakAZ = 0
	d.maxFSR = [2]int{}
	d.glove = nil
}

// Summarize computes the jump metrics. A landing stamped before takeoff
// yields zero duration.
func Summarize(startTS, endTS int64, peakAZ int, maxFSR [2]int, glove []models.GloveSample) models.JumpSummary {
	duration := float64(endTS-startTS) / 1000
	if duration < 0 {
		duration = 0
	}
	height := float64(peakAZ-LandingThreshold) * heightScale / gravity

	return models.JumpSummary{
		StartTS:     startTS,
		EndTS:       endTS,
		PeakAZ:      peakAZ,
		DurationSec: round2(duration),
		HeightM:     round2(height),
		MaxFSR:      maxFSR,
		Glove:       glove,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
