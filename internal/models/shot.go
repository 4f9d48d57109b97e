package models

import "time"

// Classification grades release timing against the jump apex.
type Classification int

const (
	Early Classification = iota
	Perfect
	Late
)

func (c Classification) String() string {
	switch c {
	case Early:
		return "early"
	case Perfect:
		return "perfect"
	case Late:
		return "late"
	}
	return "unknown"
}

// Shot is one row of the shots table. Timestamps are device milliseconds.
type Shot struct {
	ID             int64          `json:"id"`
	ReleaseTS      float64        `json:"ts_release"`
	ApexTS         float64        `json:"ts_apex"`
	Classification Classification `json:"classification"`
	Scored         bool           `json:"scored"`
	GripPeak       int            `json:"grip_peak"`
	JumpHeight     float64        `json:"jump_height"`
	CreatedAt      time.Time      `json:"created_at"`
}

// BroadcastMessage is the "shot" event rendered by the frontend table.
type BroadcastMessage struct {
	ID             int64          `json:"id"`
	Classification Classification `json:"classification"`
	Scored         bool           `json:"scored"`
	JumpHeight     float64        `json:"jump_height"`
}

// NewBroadcastMessage projects a stored shot onto its frontend row.
func NewBroadcastMessage(s Shot) BroadcastMessage {
	return BroadcastMessage{
		ID:             s.ID,
		Classification: s.Classification,
		Scored:         s.Scored,
		JumpHeight:     s.JumpHeight,
	}
}

// JumpPhase marks the two live notifications sent while a jump is tracked.
type JumpPhase string

const (
	JumpStarted JumpPhase = "started"
	JumpEnded   JumpPhase = "ended"
)

// JumpEvent is the "jump" event. Summary is set only when the jump ended.
type JumpEvent struct {
	Phase     JumpPhase    `json:"phase"`
	Timestamp int64        `json:"ts"`
	Summary   *JumpSummary `json:"summary,omitempty"`
}

// JumpSummary describes one completed jump.
type JumpSummary struct {
	StartTS     int64         `json:"start_ts"`
	EndTS       int64         `json:"end_ts"`
	PeakAZ      int           `json:"peak_az"`
	DurationSec float64       `json:"duration_s"`
	HeightM     float64       `json:"height_m"`
	MaxFSR      [2]int        `json:"max_fsr"`
	Glove       []GloveSample `json:"glove"`
}
