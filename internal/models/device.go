package models

// DeviceKind identifies which sensor produced a reading.
type DeviceKind string

const (
	Foot  DeviceKind = "foot"
	Glove DeviceKind = "glove"
	Hoop  DeviceKind = "hoop"
)

// FootSample is published on TOPIC_FOOT_RAW. AZ is raw vertical
// acceleration where 16384 equals 1 g.
type FootSample struct {
	Timestamp int64 `json:"ts"`
	AZ        int   `json:"az"`
}

// GloveSample is published on TOPIC_GLOVE_RAW.
type GloveSample struct {
	Timestamp int64 `json:"ts"`
	FSR1      int   `json:"fsr1"`
	FSR2      int   `json:"fsr2"`
	AX        int   `json:"ax,omitempty"`
	AY        int   `json:"ay,omitempty"`
	AZ        int   `json:"az,omitempty"`
}

// Grip is the combined force over both fingers.
func (g GloveSample) Grip() int {
	return g.FSR1 + g.FSR2
}

// HoopEvent is published on TOPIC_HOOP_EVENT when the rim sensor fires.
type HoopEvent struct {
	Timestamp int64 `json:"ts"`
	Scored    bool  `json:"scored"`
}

// Device type
type Device struct {
	Kind     DeviceKind `json:"kind"`
	LastSeen int64      `json:"lastSeen"`
	Ping     int64      `json:"ping"`
	Samples  uint64     `json:"samples"`
}
