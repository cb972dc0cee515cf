package models

import "time"

type CaptureState int

const (
	Idle CaptureState = iota
	Capturing
)

func (s CaptureState) String() string {
	switch s {
	case Capturing:
		return "capturing"
	default:
		return "idle"
	}
}

func (s CaptureState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Frame struct {
	DeviceID   string    `json:"device_id"`
	Name       string    `json:"name"`
	Path       string    `json:"-"`
	CapturedAt time.Time `json:"captured_at"`
	Size       int64     `json:"size"`
}

// Capture is the part of a session that belongs to a single device.
type Capture struct {
	DeviceID  string  `json:"device_id"`
	Address   string  `json:"address"`
	Dir       string  `json:"dir"`
	Frames    []Frame `json:"-"`
	Failures  int     `json:"failures"`
	LastError string  `json:"last_error,omitempty"`
	VideoPath string  `json:"video_path,omitempty"`
}

func (c Capture) Bytes() int64 {
	var total int64
	for _, f := range c.Frames {
		total += f.Size
	}
	return total
}

type Session struct {
	SessionID string        `json:"session_id"`
	StartTime time.Time     `json:"start_time"`
	StopTime  time.Time     `json:"stop_time,omitempty"`
	Interval  time.Duration `json:"interval"`
	Devices   []Device      `json:"devices"`
	Captures  []Capture     `json:"captures"`
}

// Clone returns a deep copy safe to hand out while the loop keeps writing.
func (s Session) Clone() Session {
	out := s
	out.Devices = append([]Device(nil), s.Devices...)
	out.Captures = make([]Capture, len(s.Captures))
	for i, c := range s.Captures {
		c.Frames = append([]Frame(nil), c.Frames...)
		out.Captures[i] = c
	}
	return out
}

func (s Session) FrameCount() int {
	n := 0
	for _, c := range s.Captures {
		n += len(c.Frames)
	}
	return n
}

// SessionRecord is the persisted summary of a closed session.
type SessionRecord struct {
	SessionID       string          `json:"session_id" db:"session_id"`
	StartTime       time.Time       `json:"start_time" db:"start_time"`
	StopTime        time.Time       `json:"stop_time" db:"stop_time"`
	IntervalSeconds int             `json:"interval_seconds" db:"interval_seconds"`
	Captures        []CaptureRecord `json:"captures" db:"-"`
}

type CaptureRecord struct {
	SessionID   string    `json:"session_id" db:"session_id"`
	DeviceID    string    `json:"device_id" db:"device_id"`
	Dir         string    `json:"dir" db:"dir_path"`
	FrameCount  int       `json:"frame_count" db:"frame_count"`
	TotalBytes  int64     `json:"total_bytes" db:"total_bytes"`
	VideoPath   string    `json:"video_path" db:"video_path"`
	StartTime   time.Time `json:"start_time" db:"start_time"`
	StopTime    time.Time `json:"stop_time" db:"stop_time"`
	IsPublished bool      `json:"is_published" db:"is_published"`
}
