package eventbus

import "time"

// 事件类型定义
const (
	EventModeSwitched    = "streamer:mode_switched"
	EventSnapshotSaved   = "streamer:snapshot_saved"
	EventSnapshotRemoved = "streamer:snapshot_removed"
	EventOCRRecognized   = "streamer:ocr_recognized"
)

type ModeSwitchedEvent struct {
	Mode       string        `json:"mode"`
	Outcome    string        `json:"outcome"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	Duration   time.Duration `json:"duration"`
	RequestID  string        `json:"request_id,omitempty"`
	At         time.Time     `json:"at"`
}

type SnapshotSavedEvent struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Size   int       `json:"size"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

type SnapshotRemovedEvent struct {
	At time.Time `json:"at"`
}

type OCRRecognizedEvent struct {
	Langs    []string      `json:"langs"`
	Chars    int           `json:"chars"`
	Duration time.Duration `json:"duration"`
	At       time.Time     `json:"at"`
}
