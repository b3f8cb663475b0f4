package model

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Snapshot is one captured still frame. It is never mutated after capture.
type Snapshot struct {
	Data       []byte            `json:"-"`
	Headers    map[string]string `json:"headers"`
	Online     bool              `json:"online"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	CapturedAt time.Time         `json:"captured_at"`
}

// SnapshotOptions selects how a snapshot is obtained.
type SnapshotOptions struct {
	// Save stores the captured snapshot in the snapshot store.
	Save bool
	// Load returns the stored snapshot instead of capturing.
	Load bool
	// AllowOffline accepts a frame captured while the source has no signal.
	AllowOffline bool
}

// Meta is the data-free view of a snapshot used in state payloads.
type Meta struct {
	Online     bool              `json:"online"`
	Width      int               `json:"width"`
	Height     int               `json:"height"`
	Size       int               `json:"size"`
	Headers    map[string]string `json:"headers"`
	CapturedAt time.Time         `json:"captured_at"`
}

func (s *Snapshot) Meta() Meta {
	return Meta{
		Online:     s.Online,
		Width:      s.Width,
		Height:     s.Height,
		Size:       len(s.Data),
		Headers:    s.Headers,
		CapturedAt: s.CapturedAt,
	}
}

// Canonical forms of the uStreamer frame headers.
const (
	HeaderOnline = "X-Ustreamer-Online"
	HeaderWidth  = "X-Ustreamer-Width"
	HeaderHeight = "X-Ustreamer-Height"
)

var forwardedHeaders = map[string]struct{}{
	"X-Timestamp":                 {},
	"Access-Control-Allow-Origin": {},
	"Cache-Control":               {},
	"Pragma":                      {},
	"Expires":                     {},
}

// FilterHeaders keeps the X-UStreamer-* headers and the caching and
// timestamp headers that are forwarded to clients.
func FilterHeaders(h http.Header) map[string]string {
	out := make(map[string]string)
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		canonical := http.CanonicalHeaderKey(name)
		_, keep := forwardedHeaders[canonical]
		if keep || strings.HasPrefix(strings.ToLower(canonical), "x-ustreamer-") {
			out[canonical] = values[0]
		}
	}
	return out
}

// HeaderInt reads an integer header, returning 0 when missing or malformed.
func HeaderInt(headers map[string]string, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(headers[name]))
	if err != nil {
		return 0
	}
	return v
}
