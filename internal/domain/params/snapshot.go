package params

import (
	"math"
	"net/url"
	"strings"
)

// RegionEdge marks a region side that extends to the image edge.
const RegionEdge = -1

// SnapshotRequest is the validated form of a snapshot query.
type SnapshotRequest struct {
	Save         bool
	Load         bool
	AllowOffline bool

	OCR       bool
	OCRLangs  []string
	OCRLeft   int
	OCRTop    int
	OCRRight  int
	OCRBottom int

	Preview          bool
	PreviewMaxWidth  int
	PreviewMaxHeight int
	PreviewQuality   int
}

type queryReader struct {
	values url.Values
	err    error
}

func (q *queryReader) get(name string) (string, bool) {
	if !q.values.Has(name) {
		return "", false
	}
	return q.values.Get(name), true
}

func (q *queryReader) bool(name string) bool {
	if q.err != nil {
		return false
	}
	raw, ok := q.get(name)
	v, err := Bool(name, raw, ok, false)
	q.err = err
	return v
}

func (q *queryReader) intRange(name string, def, min, max int) int {
	if q.err != nil {
		return def
	}
	raw, ok := q.get(name)
	v, err := IntRange(name, raw, ok, def, min, max)
	q.err = err
	return v
}

// ParseSnapshotQuery validates every snapshot parameter and stops at the
// first failure. OCR languages are only split and lower-cased here;
// membership is checked against the OCR engine once a snapshot exists.
func ParseSnapshotQuery(values url.Values) (SnapshotRequest, error) {
	q := &queryReader{values: values}
	req := SnapshotRequest{
		Save:         q.bool("save"),
		Load:         q.bool("load"),
		AllowOffline: q.bool("allow_offline"),
		OCR:          q.bool("ocr"),
		Preview:      q.bool("preview"),
	}
	if q.err != nil {
		return SnapshotRequest{}, q.err
	}

	req.OCRLeft = q.intRange("ocr_left", RegionEdge, RegionEdge, math.MaxInt)
	req.OCRTop = q.intRange("ocr_top", RegionEdge, RegionEdge, math.MaxInt)
	req.OCRRight = q.intRange("ocr_right", RegionEdge, RegionEdge, math.MaxInt)
	req.OCRBottom = q.intRange("ocr_bottom", RegionEdge, RegionEdge, math.MaxInt)
	req.PreviewMaxWidth = q.intRange("preview_max_width", 0, 0, math.MaxInt)
	req.PreviewMaxHeight = q.intRange("preview_max_height", 0, 0, math.MaxInt)
	req.PreviewQuality = q.intRange("preview_quality", DefaultQuality, MinQuality, MaxQuality)
	if q.err != nil {
		return SnapshotRequest{}, q.err
	}

	langs, err := StringList("ocr_langs", values.Get("ocr_langs"), func(lang string) (string, error) {
		return strings.ToLower(lang), nil
	})
	if err != nil {
		return SnapshotRequest{}, err
	}
	req.OCRLangs = langs
	return req, nil
}
