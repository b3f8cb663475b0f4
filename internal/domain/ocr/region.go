package ocr

import (
	"fmt"
	stdimage "image"

	"kvmd-streamer-go/internal/domain/params"
)

// Region limits recognition to part of a frame. A side equal to
// params.RegionEdge extends to the image edge.
type Region struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// FullFrame covers the whole image.
var FullFrame = Region{Left: params.RegionEdge, Top: params.RegionEdge, Right: params.RegionEdge, Bottom: params.RegionEdge}

// Resolve substitutes edges for sentinel sides, clamps to the image and
// rejects empty rectangles.
func (r Region) Resolve(width, height int) (stdimage.Rectangle, error) {
	left, top, right, bottom := r.Left, r.Top, r.Right, r.Bottom
	if left == params.RegionEdge {
		left = 0
	}
	if top == params.RegionEdge {
		top = 0
	}
	if right == params.RegionEdge {
		right = width
	}
	if bottom == params.RegionEdge {
		bottom = height
	}

	left = clamp(left, 0, width)
	right = clamp(right, 0, width)
	top = clamp(top, 0, height)
	bottom = clamp(bottom, 0, height)

	if left >= right || top >= bottom {
		return stdimage.Rectangle{}, &params.ValidationError{
			Name:   "ocr_region",
			Value:  fmt.Sprintf("%d,%d,%d,%d", r.Left, r.Top, r.Right, r.Bottom),
			Reason: fmt.Sprintf("empty region %d,%d-%d,%d on a %dx%d image", left, top, right, bottom, width, height),
		}
	}
	return stdimage.Rect(left, top, right, bottom), nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
