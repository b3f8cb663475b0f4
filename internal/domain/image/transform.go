package image

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// FitWithin scales w x h down to fit a boxW x boxH box keeping the aspect
// ratio. Each side is at least 1.
func FitWithin(w, h, boxW, boxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w <= boxW && h <= boxH {
		return w, h
	}
	scale := math.Min(float64(boxW)/float64(w), float64(boxH)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return max(nw, 1), max(nh, 1)
}

// Thumbnail decodes data, scales it to fit boxW x boxH and encodes JPEG at
// the given quality.
func Thumbnail(data []byte, boxW, boxH, quality int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), boxW, boxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return out.Bytes(), nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// CropPNG decodes data, cuts rect out of it and encodes the result as PNG.
// A rect equal to the full bounds skips cropping.
func CropPNG(data []byte, rect image.Rectangle) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	rect = rect.Add(b.Min)
	if !rect.In(b) || rect.Empty() {
		return nil, fmt.Errorf("crop %v outside image bounds %v", rect, b)
	}

	cropped := src
	if rect != b {
		if si, ok := src.(subImager); ok {
			cropped = si.SubImage(rect)
		} else {
			dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
			draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
			cropped = dst
		}
	}

	var out bytes.Buffer
	if err := png.Encode(&out, cropped); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}
