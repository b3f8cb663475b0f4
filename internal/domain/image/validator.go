package image

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

var imageSignatures = map[string][]byte{
	"jpeg": {0xFF, 0xD8},
	"png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"webp": {0x52, 0x49, 0x46, 0x46},
}

// Inspect checks the payload size, decodes the image header and enforces
// the dimension limits without decoding pixels.
func Inspect(data []byte, limits Limits) (Info, error) {
	limits = limits.withDefaults()

	if len(data) == 0 {
		return Info{}, fmt.Errorf("empty image payload")
	}
	if int64(len(data)) > limits.MaxFileSize {
		return Info{}, fmt.Errorf("file size exceeds limit: %d bytes (max %d bytes)", len(data), limits.MaxFileSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("decode image config: %w", err)
	}
	if !HasSignature(data, format) {
		return Info{}, fmt.Errorf("file signature mismatch for %s: %x", format, data[:min(len(data), 16)])
	}
	if cfg.Width > limits.MaxWidth || cfg.Height > limits.MaxHeight {
		return Info{}, fmt.Errorf("dimensions exceed limit: %dx%d (max %dx%d)",
			cfg.Width, cfg.Height, limits.MaxWidth, limits.MaxHeight)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > limits.MaxPixels {
		return Info{}, fmt.Errorf("pixel count exceeds limit: %d (max %d)", pixels, limits.MaxPixels)
	}

	return Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Size:   int64(len(data)),
	}, nil
}

// HasSignature reports whether data starts with the magic bytes of format.
// Formats without a known signature pass.
func HasSignature(data []byte, format string) bool {
	sig, ok := imageSignatures[format]
	if !ok {
		return true
	}
	return bytes.HasPrefix(data, sig)
}
