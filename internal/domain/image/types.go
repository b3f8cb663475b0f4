package image

// Info describes a decoded image header.
type Info struct {
	Format string
	Width  int
	Height int
	Size   int64
}

// Limits bounds what Inspect accepts. Zero fields fall back to defaults.
type Limits struct {
	MaxFileSize int64
	MaxWidth    int
	MaxHeight   int
	MaxPixels   int64
}

const (
	defaultMaxFileSize = 16 * 1024 * 1024
	defaultMaxSide     = 8192
	defaultMaxPixels   = 8192 * 8192
)

func (l Limits) withDefaults() Limits {
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = defaultMaxFileSize
	}
	if l.MaxWidth <= 0 {
		l.MaxWidth = defaultMaxSide
	}
	if l.MaxHeight <= 0 {
		l.MaxHeight = defaultMaxSide
	}
	if l.MaxPixels <= 0 {
		l.MaxPixels = defaultMaxPixels
	}
	return l
}
