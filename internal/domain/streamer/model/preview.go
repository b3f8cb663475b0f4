package model

import (
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"kvmd-streamer-go/internal/domain/image"
)

// PreviewOptions bounds a preview. A zero side means no constraint on
// that axis; both zero means a fifth of the source size.
type PreviewOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// PreviewSize resolves the preview box for a width x height source.
func PreviewSize(width, height int, opts PreviewOptions) (int, int) {
	if opts.MaxWidth == 0 && opts.MaxHeight == 0 {
		return width / 5, height / 5
	}
	w := opts.MaxWidth
	if w == 0 || w > width {
		w = width
	}
	h := opts.MaxHeight
	if h == 0 || h > height {
		h = height
	}
	return w, h
}

// Previewer renders previews and keeps the most recent one. Concurrent
// identical requests share one encode.
type Previewer struct {
	group singleflight.Group
	mu    sync.Mutex
	key   string
	data  []byte
}

func NewPreviewer() *Previewer {
	return &Previewer{}
}

func (p *Previewer) cached(key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.key == key && p.data != nil {
		return p.data, true
	}
	return nil, false
}

func (p *Previewer) store(key string, data []byte) {
	p.mu.Lock()
	p.key = key
	p.data = data
	p.mu.Unlock()
}

// Make returns a JPEG of s scaled to fit the resolved box. When the box
// equals the source size the original bytes are returned.
func (p *Previewer) Make(ctx context.Context, s *Snapshot, opts PreviewOptions) ([]byte, error) {
	width, height := s.Width, s.Height
	if width <= 0 || height <= 0 {
		info, err := image.Inspect(s.Data, image.Limits{})
		if err != nil {
			return nil, err
		}
		width, height = info.Width, info.Height
	}

	boxW, boxH := PreviewSize(width, height, opts)
	if boxW == width && boxH == height {
		return s.Data, nil
	}
	boxW, boxH = max(boxW, 1), max(boxH, 1)

	key := strconv.FormatUint(xxhash.Sum64(s.Data), 16) + ":" +
		strconv.Itoa(boxW) + "x" + strconv.Itoa(boxH) + ":" + strconv.Itoa(opts.Quality)
	if data, ok := p.cached(key); ok {
		return data, nil
	}

	ch := p.group.DoChan(key, func() (any, error) {
		data, err := image.Thumbnail(s.Data, boxW, boxH, opts.Quality)
		if err != nil {
			return nil, err
		}
		p.store(key, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}
