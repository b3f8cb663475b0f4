package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Pipeline reads image payloads from a stream with a size bound and
// validates them.
type Pipeline struct {
	limits Limits
}

// Input describes a streaming image payload.
type Input struct {
	Reader io.Reader
	Source string
}

// Output carries the validated bytes and header info.
type Output struct {
	Bytes []byte
	Info  Info
}

func NewPipeline(limits Limits) *Pipeline {
	return &Pipeline{limits: limits.withDefaults()}
}

// Process reads input.Reader fully (up to the size limit) and runs Inspect.
func (p *Pipeline) Process(ctx context.Context, input Input) (*Output, error) {
	if input.Reader == nil {
		return nil, fmt.Errorf("image reader is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	limited := &io.LimitedReader{
		R: input.Reader,
		N: p.limits.MaxFileSize + 1,
	}
	buf := bytes.NewBuffer(make([]byte, 0, 256*1024))
	if _, err := io.Copy(buf, limited); err != nil {
		return nil, fmt.Errorf("read image from %s: %w", input.Source, err)
	}
	if limited.N <= 0 {
		return nil, fmt.Errorf("image from %s exceeds maximum size of %d bytes", input.Source, p.limits.MaxFileSize)
	}

	data := buf.Bytes()
	info, err := Inspect(data, p.limits)
	if err != nil {
		return nil, fmt.Errorf("validate image from %s: %w", input.Source, err)
	}
	return &Output{Bytes: data, Info: info}, nil
}
