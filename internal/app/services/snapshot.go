package services

import (
	"context"

	"kvmd-streamer-go/internal/domain/mode"
	"kvmd-streamer-go/internal/domain/ocr"
	"kvmd-streamer-go/internal/domain/params"
	"kvmd-streamer-go/internal/domain/streamer"
	"kvmd-streamer-go/internal/domain/streamer/model"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/logging"
)

const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Streamer 流媒体服务
type Streamer interface {
	State(ctx context.Context) (*streamer.State, error)
	TakeSnapshot(ctx context.Context, opts model.SnapshotOptions) (*model.Snapshot, error)
	RemoveSnapshot(ctx context.Context) error
}

// OCR 文字识别服务
type OCR interface {
	AvailableLangs(ctx context.Context) ([]string, error)
	DefaultLangs(ctx context.Context) ([]string, error)
	Recognize(ctx context.Context, data []byte, langs []string, region ocr.Region) (string, error)
	State(ctx context.Context) (ocr.State, error)
}

// BackendProbe reports the processes serving each mode.
type BackendProbe interface {
	Backends(ctx context.Context) (map[string]mode.BackendStatus, error)
}

// Branch is the output form of a snapshot request.
type Branch int

const (
	BranchRaw Branch = iota
	BranchPreview
	BranchOCR
)

func (b Branch) String() string {
	switch b {
	case BranchOCR:
		return "ocr"
	case BranchPreview:
		return "preview"
	default:
		return "raw"
	}
}

// ResolveBranch picks the output form. OCR takes precedence over preview.
func ResolveBranch(req params.SnapshotRequest) Branch {
	switch {
	case req.OCR:
		return BranchOCR
	case req.Preview:
		return BranchPreview
	default:
		return BranchRaw
	}
}

// SnapshotResult is the body of a snapshot response.
type SnapshotResult struct {
	Branch      Branch
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// StreamerState is the payload of GET /streamer.
type StreamerState struct {
	Streamer map[string]any                `json:"streamer"`
	Snapshot streamer.SnapshotState        `json:"snapshot"`
	Params   streamer.Params               `json:"params"`
	Backends map[string]mode.BackendStatus `json:"backends"`
}

// SnapshotOrchestrator 组合快照获取、预览和文字识别
type SnapshotOrchestrator struct {
	streamer Streamer
	ocr      OCR
	probe    BackendProbe
	previews *model.Previewer
	logger   *logging.Logger
}

// SnapshotConfig 快照编排配置
type SnapshotConfig struct {
	Streamer  Streamer
	OCR       OCR
	Probe     BackendProbe
	// Previewer 为空时使用独立实例
	Previewer *model.Previewer
	Logger    *logging.Logger
}

// NewSnapshotOrchestrator 创建快照编排服务
func NewSnapshotOrchestrator(cfg SnapshotConfig) *SnapshotOrchestrator {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Previewer == nil {
		cfg.Previewer = model.NewPreviewer()
	}
	return &SnapshotOrchestrator{
		streamer: cfg.Streamer,
		ocr:      cfg.OCR,
		probe:    cfg.Probe,
		previews: cfg.Previewer,
		logger:   cfg.Logger,
	}
}

// Take obtains one snapshot and renders it in the branch the request
// selects. A missing snapshot is an unavailable error whatever the flags.
func (o *SnapshotOrchestrator) Take(ctx context.Context, req params.SnapshotRequest) (*SnapshotResult, error) {
	snap, err := o.streamer.TakeSnapshot(ctx, model.SnapshotOptions{
		Save:         req.Save,
		Load:         req.Load,
		AllowOffline: req.AllowOffline,
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, apperrors.New(apperrors.KindUnavailable, "snapshot.take", "no snapshot available")
	}

	res := &SnapshotResult{
		Branch:  ResolveBranch(req),
		Headers: snap.Headers,
	}
	switch res.Branch {
	case BranchOCR:
		text, err := o.recognize(ctx, snap, req)
		if err != nil {
			return nil, err
		}
		res.Body, res.ContentType = []byte(text), ContentTypeText
	case BranchPreview:
		data, err := o.previews.Make(ctx, snap, model.PreviewOptions{
			MaxWidth:  req.PreviewMaxWidth,
			MaxHeight: req.PreviewMaxHeight,
			Quality:   req.PreviewQuality,
		})
		if err != nil {
			o.logger.ErrorTag("SNAPSHOT", "preview failed: %v", err)
			return nil, apperrors.Wrap(apperrors.KindDomain, "snapshot.preview", "failed to make preview", err)
		}
		res.Body, res.ContentType = data, ContentTypeJPEG
	default:
		res.Body, res.ContentType = snap.Data, ContentTypeJPEG
	}
	return res, nil
}

func (o *SnapshotOrchestrator) recognize(ctx context.Context, snap *model.Snapshot, req params.SnapshotRequest) (string, error) {
	available, err := o.ocr.AvailableLangs(ctx)
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindDomain, "snapshot.ocr", "failed to list OCR languages", err)
	}

	langs := make([]string, 0, len(req.OCRLangs))
	for _, lang := range req.OCRLangs {
		// ValidationError 原样返回，保留参数名
		checked, err := params.StringIn("ocr_langs", lang, available)
		if err != nil {
			return "", err
		}
		langs = append(langs, checked)
	}
	if len(langs) == 0 {
		if langs, err = o.ocr.DefaultLangs(ctx); err != nil {
			return "", apperrors.Wrap(apperrors.KindDomain, "snapshot.ocr", "failed to resolve default OCR languages", err)
		}
	}

	return o.ocr.Recognize(ctx, snap.Data, langs, ocr.Region{
		Left:   req.OCRLeft,
		Top:    req.OCRTop,
		Right:  req.OCRRight,
		Bottom: req.OCRBottom,
	})
}

// RemoveSnapshot discards the saved snapshot.
func (o *SnapshotOrchestrator) RemoveSnapshot(ctx context.Context) error {
	return o.streamer.RemoveSnapshot(ctx)
}

// OCRState returns the OCR descriptor.
func (o *SnapshotOrchestrator) OCRState(ctx context.Context) (ocr.State, error) {
	return o.ocr.State(ctx)
}

// State combines the streamer state with the observed backend processes.
// A failing probe leaves backends empty.
func (o *SnapshotOrchestrator) State(ctx context.Context) (*StreamerState, error) {
	st, err := o.streamer.State(ctx)
	if err != nil {
		return nil, err
	}
	out := &StreamerState{
		Streamer: st.Streamer,
		Snapshot: st.Snapshot,
		Params:   st.Params,
		Backends: map[string]mode.BackendStatus{},
	}
	if o.probe != nil {
		backends, err := o.probe.Backends(ctx)
		if err != nil {
			o.logger.WarnTag("STREAMER", "backend probe failed: %v", err)
		} else {
			out.Backends = backends
		}
	}
	return out, nil
}
