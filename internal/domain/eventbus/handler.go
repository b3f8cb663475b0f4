package eventbus

import (
	"context"
	"time"

	"kvmd-streamer-go/internal/platform/logging"
	"kvmd-streamer-go/internal/platform/storage"
)

// ModeSwitchRecorder stores mode switch audit rows.
type ModeSwitchRecorder interface {
	Record(ctx context.Context, rec *storage.ModeSwitchRecord) error
}

// AuditHandler logs streamer events and persists mode switch outcomes.
type AuditHandler struct {
	recorder ModeSwitchRecorder
	logger   *logging.Logger
	timeout  time.Duration
}

func NewAuditHandler(recorder ModeSwitchRecorder, logger *logging.Logger) *AuditHandler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AuditHandler{
		recorder: recorder,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

// Register subscribes the handler to every streamer topic on bus.
func (h *AuditHandler) Register(bus *Bus) error {
	if err := bus.Subscribe(EventModeSwitched, h.onModeSwitched); err != nil {
		return err
	}
	if err := bus.Subscribe(EventSnapshotSaved, h.onSnapshotSaved); err != nil {
		return err
	}
	if err := bus.Subscribe(EventSnapshotRemoved, h.onSnapshotRemoved); err != nil {
		return err
	}
	return bus.Subscribe(EventOCRRecognized, h.onOCRRecognized)
}

func (h *AuditHandler) onModeSwitched(evt ModeSwitchedEvent) {
	if h.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	rec := &storage.ModeSwitchRecord{
		Mode:       evt.Mode,
		Outcome:    evt.Outcome,
		Diagnostic: evt.Diagnostic,
		DurationMS: evt.Duration.Milliseconds(),
		RequestID:  evt.RequestID,
		CreatedAt:  evt.At,
	}
	if err := h.recorder.Record(ctx, rec); err != nil {
		h.logger.ErrorTag("STORE", "mode switch audit failed: %v", err)
	}
}

func (h *AuditHandler) onSnapshotSaved(evt SnapshotSavedEvent) {
	h.logger.DebugTag("SNAPSHOT", "saved", "width", evt.Width, "height", evt.Height, "size", evt.Size, "online", evt.Online)
}

func (h *AuditHandler) onSnapshotRemoved(evt SnapshotRemovedEvent) {
	h.logger.DebugTag("SNAPSHOT", "removed", "at", evt.At)
}

func (h *AuditHandler) onOCRRecognized(evt OCRRecognizedEvent) {
	h.logger.DebugTag("OCR", "recognized", "langs", evt.Langs, "chars", evt.Chars, "duration", evt.Duration)
}
