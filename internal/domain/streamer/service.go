package streamer

import (
	"context"
	"time"

	"kvmd-streamer-go/internal/domain/eventbus"
	"kvmd-streamer-go/internal/domain/streamer/model"
	"kvmd-streamer-go/internal/domain/streamer/store"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/logging"
)

// Source captures frames and reports the raw streamer state.
type Source interface {
	State(ctx context.Context) (map[string]any, error)
	Capture(ctx context.Context) (*model.Snapshot, error)
}

// Publisher is the subset of the event bus the service uses.
type Publisher interface {
	PublishAsync(topic string, args ...any) bool
}

// Params are the capture parameters reported in the state payload.
type Params struct {
	Quality    int `json:"quality"`
	DesiredFPS int `json:"desired_fps"`
}

type SnapshotState struct {
	Saved *model.Meta    `json:"saved"`
	// Store 描述快照存储驱动，读取失败时为 null
	Store map[string]any `json:"store"`
}

// State is the streamer part of GET /streamer. Streamer is nil when the
// streamer could not be reached.
type State struct {
	Streamer map[string]any `json:"streamer"`
	Snapshot SnapshotState  `json:"snapshot"`
	Params   Params         `json:"params"`
}

// Service owns snapshot capture and the saved-snapshot slot.
type Service struct {
	source Source
	store  store.Store
	bus    Publisher
	params Params
	logger *logging.Logger
}

type Options struct {
	Source Source
	Store  store.Store
	Bus    Publisher
	Params Params
	Logger *logging.Logger
}

func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory(store.Config{})
	}
	return &Service{
		source: opts.Source,
		store:  opts.Store,
		bus:    opts.Bus,
		params: opts.Params,
		logger: opts.Logger,
	}
}

// TakeSnapshot returns a frame according to opts, or nil when none is
// available: the streamer is unreachable, the frame is offline and
// AllowOffline is unset, or Load finds nothing saved.
func (s *Service) TakeSnapshot(ctx context.Context, opts model.SnapshotOptions) (*model.Snapshot, error) {
	if opts.Load {
		snap, err := s.store.Load(ctx)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindStorage, "streamer.load_snapshot", "failed to load saved snapshot", err)
		}
		return snap, nil
	}

	snap, err := s.source.Capture(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.ErrorTag("STREAMER", "can't capture snapshot: %v", err)
		return nil, nil
	}
	if !snap.Online && !opts.AllowOffline {
		s.logger.ErrorTag("STREAMER", "stream is offline, no signal or so")
		return nil, nil
	}

	if opts.Save {
		if err := s.store.Save(ctx, snap); err != nil {
			s.logger.ErrorTag("SNAPSHOT", "save failed: %v", err)
		} else {
			s.publish(eventbus.EventSnapshotSaved, eventbus.SnapshotSavedEvent{
				Width:  snap.Width,
				Height: snap.Height,
				Size:   len(snap.Data),
				Online: snap.Online,
				At:     time.Now(),
			})
		}
	}
	return snap, nil
}

// RemoveSnapshot discards the saved snapshot. It is idempotent.
func (s *Service) RemoveSnapshot(ctx context.Context) error {
	if err := s.store.Remove(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindStorage, "streamer.remove_snapshot", "failed to remove saved snapshot", err)
	}
	s.publish(eventbus.EventSnapshotRemoved, eventbus.SnapshotRemovedEvent{At: time.Now()})
	return nil
}

// State never fails on an unreachable streamer; the streamer field is
// left nil instead.
func (s *Service) State(ctx context.Context) (*State, error) {
	out := &State{Params: s.params}

	raw, err := s.source.State(ctx)
	if err != nil {
		s.logger.DebugTag("STREAMER", "state unavailable: %v", err)
	} else {
		out.Streamer = raw
	}

	saved, err := s.store.Load(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindStorage, "streamer.state", "failed to load saved snapshot", err)
	}
	if saved != nil {
		meta := saved.Meta()
		out.Snapshot.Saved = &meta
	}

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.WarnTag("STORE", "snapshot store stats unavailable: %v", err)
	} else {
		out.Snapshot.Store = stats
	}
	return out, nil
}

// Close releases the snapshot store.
func (s *Service) Close(ctx context.Context) error {
	return s.store.Close(ctx)
}

func (s *Service) publish(topic string, evt any) {
	if s.bus == nil {
		return
	}
	if !s.bus.PublishAsync(topic, evt) {
		s.logger.WarnTag("STREAMER", "event %s dropped", topic)
	}
}
