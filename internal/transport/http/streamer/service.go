package streamer

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kvmd-streamer-go/internal/app/services"
	"kvmd-streamer-go/internal/domain/mode"
	"kvmd-streamer-go/internal/domain/ocr"
	"kvmd-streamer-go/internal/domain/params"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/logging"
	httptransport "kvmd-streamer-go/internal/transport/http"
)

// Snapshots is the application service behind the snapshot routes.
type Snapshots interface {
	Take(ctx context.Context, req params.SnapshotRequest) (*services.SnapshotResult, error)
	RemoveSnapshot(ctx context.Context) error
	OCRState(ctx context.Context) (ocr.State, error)
	State(ctx context.Context) (*services.StreamerState, error)
}

// ModeSwitcher restarts the service for a requested mode.
type ModeSwitcher interface {
	Switch(ctx context.Context, token string) (mode.Result, error)
}

// Service Streamer服务的HTTP传输层实现
type Service struct {
	snapshots Snapshots
	modes     ModeSwitcher
	logger    *logging.Logger
}

// NewService 创建新的Streamer服务实例
func NewService(snapshots Snapshots, modes ModeSwitcher, logger *logging.Logger) (*Service, error) {
	if snapshots == nil {
		return nil, apperrors.New(apperrors.KindConfig, "streamer.new", "snapshot service is required")
	}
	if modes == nil {
		return nil, apperrors.New(apperrors.KindConfig, "streamer.new", "mode switcher is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{snapshots: snapshots, modes: modes, logger: logger}, nil
}

// Register 注册Streamer相关的HTTP路由
func (s *Service) Register(_ context.Context, router *gin.RouterGroup) error {
	router.GET("/streamer", s.handleState)
	router.GET("/streamer/snapshot", s.handleTakeSnapshot)
	router.DELETE("/streamer/snapshot", s.handleRemoveSnapshot)
	router.GET("/streamer/ocr", s.handleOCR)
	router.POST("/streamer/set_mode", s.handleSetMode)

	s.logger.InfoTag("HTTP", "Streamer routes registered under %s", router.BasePath())
	return nil
}

func (s *Service) handleState(c *gin.Context) {
	state, err := s.snapshots.State(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, s.logger, "streamer.state", err)
		return
	}
	httptransport.RespondOK(c, state)
}

func (s *Service) handleTakeSnapshot(c *gin.Context) {
	req, err := params.ParseSnapshotQuery(c.Request.URL.Query())
	if err != nil {
		httptransport.RespondError(c, s.logger, "streamer.snapshot", err)
		return
	}

	res, err := s.snapshots.Take(c.Request.Context(), req)
	if err != nil {
		httptransport.RespondError(c, s.logger, "streamer.snapshot", err)
		return
	}
	httptransport.RespondBody(c, res.ContentType, res.Headers, res.Body)
}

func (s *Service) handleRemoveSnapshot(c *gin.Context) {
	if err := s.snapshots.RemoveSnapshot(c.Request.Context()); err != nil {
		httptransport.RespondError(c, s.logger, "streamer.remove_snapshot", err)
		return
	}
	httptransport.RespondOK(c, nil)
}

func (s *Service) handleOCR(c *gin.Context) {
	state, err := s.snapshots.OCRState(c.Request.Context())
	if err != nil {
		httptransport.RespondError(c, s.logger, "streamer.ocr", err)
		return
	}
	httptransport.RespondOK(c, gin.H{"ocr": state})
}

func (s *Service) handleSetMode(c *gin.Context) {
	raw, present := c.GetQuery("mode")

	res, err := s.modes.Switch(c.Request.Context(), raw)
	if errors.Is(err, mode.ErrInvalidMode) {
		var echoed any
		if present {
			echoed = raw
		}
		httptransport.RespondJSON(c, http.StatusBadRequest, gin.H{"error": "Invalid mode", "mode": echoed})
		return
	}
	if err != nil {
		httptransport.RespondError(c, s.logger, "streamer.set_mode", err)
		return
	}

	if res.Outcome != mode.OutcomeSucceeded {
		httptransport.RespondJSON(c, http.StatusInternalServerError, gin.H{"error": res.Diagnostic, "mode": res.Mode.String()})
		return
	}
	httptransport.RespondOK(c, gin.H{"mode": res.Mode.String(), "status": "success"})
}
