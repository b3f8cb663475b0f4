package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"kvmd-streamer-go/internal/app/services"
	"kvmd-streamer-go/internal/domain/eventbus"
	"kvmd-streamer-go/internal/domain/mode"
	"kvmd-streamer-go/internal/domain/ocr"
	"kvmd-streamer-go/internal/domain/streamer"
	"kvmd-streamer-go/internal/domain/streamer/store"
	platformconfig "kvmd-streamer-go/internal/platform/config"
	platformerrors "kvmd-streamer-go/internal/platform/errors"
	platformlogging "kvmd-streamer-go/internal/platform/logging"
	platformobservability "kvmd-streamer-go/internal/platform/observability"
	platformstorage "kvmd-streamer-go/internal/platform/storage"
	httptransport "kvmd-streamer-go/internal/transport/http"
	httpstreamer "kvmd-streamer-go/internal/transport/http/streamer"
)

// Options 启动参数
type Options struct {
	// ConfigPath overrides the config file location.
	ConfigPath string
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	opts                  Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	db                    *gorm.DB
	bus                   *eventbus.Bus
	snapshotStore         store.Store
	streamer              *streamer.Service
	ocr                   *ocr.Tesseract
	modes                 *mode.Controller
	probe                 *mode.Probe
	snapshots             *services.SnapshotOrchestrator
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context, opts Options) error {
	state := &appState{opts: opts}

	steps := InitGraph()
	err := executeInitSteps(ctx, steps, state)
	defer state.close()
	if err != nil {
		return err
	}

	logger := state.logger
	logBootstrapGraph(logger, steps)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if _, err := startHTTPServer(state, group, groupCtx); err != nil {
		cancel()
		return err
	}

	return waitForShutdown(signalCtx, groupCtx, cancel, logger, group)
}

// close 按初始化的逆序释放资源
func (s *appState) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := s.logger
	if logger == nil {
		logger = platformlogging.NewNop()
	}
	if s.bus != nil {
		s.bus.Stop()
	}
	if s.streamer != nil {
		if err := s.streamer.Close(ctx); err != nil {
			logger.WarnTag("STORE", "snapshot store close failed: %v", err)
		}
	} else if s.snapshotStore != nil {
		_ = s.snapshotStore.Close(ctx)
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil {
			logger.WarnTag("STORE", "database close failed: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		if err := s.observabilityShutdown(ctx); err != nil {
			logger.WarnTag("BOOT", "observability shutdown failed: %v", err)
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

func logBootstrapGraph(logger *platformlogging.Logger, steps []initStep) {
	if logger == nil {
		return
	}
	logger.InfoTag("BOOT", "init graph")
	for _, step := range steps {
		deps := "-"
		if len(step.DependsOn) > 0 {
			deps = strings.Join(step.DependsOn, ", ")
		}
		logger.InfoTag("BOOT", "  %s (%s) <- %s", step.ID, step.Title, deps)
	}
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "eventbus:init",
			Title:     "Start event bus and audit handler",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "snapshot:init-store",
			Title:     "Initialise snapshot store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initSnapshotStoreStep,
		},
		{
			ID:        "streamer:init-service",
			Title:     "Initialise streamer service",
			DependsOn: []string{"snapshot:init-store", "eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initStreamerStep,
		},
		{
			ID:        "ocr:init-engine",
			Title:     "Initialise OCR engine",
			DependsOn: []string{"eventbus:init"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initOCRStep,
		},
		{
			ID:        "mode:init-controller",
			Title:     "Initialise mode controller",
			DependsOn: []string{"eventbus:init", "observability:setup-hooks"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initModeStep,
		},
		{
			ID:        "app:init-snapshots",
			Title:     "Initialise snapshot orchestrator",
			DependsOn: []string{"streamer:init-service", "ocr:init-engine", "mode:init-controller"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initSnapshotsStep,
		},
	}
}

func loadConfigStep(_ context.Context, state *appState) error {
	res, err := platformconfig.NewLoader().WithPath(state.opts.ConfigPath).Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load config", err)
	}
	state.config = res.Config
	state.configPath = res.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	if state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "logging:init-provider", "config not loaded")
	}

	logger, err := platformlogging.New(platformlogging.Config{
		Level:    state.config.Log.Level,
		Dir:      state.config.Log.Dir,
		Filename: state.config.Log.File,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "logging:init-provider", "failed to initialize logging provider", err)
	}
	state.logger = logger
	logger.InfoTag("BOOT", "日志模块就绪 [%s] %s", state.config.Log.Level, state.configPath)
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	if state.logger == nil || state.config == nil {
		return platformerrors.New(platformerrors.KindBootstrap, "observability:setup-hooks", "config/logger not initialised")
	}

	cfg := platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}
	shutdown, err := platformobservability.Setup(ctx, cfg, state.logger.Slog())
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "observability:setup-hooks", "failed to setup observability hooks", err)
	}
	state.observabilityShutdown = shutdown
	return nil
}

func initDatabaseStep(ctx context.Context, state *appState) error {
	db, err := platformstorage.Open(ctx, state.config.Storage)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to initialize database", err)
	}
	state.db = db
	state.logger.InfoTag("STORE", "database ready in %s", state.config.Storage.DataDir)
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.New(2)
	bus.Start()
	state.bus = bus

	audit := eventbus.NewAuditHandler(platformstorage.NewModeSwitchRepository(state.db), state.logger)
	if err := audit.Register(bus); err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "eventbus:init", "failed to register audit handler", err)
	}
	return nil
}

func initSnapshotStoreStep(_ context.Context, state *appState) error {
	cfg := store.FromConfig(state.config.Snapshot.Store)
	st, err := store.New(cfg, store.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "snapshot:init-store", "failed to create snapshot store", err)
	}
	state.snapshotStore = st
	state.logger.InfoTag("STORE", "snapshot store: %s", cfg.Driver)
	return nil
}

func initStreamerStep(_ context.Context, state *appState) error {
	client, err := streamer.NewClient(state.config.Streamer)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "streamer:init-service", "failed to create streamer client", err)
	}
	state.streamer = streamer.NewService(streamer.Options{
		Source: client,
		Store:  state.snapshotStore,
		Bus:    state.bus,
		Params: streamer.Params{
			Quality:    state.config.Streamer.Quality,
			DesiredFPS: state.config.Streamer.DesiredFPS,
		},
		Logger: state.logger,
	})
	return nil
}

func initOCRStep(ctx context.Context, state *appState) error {
	tess := ocr.NewTesseract(state.config.OCR, state.logger, ocr.WithPublisher(state.bus))
	st, err := tess.State(ctx)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindBootstrap, "ocr:init-engine", "failed to read OCR state", err)
	}
	if st.Enabled {
		state.logger.InfoTag("OCR", "languages: %v (default %v)", st.Langs.Available, st.Langs.Default)
	} else {
		state.logger.WarnTag("OCR", "OCR disabled or no languages in %s", state.config.OCR.TessdataDir)
	}
	state.ocr = tess
	return nil
}

func initModeStep(_ context.Context, state *appState) error {
	controller, err := mode.NewController(mode.ControllerOptions{
		Runner:   mode.ExecRunner{},
		Commands: mode.CommandsFromConfig(state.config.Mode),
		Timeout:  state.config.Mode.CommandTimeout,
		Bus:      state.bus,
		Logger:   state.logger,
	})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "mode:init-controller", "failed to create mode controller", err)
	}
	state.modes = controller
	state.probe = mode.NewProbe(state.config.Mode.Processes)
	return nil
}

func initSnapshotsStep(_ context.Context, state *appState) error {
	state.snapshots = services.NewSnapshotOrchestrator(services.SnapshotConfig{
		Streamer: state.streamer,
		OCR:      state.ocr,
		Probe:    state.probe,
		Logger:   state.logger,
	})
	return nil
}

func buildRouter(ctx context.Context, state *appState) (*httptransport.Router, error) {
	router, err := httptransport.Build(httptransport.Options{
		Config: state.config,
		Logger: state.logger,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:build-router", "failed to build router", err)
	}

	api, err := httpstreamer.NewService(state.snapshots, state.modes, state.logger)
	if err != nil {
		return nil, err
	}
	if err := api.Register(ctx, router.API); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindTransport, "http:register-streamer", "failed to register streamer routes", err)
	}
	router.RegisterDocs(state.logger)
	return router, nil
}

func startHTTPServer(state *appState, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	router, err := buildRouter(groupCtx, state)
	if err != nil {
		return nil, err
	}

	cfg := state.config
	logger := state.logger
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.IP, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "Gin 服务已启动，访问地址 http://%s", httpServer.Addr)
		logger.InfoTag("HTTP", "在线文档入口: http://%s/docs", httpServer.Addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "HTTP 服务关闭失败: %v", err)
			} else {
				logger.InfoTag("HTTP", "HTTP 服务已优雅关闭")
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "HTTP 服务启动失败: %v", err)
			return platformerrors.Wrap(platformerrors.KindTransport, "http:listen", "http server failed", err)
		}
		return nil
	})

	return httpServer, nil
}

func waitForShutdown(
	signalCtx context.Context,
	groupCtx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	select {
	case <-signalCtx.Done():
		logger.InfoTag("BOOT", "收到系统信号 %v，正在进行资源清理", context.Cause(signalCtx))
	case <-groupCtx.Done():
		logger.WarnTag("BOOT", "服务异常退出，正在进行资源清理")
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("BOOT", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("BOOT", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("BOOT", "服务关闭超时，已强制退出")
		return errors.New("shutdown timed out")
	}
	return nil
}
