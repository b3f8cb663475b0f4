package mode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kvmd-streamer-go/internal/domain/eventbus"
	"kvmd-streamer-go/internal/platform/config"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/logging"
	"kvmd-streamer-go/internal/platform/observability"
)

// Result describes one finished switch attempt.
type Result struct {
	Mode       Mode
	Outcome    Outcome
	Diagnostic string
	Duration   time.Duration
	// Err 为分类后的失败原因：非零退出为 KindCommand，其余为 KindUnknown
	Err error
}

// Publisher is the subset of the event bus the controller uses.
type Publisher interface {
	PublishAsync(topic string, args ...any) bool
}

// Controller validates a requested mode and restarts the matching service.
// It keeps no record of the active mode and never retries.
type Controller struct {
	runner   Runner
	commands map[Mode][]string
	timeout  time.Duration
	bus      Publisher
	logger   *logging.Logger
}

type ControllerOptions struct {
	Runner   Runner
	Commands map[Mode][]string
	Timeout  time.Duration
	Bus      Publisher
	Logger   *logging.Logger
}

// CommandsFromConfig converts the mode.commands config table.
func CommandsFromConfig(cfg config.ModeConfig) map[Mode][]string {
	out := make(map[Mode][]string, len(cfg.Commands))
	for name, argv := range cfg.Commands {
		out[Mode(name)] = append([]string(nil), argv...)
	}
	return out
}

func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	commands := make(map[Mode][]string, len(All))
	for _, m := range All {
		argv := opts.Commands[m]
		if len(argv) == 0 {
			return nil, fmt.Errorf("no command configured for mode %s", m)
		}
		commands[m] = append([]string(nil), argv...)
	}
	return &Controller{
		runner:   opts.Runner,
		commands: commands,
		timeout:  opts.Timeout,
		bus:      opts.Bus,
		logger:   opts.Logger,
	}, nil
}

// Switch parses token and runs the restart command for it. An invalid
// token returns ErrInvalidMode without running anything; every other
// outcome is reported in the Result.
func (c *Controller) Switch(ctx context.Context, token string) (Result, error) {
	m, err := Parse(token)
	if err != nil {
		c.logger.WarnTag("MODE", "rejected mode %q", token)
		return Result{}, err
	}

	argv := append([]string(nil), c.commands[m]...)

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	runCtx, endSpan := observability.StartSpan(runCtx, "mode", "switch")

	start := time.Now()
	runErr := c.runner.Run(runCtx, argv)
	endSpan(runErr)

	res := Result{Mode: m, Duration: time.Since(start)}
	var cmdErr *CommandError
	switch {
	case runErr == nil:
		res.Outcome = OutcomeSucceeded
		c.logger.InfoTag("MODE", "switched", "mode", m.String(), "outcome", string(res.Outcome), "duration", res.Duration)
	case errors.As(runErr, &cmdErr):
		res.Outcome = OutcomeCommandFailed
		res.Diagnostic = cmdErr.Error()
		res.Err = apperrors.Wrap(apperrors.KindCommand, "mode.switch", "restart command failed", runErr)
	default:
		res.Outcome = OutcomeUnknownError
		res.Diagnostic = UnknownErrorDiagnostic
		res.Err = apperrors.Wrap(apperrors.KindUnknown, "mode.switch", "restart command did not complete", runErr)
	}
	if res.Err != nil {
		c.logger.ErrorTag("MODE", "switch failed", "mode", m.String(), "outcome", string(res.Outcome),
			"kind", string(apperrors.KindOf(res.Err)), "cause", runErr.Error())
	}

	c.publish(ctx, res)
	return res, nil
}

func (c *Controller) publish(ctx context.Context, res Result) {
	if c.bus == nil {
		return
	}
	c.bus.PublishAsync(eventbus.EventModeSwitched, eventbus.ModeSwitchedEvent{
		Mode:       res.Mode.String(),
		Outcome:    string(res.Outcome),
		Diagnostic: res.Diagnostic,
		Duration:   res.Duration,
		RequestID:  observability.RequestID(ctx),
		At:         time.Now(),
	})
}
