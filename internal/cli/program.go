package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kardianos/service"

	"kvmd-streamer-go/internal/bootstrap"
)

const stopTimeout = 20 * time.Second

// RunFunc runs the server until ctx is cancelled.
type RunFunc func(ctx context.Context, opts bootstrap.Options) error

// Program implements service.Interface around bootstrap.Run.
type Program struct {
	opts bootstrap.Options
	run  RunFunc
	// exit is called when the server stops on its own with an error.
	exit func(code int)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

func NewProgram(opts bootstrap.Options, run RunFunc) *Program {
	if run == nil {
		run = bootstrap.Run
	}
	return &Program{opts: opts, run: run, exit: os.Exit}
}

// Start is called when the service is started. It must not block.
func (p *Program) Start(service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	p.cancel, p.done = cancel, done

	go func() {
		err := p.run(ctx, p.opts)
		done <- err
		if err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "kvmd-streamer stopped: %v\n", err)
			p.exit(1)
		}
	}()
	return nil
}

// Stop cancels the server and waits for it to shut down.
func (p *Program) Stop(service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case err := <-done:
		return err
	case <-time.After(stopTimeout):
		return errors.New("timed out waiting for server to stop")
	}
}
