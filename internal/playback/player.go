package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"signbridge/internal/logging"
)

// ProcessPlayer plays each clip with an external player process; process
// exit is the end-of-clip event. Starting a clip stops the previous one.
type ProcessPlayer struct {
	command string
	args    []string
	logger  *slog.Logger

	mu      sync.Mutex
	current *exec.Cmd
	cancel  context.CancelFunc
}

// NewProcessPlayer resolves command on PATH.
func NewProcessPlayer(command string, args []string, logger *slog.Logger) (*ProcessPlayer, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, errors.New("no player command configured")
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("player %q not found: %w", command, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ProcessPlayer{
		command: resolved,
		args:    append([]string(nil), args...),
		logger:  logging.NewComponentLogger(logger, "player"),
	}, nil
}

// Play starts uri and returns a channel closed when the player exits.
func (p *ProcessPlayer) Play(ctx context.Context, uri string) (<-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()

	procCtx, cancel := context.WithCancel(ctx)
	args := append(append([]string(nil), p.args...), uri)
	cmd := exec.CommandContext(procCtx, p.command, args...) //nolint:gosec
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start player: %w", err)
	}
	p.current = cmd
	p.cancel = cancel

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := cmd.Wait()
		if err != nil && procCtx.Err() == nil {
			p.logger.Debug("player exited with error",
				logging.String("uri", uri),
				logging.Error(err),
			)
		}
		p.mu.Lock()
		if p.current == cmd {
			p.current = nil
			p.cancel = nil
		}
		p.mu.Unlock()
		cancel()
	}()
	return done, nil
}

// Stop terminates the current clip, if any.
func (p *ProcessPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *ProcessPlayer) stopLocked() {
	if p.cancel != nil {
		p.cancel()
	}
	p.current = nil
	p.cancel = nil
}
