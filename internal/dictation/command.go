package dictation

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"signbridge/internal/logging"
)

const stopGracePeriod = 2 * time.Second

// CommandRecognizer runs an external streaming speech-to-text program that
// writes one JSON object per line:
//
//	{"text": "hello wor", "final": false}
//	{"text": "hello world", "final": true}
//	{"error": "audio device busy"}
//
// The literal "{lang}" in Args is replaced by the BCP 47 language tag, which
// is also exported as SIGNBRIDGE_LANG. Process exit ends the session.
type CommandRecognizer struct {
	command string
	args    []string
	logger  *slog.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	events  chan Event
	exited  chan struct{}
	stopped bool
}

// NewCommandRecognizer resolves command on PATH. A missing or empty command
// returns ErrUnsupported.
func NewCommandRecognizer(command string, args []string, logger *slog.Logger) (*CommandRecognizer, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrUnsupported
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupported, command, err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandRecognizer{
		command: resolved,
		args:    append([]string(nil), args...),
		logger:  logging.NewComponentLogger(logger, "recognizer"),
	}, nil
}

// Start launches the recognizer process. A previous process that is still
// shutting down after Stop is waited for first, and killed if it outlives
// the grace period.
func (r *CommandRecognizer) Start(ctx context.Context, opts Options) error {
	tag, err := language.Parse(strings.TrimSpace(opts.Language))
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", opts.Language, err)
	}
	if err := r.awaitPrevious(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd != nil {
		return errors.New("recognizer already running")
	}

	cmd := exec.CommandContext(ctx, r.command, expandArgs(r.args, tag.String())...) //nolint:gosec
	cmd.Env = append(os.Environ(), "SIGNBRIDGE_LANG="+tag.String())
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGracePeriod
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("recognizer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}

	events := make(chan Event, 16)
	exited := make(chan struct{})
	r.cmd = cmd
	r.events = events
	r.exited = exited
	r.stopped = false

	go r.read(cmd, stdout, events, exited)
	return nil
}

func (r *CommandRecognizer) awaitPrevious(ctx context.Context) error {
	r.mu.Lock()
	if r.cmd == nil {
		r.mu.Unlock()
		return nil
	}
	if !r.stopped {
		r.mu.Unlock()
		return errors.New("recognizer already running")
	}
	cmd, exited := r.cmd, r.exited
	r.mu.Unlock()

	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(stopGracePeriod):
	}
	r.logger.Debug("previous recognizer ignored interrupt; killing it")
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill previous recognizer: %w", err)
	}
	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the recognizer to finish. Its End event still follows.
func (r *CommandRecognizer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cmd == nil || r.stopped {
		return nil
	}
	r.stopped = true
	if err := r.cmd.Process.Signal(os.Interrupt); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal recognizer: %w", err)
	}
	return nil
}

// Events returns the channel of the current session.
func (r *CommandRecognizer) Events() <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events
}

type recognizerLine struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
	Error string `json:"error"`
}

func (r *CommandRecognizer) read(cmd *exec.Cmd, stdout io.Reader, events chan<- Event, exited chan<- struct{}) {
	defer close(events)

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, ok := parseLine(line)
		if !ok {
			r.logger.Debug("ignoring unparseable recognizer line", logging.String("line", line))
			continue
		}
		events <- ev
	}

	waitErr := cmd.Wait()
	r.mu.Lock()
	stopped := r.stopped
	if r.cmd == cmd {
		r.cmd = nil
	}
	r.mu.Unlock()
	close(exited)

	if waitErr != nil && !stopped {
		events <- Event{Kind: EventError, Err: fmt.Errorf("recognizer exited: %w", waitErr)}
	}
	events <- Event{Kind: EventEnd}
}

func parseLine(line string) (Event, bool) {
	var parsed recognizerLine
	if err := json.Unmarshal([]byte(line), &parsed); err != nil {
		return Event{}, false
	}
	if msg := strings.TrimSpace(parsed.Error); msg != "" {
		return Event{Kind: EventError, Err: errors.New(msg)}, true
	}
	return Event{Kind: EventResult, Text: parsed.Text, Final: parsed.Final}, true
}

func expandArgs(args []string, lang string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		out = append(out, strings.ReplaceAll(arg, "{lang}", lang))
	}
	return out
}
