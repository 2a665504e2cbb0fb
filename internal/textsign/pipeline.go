package textsign

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"signbridge/internal/logging"
	"signbridge/internal/services"
	"signbridge/internal/services/converter"
)

const msgConversionFailed = "Conversion failed. Please try again."

// Converter resolves text to a clip sequence.
type Converter interface {
	Convert(ctx context.Context, text string) (converter.ClipSequence, error)
}

// Player is the playback side of the pipeline.
type Player interface {
	Start(ctx context.Context, uris []string) error
	Reset()
}

// Reporter receives user-facing status text.
type Reporter interface {
	Error(text string)
}

// Pipeline turns submitted text into sign clip playback. Each submission gets
// a sequence number; only the response to the most recent submission is
// applied, whatever order responses arrive in.
type Pipeline struct {
	converter Converter
	player    Player
	reporter  Reporter
	logger    *slog.Logger
	onResult  func(text string, clips converter.ClipSequence)

	mu     sync.Mutex
	latest uint64
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithResultSink is called with each applied conversion result.
func WithResultSink(fn func(text string, clips converter.ClipSequence)) Option {
	return func(p *Pipeline) {
		p.onResult = fn
	}
}

// New builds a pipeline.
func New(conv Converter, player Player, reporter Reporter, opts ...Option) *Pipeline {
	p := &Pipeline{
		converter: conv,
		player:    player,
		reporter:  reporter,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "textsign")
	return p
}

// Submit converts text and starts playback of the result. Blank text is
// ignored. The returned error is the conversion error, if any. A failed conversion resets playback so no stale completion state
// survives. Results for superseded submissions are dropped.
func (p *Pipeline) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	p.mu.Lock()
	p.latest++
	seq := p.latest
	p.mu.Unlock()

	ctx = services.WithRequestID(services.WithPipeline(ctx, "text2sign"), uuid.NewString())
	logger := logging.WithContext(ctx, p.logger)
	logger.Debug("conversion requested",
		logging.Int64("submission", int64(seq)),
		logging.Int("chars", len(text)),
	)

	clips, err := p.converter.Convert(ctx, text)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq != p.latest {
		logger.Debug("discarding superseded conversion",
			logging.Int64("submission", int64(seq)),
			logging.Int64("latest", int64(p.latest)),
		)
		return nil
	}

	if err != nil {
		p.player.Reset()
		logging.WarnWithContext(logger, "conversion failed", "conversion_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the conversion endpoint is reachable"),
			logging.String(logging.FieldImpact, "no sign clips played for this submission"),
		)
		if p.reporter != nil {
			p.reporter.Error(msgConversionFailed)
		}
		return err
	}

	logger.Info("conversion applied",
		logging.String(logging.FieldEventType, "conversion_applied"),
		logging.Int("clips", len(clips)),
	)
	if p.onResult != nil {
		p.onResult(text, clips)
	}
	// A clip that fails to play is reported and skipped by the player, so
	// only conversion failures fail the submission.
	if err := p.player.Start(ctx, clips.Paths()); err != nil {
		logger.Debug("first clip failed to play", logging.Error(err))
	}
	return nil
}

// SubmitFunc adapts Submit to callers that cannot handle an error, such as
// the dictation adapter. Errors are already reported on the status line.
func (p *Pipeline) SubmitFunc() func(ctx context.Context, text string) {
	return func(ctx context.Context, text string) {
		_ = p.Submit(ctx, text)
	}
}
