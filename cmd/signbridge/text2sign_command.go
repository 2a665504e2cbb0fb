package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"signbridge/internal/config"
	"signbridge/internal/dictation"
	"signbridge/internal/overlay"
	"signbridge/internal/playback"
	"signbridge/internal/services/converter"
	"signbridge/internal/status"
	"signbridge/internal/textsign"
)

func newTextToSignCommand(ctx *commandContext) *cobra.Command {
	var (
		listen      bool
		interactive bool
		overlayAddr string
	)

	cmd := &cobra.Command{
		Use:   "text2sign [text...]",
		Short: "Convert text or speech into a sequence of sign clips and play them",
		Long: `Convert text into sign clips and play them in order.

With text arguments the sequence plays once and the command exits. With
--listen the text comes from the speech recognizer. Without either, or with
--interactive, each line typed is converted. Interactive commands:
  /listen   toggle dictation
  /replay   play the last completed sequence again
  /quit     exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if strings.TrimSpace(overlayAddr) == "" {
				overlayAddr = cfg.Overlay.Bind
			}
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return runTextToSign(runCtx, cfg, ctx, textToSignOptions{
				text:        strings.Join(args, " "),
				listen:      listen,
				interactive: interactive || (len(args) == 0 && !listen),
				overlayAddr: overlayAddr,
				in:          cmd.InOrStdin(),
				out:         cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().BoolVarP(&listen, "listen", "l", false, "Take the text from the speech recognizer")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Keep reading text from stdin")
	cmd.Flags().StringVar(&overlayAddr, "overlay", "", "Serve the websocket overlay feed on this address")
	return cmd
}

type textToSignOptions struct {
	text        string
	listen      bool
	interactive bool
	overlayAddr string
	in          io.Reader
	out         io.Writer
}

func runTextToSign(ctx context.Context, cfg *config.Config, cc *commandContext, opts textToSignOptions) error {
	logger := cc.log()
	term := newTerminal(opts.out)

	board := status.NewBoard(status.WithTTL(cfg.StatusTTL()), status.WithLogger(logger))
	board.Subscribe(term.Status)

	player, err := playback.NewProcessPlayer(cfg.Playback.PlayerCommand, cfg.Playback.PlayerArgs, logger)
	if err != nil {
		return err
	}
	defer func() { _ = player.Stop() }()

	// settled receives a value whenever a submission reaches a terminal point.
	settled := make(chan struct{}, 1)
	signal := func() {
		select {
		case settled <- struct{}{}:
		default:
		}
	}

	var (
		hub      *overlay.Hub
		engine   *playback.Engine
		pipeline *textsign.Pipeline
		adapter  *dictation.Adapter
	)
	playbackSinks := []func(playback.Snapshot){term.Playback, func(s playback.Snapshot) {
		if s.State == playback.Complete.String() || s.State == playback.Empty.String() {
			signal()
		}
	}}
	bufferSinks := []func(string){term.Dictation}
	if opts.overlayAddr != "" {
		hub = overlay.NewHub(overlay.WithLogger(logger), overlay.WithCommands(func(_ context.Context, c overlay.Command) error {
			return applyTextToSignCommand(ctx, engine, pipeline, adapter, c.Action, c.Text)
		}))
		board.Subscribe(hub.StatusSink())
		playbackSinks = append(playbackSinks, hub.PlaybackSink())
		bufferSinks = append(bufferSinks, hub.DictationSink())
	}

	engine = playback.NewEngine(player, board,
		playback.WithLogger(logger),
		playback.WithChangeSink(func(s playback.Snapshot) {
			for _, sink := range playbackSinks {
				sink(s)
			}
		}),
	)
	go func() { _ = engine.Run(ctx) }()

	conv := converter.NewClient(converter.Config{
		URL:            cfg.Converter.URL,
		TimeoutSeconds: cfg.Converter.TimeoutSeconds,
	})
	pipeline = textsign.New(conv, engine, board,
		textsign.WithLogger(logger),
		textsign.WithResultSink(func(text string, clips converter.ClipSequence) {
			if table := renderClipTable(clips); table != "" {
				term.println(table)
			}
		}),
	)
	submit := func(submitCtx context.Context, text string) {
		if err := pipeline.Submit(submitCtx, text); err != nil {
			signal()
		}
	}

	var recognizer dictation.Recognizer
	if rec, err := dictation.NewCommandRecognizer(cfg.Dictation.Command, cfg.Dictation.Args, logger); err == nil {
		recognizer = rec
	}
	adapter = dictation.NewAdapter(recognizer, submit, board,
		dictation.WithLanguage(cfg.Dictation.Language),
		dictation.WithLogger(logger),
		dictation.WithBufferSink(func(text string) {
			for _, sink := range bufferSinks {
				sink(text)
			}
		}),
	)
	defer adapter.Stop()

	if hub != nil {
		stop, err := serveOverlay(opts.overlayAddr, hub, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if opts.text != "" {
		if err := pipeline.Submit(ctx, opts.text); err != nil && !opts.interactive {
			return err
		}
	}
	if opts.listen {
		if err := adapter.Start(ctx); err != nil && !opts.interactive {
			return err
		}
	}

	if !opts.interactive {
		select {
		case <-ctx.Done():
		case <-settled:
		}
		return nil
	}

	lines := readLines(ctx, opts.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-settled:
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "/quit" || line == "/exit" {
				return nil
			}
			action, text := "submit", line
			if strings.HasPrefix(line, "/") {
				action, text = strings.TrimPrefix(line, "/"), ""
			}
			if err := applyTextToSignCommand(ctx, engine, pipeline, adapter, action, text); err != nil {
				term.println(err.Error())
			}
		}
	}
}

func applyTextToSignCommand(ctx context.Context, engine *playback.Engine, pipeline *textsign.Pipeline, adapter *dictation.Adapter, action, text string) error {
	switch action {
	case "submit":
		go func() { _ = pipeline.Submit(ctx, text) }()
	case "replay":
		if err := engine.Replay(ctx); errors.Is(err, playback.ErrReplayUnavailable) {
			return errors.New("replay is available once a sequence has finished playing")
		} else if err != nil {
			return err
		}
	case "listen":
		if err := adapter.Toggle(ctx); err != nil && !errors.Is(err, dictation.ErrUnsupported) {
			return err
		}
	default:
		return fmt.Errorf("unknown command %q (/listen, /replay, /quit)", action)
	}
	return nil
}

func renderClipTable(clips converter.ClipSequence) string {
	if len(clips) == 0 {
		return ""
	}
	rows := make([][]string, 0, len(clips))
	for i, clip := range clips {
		rows = append(rows, []string{fmt.Sprint(i + 1), clip.Word, clip.Path})
	}
	return renderTable([]string{"#", "Sign", "Clip"}, rows, 0)
}
