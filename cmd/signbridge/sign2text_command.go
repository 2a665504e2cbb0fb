package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"signbridge/internal/capture"
	"signbridge/internal/config"
	"signbridge/internal/logging"
	"signbridge/internal/overlay"
	"signbridge/internal/services/classifier"
	"signbridge/internal/status"
	"signbridge/internal/transcript"
)

func newSignToTextCommand(ctx *commandContext) *cobra.Command {
	var (
		framesDir   string
		overlayAddr string
		noStart     bool
	)

	cmd := &cobra.Command{
		Use:   "sign2text",
		Short: "Recognize signs from the camera and build a transcript",
		Long: `Capture frames from the camera, classify them, and build a transcript.

While running, type one of these commands and press enter:
  start   acquire the camera and begin sampling
  stop    release the camera
  clear   empty the transcript
  quit    stop and exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			if strings.TrimSpace(overlayAddr) == "" {
				overlayAddr = cfg.Overlay.Bind
			}
			runCtx, cancel := signalContext(cmd)
			defer cancel()
			return runSignToText(runCtx, cfg, ctx, signToTextOptions{
				framesDir:   framesDir,
				overlayAddr: overlayAddr,
				autoStart:   !noStart,
				in:          cmd.InOrStdin(),
				out:         cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&framesDir, "frames-dir", "", "Replay JPEG frames from a directory instead of the camera")
	cmd.Flags().StringVar(&overlayAddr, "overlay", "", "Serve the websocket overlay feed on this address")
	cmd.Flags().BoolVar(&noStart, "no-start", false, "Wait for a start command before opening the camera")
	return cmd
}

type signToTextOptions struct {
	framesDir   string
	overlayAddr string
	autoStart   bool
	in          io.Reader
	out         io.Writer
}

func runSignToText(ctx context.Context, cfg *config.Config, cc *commandContext, opts signToTextOptions) error {
	logger := cc.log()
	term := newTerminal(opts.out)

	board := status.NewBoard(status.WithTTL(cfg.StatusTTL()), status.WithLogger(logger))
	board.Subscribe(term.Status)

	var camera capture.Camera
	device := cfg.Capture.Device
	if dir := strings.TrimSpace(opts.framesDir); dir != "" {
		camera = capture.DirCamera{Dir: dir}
		device = dir
	} else {
		camera = &capture.FFmpegCamera{Binary: cfg.FFmpegBinary(), Device: device, Logger: logger}
	}

	var (
		hub        *overlay.Hub
		controller *capture.Controller
	)
	transcriptSinks := []func([]string){term.Transcript}
	if opts.overlayAddr != "" {
		hub = overlay.NewHub(overlay.WithLogger(logger), overlay.WithCommands(func(_ context.Context, c overlay.Command) error {
			return applySignToTextCommand(ctx, controller, c.Action)
		}))
		board.Subscribe(hub.StatusSink())
		transcriptSinks = append(transcriptSinks, hub.TranscriptSink())
	}

	controllerOpts := []capture.Option{
		capture.WithLogger(logger),
		capture.WithLock(capture.NewDeviceLock(cfg.Paths.LockDir, device)),
		capture.WithTranscriptSink(func(words []string) {
			for _, sink := range transcriptSinks {
				sink(words)
			}
		}),
	}
	if hub != nil {
		controllerOpts = append(controllerOpts, capture.WithPreview(hub.PreviewSink()))
	}

	client := classifier.NewClient(classifier.Config{
		URL:            cfg.Classifier.URL,
		TimeoutSeconds: cfg.Classifier.TimeoutSeconds,
	})

	controller = capture.NewController(capture.Config{
		Device:          device,
		Resolution:      capture.Resolution{Width: cfg.Capture.Width, Height: cfg.Capture.Height},
		JPEGQuality:     cfg.Capture.JPEGQuality,
		SteadyInterval:  cfg.SteadyInterval(),
		RetryInterval:   cfg.RetryInterval(),
		PreviewInterval: cfg.PreviewInterval(),
	}, camera, client, transcript.New(cfg.Capture.ConfidenceThreshold), board, controllerOpts...)
	defer func() {
		controller.Stop()
		controller.Wait()
		fmt.Fprintln(opts.out, renderTable(
			[]string{"Final transcript", "Words"},
			[][]string{{controller.Transcript().Text(), fmt.Sprint(controller.Transcript().Len())}},
			1,
		))
	}()

	if hub != nil {
		stop, err := serveOverlay(opts.overlayAddr, hub, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	if cfg.Capture.Hotplug && strings.TrimSpace(opts.framesDir) == "" {
		if monitor := capture.NewHotplugMonitor(device, logger, controller.MediaEnded); monitor != nil {
			if err := monitor.Start(ctx); err != nil {
				logging.WarnWithContext(logger, "hotplug monitor unavailable", "hotplug_unavailable",
					logging.Error(err),
					logging.String(logging.FieldImpact, "camera unplug is only noticed when ffmpeg exits"),
				)
			} else {
				defer monitor.Stop()
			}
		}
	}

	if opts.autoStart {
		_ = controller.Start(ctx)
	}

	lines := readLines(ctx, opts.in)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			action := strings.ToLower(line)
			if action == "quit" || action == "q" || action == "exit" {
				return nil
			}
			if err := applySignToTextCommand(ctx, controller, action); err != nil {
				fmt.Fprintln(opts.out, err)
			}
		}
	}
}

func applySignToTextCommand(ctx context.Context, controller *capture.Controller, action string) error {
	switch action {
	case "start":
		_ = controller.Start(ctx)
	case "stop":
		controller.Stop()
	case "clear":
		controller.Clear()
	default:
		return fmt.Errorf("unknown command %q (start, stop, clear, quit)", action)
	}
	return nil
}
