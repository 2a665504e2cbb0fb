package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"signbridge/internal/logging"
)

const (
	defaultReadyTimeout = 5 * time.Second
	maxFrameBytes       = 8 << 20
	stderrTailBytes     = 2048
)

// FFmpegCamera streams a V4L2 device through ffmpeg as MJPEG on stdout.
type FFmpegCamera struct {
	Binary       string
	Device       string
	ReadyTimeout time.Duration
	Logger       *slog.Logger
}

// Open starts ffmpeg and waits for the first decoded frame. A process that
// exits before producing a frame is reported as an error.
func (f *FFmpegCamera) Open(ctx context.Context, res Resolution) (Media, error) {
	binary := strings.TrimSpace(f.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	device := strings.TrimSpace(f.Device)
	if device == "" {
		return nil, errors.New("no capture device configured")
	}
	logger := f.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	procCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(procCtx, binary, ffmpegArgs(device, res)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	media := &streamMedia{
		cancel: cancel,
		ended:  make(chan struct{}),
		first:  make(chan struct{}),
	}
	go func() {
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 256<<10), maxFrameBytes)
		scanner.Split(splitJPEG)
		for scanner.Scan() {
			media.store(scanner.Bytes())
		}
		waitErr := cmd.Wait()
		if procCtx.Err() == nil {
			logger.Debug("ffmpeg capture exited",
				logging.String("device", device),
				logging.Error(waitErr),
				logging.String("stderr", strings.TrimSpace(stderr.String())),
			)
		}
		media.finish()
	}()

	timeout := f.ReadyTimeout
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-media.first:
		return media, nil
	case <-media.ended:
		return nil, fmt.Errorf("ffmpeg exited before first frame: %s", strings.TrimSpace(stderr.String()))
	case <-timer.C:
		_ = media.Close()
		return nil, fmt.Errorf("no frame from %s within %s", device, timeout)
	case <-ctx.Done():
		_ = media.Close()
		return nil, ctx.Err()
	}
}

func ffmpegArgs(device string, res Resolution) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if res.Width > 0 && res.Height > 0 {
		args = append(args, "-video_size", res.String())
	}
	return append(args,
		"-i", device,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", strconv.Itoa(3),
		"-",
	)
}

// streamMedia keeps the most recent frame of a running stream.
type streamMedia struct {
	mu     sync.Mutex
	latest []byte
	cancel context.CancelFunc

	first     chan struct{}
	firstOnce sync.Once
	ended     chan struct{}
	endOnce   sync.Once
}

func (m *streamMedia) store(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	m.mu.Lock()
	m.latest = buf
	m.mu.Unlock()
	m.firstOnce.Do(func() { close(m.first) })
}

func (m *streamMedia) finish() {
	m.endOnce.Do(func() { close(m.ended) })
}

func (m *streamMedia) Ready() bool {
	select {
	case <-m.ended:
		return false
	default:
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest != nil
}

func (m *streamMedia) Snapshot() (image.Image, error) {
	m.mu.Lock()
	frame := m.latest
	m.mu.Unlock()
	if frame == nil {
		return nil, errors.New("no frame captured yet")
	}
	img, err := jpeg.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

func (m *streamMedia) Ended() <-chan struct{} {
	return m.ended
}

func (m *streamMedia) Close() error {
	m.cancel()
	return nil
}

type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
