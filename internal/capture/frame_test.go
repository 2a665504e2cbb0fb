package capture

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"
)

func testJPEG(t *testing.T, shade uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestEncodeDataURI(t *testing.T) {
	uri, err := EncodeDataURI(image.NewRGBA(image.Rect(0, 0, 4, 4)), 80)
	if err != nil {
		t.Fatalf("EncodeDataURI: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected prefix in %q", uri[:32])
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/jpeg;base64,"))
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	if _, err := jpeg.Decode(bytes.NewReader(raw)); err != nil {
		t.Fatalf("payload is not a jpeg: %v", err)
	}
	if _, err := EncodeDataURI(nil, 80); err == nil {
		t.Fatal("expected error for nil image")
	}
}

func TestSplitJPEGStream(t *testing.T) {
	first := testJPEG(t, 10)
	second := testJPEG(t, 200)
	stream := append([]byte("junk"), first...)
	stream = append(stream, second...)
	stream = append(stream, 0xFF, 0xD8, 0x00)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(splitJPEG)
	var frames [][]byte
	for scanner.Scan() {
		frames = append(frames, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], first) || !bytes.Equal(frames[1], second) {
		t.Fatal("frames do not match the encoded images")
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := strings.Join(ffmpegArgs("/dev/video0", Resolution{Width: 640, Height: 480}), " ")
	for _, want := range []string{"-f v4l2", "-video_size 640x480", "-i /dev/video0", "-f image2pipe", "-vcodec mjpeg"} {
		if !strings.Contains(args, want) {
			t.Fatalf("args %q missing %q", args, want)
		}
	}
}
