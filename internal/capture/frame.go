package capture

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

// DefaultJPEGQuality matches the compression used for classifier uploads.
const DefaultJPEGQuality = 80

const dataURIPrefix = "data:image/jpeg;base64,"

// EncodeDataURI compresses img as JPEG and returns it as a base64 data URI.
func EncodeDataURI(img image.Image, quality int) (string, error) {
	if img == nil {
		return "", errors.New("encode frame: nil image")
	}
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// splitJPEG is a bufio.SplitFunc that yields complete JPEG images from an
// MJPEG byte stream by locating SOI/EOI markers.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, []byte{0xFF, 0xD8})
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF in case it begins the next SOI.
		if n := len(data); n > 1 {
			return n - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+2:], []byte{0xFF, 0xD9})
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + 2 + end + 2
	return stop, data[start:stop], nil
}
