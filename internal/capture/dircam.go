package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DirCamera replays JPEG files from a directory in name order, looping.
// It stands in for a live device in offline runs.
type DirCamera struct {
	Dir string
}

// Open lists the frames; an empty directory is an error.
func (d DirCamera) Open(_ context.Context, _ Resolution) (Media, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg":
			files = append(files, filepath.Join(d.Dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no jpeg frames in %s", d.Dir)
	}
	sort.Strings(files)
	return &dirMedia{files: files, ended: make(chan struct{})}, nil
}

type dirMedia struct {
	mu     sync.Mutex
	files  []string
	next   int
	closed bool
	ended  chan struct{}
}

func (m *dirMedia) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

func (m *dirMedia) Snapshot() (image.Image, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, errors.New("media closed")
	}
	path := m.files[m.next%len(m.files)]
	m.next++
	m.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer file.Close()
	img, err := jpeg.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func (m *dirMedia) Ended() <-chan struct{} {
	return m.ended
}

func (m *dirMedia) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
