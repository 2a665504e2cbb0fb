package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const clipExt = ".mp4"

// ScanResult summarizes a directory scan.
type ScanResult struct {
	Dir     string
	Clips   int
	Skipped int
}

// Scan indexes every *.mp4 in dir under its folded base name, replacing the
// previous index. Files whose names fold to the same key keep the first in
// lexical order.
func (s *Store) Scan(ctx context.Context, dir string) (ScanResult, error) {
	clips, skipped, err := readClips(dir)
	if err != nil {
		return ScanResult{}, err
	}
	if err := s.Replace(ctx, dir, clips); err != nil {
		return ScanResult{}, err
	}
	return ScanResult{Dir: dir, Clips: len(clips), Skipped: skipped}, nil
}

func readClips(dir string) ([]Clip, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read clips dir %q: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	seen := make(map[string]struct{}, len(entries))
	var (
		clips   []Clip
		skipped int
	)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), clipExt) {
			continue
		}
		word := Fold(strings.TrimSpace(name[:len(name)-len(clipExt)]))
		if word == "" {
			skipped++
			continue
		}
		if _, dup := seen[word]; dup {
			skipped++
			continue
		}
		info, err := entry.Info()
		if err != nil {
			skipped++
			continue
		}
		seen[word] = struct{}{}
		clips = append(clips, Clip{Word: word, Filename: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	return clips, skipped, nil
}
