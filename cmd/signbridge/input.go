package main

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// readLines delivers trimmed non-empty lines from r until EOF or ctx ends.
// The channel is closed on EOF.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
