package catalog

import (
	"context"
	"net/url"
	"strings"
	"unicode"
)

// Match is one entry of a conversion result.
type Match struct {
	Word string `json:"word"`
	Path string `json:"path"`
}

// Lookuper finds a clip by folded word.
type Lookuper interface {
	Lookup(ctx context.Context, word string) (Clip, bool, error)
}

// Resolver turns free text into an ordered clip sequence.
type Resolver struct {
	clips  Lookuper
	prefix string
}

// NewResolver builds clip paths as prefix + "/" + escaped filename.
func NewResolver(clips Lookuper, urlPrefix string) *Resolver {
	return &Resolver{clips: clips, prefix: strings.TrimRight(urlPrefix, "/")}
}

// Resolve maps each word to its whole-word clip, or fingerspells it letter by
// letter when no such clip exists. Letters without a clip are skipped.
func (r *Resolver) Resolve(ctx context.Context, text string) ([]Match, error) {
	matches := []Match{}
	for _, word := range Words(text) {
		clip, ok, err := r.clips.Lookup(ctx, word)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, Match{Word: word, Path: r.path(clip.Filename)})
			continue
		}
		for _, ch := range word {
			if !unicode.IsLetter(ch) {
				continue
			}
			letter := string(ch)
			clip, ok, err := r.clips.Lookup(ctx, letter)
			if err != nil {
				return nil, err
			}
			if ok {
				matches = append(matches, Match{Word: letter, Path: r.path(clip.Filename)})
			}
		}
	}
	return matches, nil
}

func (r *Resolver) path(filename string) string {
	return r.prefix + "/" + url.PathEscape(filename)
}
