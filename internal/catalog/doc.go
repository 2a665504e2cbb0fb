// Package catalog indexes the sign video clips served to text-to-sign
// playback and resolves free text into an ordered clip sequence.
//
// Text is case folded, stripped of diacritics and punctuation, and filtered
// through a small stopword list. Each remaining word maps to a whole-word clip
// when one exists and is fingerspelled from letter clips otherwise. The index
// lives in SQLite and is rebuilt from the clips directory by Scan.
package catalog
