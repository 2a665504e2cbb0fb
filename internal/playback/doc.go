// Package playback implements the sign clip queue: an ordered sequence of
// clip URIs played strictly one after another, each started by the previous
// clip's end event, with replay from the start once the sequence completes.
package playback
