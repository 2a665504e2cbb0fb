// Package clock provides the time source shared by the capture loop, the
// status board, and delayed navigation, plus a manually stepped fake.
package clock
