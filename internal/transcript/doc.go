// Package transcript accumulates recognized sign labels into a running
// transcript. Detections below the confidence threshold are rejected, blank
// labels and immediate repeats are ignored, and everything else is appended.
package transcript
