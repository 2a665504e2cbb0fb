package transcript

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// DefaultThreshold is the confidence below which detections are rejected.
const DefaultThreshold = 0.25

// Outcome reports what the accumulator did with a detection.
type Outcome int

const (
	Accepted Outcome = iota
	LowConfidence
	RepeatOrBlank
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case LowConfidence:
		return "low_confidence"
	case RepeatOrBlank:
		return "repeat_or_blank"
	default:
		return "unknown"
	}
}

// Decision is the result of Accept. Status is the user-facing line for it.
type Decision struct {
	Outcome    Outcome
	Label      string
	Confidence *float64
	Status     string
}

// Accumulator turns a stream of detections into an ordered word list with
// adjacent duplicates suppressed.
type Accumulator struct {
	mu        sync.RWMutex
	threshold float64
	words     []string
	lastLabel string
}

// New returns an accumulator that rejects detections below threshold.
func New(threshold float64) *Accumulator {
	if threshold < 0 {
		threshold = 0
	}
	return &Accumulator{threshold: threshold}
}

// Threshold returns the configured confidence floor.
func (a *Accumulator) Threshold() float64 {
	return a.threshold
}

// Accept applies the decision policy: low confidence first, then
// blank/repeat, then append.
func (a *Accumulator) Accept(label string, confidence *float64) Decision {
	label = strings.TrimSpace(label)
	decision := Decision{Label: label, Confidence: confidence}

	if confidence != nil && *confidence < a.threshold {
		decision.Outcome = LowConfidence
		decision.Status = fmt.Sprintf("Low confidence (%s)", formatConfidence(confidence))
		return decision
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if label == "" || label == a.lastLabel {
		decision.Outcome = RepeatOrBlank
		shown := label
		if shown == "" {
			shown = "—"
		}
		decision.Status = fmt.Sprintf("Detected (repeat or blank): %s", shown)
		return decision
	}

	a.words = append(a.words, label)
	a.lastLabel = label
	decision.Outcome = Accepted
	decision.Status = fmt.Sprintf("Detected: %s (%s)", label, formatConfidence(confidence))
	return decision
}

// Clear empties the transcript and forgets the last accepted label.
func (a *Accumulator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.words = nil
	a.lastLabel = ""
}

// Words returns a copy of the accepted labels in order.
func (a *Accumulator) Words() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.words...)
}

// Text renders the transcript joined with single spaces.
func (a *Accumulator) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return strings.Join(a.words, " ")
}

// Len returns the number of accepted labels.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.words)
}

// LastLabel returns the most recently accepted label, or "" after Clear.
func (a *Accumulator) LastLabel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastLabel
}

func formatConfidence(confidence *float64) string {
	if confidence == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*confidence, 'f', -1, 64)
}
