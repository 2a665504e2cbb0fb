package transcript

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
)

func conf(v float64) *float64 { return &v }

func TestAcceptSuppressesAdjacentRepeats(t *testing.T) {
	acc := New(DefaultThreshold)
	acc.Accept("hello", conf(0.9))
	second := acc.Accept("hello", conf(0.9))
	acc.Accept("world", conf(0.5))

	if second.Outcome != RepeatOrBlank {
		t.Fatalf("expected repeat to be rejected, got %s", second.Outcome)
	}
	if got := acc.Words(); !reflect.DeepEqual(got, []string{"hello", "world"}) {
		t.Fatalf("unexpected transcript %v", got)
	}
	if acc.Text() != "hello world" {
		t.Fatalf("unexpected text %q", acc.Text())
	}
}

func TestAcceptRejectsLowConfidence(t *testing.T) {
	acc := New(DefaultThreshold)
	decision := acc.Accept("hi", conf(0.1))

	if decision.Outcome != LowConfidence {
		t.Fatalf("expected low confidence, got %s", decision.Outcome)
	}
	if !strings.HasPrefix(decision.Status, "Low confidence") {
		t.Fatalf("unexpected status %q", decision.Status)
	}
	if acc.Len() != 0 || acc.LastLabel() != "" {
		t.Fatalf("expected no mutation, got %v / %q", acc.Words(), acc.LastLabel())
	}
}

func TestAcceptLowConfidenceCheckedBeforeRepeat(t *testing.T) {
	acc := New(DefaultThreshold)
	acc.Accept("yes", conf(0.8))
	decision := acc.Accept("yes", conf(0.2))
	if decision.Outcome != LowConfidence {
		t.Fatalf("expected low confidence to win over repeat, got %s", decision.Outcome)
	}
}

func TestAcceptWithoutConfidence(t *testing.T) {
	acc := New(DefaultThreshold)
	decision := acc.Accept("thanks", nil)
	if decision.Outcome != Accepted {
		t.Fatalf("expected absent confidence to be accepted, got %s", decision.Outcome)
	}
	if decision.Status != "Detected: thanks (n/a)" {
		t.Fatalf("unexpected status %q", decision.Status)
	}
}

func TestAcceptBlankLabel(t *testing.T) {
	acc := New(DefaultThreshold)
	decision := acc.Accept("   ", conf(0.9))
	if decision.Outcome != RepeatOrBlank {
		t.Fatalf("expected blank to be rejected, got %s", decision.Outcome)
	}
	if decision.Status != "Detected (repeat or blank): —" {
		t.Fatalf("unexpected status %q", decision.Status)
	}
}

func TestAcceptThresholdIsInclusive(t *testing.T) {
	acc := New(0.25)
	if d := acc.Accept("edge", conf(0.25)); d.Outcome != Accepted {
		t.Fatalf("expected confidence equal to threshold to be accepted, got %s", d.Outcome)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	acc := New(DefaultThreshold)
	acc.Accept("one", conf(0.9))
	acc.Clear()
	first := acc.Words()
	acc.Clear()
	if !reflect.DeepEqual(first, acc.Words()) || acc.Len() != 0 || acc.LastLabel() != "" {
		t.Fatalf("expected identical empty state, got %v", acc.Words())
	}
	if d := acc.Accept("one", conf(0.9)); d.Outcome != Accepted {
		t.Fatalf("expected label to be accepted again after clear, got %s", d.Outcome)
	}
}

func TestTranscriptInvariantsHoldForRandomStreams(t *testing.T) {
	labels := []string{"hello", "world", "", "yes", "no"}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		acc := New(DefaultThreshold)
		var accepted []float64
		for i := 0; i < 50; i++ {
			label := labels[rng.Intn(len(labels))]
			c := rng.Float64()
			d := acc.Accept(label, &c)
			if d.Outcome == Accepted {
				accepted = append(accepted, c)
			}
		}
		words := acc.Words()
		for i := 1; i < len(words); i++ {
			if words[i] == words[i-1] {
				t.Fatalf("adjacent duplicate %q in %v", words[i], words)
			}
		}
		for _, c := range accepted {
			if c < DefaultThreshold {
				t.Fatalf("accepted confidence %v below threshold", c)
			}
		}
		if len(accepted) != len(words) {
			t.Fatalf("accepted %d decisions but transcript has %d words", len(accepted), len(words))
		}
	}
}
