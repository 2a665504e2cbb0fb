package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrTransport, "classifier", "classify", "post frame", cause)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "classifier: classify: post frame") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Category
	}{
		{nil, ""},
		{Wrap(ErrValidation, "auth", "login", "missing email", nil), CategoryInput},
		{Wrap(ErrAuth, "identity", "sign in", "", nil), CategoryAuth},
		{Wrap(ErrTransport, "converter", "convert", "", &HTTPStatusError{StatusCode: 502}), CategoryTransport},
		{Wrap(ErrCapability, "capture", "open camera", "", nil), CategoryCapability},
		{Wrap(ErrNotFound, "catalog", "lookup", "", nil), CategoryNoResult},
		{errors.New("boom"), CategoryInternal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestStatusCode(t *testing.T) {
	err := Wrap(ErrTransport, "classifier", "classify", "", &HTTPStatusError{Op: "classify", StatusCode: 500})
	code, ok := StatusCode(err)
	if !ok || code != 500 {
		t.Fatalf("expected status 500, got %d (%v)", code, ok)
	}
	if _, ok := StatusCode(errors.New("plain")); ok {
		t.Fatal("expected no status for plain error")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithSessionID(context.Background(), "s-1")
	ctx = WithPipeline(ctx, "sign2text")
	ctx = WithRequestID(ctx, "r-1")
	if id, ok := SessionIDFromContext(ctx); !ok || id != "s-1" {
		t.Fatalf("unexpected session id %q", id)
	}
	if p, ok := PipelineFromContext(ctx); !ok || p != "sign2text" {
		t.Fatalf("unexpected pipeline %q", p)
	}
	if r, ok := RequestIDFromContext(ctx); !ok || r != "r-1" {
		t.Fatalf("unexpected request id %q", r)
	}
	if got := WithRequestID(ctx, ""); got != ctx {
		t.Fatal("expected empty request id to leave context unchanged")
	}
}
