package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"signbridge/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDeviceAccess(t *testing.T) {
	if result := CheckDeviceAccess("null", "/dev/null"); !result.Passed {
		t.Fatalf("expected /dev/null to pass: %s", result.Detail)
	}

	f := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDeviceAccess("file", f).Passed {
		t.Fatal("regular file accepted as device")
	}
	if CheckDeviceAccess("missing", filepath.Join(t.TempDir(), "video9")).Passed {
		t.Fatal("missing device accepted")
	}
	if CheckDeviceAccess("blank", " ").Passed {
		t.Fatal("blank device accepted")
	}
}

func TestCheckBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "present")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if result := CheckBinary("present", stub, false); !result.Passed || result.Detail != stub {
		t.Fatalf("unexpected result %+v", result)
	}
	missing := CheckBinary("missing", "clearly-not-present-binary", true)
	if missing.Passed || !missing.Optional || missing.Failed() {
		t.Fatalf("optional missing binary should not count as failure: %+v", missing)
	}
	if !CheckBinary("required", "clearly-not-present-binary", false).Failed() {
		t.Fatal("required missing binary should fail")
	}
}

func TestCheckEndpoint(t *testing.T) {
	postOnly := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer postOnly.Close()
	if result := CheckEndpoint(context.Background(), "ok", postOnly.URL+"/predict"); !result.Passed {
		t.Fatalf("405 should count as reachable: %s", result.Detail)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	if CheckEndpoint(context.Background(), "broken", broken.URL).Passed {
		t.Fatal("502 should fail")
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL
	closed.Close()
	if CheckEndpoint(context.Background(), "down", url).Passed {
		t.Fatal("closed server should fail")
	}
	if CheckEndpoint(context.Background(), "blank", "").Passed {
		t.Fatal("missing url should fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_ReportsEveryConcern(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.StateDir = t.TempDir()
	cfg.Paths.LockDir = t.TempDir()
	cfg.Capture.Device = "/dev/null"
	cfg.Classifier.URL = srv.URL + "/predict"
	cfg.Converter.URL = srv.URL + "/convert"
	cfg.Dictation.Command = ""
	cfg.Identity.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	byName := make(map[string]Result, len(results))
	for _, r := range results {
		byName[r.Name] = r
	}
	for _, name := range []string{"State directory", "Lock directory", "Camera", "Classifier", "Converter"} {
		if !byName[name].Passed {
			t.Errorf("check %q failed: %s", name, byName[name].Detail)
		}
	}
	for _, name := range []string{"Speech recognizer", "Identity provider"} {
		r, ok := byName[name]
		if !ok || !r.Optional || r.Failed() {
			t.Errorf("check %q should be an optional skip: %+v", name, r)
		}
	}
	if _, ok := byName["FFmpeg"]; !ok {
		t.Error("missing FFmpeg check")
	}
}
