package utils

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for attempt, w := range want {
		if got := b.Delay(attempt); got != w {
			t.Errorf("attempt %d: expected %v, got %v", attempt, w, got)
		}
	}
}

func TestBackoffDelayUncapped(t *testing.T) {
	b := Backoff{Initial: time.Second, Factor: 3}
	if got := b.Delay(2); got != 9*time.Second {
		t.Errorf("expected 9s, got %v", got)
	}
}

func TestSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly after cancellation")
	}
}

func TestSleepElapses(t *testing.T) {
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLogDebug(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(nil)

	LogDebug("job %s moved to %s", "abc", "queued")
	if !strings.Contains(buf.String(), "job abc moved to queued") {
		t.Errorf("expected message in log, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "utils_test.go") {
		t.Errorf("expected caller file in log, got %q", buf.String())
	}
}

func TestLogDebugDisabled(t *testing.T) {
	SetLogOutput(nil)
	// must not panic
	LogDebug("nothing %d", 1)
}

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	if err := InitLogger(dir); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	defer SetLogOutput(nil)

	LogDebug("hello")
	data, err := os.ReadFile(filepath.Join(dir, "debug.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "FDTD client started") || !strings.Contains(string(data), "hello") {
		t.Errorf("unexpected log contents %q", data)
	}
}
