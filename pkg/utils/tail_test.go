package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailUntilIdleCopiesExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")
	if err := os.WriteFile(path, []byte("line1\nline2\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var out bytes.Buffer
	if err := TailUntilIdle(path, &out, 100*time.Millisecond, 10*time.Millisecond); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if out.String() != "line1\nline2\n" {
		t.Fatalf("tailed %q, want both lines", out.String())
	}
}

func TestTailUntilIdleStreamsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")
	if err := os.WriteFile(path, []byte("early\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			t.Errorf("reopen log: %v", err)
			return
		}
		defer f.Close()
		if _, err := f.WriteString("late\n"); err != nil {
			t.Errorf("append: %v", err)
		}
	}()

	var out bytes.Buffer
	if err := TailUntilIdle(path, &out, 300*time.Millisecond, 10*time.Millisecond); err != nil {
		t.Fatalf("tail: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "early\n") || !strings.Contains(got, "late\n") {
		t.Fatalf("tailed %q, want output appended while tailing", got)
	}
}

func TestTailUntilIdleMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	if err := TailUntilIdle(path, &bytes.Buffer{}, 50*time.Millisecond, 10*time.Millisecond); err == nil {
		t.Fatal("expected an error for a missing log file")
	}
}
