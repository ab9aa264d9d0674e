package logging

import (
	"os"
	"path/filepath"
	"testing"

	"stake-arena/internal/config"
)

func TestCappedFileStartsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.log")
	w, err := newCappedFile(path, 1)
	if err != nil {
		t.Fatalf("create writer: %v", err)
	}
	defer w.Close()

	chunk := make([]byte, 400*1024)
	for i := 0; i < 3; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write chunk %d: %v", i, err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Size() > 1<<20 {
		t.Fatalf("expected log <= 1MB, got %d", info.Size())
	}
	if info.Size() != 400*1024 {
		t.Fatalf("expected file to restart with last chunk, got %d bytes", info.Size())
	}
}

func TestInitWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arena.log")
	if err := Init(config.LogConfig{Level: "debug", File: path, MaxMB: 1}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := Writer().Write([]byte("{\"msg\":\"hello\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat log: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("expected file sink to receive data")
	}
}
