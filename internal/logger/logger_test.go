package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Console: true, Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.With("store").Warn("cache corrupt", "path", "/tmp/cache.json")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low levels leaked:\n%s", out)
	}
	for _, want := range []string{"store", "cache corrupt", "/tmp/cache.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel(DebugLevel) had no effect")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"info":    InfoLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        WarnLevel,
		"loud":    WarnLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnabled(t *testing.T) {
	l, err := New(Config{Level: "info"})
	if err != nil {
		t.Fatal(err)
	}
	if l.Enabled(DebugLevel) || !l.Enabled(InfoLevel) || !l.Enabled(ErrorLevel) {
		t.Error("Enabled disagrees with the configured level")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nudge.log")
	l, err := New(Config{Level: "info", File: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	l.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content %q", data)
	}
}

func TestRotatingWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nudge.log")
	rw, err := newRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer rw.file.Close()

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for range 3 {
		if _, err := rw.Write(chunk); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	for _, name := range []string{path, path + ".1"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("%s missing: %v", filepath.Base(name), err)
		}
	}
	if info, _ := os.Stat(path); info != nil && info.Size() > 1024*1024 {
		t.Errorf("active file not rotated: %d bytes", info.Size())
	}
}
