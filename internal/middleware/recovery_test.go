package middleware

import (
	"errors"
	"strings"
	"testing"
)

func TestRunPassesExitCode(t *testing.T) {
	if got := Run(func() int { return 127 }); got != 127 {
		t.Errorf("got %d, want 127", got)
	}
}

func TestRunWithRecovery(t *testing.T) {
	var seen any
	var stack []byte
	code := RunWithRecovery(func() int {
		panic("index out of range")
	}, func(r any, s []byte) {
		seen, stack = r, s
	})

	if code != PanicExitCode {
		t.Errorf("got code %d, want %d", code, PanicExitCode)
	}
	if seen != "index out of range" {
		t.Errorf("recovered %v", seen)
	}
	if len(stack) == 0 {
		t.Error("stack not captured")
	}
}

func TestSafeCall(t *testing.T) {
	want := errors.New("plain")
	if err := SafeCall(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("got %v", err)
	}

	err := SafeCall(func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	if err == nil || !strings.HasPrefix(err.Error(), "panic:") {
		t.Errorf("got %v", err)
	}
}
