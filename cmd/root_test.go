package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"nudge/internal/alias"
	"nudge/internal/shell"
	"nudge/internal/suggest"
	"nudge/internal/ui"
)

type fakeIndexer struct{}

func (fakeIndexer) Executables(ctx context.Context) []string {
	return []string{"git", "gitk", "docker", "cargo", "kubectl", "pip3"}
}

func (fakeIndexer) Aliases(ctx context.Context) []alias.Alias {
	return []alias.Alias{{Name: "gs", Command: "git status", Shell: shell.Bash}}
}

type fakePrompter struct {
	answer ui.Answer
	asked  []ui.Question
}

func (p *fakePrompter) Ask(q ui.Question) (ui.Answer, error) {
	p.asked = append(p.asked, q)
	return p.answer, nil
}

type harness struct {
	t        *testing.T
	cfgFile  string
	prompter *fakePrompter
	tty      bool
	spawned  [][]string
	spawnErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("cache:\n  path: %s\nlogging:\n  level: error\n", filepath.Join(dir, "cache.json"))
	if err := os.WriteFile(cfgFile, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return &harness{
		t:        t,
		cfgFile:  cfgFile,
		prompter: &fakePrompter{answer: ui.Answer{Choice: ui.ChoiceAccept}},
		tty:      true,
	}
}

// run executes nudge with args and returns the exit code, stdout and stderr.
func (h *harness) run(args ...string) (int, string, string) {
	h.t.Helper()
	a := &app{
		interactive: func() bool { return h.tty },
		animate:     func() bool { return false },
		width:       func() int { return 80 },
		prompter:    h.prompter,
		spawn: func(args ...string) error {
			h.spawned = append(h.spawned, args)
			return h.spawnErr
		},
		openOpts: []suggest.Option{suggest.WithIndexer(fakeIndexer{})},
	}
	var out, errOut bytes.Buffer
	full := append([]string{"--config", h.cfgFile}, args...)
	code := execute(context.Background(), a, full, strings.NewReader(""), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{exitWith(ExitNone), ExitNone},
		{exitWith(ExitNotFound), ExitNotFound},
		{fail(errors.New("disk full")), ExitFailure},
		{fmt.Errorf("wrapped: %w", exitWith(ExitNotFound)), ExitNotFound},
		{errors.New("unknown flag: --nope"), ExitFailure},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestInvalidInvocations(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command line", nil},
		{"exclusive modes", []string{"--history", "--clear-history"}},
		{"unknown flag", []string{"--nope"}},
		{"record needs two words", []string{"--record-correction", "gti"}},
		{"views take no arguments", []string{"--history", "extra"}},
		{"unknown shell", []string{"--shell", "tcsh", "--export-completions"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, errOut := newHarness(t).run(tt.args...)
			if code != ExitFailure {
				t.Errorf("exit %d, want %d", code, ExitFailure)
			}
			if out != "" && !strings.Contains(out, "Usage") {
				t.Errorf("unexpected stdout %q", out)
			}
			if errOut == "" {
				t.Error("no message on stderr")
			}
		})
	}
}

func TestCheckCommand(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("--check-command", "gti", "sttaus")
	if code != ExitOK || out != "git status\n" {
		t.Errorf("got %d %q", code, out)
	}

	code, out, _ = h.run("--check-command", "git", "status")
	if code != ExitNone || out != "" {
		t.Errorf("correct line: got %d %q", code, out)
	}
}

func TestSuggestModes(t *testing.T) {
	h := newHarness(t)
	h.run("--record-valid-command", "git", "push", "origin", "main")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--suggest-completion", "dock"}, "docker\n"},
		{[]string{"--suggest-completion", "git sta"}, "git stash\n"},
		{[]string{"--suggest-full-completion", "gti push"}, "git push origin main\n"},
		{[]string{"--suggest-frequent-command", "git p"}, "git push origin main\n"},
	}
	for _, tt := range tests {
		code, out, _ := h.run(tt.args...)
		if code != ExitOK || out != tt.want {
			t.Errorf("%v: got %d %q, want %q", tt.args, code, out, tt.want)
		}
	}

	if code, out, _ := h.run("--suggest-frequent-command", "zzz"); code != ExitNone || out != "" {
		t.Errorf("no match: got %d %q", code, out)
	}
}

func TestRecordAndViews(t *testing.T) {
	h := newHarness(t)

	for range 2 {
		if code, _, _ := h.run("--record-correction", "gti", "git"); code != ExitOK {
			t.Fatalf("record exit %d", code)
		}
	}
	h.run("--record-correction", "dokcer", "docker")

	code, out, _ := h.run("--frequent-typos")
	if code != ExitOK || !strings.Contains(out, "gti") || !strings.Contains(out, "dokcer") {
		t.Errorf("frequent typos: %d\n%s", code, out)
	}
	if strings.Index(out, "gti") > strings.Index(out, "dokcer") {
		t.Errorf("typos not ranked by count:\n%s", out)
	}

	if code, out, _ = h.run("--frequent-corrections", "--limit", "1"); code != ExitOK {
		t.Errorf("frequent corrections exit %d", code)
	}
	if strings.Contains(out, "docker") {
		t.Errorf("--limit ignored:\n%s", out)
	}

	h.run("--clear-history")
	if _, out, _ = h.run("--history"); !strings.Contains(out, "No corrections") {
		t.Errorf("history not cleared:\n%s", out)
	}

	// Clearing history keeps what was learned.
	if _, out, _ = h.run("--check-command", "gti"); out != "git\n" {
		t.Errorf("learned correction lost: %q", out)
	}
}

func TestDisableHistory(t *testing.T) {
	h := newHarness(t)
	h.run("--disable-history")
	h.run("--record-correction", "gti", "git")

	_, out, errOut := h.run("--history")
	if !strings.Contains(out, "No corrections") {
		t.Errorf("recorded while disabled:\n%s", out)
	}
	if !strings.Contains(errOut, "disabled") {
		t.Errorf("no disabled notice: %q", errOut)
	}

	h.run("--enable-history")
	h.run("--record-correction", "gti", "git")
	if _, out, _ = h.run("--history"); !strings.Contains(out, "gti") {
		t.Errorf("not recorded after enabling:\n%s", out)
	}
}

func TestLearnCorrection(t *testing.T) {
	h := newHarness(t)
	if code, _, _ := h.run("--learn-correction", "dep", "cargo", "build"); code != ExitOK {
		t.Fatalf("learn exit %d", code)
	}
	if _, out, _ := h.run("--check-command", "dep"); out != "cargo build\n" {
		t.Errorf("got %q", out)
	}
}

func TestSuggestAliasMode(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.run("--suggest")
	if code != ExitOK || !strings.Contains(out, "No alias") {
		t.Errorf("empty: %d %q", code, out)
	}

	h.run("--record-correction", "dokcer", "docker ps")
	h.run("--record-correction", "dcoker", "docker ps")
	if _, out, _ = h.run("--suggest"); !strings.Contains(out, "alias dp='docker ps'") {
		t.Errorf("got:\n%s", out)
	}
}

func TestResetModes(t *testing.T) {
	h := newHarness(t)
	h.run("--learn-correction", "dep", "cargo", "build")

	code, _, errOut := h.run("--reset_cache")
	if code != ExitOK || !strings.Contains(errOut, "7 commands indexed") {
		t.Errorf("reset cache: %d %q", code, errOut)
	}
	if _, out, _ := h.run("--check-command", "dep"); out != "cargo build\n" {
		t.Errorf("reset cache dropped learned data: %q", out)
	}

	if code, _, _ := h.run("--reset-cache"); code != ExitOK {
		t.Errorf("dashed spelling: exit %d", code)
	}

	if code, _, _ := h.run("--reset_memory"); code != ExitOK {
		t.Errorf("reset memory exit %d", code)
	}
	if code, out, _ := h.run("--check-command", "dep"); code != ExitNone || out != "" {
		t.Errorf("learned data survived reset: %d %q", code, out)
	}
}

func TestExportCompletions(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.run("--shell", "bash", "--export-completions")
	if code != ExitOK || !strings.Contains(out, "complete -W") || !strings.Contains(out, " git\n") {
		t.Errorf("bash: %d\n%s", code, out)
	}

	path := filepath.Join(t.TempDir(), "nudge.fish")
	if code, _, _ = h.run("--shell", "fish", "--export-completions", path); code != ExitOK {
		t.Fatalf("fish exit %d", code)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "complete -c git") {
		t.Errorf("fish file: %v\n%s", err, data)
	}
}

func TestDefaultModeAccept(t *testing.T) {
	h := newHarness(t)
	code, out, _ := h.run("gti", "sttaus")
	if code != ExitOK || out != "git status\n" {
		t.Fatalf("got %d %q", code, out)
	}
	if len(h.prompter.asked) != 1 || h.prompter.asked[0].Line != "git status" {
		t.Errorf("prompt: %+v", h.prompter.asked)
	}
	want := []string{"--config", h.cfgFile, "--record-correction", "gti", "git"}
	if len(h.spawned) != 1 || !slices.Equal(h.spawned[0], want) {
		t.Errorf("spawned %q, want %q", h.spawned, want)
	}
}

func TestDefaultModeRecordsInlineWhenSpawnFails(t *testing.T) {
	h := newHarness(t)
	h.spawnErr = errors.New("no fork for you")
	if code, _, _ := h.run("gti", "status"); code != ExitOK {
		t.Fatalf("exit %d", code)
	}
	if _, out, _ := h.run("--history"); !strings.Contains(out, "gti") {
		t.Errorf("correction not recorded:\n%s", out)
	}
}

func TestDefaultModeOutcomes(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		h := newHarness(t)
		h.prompter.answer = ui.Answer{Choice: ui.ChoiceDecline}
		code, out, _ := h.run("gti")
		if code != ExitNone || out != "" || len(h.spawned) != 0 {
			t.Errorf("got %d %q spawned=%v", code, out, h.spawned)
		}
	})

	t.Run("taught", func(t *testing.T) {
		h := newHarness(t)
		h.prompter.answer = ui.Answer{Choice: ui.ChoiceTeach, Teach: "cargo"}
		code, out, errOut := h.run("gti")
		if code != ExitNone || out != "" || !strings.Contains(errOut, "learned") {
			t.Fatalf("got %d %q %q", code, out, errOut)
		}
		if _, out, _ = h.run("--check-command", "gti"); out != "cargo\n" {
			t.Errorf("taught correction not used: %q", out)
		}
	})

	t.Run("not found", func(t *testing.T) {
		h := newHarness(t)
		code, out, errOut := h.run("zzzzqqq")
		if code != ExitNotFound || out != "" || !strings.Contains(errOut, "command not found") {
			t.Errorf("got %d %q %q", code, out, errOut)
		}
		if len(h.prompter.asked) != 0 {
			t.Error("prompted without a suggestion")
		}
	})

	t.Run("not a terminal", func(t *testing.T) {
		h := newHarness(t)
		h.tty = false
		code, out, errOut := h.run("gti")
		if code != ExitNone || out != "" || !strings.Contains(errOut, "did you mean") {
			t.Errorf("got %d %q %q", code, out, errOut)
		}
	})
}
