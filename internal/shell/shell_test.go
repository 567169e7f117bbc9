package shell

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ShellType
		ok   bool
	}{
		{"/bin/bash", Bash, true},
		{"/usr/local/bin/zsh", Zsh, true},
		{"fish", Fish, true},
		{"/bin/dash", Sh, true},
		{"mksh", Ksh, true},
		{"/usr/bin/pwsh", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := Parse(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Parse(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDetect(t *testing.T) {
	t.Setenv("SHELL", "/usr/bin/fish")
	if got := Detect(); got != Fish {
		t.Errorf("Detect = %q, want fish", got)
	}
	t.Setenv("SHELL", "")
	if got := Detect(); got != Bash {
		t.Errorf("Detect with empty $SHELL = %q, want bash", got)
	}
}

func TestTitle(t *testing.T) {
	if got := Zsh.Title(); got != "Zsh" {
		t.Errorf("Title = %q, want Zsh", got)
	}
}

func TestRCFilesFishFunctions(t *testing.T) {
	conf := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", conf)
	fnDir := filepath.Join(conf, "fish", "functions")
	if err := os.MkdirAll(fnDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(fnDir, "gs.fish"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got := RCFiles(Fish, "/home/nobody")
	want := []string{
		filepath.Join(conf, "fish", "config.fish"),
		filepath.Join(fnDir, "gs.fish"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("RCFiles = %v, want %v", got, want)
	}
}

func TestRCFilesZdotdir(t *testing.T) {
	t.Setenv("ZDOTDIR", "/etc/zdot")
	got := RCFiles(Zsh, "/home/u")
	want := []string{"/home/u/.zshrc", "/etc/zdot/.zshrc", "/home/u/.zsh_aliases"}
	if !slices.Equal(got, want) {
		t.Errorf("RCFiles = %v, want %v", got, want)
	}
}
