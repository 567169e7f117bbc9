package alias

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nudge/internal/shell"
)

func parse(t *testing.T, src string, sh shell.ShellType) map[string]string {
	t.Helper()
	found, err := Parse(strings.NewReader(src), sh)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out := make(map[string]string, len(found))
	for _, a := range found {
		if a.Shell != sh {
			t.Errorf("alias %q tagged %q, want %q", a.Name, a.Shell, sh)
		}
		out[a.Name] = a.Command
	}
	return out
}

func TestParsePOSIX(t *testing.T) {
	src := `
# comment
alias ll='ls -la'
alias gs="git status"   # trailing comment
alias k=kubectl
alias -g G='| grep'
alias esc="echo \"hi\""
alias broken='never closed
export PATH=$PATH:/opt/bin
`
	got := parse(t, src, shell.Bash)

	want := map[string]string{
		"ll":  "ls -la",
		"gs":  "git status",
		"k":   "kubectl",
		"G":   "| grep",
		"esc": `echo "hi"`,
	}
	if len(got) != len(want) {
		t.Errorf("got %d aliases %v, want %d", len(got), got, len(want))
	}
	for name, cmd := range want {
		if got[name] != cmd {
			t.Errorf("%s = %q, want %q", name, got[name], cmd)
		}
	}
}

func TestParsePOSIXFunctions(t *testing.T) {
	src := `
gd() { git diff "$@"; }
function gp { git push; }
gco() {
  git checkout "$@"
}
function dps() {
	docker ps $*
}
deploy() {
  make build
  make push
}
greet() { echo "hello $1"; }
cdl() {
  if [ -d "$1" ]; then
    cd "$1"
  fi
}
`
	got := parse(t, src, shell.Zsh)

	want := map[string]string{
		"gd":  "git diff",
		"gp":  "git push",
		"gco": "git checkout",
		"dps": "docker ps",
	}
	if len(got) != len(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	for name, cmd := range want {
		if got[name] != cmd {
			t.Errorf("%s = %q, want %q", name, got[name], cmd)
		}
	}
}

func TestParseFish(t *testing.T) {
	src := `
alias gs 'git status'
alias ll "ls -la"
alias --save k kubectl
alias la=ls\ -A
function gl --description 'git log'
    git log --oneline $argv
end
function gcm; git commit -m $argv; end
function multi
    echo one
    echo two
end
function cond
    if test -n "$argv"
        echo yes
    end
end
`
	got := parse(t, src, shell.Fish)

	want := map[string]string{
		"gs":  "git status",
		"ll":  "ls -la",
		"k":   "kubectl",
		"gl":  "git log --oneline",
		"gcm": "git commit -m",
		"la":  "ls -A",
	}
	for name, cmd := range want {
		if got[name] != cmd {
			t.Errorf("%s = %q, want %q", name, got[name], cmd)
		}
	}
	for _, name := range []string{"multi", "cond"} {
		if _, ok := got[name]; ok {
			t.Errorf("%s should not be parsed as an alias", name)
		}
	}
}

func TestParseUnknownShell(t *testing.T) {
	if _, err := Parse(strings.NewReader("alias a=b"), shell.ShellType("tcsh")); err == nil {
		t.Error("expected error for a shell without a grammar")
	}
}

func TestLoadLastSourceWins(t *testing.T) {
	dir := t.TempDir()
	bashrc := filepath.Join(dir, ".bashrc")
	fishrc := filepath.Join(dir, "config.fish")
	if err := os.WriteFile(bashrc, []byte("alias g='git'\nalias ll='ls -l'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fishrc, []byte("alias g 'git --no-pager'\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Load([]Source{
		{Path: filepath.Join(dir, "missing"), Shell: shell.Bash},
		{Path: bashrc, Shell: shell.Bash},
		{Path: fishrc, Shell: shell.Fish},
	})

	if len(got) != 2 {
		t.Fatalf("Load = %v, want 2 aliases", got)
	}
	// sorted by name
	if got[0].Name != "g" || got[0].Command != "git --no-pager" || got[0].Shell != shell.Fish {
		t.Errorf("g = %+v, want fish definition", got[0])
	}
	if got[1].Name != "ll" || got[1].Shell != shell.Bash {
		t.Errorf("ll = %+v", got[1])
	}
}

func TestDefaultSourcesCurrentShellLast(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ZDOTDIR", "")
	sources := DefaultSources("/home/u", shell.Bash)
	if len(sources) == 0 {
		t.Fatal("no sources")
	}
	if last := sources[len(sources)-1]; last.Shell != shell.Bash {
		t.Errorf("last source shell = %q, want bash", last.Shell)
	}
}
