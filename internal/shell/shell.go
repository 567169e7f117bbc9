// Package shell identifies the user's shell and the files it reads at startup.
package shell

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ShellType represents supported shell types
type ShellType string

const (
	Bash ShellType = "bash"
	Zsh  ShellType = "zsh"
	Fish ShellType = "fish"
	Sh   ShellType = "sh"
	Ksh  ShellType = "ksh"
)

// Supported lists the shells whose alias files are scanned.
var Supported = []ShellType{Bash, Zsh, Fish}

var titler = cases.Title(language.English)

// Title returns the display form of the shell name ("Zsh").
func (s ShellType) Title() string {
	return titler.String(string(s))
}

// Parse maps a shell name or path ("/usr/bin/zsh", "bash") onto a ShellType.
func Parse(name string) (ShellType, bool) {
	switch strings.TrimSuffix(filepath.Base(strings.TrimSpace(name)), ".exe") {
	case "bash":
		return Bash, true
	case "zsh":
		return Zsh, true
	case "fish":
		return Fish, true
	case "sh", "dash", "ash":
		return Sh, true
	case "ksh", "mksh", "oksh":
		return Ksh, true
	}
	return "", false
}

// Detect returns the login shell from $SHELL, defaulting to bash.
func Detect() ShellType {
	if s, ok := Parse(os.Getenv("SHELL")); ok {
		return s
	}
	return Bash
}

// IsPOSIX reports whether the shell uses the POSIX alias grammar.
func (s ShellType) IsPOSIX() bool {
	return s != Fish
}

// RCFiles returns the startup files that may declare aliases for s, in the
// order they are sourced. Files that do not exist are included; callers skip
// them.
func RCFiles(s ShellType, home string) []string {
	switch s {
	case Bash:
		return []string{
			filepath.Join(home, ".bash_profile"),
			filepath.Join(home, ".bashrc"),
			filepath.Join(home, ".bash_aliases"),
		}
	case Zsh:
		zdot := os.Getenv("ZDOTDIR")
		if zdot == "" {
			zdot = home
		}
		files := []string{
			filepath.Join(zdot, ".zshrc"),
			filepath.Join(home, ".zsh_aliases"),
		}
		if zdot != home {
			files = append([]string{filepath.Join(home, ".zshrc")}, files...)
		}
		return files
	case Fish:
		conf := os.Getenv("XDG_CONFIG_HOME")
		if conf == "" {
			conf = filepath.Join(home, ".config")
		}
		files := []string{filepath.Join(conf, "fish", "config.fish")}
		funcs, _ := filepath.Glob(filepath.Join(conf, "fish", "functions", "*.fish"))
		return append(files, funcs...)
	case Sh, Ksh:
		return []string{filepath.Join(home, ".profile"), filepath.Join(home, ".kshrc")}
	}
	return nil
}
