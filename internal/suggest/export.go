package suggest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"nudge/internal/corrector"
	"nudge/internal/shell"
	"nudge/internal/store"
)

// ExportCompletions writes a completion script for sh covering every
// knowledge-base tool that is installed.
func (s *Service) ExportCompletions(w io.Writer, sh shell.ShellType) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s completions generated by nudge\n", sh.Title())

	switch sh {
	case shell.Bash, shell.Sh, shell.Ksh:
	case shell.Zsh:
		b.WriteString("autoload -U +X bashcompinit && bashcompinit\n")
	case shell.Fish:
	default:
		return fmt.Errorf("unsupported shell %q", sh)
	}

	for _, name := range s.kb.Tools() {
		tool, _ := s.kb.Tool(name)
		for _, cmd := range append([]string{name}, tool.Variants...) {
			if !s.cache.HasCommand(cmd) {
				continue
			}
			if sh == shell.Fish {
				writeFish(&b, cmd, tool)
			} else {
				writeComplete(&b, cmd, tool)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCompletions writes the script to path atomically.
func (s *Service) WriteCompletions(path string, sh shell.ShellType) error {
	var buf bytes.Buffer
	if err := s.ExportCompletions(&buf, sh); err != nil {
		return err
	}
	if err := store.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write completions: %w", err)
	}
	return nil
}

func writeComplete(b *strings.Builder, cmd string, t *corrector.Tool) {
	words := append(append([]string{}, t.Subcommands...), t.Flags...)
	fmt.Fprintf(b, "complete -W %q %s\n", strings.Join(words, " "), cmd)
}

func writeFish(b *strings.Builder, cmd string, t *corrector.Tool) {
	if len(t.Subcommands) > 0 {
		fmt.Fprintf(b, "complete -c %s -n __fish_use_subcommand -a %q\n", cmd, strings.Join(t.Subcommands, " "))
	}
	for _, f := range t.Flags {
		switch {
		case strings.HasPrefix(f, "--"):
			fmt.Fprintf(b, "complete -c %s -l %s\n", cmd, f[2:])
		case len([]rune(f)) == 2:
			fmt.Fprintf(b, "complete -c %s -s %s\n", cmd, f[1:])
		default:
			fmt.Fprintf(b, "complete -c %s -o %s\n", cmd, f[1:])
		}
	}
}
