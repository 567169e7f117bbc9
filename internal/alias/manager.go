// Package alias discovers shell aliases from shell configuration files.
package alias

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"nudge/internal/logger"
	"nudge/internal/shell"
)

// Alias maps a name to the command line it expands to.
type Alias struct {
	Name    string          `json:"name"`
	Command string          `json:"command"`
	Shell   shell.ShellType `json:"shell"`
}

// Source is one file to scan, read with the grammar of Shell.
type Source struct {
	Path  string
	Shell shell.ShellType
}

// DefaultSources lists the startup files of every supported shell. The
// current shell's files come last so its definitions win on conflict.
func DefaultSources(home string, current shell.ShellType) []Source {
	var sources []Source
	add := func(s shell.ShellType) {
		for _, p := range shell.RCFiles(s, home) {
			sources = append(sources, Source{Path: p, Shell: s})
		}
	}
	for _, s := range shell.Supported {
		if s != current {
			add(s)
		}
	}
	add(current)
	return sources
}

// Load parses every source and merges the results by name, later sources
// overriding earlier ones. Missing or unreadable files are skipped.
func Load(sources []Source) []Alias {
	log := logger.With("alias")

	merged := make(map[string]Alias)
	for _, src := range sources {
		found, err := ParseFile(src.Path, src.Shell)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Debug("skipping alias source", "path", src.Path, "error", err)
			}
			continue
		}
		for _, a := range found {
			merged[a.Name] = a
		}
	}

	out := make([]Alias, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	log.Debug("aliases loaded", "sources", len(sources), "aliases", len(out))
	return out
}

// ParseFile reads aliases from a single file.
func ParseFile(path string, sh shell.ShellType) ([]Alias, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, sh)
}

// Parse reads aliases from r using the grammar of sh. Lines that do not
// parse are skipped.
func Parse(r io.Reader, sh shell.ShellType) ([]Alias, error) {
	d, ok := dialects[sh]
	if !ok {
		return nil, fmt.Errorf("no alias grammar for shell %q", sh)
	}

	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read aliases: %w", err)
	}

	pairs := d.parse(lines)
	out := make([]Alias, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Alias{Name: p.name, Command: p.command, Shell: sh})
	}
	return out, nil
}
