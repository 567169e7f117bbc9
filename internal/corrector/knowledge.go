package corrector

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var builtinKnowledge []byte

// Tool is one command's vocabulary.
type Tool struct {
	Name        string   `yaml:"-"`
	Variants    []string `yaml:"variants"`
	Subcommands []string `yaml:"subcommands"`
	Flags       []string `yaml:"flags"`
	// ValueFlags take the next argument as their value, as in
	// "kubectl -n app get pods". They are flags too.
	ValueFlags []string `yaml:"value_flags"`

	long  []string
	short []string
	// letters holds single-letter short flags, for recognizing clusters
	// such as -xvf.
	letters map[rune]struct{}
}

// HasSubcommand reports whether s is a known subcommand
func (t *Tool) HasSubcommand(s string) bool {
	return slices.Contains(t.Subcommands, s)
}

// HasFlag reports whether f, without any =value suffix, is a known flag
func (t *Tool) HasFlag(f string) bool {
	return slices.Contains(t.Flags, f)
}

// TakesValue reports whether flag f consumes the argument after it.
func (t *Tool) TakesValue(f string) bool {
	return slices.Contains(t.ValueFlags, f)
}

// LongFlags returns the double-dash flags.
func (t *Tool) LongFlags() []string { return t.long }

// ShortFlags returns the single-dash flags, including single-dash long
// options like go's -race.
func (t *Tool) ShortFlags() []string { return t.short }

// isCluster reports whether tok is a bundle of known one-letter flags.
func (t *Tool) isCluster(tok string) bool {
	body := strings.TrimPrefix(tok, "-")
	if len(body) < 2 || strings.HasPrefix(body, "-") {
		return false
	}
	for _, r := range body {
		if _, ok := t.letters[r]; !ok {
			return false
		}
	}
	return true
}

func (t *Tool) index() {
	t.Subcommands = uniqueSorted(t.Subcommands)
	t.ValueFlags = uniqueSorted(t.ValueFlags)
	t.Flags = uniqueSorted(slices.Concat(t.Flags, t.ValueFlags))
	t.long, t.short = nil, nil
	t.letters = make(map[rune]struct{})
	for _, f := range t.Flags {
		switch {
		case strings.HasPrefix(f, "--"):
			t.long = append(t.long, f)
		case strings.HasPrefix(f, "-"):
			t.short = append(t.short, f)
			if body := []rune(f[1:]); len(body) == 1 {
				t.letters[body[0]] = struct{}{}
			}
		}
	}
}

// Knowledge maps command names to their vocabularies.
type Knowledge struct {
	tools map[string]*Tool
	// byName includes variants
	byName map[string]*Tool
}

// DefaultKnowledge returns the built-in knowledge base.
func DefaultKnowledge() *Knowledge {
	k, err := ParseKnowledge(bytes.NewReader(builtinKnowledge))
	if err != nil {
		panic(fmt.Sprintf("corrector: built-in knowledge base: %v", err))
	}
	return k
}

// LoadKnowledge returns the built-in knowledge base extended with the YAML
// file at path. An empty path or a missing file leaves the built-in set.
func LoadKnowledge(path string) (*Knowledge, error) {
	k := DefaultKnowledge()
	if path == "" {
		return k, nil
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return k, nil
	}
	if err != nil {
		return k, fmt.Errorf("failed to open knowledge file: %w", err)
	}
	defer f.Close()

	extra, err := ParseKnowledge(f)
	if err != nil {
		return k, fmt.Errorf("failed to parse knowledge file %s: %w", path, err)
	}
	k.Merge(extra)
	return k, nil
}

// ParseKnowledge decodes a knowledge document.
func ParseKnowledge(r io.Reader) (*Knowledge, error) {
	var doc map[string]*Tool
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, err
	}

	k := &Knowledge{tools: make(map[string]*Tool, len(doc))}
	for name, t := range doc {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if t == nil {
			t = &Tool{}
		}
		t.Name = name
		k.tools[name] = t
	}
	k.rebuild()
	return k, nil
}

// Merge adds other's tools. Vocabularies of a tool present in both are
// unioned.
func (k *Knowledge) Merge(other *Knowledge) {
	for name, t := range other.tools {
		cur, ok := k.tools[name]
		if !ok {
			cp := *t
			k.tools[name] = &cp
			continue
		}
		cur.Variants = append(cur.Variants, t.Variants...)
		cur.Subcommands = append(cur.Subcommands, t.Subcommands...)
		cur.Flags = append(cur.Flags, t.Flags...)
		cur.ValueFlags = append(cur.ValueFlags, t.ValueFlags...)
	}
	k.rebuild()
}

// Tool looks up a command name or one of its variants.
func (k *Knowledge) Tool(name string) (*Tool, bool) {
	t, ok := k.byName[name]
	return t, ok
}

// Tools returns the primary tool names, sorted.
func (k *Knowledge) Tools() []string {
	names := make([]string, 0, len(k.tools))
	for name := range k.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (k *Knowledge) rebuild() {
	k.byName = make(map[string]*Tool, len(k.tools))
	for name, t := range k.tools {
		t.Variants = uniqueSorted(t.Variants)
		t.index()
		k.byName[name] = t
	}
	// Variants never shadow a primary name.
	for _, t := range k.tools {
		for _, v := range t.Variants {
			if _, taken := k.byName[v]; !taken {
				k.byName[v] = t
			}
		}
	}
}

func uniqueSorted(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return slices.Compact(out)
}
