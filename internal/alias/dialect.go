package alias

import (
	"regexp"
	"strings"

	"nudge/internal/shell"
)

// dialect parses one shell family's alias grammar. Each dialect keeps its own
// patterns and block state so a malformed file in one shell cannot leak into
// another.
type dialect interface {
	parse(lines []string) []pair
}

type pair struct {
	name    string
	command string
}

// dialects is the parser table, keyed by shell.
var dialects = map[shell.ShellType]dialect{
	shell.Bash: posixDialect{},
	shell.Zsh:  posixDialect{},
	shell.Sh:   posixDialect{},
	shell.Ksh:  posixDialect{},
	shell.Fish: fishDialect{},
}

const namePattern = `[A-Za-z0-9_.:+@%-][A-Za-z0-9_.:+@%-]*`

// ────────────────────────────────────────────────────────────────────────────
// POSIX family: bash, zsh, sh, ksh
// ────────────────────────────────────────────────────────────────────────────

var (
	posixAlias     = regexp.MustCompile(`^alias\s+(?:-[A-Za-z]+\s+)*(` + namePattern + `)=(.*)$`)
	posixFuncLine  = regexp.MustCompile(`^(?:function\s+)?(` + namePattern + `)\s*\(\)\s*\{(.*)\}\s*;?$`)
	posixKwLine    = regexp.MustCompile(`^function\s+(` + namePattern + `)\s*\{(.*)\}\s*;?$`)
	posixFuncStart = regexp.MustCompile(`^(?:function\s+)?(` + namePattern + `)\s*\(\)\s*\{\s*$`)
	posixKwStart   = regexp.MustCompile(`^function\s+(` + namePattern + `)\s*\{\s*$`)
)

type posixDialect struct{}

func (posixDialect) parse(lines []string) []pair {
	var out []pair
	lines = joinContinuations(lines)

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := posixAlias.FindStringSubmatch(line); m != nil {
			if cmd, ok := unquote(m[2]); ok && cmd != "" {
				out = append(out, pair{m[1], cmd})
			}
			continue
		}

		if m := firstMatch(line, posixFuncLine, posixKwLine); m != nil {
			if cmd, ok := singleCommand([]string{m[2]}); ok {
				out = append(out, pair{m[1], cmd})
			}
			continue
		}

		if m := firstMatch(line, posixFuncStart, posixKwStart); m != nil {
			body, next, closed := braceBody(lines, i+1)
			i = next
			if !closed {
				continue
			}
			if cmd, ok := singleCommand(body); ok {
				out = append(out, pair{m[1], cmd})
			}
		}
	}
	return out
}

// braceBody collects lines after an opening brace up to the matching close.
// It returns the body, the index of the closing line and whether one was
// found. A nested brace makes the body multi-line for singleCommand's
// purposes, which rejects it.
func braceBody(lines []string, start int) ([]string, int, bool) {
	depth := 1
	var body []string
	for j := start; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		depth += strings.Count(line, "{") - strings.Count(line, "}")
		if depth <= 0 {
			if rest := strings.TrimSpace(strings.TrimSuffix(line, "}")); rest != "" {
				body = append(body, rest)
			}
			return body, j, true
		}
		body = append(body, line)
	}
	return nil, len(lines) - 1, false
}

func joinContinuations(lines []string) []string {
	var out []string
	var buf strings.Builder
	for _, l := range lines {
		if strings.HasSuffix(l, `\`) {
			buf.WriteString(strings.TrimSuffix(l, `\`))
			buf.WriteByte(' ')
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString(l)
			l = buf.String()
			buf.Reset()
		}
		out = append(out, l)
	}
	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

// ────────────────────────────────────────────────────────────────────────────
// fish
// ────────────────────────────────────────────────────────────────────────────

var (
	fishAlias     = regexp.MustCompile(`^alias\s+(?:--\S+\s+)*(` + namePattern + `)(?:=|\s+)(.*)$`)
	fishFuncStart = regexp.MustCompile(`^function\s+(` + namePattern + `)(?:\s+.*)?$`)
	fishBlockOpen = regexp.MustCompile(`^(?:if|for|while|switch|begin|function)\b`)
)

type fishDialect struct{}

func (fishDialect) parse(lines []string) []pair {
	var out []pair
	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := fishAlias.FindStringSubmatch(line); m != nil {
			if cmd, ok := unquote(m[2]); ok && cmd != "" {
				out = append(out, pair{m[1], cmd})
			}
			continue
		}

		// one-liner: function gs; git status $argv; end
		if strings.HasPrefix(line, "function ") && strings.Contains(line, ";") {
			parts := splitFishStatements(line)
			if len(parts) >= 2 && parts[len(parts)-1] == "end" {
				if m := fishFuncStart.FindStringSubmatch(parts[0]); m != nil {
					if cmd, ok := singleCommand(parts[1 : len(parts)-1]); ok {
						out = append(out, pair{m[1], cmd})
					}
				}
			}
			continue
		}

		if m := fishFuncStart.FindStringSubmatch(line); m != nil {
			body, next, closed := fishBody(lines, i+1)
			i = next
			if closed {
				if cmd, ok := singleCommand(body); ok {
					out = append(out, pair{m[1], cmd})
				}
			}
		}
	}
	return out
}

func fishBody(lines []string, start int) ([]string, int, bool) {
	depth := 1
	var body []string
	for j := start; j < len(lines); j++ {
		line := strings.TrimSpace(lines[j])
		switch {
		case line == "end" || strings.HasPrefix(line, "end;") || strings.HasPrefix(line, "end "):
			depth--
		case fishBlockOpen.MatchString(line):
			depth++
		}
		if depth == 0 {
			return body, j, true
		}
		body = append(body, line)
	}
	return nil, len(lines) - 1, false
}

func splitFishStatements(line string) []string {
	var parts []string
	for _, p := range strings.Split(line, ";") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// ────────────────────────────────────────────────────────────────────────────
// shared helpers
// ────────────────────────────────────────────────────────────────────────────

func firstMatch(line string, patterns ...*regexp.Regexp) []string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(line); m != nil {
			return m
		}
	}
	return nil
}

// unquote reads the alias value at the start of s: a single- or
// double-quoted string, or a bare word. Anything after it (comments, a
// second declaration) is ignored.
func unquote(s string) (string, bool) {
	s = strings.TrimLeft(s, " \t")
	if s == "" {
		return "", false
	}
	switch q := s[0]; q {
	case '\'':
		end := strings.IndexByte(s[1:], '\'')
		if end < 0 {
			return "", false
		}
		return strings.TrimSpace(s[1 : end+1]), true
	case '"':
		var b strings.Builder
		for i := 1; i < len(s); i++ {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
				continue
			}
			if c == '"' {
				return strings.TrimSpace(b.String()), true
			}
			b.WriteByte(c)
		}
		return "", false
	default:
		var b strings.Builder
		for i := 0; i < len(s); i++ {
			c := s[i]
			if c == '\\' && i+1 < len(s) {
				i++
				b.WriteByte(s[i])
				continue
			}
			if strings.IndexByte(" \t;#", c) >= 0 {
				break
			}
			b.WriteByte(c)
		}
		return b.String(), true
	}
}

var (
	trailingArgs = []string{`"$@"`, `$@`, `"$*"`, `$*`, `$argv`, `"$argv"`}
	controlWords = map[string]struct{}{
		"if": {}, "for": {}, "while": {}, "case": {}, "switch": {}, "local": {},
		"set": {}, "return": {}, "begin": {}, "export": {}, "test": {}, "[": {},
	}
	positional = regexp.MustCompile(`\$[0-9#?]|\$\{[0-9#]`)
)

// singleCommand reduces a function body to the command it forwards to.
// Bodies with several statements, control flow or positional arguments other
// than a trailing "$@" are not aliases.
func singleCommand(body []string) (string, bool) {
	var stmts []string
	for _, l := range body {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "#") {
			continue
		}
		for _, s := range strings.Split(l, ";") {
			if s = strings.TrimSpace(s); s != "" {
				stmts = append(stmts, s)
			}
		}
	}
	if len(stmts) != 1 {
		return "", false
	}

	cmd := stmts[0]
	if strings.Contains(cmd, "&&") || strings.Contains(cmd, "||") || strings.ContainsAny(cmd, "{}") {
		return "", false
	}
	for _, suffix := range trailingArgs {
		if trimmed, ok := strings.CutSuffix(cmd, suffix); ok {
			cmd = strings.TrimSpace(trimmed)
			break
		}
	}
	if cmd == "" || positional.MatchString(cmd) || strings.Contains(cmd, "$argv") {
		return "", false
	}
	first := strings.Fields(cmd)[0]
	if _, ok := controlWords[first]; ok {
		return "", false
	}
	return strings.TrimPrefix(cmd, "command "), true
}
