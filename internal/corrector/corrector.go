// Package corrector fixes a whole command line: the command word, the first
// subcommand and any flags, using per-tool vocabularies.
package corrector

import (
	"slices"
	"strings"

	"nudge/internal/matcher"
)

// Status summarizes a correction attempt.
type Status int

const (
	// StatusUnchanged means every token was already valid.
	StatusUnchanged Status = iota
	// StatusCorrected means at least one token was replaced.
	StatusCorrected
	// StatusUnresolved means the command word is unknown and nothing matched.
	StatusUnresolved
)

func (s Status) String() string {
	switch s {
	case StatusCorrected:
		return "corrected"
	case StatusUnresolved:
		return "unresolved"
	default:
		return "unchanged"
	}
}

// Part is the kind of token a fix touched.
type Part int

const (
	PartCommand Part = iota
	PartSubcommand
	PartFlag
)

func (p Part) String() string {
	switch p {
	case PartSubcommand:
		return "subcommand"
	case PartFlag:
		return "flag"
	default:
		return "command"
	}
}

// Fix records a single replaced token. Position indexes the input tokens.
type Fix struct {
	Position   int
	Original   string
	Corrected  string
	Part       Part
	Similarity float64
}

// Outcome is the result of Correct.
type Outcome struct {
	Status Status
	Tokens []string
	Fixes  []Fix
	// Command is the matcher's verdict on the first token.
	Command matcher.Suggestion
}

// Line returns the corrected tokens, or false when there is nothing to
// replace the input with.
func (o Outcome) Line() ([]string, bool) {
	if o.Status != StatusCorrected {
		return nil, false
	}
	return o.Tokens, true
}

// String joins the tokens with spaces.
func (o Outcome) String() string {
	return strings.Join(o.Tokens, " ")
}

// Corrector corrects command lines against a matcher and a knowledge base.
type Corrector struct {
	engine *matcher.Engine
	kb     *Knowledge
}

// New creates a Corrector. A nil knowledge base means the built-in one.
func New(engine *matcher.Engine, kb *Knowledge) *Corrector {
	if kb == nil {
		kb = DefaultKnowledge()
	}
	return &Corrector{engine: engine, kb: kb}
}

// Knowledge returns the knowledge base in use
func (c *Corrector) Knowledge() *Knowledge { return c.kb }

// Correct corrects tokens at the engine's threshold.
func (c *Corrector) Correct(tokens []string) Outcome {
	return c.correct(tokens, 0)
}

// CorrectLoose is Correct, except that when the strict pass finds no
// command it retries the command word at the fallback threshold.
func (c *Corrector) CorrectLoose(tokens []string, fallback float64) Outcome {
	return c.correct(tokens, fallback)
}

func (c *Corrector) correct(tokens []string, fallback float64) Outcome {
	out := Outcome{Tokens: slices.Clone(tokens)}
	if len(tokens) == 0 {
		return out
	}

	first := tokens[0]
	sug := c.engine.BestMatch(first)
	if sug.Kind == matcher.KindNone && fallback > 0 && fallback < c.engine.Threshold() {
		sug = c.engine.Fuzzy(first, fallback)
	}
	out.Command = sug

	head := []string{first}
	switch {
	case sug.Found():
		// A learned target may be several words, e.g. "gs" -> "git status".
		if words := strings.Fields(sug.Value); len(words) > 0 {
			head = words
		}
		out.Fixes = append(out.Fixes, Fix{
			Position:   0,
			Original:   first,
			Corrected:  sug.Value,
			Part:       PartCommand,
			Similarity: sug.Similarity,
		})
	case sug.Kind == matcher.KindKnown:
	default:
		if _, ok := c.kb.Tool(first); !ok {
			out.Status = StatusUnresolved
			return out
		}
	}

	tool, subDone := c.toolFor(head)
	rest := c.correctArgs(tool, tokens[1:], subDone, &out.Fixes)
	out.Tokens = append(head, rest...)

	if !slices.Equal(out.Tokens, tokens) {
		out.Status = StatusCorrected
	} else {
		out.Fixes = nil
	}
	return out
}

// toolFor picks the knowledge-base entry for a command head. Aliases are
// looked through to their expansion. subDone is set when the head already
// carries a subcommand, as with an alias for "git status".
func (c *Corrector) toolFor(head []string) (tool *Tool, subDone bool) {
	name, words := head[0], head[1:]
	if a, ok := c.engine.Alias(name); ok {
		if exp := strings.Fields(a.Command); len(exp) > 0 {
			name = exp[0]
			words = append(exp[1:], words...)
		}
	}

	t, ok := c.kb.Tool(name)
	if !ok {
		return nil, false
	}
	subDone = slices.ContainsFunc(words, func(w string) bool { return !isFlag(w) })
	return t, subDone
}

// correctArgs fixes the subcommand slot and flag-shaped arguments. Anything
// else is a free-form argument and is never touched, including the value
// that follows a value-taking flag.
func (c *Corrector) correctArgs(t *Tool, args []string, subDone bool, fixes *[]Fix) []string {
	out := slices.Clone(args)
	if t == nil {
		return out
	}
	threshold := c.engine.Threshold()

	// value is set when the previous flag takes the next argument
	value := false
	for i, tok := range args {
		if tok == "--" {
			break
		}
		if value {
			value = false
			continue
		}

		if isFlag(tok) {
			name := tok
			if fixed, score, ok := correctFlag(t, tok, threshold); ok {
				out[i], name = fixed, fixed
				*fixes = append(*fixes, Fix{Position: i + 1, Original: tok, Corrected: fixed, Part: PartFlag, Similarity: score})
			}
			flag, _, inline := strings.Cut(name, "=")
			value = !inline && t.TakesValue(flag)
			continue
		}

		if subDone {
			continue
		}
		subDone = true
		if looksLikePathOrURL(tok) || isNumeric(tok) || t.HasSubcommand(tok) {
			continue
		}
		if v, score, ok := matcher.Closest(tok, t.Subcommands, threshold); ok {
			out[i] = v
			*fixes = append(*fixes, Fix{Position: i + 1, Original: tok, Corrected: v, Part: PartSubcommand, Similarity: score})
		}
	}
	return out
}

// correctFlag matches a flag against flags of the same dash style, keeping
// any =value suffix.
func correctFlag(t *Tool, tok string, threshold float64) (string, float64, bool) {
	name, value, hasValue := strings.Cut(tok, "=")
	if t.HasFlag(name) {
		return "", 0, false
	}

	var vocab []string
	if strings.HasPrefix(name, "--") {
		vocab = t.LongFlags()
	} else {
		// -x has nothing to be fuzzy about, and -xvf is a bundle
		if len([]rune(name)) <= 2 || t.isCluster(name) {
			return "", 0, false
		}
		vocab = t.ShortFlags()
	}

	v, score, ok := matcher.Closest(name, vocab, threshold)
	if !ok {
		return "", 0, false
	}
	if hasValue {
		v += "=" + value
	}
	return v, score, true
}

// isFlag reports whether s is shaped like an option. A lone dash and
// negative numbers are arguments.
func isFlag(s string) bool {
	if len(s) < 2 || s[0] != '-' {
		return false
	}
	return !isNumeric(strings.TrimLeft(s, "-"))
}

// isNumeric returns true when s consists entirely of ASCII digit characters.
func isNumeric(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func looksLikePathOrURL(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../") || strings.HasPrefix(s, "~") ||
		strings.Contains(s, "://") || strings.HasPrefix(s, "http")
}
