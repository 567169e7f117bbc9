package suggest

import (
	"sort"
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	sfuzzy "github.com/sahilm/fuzzy"

	"nudge/internal/corrector"
)

// ranked orders completion candidates: more uses, then shorter, then lexical.
type ranked struct {
	value string
	uses  int
	dist  int
}

func (a ranked) before(b ranked) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	if a.uses != b.uses {
		return a.uses > b.uses
	}
	if len(a.value) != len(b.value) {
		return len(a.value) < len(b.value)
	}
	return a.value < b.value
}

// SuggestCompletion completes the word being typed. A single word is
// completed against commands, aliases and frequently run commands; a later
// word is completed against the command's subcommands or flags.
func (s *Service) SuggestCompletion(partial string) (string, error) {
	if strings.TrimSpace(partial) == "" {
		return "", ErrNoSuggestion
	}
	words := strings.Fields(partial)
	trailing := strings.HasSuffix(partial, " ")

	if len(words) == 1 && !trailing {
		if c, ok := s.completeCommand(words[0]); ok {
			return c, nil
		}
		return "", ErrNoSuggestion
	}

	if !trailing {
		last := words[len(words)-1]
		if tool, ok := s.toolFor(words[0]); ok {
			vocab := tool.Subcommands
			if strings.HasPrefix(last, "-") {
				vocab = tool.Flags
			}
			if w, ok := completeWord(last, vocab); ok {
				return strings.Join(append(words[:len(words)-1], w), " "), nil
			}
		}
	}

	if line, _, ok := s.history.FrequentForPrefix(partial); ok {
		return line, nil
	}
	return "", ErrNoSuggestion
}

// completeCommand tries prefix, then subsequence, then similarity.
func (s *Service) completeCommand(word string) (string, bool) {
	candidates := s.commandWords()

	var best ranked
	found := false
	for _, c := range candidates {
		if !strings.HasPrefix(c, word) {
			continue
		}
		r := ranked{value: c, uses: s.engine.Uses(c)}
		if !found || r.before(best) {
			best, found = r, true
		}
	}
	if found {
		return best.value, true
	}

	for _, m := range lfuzzy.RankFindFold(word, candidates) {
		r := ranked{value: m.Target, uses: s.engine.Uses(m.Target), dist: m.Distance}
		if !found || r.before(best) {
			best, found = r, true
		}
	}
	if found {
		return best.value, true
	}

	if sug := s.engine.BestMatch(word); sug.Found() {
		return sug.Value, true
	}
	return "", false
}

// commandWords is the command set plus the first words of frequently run
// lines, which may no longer be on PATH.
func (s *Service) commandWords() []string {
	seen := make(map[string]struct{}, len(s.cache.Commands))
	words := make([]string, 0, len(s.cache.Commands))
	for _, c := range s.cache.Commands {
		seen[c] = struct{}{}
		words = append(words, c)
	}
	for line := range s.cache.Frequency {
		first, _, _ := strings.Cut(line, " ")
		if _, ok := seen[first]; !ok && first != "" {
			seen[first] = struct{}{}
			words = append(words, first)
		}
	}
	sort.Strings(words)
	return words
}

// toolFor finds the knowledge-base entry for a command word, looking
// through aliases.
func (s *Service) toolFor(name string) (*corrector.Tool, bool) {
	if a, ok := s.engine.Alias(name); ok {
		if exp := strings.Fields(a.Command); len(exp) > 0 {
			name = exp[0]
		}
	}
	return s.kb.Tool(name)
}

func completeWord(word string, vocab []string) (string, bool) {
	var best ranked
	found := false
	for _, v := range vocab {
		if strings.HasPrefix(v, word) {
			r := ranked{value: v}
			if !found || r.before(best) {
				best, found = r, true
			}
		}
	}
	if found {
		return best.value, true
	}
	for _, m := range lfuzzy.RankFindFold(word, vocab) {
		r := ranked{value: m.Target, dist: m.Distance}
		if !found || r.before(best) {
			best, found = r, true
		}
	}
	return best.value, found
}

// SuggestFullCompletion completes a partial line into a whole command. The
// line is corrected first; the most frequent recorded line extending it
// wins, then the corrected line itself, then a fuzzy match over recorded
// lines, then word completion.
func (s *Service) SuggestFullCompletion(partial string) (string, error) {
	tokens := strings.Fields(partial)
	if len(tokens) == 0 {
		return "", ErrNoSuggestion
	}

	base := strings.Join(tokens, " ")
	corrected := false
	if line, ok := s.corrector.Correct(tokens).Line(); ok {
		base, corrected = strings.Join(line, " "), true
	}

	if line, ok := s.mostFrequentExtending(base); ok {
		return line, nil
	}
	if corrected {
		return base, nil
	}

	if line, ok := s.fuzzyFrequent(partial); ok {
		return line, nil
	}
	return s.SuggestCompletion(partial)
}

func (s *Service) mostFrequentExtending(base string) (string, bool) {
	var best ranked
	found := false
	for line, n := range s.cache.Frequency {
		if line == base || !strings.HasPrefix(line, base+" ") {
			continue
		}
		r := ranked{value: line, uses: n}
		if !found || r.before(best) {
			best, found = r, true
		}
	}
	return best.value, found
}

func (s *Service) fuzzyFrequent(partial string) (string, bool) {
	if len(s.cache.Frequency) == 0 {
		return "", false
	}
	lines := make([]string, 0, len(s.cache.Frequency))
	for line := range s.cache.Frequency {
		lines = append(lines, line)
	}
	sort.Strings(lines)

	matches := sfuzzy.Find(strings.TrimSpace(partial), lines)
	if len(matches) == 0 {
		return "", false
	}
	top := matches[0].Score
	var best ranked
	found := false
	for _, m := range matches {
		if m.Score != top {
			break
		}
		r := ranked{value: m.Str, uses: s.cache.Frequency[m.Str]}
		if !found || r.before(best) {
			best, found = r, true
		}
	}
	return best.value, found
}

// SuggestFrequentCommand returns the most frequently run line starting with
// prefix, tolerating a typo in the prefix.
func (s *Service) SuggestFrequentCommand(prefix string) (string, error) {
	line, _, ok := s.history.FrequentForPrefix(prefix)
	if !ok {
		return "", ErrNoSuggestion
	}
	return line, nil
}
