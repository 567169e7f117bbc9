// Package matcher ranks known commands and aliases against a mistyped word.
package matcher

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"

	"nudge/internal/alias"
	"nudge/internal/logger"
	"nudge/internal/shell"
	"nudge/internal/store"
)

// Kind says which tier produced a suggestion.
type Kind int

const (
	// KindNone means nothing cleared the threshold.
	KindNone Kind = iota
	// KindKnown means the input already names a command or alias.
	KindKnown
	KindLearned
	KindAlias
	KindFuzzy
)

func (k Kind) String() string {
	switch k {
	case KindKnown:
		return "known"
	case KindLearned:
		return "learned"
	case KindAlias:
		return "alias"
	case KindFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// Suggestion is the outcome of BestMatch.
type Suggestion struct {
	Input      string
	Value      string
	Kind       Kind
	Similarity float64
	// Uses is the learned count for learned suggestions and the frequency
	// table count otherwise.
	Uses      int
	Expansion string
	Shell     shell.ShellType
}

// Found reports whether the suggestion replaces the input.
func (s Suggestion) Found() bool {
	return s.Kind == KindLearned || s.Kind == KindAlias || s.Kind == KindFuzzy
}

// Annotation is a short human-readable note on why this was suggested.
func (s Suggestion) Annotation() string {
	switch s.Kind {
	case KindLearned:
		if s.Uses == 1 {
			return "learned correction"
		}
		return fmt.Sprintf("learned correction, used %d×", s.Uses)
	case KindAlias:
		note := "alias for " + s.Expansion
		if s.Shell != "" {
			note += " (" + s.Shell.Title() + ")"
		}
		return note
	case KindFuzzy:
		note := fmt.Sprintf("%.0f%% match", s.Similarity*100)
		if s.Uses > 0 {
			note += fmt.Sprintf(", run %d×", s.Uses)
		}
		return note
	default:
		return ""
	}
}

// Engine answers queries over one cache snapshot. It never mutates the cache.
type Engine struct {
	cache             *store.Cache
	threshold         float64
	workers           int
	parallelThreshold int
	usage             map[string]int
}

// Option configures an Engine
type Option func(*Engine)

// WithThreshold sets the minimum similarity
func WithThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithWorkers sets the size of the scan pool
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithParallelThreshold sets the candidate count above which the scan is
// split across workers.
func WithParallelThreshold(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.parallelThreshold = n
		}
	}
}

// New creates an Engine over c.
func New(c *store.Cache, opts ...Option) *Engine {
	e := &Engine{
		cache:             c,
		threshold:         DefaultThreshold,
		workers:           runtime.NumCPU(),
		parallelThreshold: 256,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.usage = usageByCommand(c.Frequency)
	return e
}

// Threshold returns the configured minimum similarity
func (e *Engine) Threshold() float64 { return e.threshold }

// usageByCommand sums frequency counts by first word, so "git" inherits the
// counts of "git status" and "git push".
func usageByCommand(freq map[string]int) map[string]int {
	usage := make(map[string]int, len(freq))
	for line, n := range freq {
		if fields := strings.Fields(line); len(fields) > 0 {
			usage[fields[0]] += n
		}
	}
	return usage
}

// Uses returns how often name was run as a command.
func (e *Engine) Uses(name string) int {
	return e.usage[name]
}

// Alias returns the alias entry for name, if the cache knows one.
func (e *Engine) Alias(name string) (alias.Alias, bool) {
	return e.cache.Alias(name)
}

// BestMatch resolves input in tier order: learned correction, known command,
// fuzzy search. An earlier tier always wins over a later one.
func (e *Engine) BestMatch(input string) Suggestion {
	input = strings.TrimSpace(input)
	if input == "" {
		return Suggestion{Input: input}
	}

	if lc, ok := e.cache.Learned[input]; ok {
		return Suggestion{Input: input, Value: lc.Target, Kind: KindLearned, Similarity: 1, Uses: lc.Count}
	}

	if e.cache.HasCommand(input) {
		return Suggestion{Input: input, Value: input, Kind: KindKnown, Similarity: 1, Uses: e.usage[input]}
	}

	return e.Fuzzy(input, e.threshold)
}

// Fuzzy runs only the similarity search, with an explicit threshold.
func (e *Engine) Fuzzy(input string, threshold float64) Suggestion {
	input = strings.TrimSpace(input)
	out := Suggestion{Input: input}
	if input == "" {
		return out
	}

	best, ok := e.scan(input, e.cache.Commands, threshold)
	if !ok {
		return out
	}

	out.Value = best.value
	out.Similarity = best.score
	out.Uses = best.uses
	out.Kind = KindFuzzy
	if a, isAlias := e.cache.Alias(best.value); isAlias {
		out.Kind = KindAlias
		out.Expansion = a.Command
		out.Shell = a.Shell
	}
	return out
}

// scan picks the best candidate, splitting large sets across a worker pool.
// Each worker reduces its own chunk; only the final merge is serial.
func (e *Engine) scan(input string, candidates []string, threshold float64) (candidate, bool) {
	if len(candidates) < e.parallelThreshold || e.workers < 2 {
		return e.scanChunk(input, candidates, threshold)
	}

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		logger.With("matcher").Debug("scan pool unavailable", "error", err)
		return e.scanChunk(input, candidates, threshold)
	}
	defer pool.Release()

	chunks := e.workers
	size := (len(candidates) + chunks - 1) / chunks

	type partial struct {
		best candidate
		ok   bool
	}
	results := make([]partial, chunks)
	var wg sync.WaitGroup

	for i := 0; i < chunks; i++ {
		lo := i * size
		if lo >= len(candidates) {
			break
		}
		hi := min(lo+size, len(candidates))
		part := candidates[lo:hi]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			b, ok := e.scanChunk(input, part, threshold)
			results[i] = partial{b, ok}
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	var best candidate
	found := false
	for _, r := range results {
		if r.ok && (!found || better(r.best, best)) {
			best, found = r.best, true
		}
	}
	return best, found
}

func (e *Engine) scanChunk(input string, candidates []string, threshold float64) (candidate, bool) {
	lin := utf8.RuneCountInString(input)
	var best candidate
	found := false
	for _, name := range candidates {
		ln := utf8.RuneCountInString(name)
		if !reachable(lin, ln, threshold) {
			continue
		}
		s := Similarity(input, name)
		if s < threshold {
			continue
		}
		c := candidate{value: name, score: s, uses: e.usage[name], runes: ln}
		if !found || better(c, best) {
			best, found = c, true
		}
	}
	return best, found
}
