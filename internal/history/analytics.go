// Package history records corrections and successful commands, and ranks
// them for the history views, completions and alias hints.
package history

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"nudge/internal/config"
	"nudge/internal/logger"
	"nudge/internal/store"
)

// Ranked is one row of an aggregated view.
type Ranked struct {
	Value string
	Count int
	Last  time.Time
}

// AliasSuggestion proposes a short name for a frequently corrected command.
type AliasSuggestion struct {
	Name    string
	Command string
	Count   int
}

// Analytics reads and updates the history parts of a cache.
type Analytics struct {
	cache         *store.Cache
	exclude       map[string]struct{}
	maxEvents     int
	aliasMinCount int
	threshold     float64
	now           func() time.Time
}

// Option configures Analytics
type Option func(*Analytics)

// WithExclude replaces the list of commands never counted as valid commands.
func WithExclude(names []string) Option {
	return func(a *Analytics) {
		a.exclude = make(map[string]struct{}, len(names))
		for _, n := range names {
			a.exclude[n] = struct{}{}
		}
	}
}

// WithMaxEvents caps the number of history events kept
func WithMaxEvents(n int) Option {
	return func(a *Analytics) {
		if n > 0 {
			a.maxEvents = n
		}
	}
}

// WithAliasMinCount sets how often a command must have been corrected to
// before an alias is proposed.
func WithAliasMinCount(n int) Option {
	return func(a *Analytics) {
		if n > 0 {
			a.aliasMinCount = n
		}
	}
}

// WithThreshold sets the similarity used by the FrequentForPrefix fallback
func WithThreshold(t float64) Option {
	return func(a *Analytics) {
		if t > 0 && t <= 1 {
			a.threshold = t
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Analytics) { a.now = now }
}

// New creates Analytics over c.
func New(c *store.Cache, opts ...Option) *Analytics {
	a := &Analytics{
		cache:         c,
		maxEvents:     1000,
		aliasMinCount: 2,
		threshold:     0.6,
		now:           time.Now,
	}
	WithExclude(config.DefaultExclude)(a)
	for _, opt := range opts {
		opt(a)
	}
	if n := c.SetHistoryLimit(a.maxEvents); n > 0 {
		logger.With("history").Debug("history trimmed", "dropped", n, "max_events", a.maxEvents)
	}
	return a
}

// Enabled reports whether recording is on
func (a *Analytics) Enabled() bool { return a.cache.HistoryEnabled }

// SetEnabled turns recording on or off. Existing data is kept either way.
func (a *Analytics) SetEnabled(on bool) {
	a.cache.SetHistoryEnabled(on)
}

// Len returns the number of distinct (typo, correction) pairs.
func (a *Analytics) Len() int { return len(a.cache.History) }

// RecordCorrection counts one more occurrence of typo being corrected to
// correction and teaches the pair as a learned correction. It does nothing
// while history is disabled, and reports whether anything was recorded.
func (a *Analytics) RecordCorrection(typo, correction string) bool {
	typo, correction = normalize(typo), normalize(correction)
	if !a.cache.HistoryEnabled || typo == "" || correction == "" || typo == correction {
		return false
	}
	now := a.now()

	events := a.cache.History
	idx := -1
	for i, ev := range events {
		if ev.Typo == typo && ev.Correction == correction {
			idx = i
			break
		}
	}

	var ev *store.HistoryEvent
	if idx >= 0 {
		ev = events[idx]
		ev.Count++
		ev.Timestamp = now
		events = append(events[:idx], events[idx+1:]...)
	} else {
		ev = &store.HistoryEvent{Typo: typo, Correction: correction, Timestamp: now, Count: 1}
	}
	events = append([]*store.HistoryEvent{ev}, events...)

	if len(events) > a.maxEvents {
		dropped := len(events) - a.maxEvents
		events = events[:a.maxEvents]
		logger.With("history").Debug("history capped", "dropped", dropped)
	}
	a.cache.History = events

	a.cache.Learn(typo, correction, now)
	return true
}

// RecordValidCommand counts a command line that ran successfully. Editors,
// pagers, navigation and lines that look like they carry secrets are not
// counted. It reports whether anything was recorded.
func (a *Analytics) RecordValidCommand(line string) bool {
	line = normalize(line)
	if !a.cache.HistoryEnabled || line == "" {
		return false
	}
	first, _, _ := strings.Cut(line, " ")
	if _, skip := a.exclude[first]; skip {
		return false
	}
	if isSensitive(line) {
		return false
	}
	a.cache.Frequency[line]++
	a.cache.MarkDirty()
	return true
}

// TopTypos aggregates events by typo. n <= 0 means all.
func (a *Analytics) TopTypos(n int) []Ranked {
	return a.top(n, func(ev *store.HistoryEvent) string { return ev.Typo })
}

// TopCorrections aggregates events by correction. n <= 0 means all.
func (a *Analytics) TopCorrections(n int) []Ranked {
	return a.top(n, func(ev *store.HistoryEvent) string { return ev.Correction })
}

func (a *Analytics) top(n int, key func(*store.HistoryEvent) string) []Ranked {
	byKey := make(map[string]*Ranked)
	for _, ev := range a.cache.History {
		k := key(ev)
		r, ok := byKey[k]
		if !ok {
			r = &Ranked{Value: k}
			byKey[k] = r
		}
		r.Count += ev.Count
		if ev.Timestamp.After(r.Last) {
			r.Last = ev.Timestamp
		}
	}

	out := make([]Ranked, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if !out[i].Last.Equal(out[j].Last) {
			return out[i].Last.After(out[j].Last)
		}
		return out[i].Value < out[j].Value
	})
	return limit(out, n)
}

// Recent returns events most recent first. n <= 0 means all.
func (a *Analytics) Recent(n int) []store.HistoryEvent {
	events := make([]*store.HistoryEvent, len(a.cache.History))
	copy(events, a.cache.History)
	store.SortHistory(events)

	out := make([]store.HistoryEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, *ev)
	}
	return limit(out, n)
}

// Clear removes every history event. Learned corrections stay.
func (a *Analytics) Clear() {
	a.cache.History = []*store.HistoryEvent{}
	a.cache.MarkAuthoritative()
}

// SuggestAlias proposes a short alias for the most frequently corrected
// command that does not already have a usable short form.
func (a *Analytics) SuggestAlias() (AliasSuggestion, bool) {
	taken := func(name string) bool {
		return a.cache.HasCommand(name)
	}
	for _, r := range a.TopCorrections(0) {
		if r.Count < a.aliasMinCount {
			break
		}
		if name := aliasName(r.Value, taken); name != "" {
			return AliasSuggestion{Name: name, Command: r.Value, Count: r.Count}, true
		}
	}
	return AliasSuggestion{}, false
}

// aliasName derives a short name: initials for a multi-word command, the
// first two letters of a longer single word. A taken name grows by the
// following letters until it is free. Empty means no useful name exists.
func aliasName(command string, taken func(string) bool) string {
	words := strings.Fields(command)
	if len(words) == 0 {
		return ""
	}

	var base, tail []rune
	if len(words) > 1 {
		words = words[:min(3, len(words))]
		for _, w := range words {
			if r, ok := initial(w); ok {
				base = append(base, r)
			}
		}
		if last := []rune(words[len(words)-1]); len(last) > 1 {
			tail = last[1:]
		}
	} else {
		r := []rune(words[0])
		if len(r) <= 3 {
			return ""
		}
		base, tail = r[:2], r[2:]
	}
	if len(base) == 0 {
		return ""
	}

	name := strings.ToLower(string(base))
	for taken(name) || name == command {
		if len(tail) == 0 {
			return ""
		}
		name += strings.ToLower(string(tail[0]))
		tail = tail[1:]
	}
	return name
}

func initial(word string) (rune, bool) {
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r, true
		}
	}
	return 0, false
}

// FrequentForPrefix returns the most frequently run command line starting
// with prefix. When nothing starts with it, lines whose leading characters
// are within the similarity threshold of prefix are considered, so a typo
// in the prefix still finds the command.
func (a *Analytics) FrequentForPrefix(prefix string) (string, int, bool) {
	p := normalize(prefix)
	if p == "" {
		return "", 0, false
	}
	if strings.HasSuffix(prefix, " ") {
		p += " "
	}

	type hit struct {
		line  string
		count int
		score float64
	}
	better := func(x, y hit) bool {
		if x.score != y.score {
			return x.score > y.score
		}
		if x.count != y.count {
			return x.count > y.count
		}
		if len(x.line) != len(y.line) {
			return len(x.line) < len(y.line)
		}
		return x.line < y.line
	}

	var best hit
	found := false
	for line, n := range a.cache.Frequency {
		if !strings.HasPrefix(line, p) {
			continue
		}
		h := hit{line: line, count: n, score: 1}
		if !found || better(h, best) {
			best, found = h, true
		}
	}
	if found {
		return best.line, best.count, true
	}

	plen := utf8.RuneCountInString(p)
	for line, n := range a.cache.Frequency {
		runes := []rune(line)
		if len(runes) < plen {
			continue
		}
		d := levenshtein.ComputeDistance(p, string(runes[:plen]))
		score := 1 - float64(d)/float64(plen)
		if score < a.threshold {
			continue
		}
		h := hit{line: line, count: n, score: score}
		if !found || better(h, best) {
			best, found = h, true
		}
	}
	return best.line, best.count, found
}

// normalize collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var sensitivePatterns = []string{
	"password", "passwd", "secret", "token=", "api_key", "apikey",
	"private_key", "credential", "authorization:",
}

// isSensitive checks if a command line looks like it carries a secret
func isSensitive(line string) bool {
	lower := strings.ToLower(line)
	for _, pattern := range sensitivePatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
