// Package suggest is the entry point used by the CLI: it opens the cache,
// answers correction and completion queries and records what happened.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nudge/internal/config"
	"nudge/internal/corrector"
	"nudge/internal/history"
	"nudge/internal/logger"
	"nudge/internal/matcher"
	"nudge/internal/store"
)

// ErrNoSuggestion is returned when a query has no answer.
var ErrNoSuggestion = errors.New("no suggestion")

// Service owns one loaded cache for the lifetime of an invocation.
type Service struct {
	cfg       *config.Config
	store     store.Store
	cache     *store.Cache
	indexer   store.Indexer
	refresher *store.Refresher
	kb        *corrector.Knowledge
	engine    *matcher.Engine
	corrector *corrector.Corrector
	history   *history.Analytics
	refresh   bool
	now       func() time.Time
	log       *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithStore uses st instead of the backend named in the config
func WithStore(st store.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithIndexer replaces system discovery
func WithIndexer(idx store.Indexer) Option {
	return func(s *Service) { s.indexer = idx }
}

// WithoutRefresh skips the staleness check on open. Record operations use
// it so they never pay for a PATH scan.
func WithoutRefresh() Option {
	return func(s *Service) { s.refresh = false }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Open loads the cache, refreshes it when stale and builds the query
// engines. A bbolt backend that cannot be opened falls back to the JSON file.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		cfg:     cfg,
		refresh: true,
		now:     time.Now,
		log:     logger.With("suggest"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		st, err := store.Open(cfg.Cache)
		if err != nil {
			if cfg.Cache.Backend == "json" || cfg.Cache.Backend == "" {
				return nil, fmt.Errorf("failed to open cache: %w", err)
			}
			s.log.Warn("cache backend unavailable, using JSON file", "backend", cfg.Cache.Backend, "error", err)
			st = store.NewFileStore(store.DefaultPath("cache.json"))
		}
		s.store = st
	}

	c, err := s.store.Load(ctx)
	if err != nil {
		s.store.Close()
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	s.cache = c

	if s.indexer == nil {
		s.indexer = NewSystemIndexer(cfg)
	}
	s.refresher = &store.Refresher{
		Indexer:  s.indexer,
		Interval: cfg.Cache.RefreshInterval,
		Now:      s.now,
	}
	if s.refresh {
		s.refresher.RefreshIfStale(ctx, c, c.IsNew())
	}

	kb, err := corrector.LoadKnowledge(cfg.Knowledge.File)
	if err != nil {
		s.log.Warn("user knowledge base ignored", "error", err)
	}
	s.kb = kb

	s.history = history.New(c,
		history.WithExclude(cfg.History.Exclude),
		history.WithMaxEvents(cfg.History.MaxEvents),
		history.WithAliasMinCount(cfg.History.AliasMinCount),
		history.WithThreshold(cfg.Matching.Threshold),
		history.WithClock(s.now),
	)
	s.rebuild()
	return s, nil
}

// rebuild recreates the engines after the cache changed underneath them.
func (s *Service) rebuild() {
	s.engine = matcher.New(s.cache,
		matcher.WithThreshold(s.cfg.Matching.Threshold),
		matcher.WithWorkers(s.cfg.Matching.Workers),
		matcher.WithParallelThreshold(s.cfg.Matching.ParallelThreshold),
	)
	s.corrector = corrector.New(s.engine, s.kb)
}

// Cache exposes the loaded cache
func (s *Service) Cache() *store.Cache { return s.cache }

// Knowledge exposes the knowledge base in use
func (s *Service) Knowledge() *corrector.Knowledge { return s.kb }

// StorePath is where the cache lives
func (s *Service) StorePath() string { return s.store.Path() }

// Save persists the cache if anything changed.
func (s *Service) Save(ctx context.Context) error {
	if !s.cache.Dirty() {
		return nil
	}
	if err := s.store.Save(ctx, s.cache); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

// Close saves pending changes and releases the store. The store is
// released even when the save fails.
func (s *Service) Close(ctx context.Context) error {
	saveErr := s.Save(ctx)
	closeErr := s.store.Close()
	if saveErr != nil {
		return saveErr
	}
	return closeErr
}

// Resolution is the answer to a typed command line.
type Resolution struct {
	Input   []string
	Outcome corrector.Outcome
}

// Found reports whether there is a corrected line to offer
func (r Resolution) Found() bool {
	_, ok := r.Outcome.Line()
	return ok
}

// Line is the corrected command line
func (r Resolution) Line() string {
	return r.Outcome.String()
}

// Typo is the command word as typed.
func (r Resolution) Typo() string {
	if len(r.Input) == 0 {
		return ""
	}
	return r.Input[0]
}

// Correction is what the command word became, or empty if it was kept.
func (r Resolution) Correction() string {
	for _, f := range r.Outcome.Fixes {
		if f.Part == corrector.PartCommand {
			return f.Corrected
		}
	}
	return ""
}

// Annotation says why the line was corrected.
func (r Resolution) Annotation() string {
	var notes []string
	for _, f := range r.Outcome.Fixes {
		if f.Part == corrector.PartCommand {
			notes = append(notes, r.Outcome.Command.Annotation())
			continue
		}
		notes = append(notes, fmt.Sprintf("%s %s → %s", f.Part, f.Original, f.Corrected))
	}
	return strings.Join(notes, "; ")
}

// Resolve corrects a command line for the interactive prompt. When the
// strict pass cannot place the command word, a looser threshold is tried.
func (s *Service) Resolve(tokens []string) Resolution {
	out := s.corrector.CorrectLoose(tokens, s.cfg.Matching.FallbackThreshold)
	s.log.Debug("resolved", "input", strings.Join(tokens, " "), "status", out.Status, "fixes", len(out.Fixes))
	return Resolution{Input: tokens, Outcome: out}
}

// CheckCommand corrects a command line at the strict threshold only.
func (s *Service) CheckCommand(tokens []string) (string, error) {
	out := s.corrector.Correct(tokens)
	if _, ok := out.Line(); !ok {
		return "", ErrNoSuggestion
	}
	return out.String(), nil
}

// RecordCorrection records that typo was corrected to correction.
func (s *Service) RecordCorrection(typo, correction string) bool {
	return s.history.RecordCorrection(typo, correction)
}

// RecordValidCommand counts a successful command line.
func (s *Service) RecordValidCommand(line string) bool {
	return s.history.RecordValidCommand(line)
}

// Learn teaches a correction explicitly. Unlike RecordCorrection it works
// while history is disabled.
func (s *Service) Learn(typo, correction string) error {
	typo, correction = strings.TrimSpace(typo), strings.Join(strings.Fields(correction), " ")
	if typo == "" || correction == "" {
		return fmt.Errorf("typo and correction must not be empty")
	}
	if strings.ContainsAny(typo, " \t") {
		return fmt.Errorf("typo %q must be a single word", typo)
	}
	s.cache.Learn(typo, correction, s.now())
	return nil
}

// ResetCache drops the command set and rebuilds it. Learned corrections and
// history are kept.
func (s *Service) ResetCache(ctx context.Context) error {
	s.cache.ResetCommands()
	if !s.refresher.RefreshIfStale(ctx, s.cache, true) {
		return fmt.Errorf("command rebuild interrupted: %w", context.Cause(ctx))
	}
	s.rebuild()
	return nil
}

// ResetMemory clears everything, then rebuilds the command set.
func (s *Service) ResetMemory(ctx context.Context) error {
	s.cache.ResetAll()
	if !s.refresher.RefreshIfStale(ctx, s.cache, true) {
		return fmt.Errorf("command rebuild interrupted: %w", context.Cause(ctx))
	}
	s.rebuild()
	return nil
}

// History returns the most recent events
func (s *Service) History(n int) []store.HistoryEvent { return s.history.Recent(n) }

// FrequentTypos ranks typos
func (s *Service) FrequentTypos(n int) []history.Ranked { return s.history.TopTypos(n) }

// FrequentCorrections ranks corrections
func (s *Service) FrequentCorrections(n int) []history.Ranked { return s.history.TopCorrections(n) }

// ClearHistory removes all history events
func (s *Service) ClearHistory() { s.history.Clear() }

// SetHistoryEnabled turns recording on or off
func (s *Service) SetHistoryEnabled(on bool) { s.history.SetEnabled(on) }

// HistoryEnabled reports whether recording is on
func (s *Service) HistoryEnabled() bool { return s.history.Enabled() }

// SuggestAlias proposes an alias for a frequently corrected command.
func (s *Service) SuggestAlias() (history.AliasSuggestion, error) {
	a, ok := s.history.SuggestAlias()
	if !ok {
		return a, ErrNoSuggestion
	}
	return a, nil
}
