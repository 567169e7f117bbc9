// Package store owns the persisted Cache: discovered commands and aliases,
// learned corrections, correction history and command frequencies.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"nudge/internal/alias"
)

// SchemaVersion is bumped whenever the on-disk layout changes incompatibly.
const SchemaVersion = 1

// ErrInvalidCache reports a cache document that decoded but breaks the schema.
var ErrInvalidCache = errors.New("invalid cache")

// LearnedCorrection is a typo's remembered target.
type LearnedCorrection struct {
	Target   string    `json:"target"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// HistoryEvent aggregates every occurrence of one (typo, correction) pair.
type HistoryEvent struct {
	Typo       string    `json:"typo"`
	Correction string    `json:"correction"`
	Timestamp  time.Time `json:"timestamp"`
	Count      int       `json:"count"`
}

// Cache is the root entity persisted between invocations.
type Cache struct {
	Version        int                           `json:"version"`
	Commands       []string                      `json:"commands"`
	Learned        map[string]*LearnedCorrection `json:"learned_corrections"`
	Aliases        map[string]alias.Alias        `json:"aliases"`
	History        []*HistoryEvent               `json:"history"`
	Frequency      map[string]int                `json:"frequency"`
	LastRefreshed  time.Time                     `json:"last_refreshed"`
	HistoryEnabled bool                          `json:"history_enabled"`

	commandIndex map[string]struct{}

	// digest of the bytes this cache was loaded from; loaded is false for a
	// cache that did not come from disk.
	digest uint64
	loaded bool
	dirty  bool
	// authoritative caches overwrite whatever is on disk instead of merging.
	authoritative bool
	// prefSet is true once HistoryEnabled was changed since the last save.
	prefSet bool
	// historyLimit caps History, also after a merge; 0 means no cap.
	historyLimit int
}

// NewCache returns an empty cache with history enabled.
func NewCache() *Cache {
	return &Cache{
		Version:        SchemaVersion,
		Commands:       []string{},
		Learned:        make(map[string]*LearnedCorrection),
		Aliases:        make(map[string]alias.Alias),
		History:        []*HistoryEvent{},
		Frequency:      make(map[string]int),
		HistoryEnabled: true,
	}
}

// IsNew reports whether the cache has never been populated.
func (c *Cache) IsNew() bool {
	return c.LastRefreshed.IsZero()
}

// HasCommand reports whether name is a known executable or alias.
func (c *Cache) HasCommand(name string) bool {
	if c.commandIndex == nil {
		c.reindex()
	}
	_, ok := c.commandIndex[name]
	return ok
}

// Alias returns the alias entry for name.
func (c *Cache) Alias(name string) (alias.Alias, bool) {
	a, ok := c.Aliases[name]
	return a, ok
}

// SetCommandSet replaces the executable names wholesale and upserts aliases.
// Alias names become members of the command set. Aliases already known are
// kept even if this scan did not see them.
func (c *Cache) SetCommandSet(executables []string, aliases []alias.Alias) {
	if c.Aliases == nil {
		c.Aliases = make(map[string]alias.Alias)
	}
	for _, a := range aliases {
		c.Aliases[a.Name] = a
	}

	set := make(map[string]struct{}, len(executables)+len(c.Aliases))
	for _, name := range executables {
		if name = strings.TrimSpace(name); name != "" {
			set[name] = struct{}{}
		}
	}
	for name := range c.Aliases {
		set[name] = struct{}{}
	}

	cmds := make([]string, 0, len(set))
	for name := range set {
		cmds = append(cmds, name)
	}
	sort.Strings(cmds)

	c.Commands = cmds
	c.commandIndex = set
	c.MarkDirty()
}

// ResetCommands drops the command set and aliases, keeping learned data.
func (c *Cache) ResetCommands() {
	c.Commands = []string{}
	c.Aliases = make(map[string]alias.Alias)
	c.commandIndex = nil
	c.LastRefreshed = time.Time{}
	c.MarkAuthoritative()
}

// ResetAll clears everything except the history_enabled preference.
func (c *Cache) ResetAll() {
	enabled := c.HistoryEnabled
	fresh := NewCache()
	fresh.HistoryEnabled = enabled
	fresh.digest, fresh.loaded = c.digest, c.loaded
	fresh.prefSet, fresh.historyLimit = c.prefSet, c.historyLimit
	*c = *fresh
	c.MarkAuthoritative()
}

// Learn upserts a learned correction.
func (c *Cache) Learn(typo, target string, now time.Time) {
	if lc, ok := c.Learned[typo]; ok {
		lc.Target = target
		lc.Count++
		lc.LastUsed = now
	} else {
		c.Learned[typo] = &LearnedCorrection{Target: target, Count: 1, LastUsed: now}
	}
	c.MarkDirty()
}

// SetHistoryEnabled changes the recording preference. A preference changed
// here wins over the one a concurrent writer saved; otherwise a merge takes
// the value on disk.
func (c *Cache) SetHistoryEnabled(on bool) {
	c.HistoryEnabled = on
	c.prefSet = true
	c.MarkDirty()
}

// SetHistoryLimit caps History at n events, keeping the most recent, and
// returns how many were dropped. The cap also holds for events folded in
// from a concurrent writer. n <= 0 removes the cap.
func (c *Cache) SetHistoryLimit(n int) int {
	c.historyLimit = max(n, 0)
	dropped := c.trimHistory()
	if dropped > 0 {
		c.MarkDirty()
	}
	return dropped
}

func (c *Cache) trimHistory() int {
	if c.historyLimit == 0 || len(c.History) <= c.historyLimit {
		return 0
	}
	SortHistory(c.History)
	dropped := len(c.History) - c.historyLimit
	clear(c.History[c.historyLimit:])
	c.History = c.History[:c.historyLimit]
	return dropped
}

// MarkDirty flags the cache as needing a save.
func (c *Cache) MarkDirty() { c.dirty = true }

// Dirty reports whether the cache changed since it was loaded or saved.
func (c *Cache) Dirty() bool { return c.dirty }

// MarkAuthoritative makes the next save overwrite concurrent changes on
// disk. Destructive operations use it so a merge cannot resurrect what they
// removed.
func (c *Cache) MarkAuthoritative() {
	c.authoritative = true
	c.dirty = true
}

func (c *Cache) reindex() {
	c.commandIndex = make(map[string]struct{}, len(c.Commands))
	for _, name := range c.Commands {
		c.commandIndex[name] = struct{}{}
	}
}

// normalize fills nil collections and restores the sorted, unique command
// list after decoding.
func (c *Cache) normalize() {
	if c.Learned == nil {
		c.Learned = make(map[string]*LearnedCorrection)
	}
	if c.Aliases == nil {
		c.Aliases = make(map[string]alias.Alias)
	}
	if c.Frequency == nil {
		c.Frequency = make(map[string]int)
	}
	if c.History == nil {
		c.History = []*HistoryEvent{}
	}
	if c.Commands == nil {
		c.Commands = []string{}
	}
	c.Commands = slices.DeleteFunc(c.Commands, func(s string) bool { return s == "" })
	sort.Strings(c.Commands)
	c.Commands = slices.Compact(c.Commands)
	c.reindex()
}

// validate rejects documents that decoded but cannot be trusted.
func (c *Cache) validate() error {
	if c.Version > SchemaVersion {
		return fmt.Errorf("%w: schema version %d is newer than %d", ErrInvalidCache, c.Version, SchemaVersion)
	}
	for typo, lc := range c.Learned {
		if typo == "" || lc == nil || lc.Target == "" || lc.Count < 0 {
			return fmt.Errorf("%w: bad learned correction %q", ErrInvalidCache, typo)
		}
	}
	for name, a := range c.Aliases {
		if name == "" || a.Command == "" {
			return fmt.Errorf("%w: bad alias %q", ErrInvalidCache, name)
		}
	}
	for i, ev := range c.History {
		if ev == nil || ev.Typo == "" || ev.Correction == "" || ev.Count < 0 {
			return fmt.Errorf("%w: bad history event at %d", ErrInvalidCache, i)
		}
	}
	for cmd, n := range c.Frequency {
		if cmd == "" || n < 0 {
			return fmt.Errorf("%w: bad frequency entry %q", ErrInvalidCache, cmd)
		}
	}
	return nil
}
