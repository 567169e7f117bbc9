package store

import (
	"sort"
)

// mergeFrom folds a cache written concurrently by another process into c.
// history_enabled comes from other unless c changed it itself. Counts take the larger side rather than the sum: both sides started from
// a common ancestor, so adding would double count it.
func (c *Cache) mergeFrom(other *Cache) {
	for typo, theirs := range other.Learned {
		ours, ok := c.Learned[typo]
		if !ok {
			cp := *theirs
			c.Learned[typo] = &cp
			continue
		}
		if theirs.LastUsed.After(ours.LastUsed) {
			ours.Target = theirs.Target
			ours.LastUsed = theirs.LastUsed
		}
		ours.Count = max(ours.Count, theirs.Count)
	}

	type key struct{ typo, correction string }
	index := make(map[key]*HistoryEvent, len(c.History))
	for _, ev := range c.History {
		index[key{ev.Typo, ev.Correction}] = ev
	}
	for _, theirs := range other.History {
		k := key{theirs.Typo, theirs.Correction}
		if ours, ok := index[k]; ok {
			ours.Count = max(ours.Count, theirs.Count)
			if theirs.Timestamp.After(ours.Timestamp) {
				ours.Timestamp = theirs.Timestamp
			}
			continue
		}
		cp := *theirs
		c.History = append(c.History, &cp)
		index[k] = &cp
	}
	SortHistory(c.History)
	c.trimHistory()

	for cmd, n := range other.Frequency {
		c.Frequency[cmd] = max(c.Frequency[cmd], n)
	}

	if other.LastRefreshed.After(c.LastRefreshed) {
		c.Commands = other.Commands
		c.Aliases = other.Aliases
		c.LastRefreshed = other.LastRefreshed
		c.reindex()
	}

	if !c.prefSet {
		c.HistoryEnabled = other.HistoryEnabled
	}
}

// SortHistory orders events most recent first, breaking ties by pair so the
// order is stable across runs.
func SortHistory(events []*HistoryEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if a.Typo != b.Typo {
			return a.Typo < b.Typo
		}
		return a.Correction < b.Correction
	})
}
