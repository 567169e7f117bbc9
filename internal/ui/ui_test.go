package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"nudge/internal/history"
	"nudge/internal/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestHistoryTable(t *testing.T) {
	events := []store.HistoryEvent{
		{Typo: "gti", Correction: "git", Count: 3, Timestamp: epoch.Add(-2 * time.Hour)},
		{Typo: "sl", Correction: "ls", Count: 1, Timestamp: epoch.Add(-3 * 24 * time.Hour)},
	}
	out := HistoryTable(events, TableOptions{Now: epoch})

	for _, want := range []string{"Typo", "Correction", "Last seen", "gti", "git", "2 hours ago", "3 days ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "gti") > strings.Index(out, "sl") {
		t.Errorf("rows reordered:\n%s", out)
	}
}

func TestHistoryTableEmpty(t *testing.T) {
	out := HistoryTable(nil, TableOptions{})
	if !strings.Contains(out, "No corrections") {
		t.Errorf("got %q", out)
	}
}

func TestRankedTableTruncates(t *testing.T) {
	long := "kubectl get pods --all-namespaces --output wide"
	out := RankedTable("Correction", []history.Ranked{
		{Value: long, Count: 12, Last: epoch},
	}, TableOptions{MaxCell: 16, Now: epoch})

	if strings.Contains(out, long) {
		t.Errorf("cell not truncated:\n%s", out)
	}
	if !strings.Contains(out, "…") || !strings.Contains(out, "kubectl get") {
		t.Errorf("unexpected truncation:\n%s", out)
	}
	if !strings.Contains(out, "12") {
		t.Errorf("count missing:\n%s", out)
	}
}

func TestAliasHint(t *testing.T) {
	out := AliasHint(history.AliasSuggestion{Name: "gs", Command: "git status", Count: 1200}, 40)
	if !strings.Contains(out, "alias gs='git status'") {
		t.Errorf("alias line missing:\n%s", out)
	}
	if !strings.Contains(out, "1,200 times") {
		t.Errorf("count not humanized:\n%s", out)
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "You") && len(line) > 40 {
			t.Errorf("line not wrapped: %q", line)
		}
	}
}

func TestRunWithSpinnerPlain(t *testing.T) {
	want := errors.New("boom")
	calls := 0
	err := RunWithSpinner(nil, false, "working", func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 1 {
		t.Fatalf("got err %v after %d calls", err, calls)
	}
}

func TestChoiceString(t *testing.T) {
	tests := map[Choice]string{
		ChoiceAccept:  "accept",
		ChoiceDecline: "decline",
		ChoiceTeach:   "teach",
	}
	for c, want := range tests {
		if got := c.String(); got != want {
			t.Errorf("%d: got %q, want %q", c, got, want)
		}
	}
}
