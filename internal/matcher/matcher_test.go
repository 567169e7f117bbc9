package matcher

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"nudge/internal/alias"
	"nudge/internal/shell"
	"nudge/internal/store"
)

func newCache(commands ...string) *store.Cache {
	c := store.NewCache()
	c.SetCommandSet(commands, nil)
	return c
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"git", "git", 1},
		{"", "", 1},
		{"gti", "git", 1 - 1.0/3},
		{"dokcer", "docker", 1 - 1.0/6},
		{"sttaus", "status", 1 - 1.0/6},
		{"Git", "git", 1},
		{"abc", "", 0},
		{"kubectl", "kubectx", 1 - 1.0/7},
	}
	for _, tt := range tests {
		got := Similarity(tt.a, tt.b)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	words := []string{"git", "gti", "docker", "dcoker", "cargo", "crago", "kubectl", "", "ñandú", "nandu"}
	for _, a := range words {
		for _, b := range words {
			if Similarity(a, b) != Similarity(b, a) {
				t.Errorf("Similarity(%q,%q)=%v but Similarity(%q,%q)=%v",
					a, b, Similarity(a, b), b, a, Similarity(b, a))
			}
		}
	}
}

func TestBestMatchFuzzy(t *testing.T) {
	e := New(newCache("git", "cargo", "docker"))

	tests := []struct {
		in, want string
	}{
		{"gti", "git"},
		{"dokcer", "docker"},
		{"carg", "cargo"},
		{"crago", "cargo"},
	}
	for _, tt := range tests {
		s := e.BestMatch(tt.in)
		if s.Kind != KindFuzzy || s.Value != tt.want {
			t.Errorf("BestMatch(%q) = %+v, want fuzzy %q", tt.in, s, tt.want)
		}
		if s.Similarity < DefaultThreshold {
			t.Errorf("BestMatch(%q) similarity %.2f below threshold", tt.in, s.Similarity)
		}
	}
}

func TestBestMatchKnown(t *testing.T) {
	c := newCache("git", "docker")
	c.SetCommandSet([]string{"git", "docker"}, []alias.Alias{{Name: "gs", Command: "git status", Shell: shell.Bash}})
	e := New(c)

	for _, in := range []string{"git", "docker", "gs"} {
		if s := e.BestMatch(in); s.Kind != KindKnown || s.Found() {
			t.Errorf("BestMatch(%q) = %+v, want known", in, s)
		}
	}
}

func TestBestMatchLearnedWins(t *testing.T) {
	// "gtir" is closer to "gti" than "git" is, so fuzzy search alone
	// would pick it.
	c := newCache("git", "gtir")
	if fuzzy := New(c).BestMatch("gti"); fuzzy.Value != "gtir" {
		t.Fatalf("fixture: fuzzy match = %q, want gtir", fuzzy.Value)
	}

	c.Learn("gti", "git", time.Now())
	s := New(c).BestMatch("gti")
	if s.Kind != KindLearned || s.Value != "git" {
		t.Errorf("BestMatch(gti) = %+v, want learned git", s)
	}
	if s.Annotation() != "learned correction" {
		t.Errorf("annotation = %q", s.Annotation())
	}

	c.Learn("gti", "git", time.Now())
	if got := New(c).BestMatch("gti").Annotation(); got != "learned correction, used 2×" {
		t.Errorf("annotation = %q", got)
	}
}

func TestBestMatchBelowThreshold(t *testing.T) {
	e := New(newCache("git", "cargo", "docker"))
	for _, in := range []string{"xyzzy", "q", "kubernetes"} {
		s := e.BestMatch(in)
		if s.Found() {
			t.Errorf("BestMatch(%q) = %+v, want nothing", in, s)
		}
		if s.Kind != KindNone {
			t.Errorf("kind = %v, want none", s.Kind)
		}
	}
}

func TestBestMatchNeverBelowThreshold(t *testing.T) {
	commands := []string{"ab", "abc", "abcd", "abcde", "xbcde", "vim", "vi", "cat", "bat"}
	e := New(newCache(commands...))
	inputs := []string{"a", "abd", "bcd", "xx", "vmi", "ca", "abcdef", "bta"}
	for _, in := range inputs {
		s := e.BestMatch(in)
		if s.Found() && Similarity(in, s.Value) < DefaultThreshold {
			t.Errorf("BestMatch(%q) returned %q at %.2f", in, s.Value, Similarity(in, s.Value))
		}
	}
}

func TestBestMatchTieBreaks(t *testing.T) {
	t.Run("frequency", func(t *testing.T) {
		c := newCache("cat", "bat")
		c.Frequency["bat README.md"] = 5
		c.Frequency["cat notes"] = 1
		s := New(c).BestMatch("aat")
		if s.Value != "bat" {
			t.Errorf("got %q, want bat (more frequent)", s.Value)
		}
		if s.Uses != 5 {
			t.Errorf("uses = %d, want 5", s.Uses)
		}
	})

	t.Run("shorter", func(t *testing.T) {
		// both score 0.75 against "abcd"; lexical order alone would pick abca
		c := newCache("abca", "bcd")
		if s := New(c).BestMatch("abcd"); s.Value != "bcd" {
			t.Errorf("got %q, want shorter bcd", s.Value)
		}
	})

	t.Run("lexical", func(t *testing.T) {
		c := newCache("nab", "mab")
		for i := 0; i < 20; i++ {
			if s := New(c).BestMatch("lab"); s.Value != "mab" {
				t.Fatalf("run %d: got %q, want mab", i, s.Value)
			}
		}
	})
}

func TestBestMatchAlias(t *testing.T) {
	c := store.NewCache()
	c.SetCommandSet([]string{"git"}, []alias.Alias{{Name: "gst", Command: "git status", Shell: shell.Zsh}})
	s := New(c).BestMatch("gsst")

	if s.Kind != KindAlias || s.Value != "gst" {
		t.Fatalf("BestMatch(gsst) = %+v, want alias gst", s)
	}
	if got := s.Annotation(); got != "alias for git status (Zsh)" {
		t.Errorf("annotation = %q", got)
	}
}

func TestParallelScanMatchesSerial(t *testing.T) {
	var commands []string
	for i := 0; i < 3000; i++ {
		commands = append(commands, fmt.Sprintf("tool%04d", i))
	}
	commands = append(commands, "terraform", "terragrunt", "tmux", "tree")
	c := newCache(commands...)
	c.Frequency["tool0042 --help"] = 3

	serial := New(c, WithWorkers(1))
	parallel := New(c, WithWorkers(8), WithParallelThreshold(16))

	for _, in := range []string{"terrafrom", "tool042", "tol0042", "tmxu", "tre", "zzzzzz"} {
		a, b := serial.BestMatch(in), parallel.BestMatch(in)
		if a != b {
			t.Errorf("BestMatch(%q): serial %+v, parallel %+v", in, a, b)
		}
	}
}

func TestLearnedLookupIndependentOfSize(t *testing.T) {
	var commands []string
	for i := 0; i < 20000; i++ {
		commands = append(commands, "cmd"+strings.Repeat("x", i%7)+fmt.Sprint(i))
	}
	c := newCache(commands...)
	c.Learn("gti", "git", time.Now())
	e := New(c)

	// A learned hit returns before any candidate is scored; with 20k
	// candidates a scan would be orders of magnitude slower.
	start := time.Now()
	for i := 0; i < 1000; i++ {
		if s := e.BestMatch("gti"); s.Kind != KindLearned {
			t.Fatalf("got %+v", s)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("1000 learned lookups took %v", elapsed)
	}
}

func TestClosest(t *testing.T) {
	vocab := []string{"status", "stash", "show", "switch"}

	got, score, ok := Closest("sttaus", vocab, DefaultThreshold)
	if !ok || got != "status" {
		t.Errorf("Closest(sttaus) = %q, %v, %v", got, score, ok)
	}

	if _, _, ok := Closest("zzz", vocab, DefaultThreshold); ok {
		t.Error("Closest(zzz) should find nothing")
	}
}

func TestAnnotationFuzzy(t *testing.T) {
	s := Suggestion{Kind: KindFuzzy, Similarity: 0.833, Uses: 4}
	if got := s.Annotation(); got != "83% match, run 4×" {
		t.Errorf("annotation = %q", got)
	}
}

func BenchmarkSimilarity(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Similarity("kubeclt", "kubectl")
	}
}

func benchmarkBestMatch(b *testing.B, opts ...Option) {
	var commands []string
	for i := 0; i < 5000; i++ {
		commands = append(commands, fmt.Sprintf("cmd%04d", i))
	}
	e := New(newCache(commands...), opts...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.BestMatch("cdm0042")
	}
}

func BenchmarkBestMatchSerial(b *testing.B) {
	benchmarkBestMatch(b, WithWorkers(1))
}

func BenchmarkBestMatchParallel(b *testing.B) {
	benchmarkBestMatch(b, WithWorkers(8), WithParallelThreshold(256))
}
