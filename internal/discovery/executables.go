// Package discovery finds runnable commands on the search path.
package discovery

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"nudge/internal/logger"
)

// maxLinkHops bounds symlink chains the same way the kernel's ELOOP does.
const maxLinkHops = 40

// Index scans directories for executables.
type Index struct {
	workers int
}

// Option configures an Index
type Option func(*Index)

// WithWorkers sets the number of directories scanned at once
func WithWorkers(n int) Option {
	return func(x *Index) {
		if n > 0 {
			x.workers = n
		}
	}
}

// New creates an Index
func New(opts ...Option) *Index {
	x := &Index{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// SearchPath returns the unique, non-empty entries of $PATH in order.
func SearchPath() []string {
	return splitPath(os.Getenv("PATH"))
}

func splitPath(pathEnv string) []string {
	seen := make(map[string]struct{})
	var dirs []string
	for _, d := range filepath.SplitList(pathEnv) {
		if d == "" {
			continue
		}
		d = filepath.Clean(d)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dirs = append(dirs, d)
	}
	return dirs
}

// Scan returns the sorted set of executable names found in dirs.
// Unreadable directories are skipped; Scan itself never fails.
func (x *Index) Scan(ctx context.Context, dirs []string) []string {
	log := logger.With("discovery")

	results := make([][]string, len(dirs))
	var wg sync.WaitGroup

	pool, err := ants.NewPool(x.workers)
	if err != nil {
		log.Debug("worker pool unavailable, scanning serially", "error", err)
		for i, d := range dirs {
			if ctx.Err() != nil {
				break
			}
			results[i] = scanDir(d)
		}
		return merge(results)
	}
	defer pool.Release()

	for i, d := range dirs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = scanDir(d)
		}); err != nil {
			wg.Done()
			results[i] = scanDir(d)
		}
	}
	wg.Wait()

	names := merge(results)
	log.Debug("executable scan complete", "dirs", len(dirs), "commands", len(names))
	return names
}

func merge(results [][]string) []string {
	set := make(map[string]struct{})
	for _, r := range results {
		for _, n := range r {
			set[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// scanDir lists one directory. Errors are logged and swallowed.
func scanDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("skipping search path entry", "dir", dir, "error", err)
		return nil
	}

	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		present[e.Name()] = struct{}{}
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)

		if e.Type()&fs.ModeSymlink != 0 {
			names = append(names, followChain(path)...)
			continue
		}

		info, err := e.Info()
		if err != nil || !isExecutable(info) {
			continue
		}
		names = append(names, name)
		names = append(names, twins(name, present)...)
	}
	return names
}

// followChain walks a symlink chain from path and returns every name on it.
// A chain that revisits a path stops there and keeps what it has seen. A
// chain that ends in a missing or non-executable file contributes nothing.
func followChain(path string) []string {
	visited := make(map[string]struct{})
	var names []string

	current := path
	for hop := 0; ; hop++ {
		abs, err := filepath.Abs(current)
		if err != nil {
			return nil
		}
		if _, seen := visited[abs]; seen || hop > maxLinkHops {
			return names
		}
		visited[abs] = struct{}{}
		names = append(names, filepath.Base(abs))

		info, err := os.Lstat(abs)
		if err != nil {
			return nil
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			if !isExecutable(info) {
				return nil
			}
			return names
		}

		target, err := os.Readlink(abs)
		if err != nil {
			return nil
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(abs), target)
		}
		current = target
	}
}

// twins returns the extra spelling an interpreter script contributes:
// "tool.py" also answers to "tool", and "tool" answers to "tool.py" when the
// .py file sits next to it.
func twins(name string, present map[string]struct{}) []string {
	if stem, ok := strings.CutSuffix(name, ".py"); ok && stem != "" {
		return []string{stem}
	}
	if filepath.Ext(name) == "" {
		if _, ok := present[name+".py"]; ok {
			return []string{name + ".py"}
		}
	}
	return nil
}

func isExecutable(info fs.FileInfo) bool {
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		switch strings.ToLower(filepath.Ext(info.Name())) {
		case ".exe", ".bat", ".cmd", ".com", ".ps1":
			return true
		}
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
