package suggest

import (
	"context"
	"os"

	"nudge/internal/alias"
	"nudge/internal/config"
	"nudge/internal/discovery"
	"nudge/internal/logger"
	"nudge/internal/shell"
)

// SystemIndexer discovers executables on PATH and aliases in shell files.
type SystemIndexer struct {
	index   *discovery.Index
	dirs    []string
	sources []alias.Source
}

// NewSystemIndexer builds an indexer for the current user and shell. Extra
// alias files from cfg are read after the defaults, so they win.
func NewSystemIndexer(cfg *config.Config) *SystemIndexer {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.With("suggest").Debug("no home directory; shell files skipped", "error", err)
	}

	var sources []alias.Source
	if home != "" {
		sources = alias.DefaultSources(home, shell.Detect())
	}
	for _, f := range cfg.Aliases.Files {
		sh, ok := shell.Parse(f.Shell)
		if !ok {
			logger.With("suggest").Debug("alias file with unknown shell skipped", "path", f.Path, "shell", f.Shell)
			continue
		}
		sources = append(sources, alias.Source{Path: f.Path, Shell: sh})
	}

	return &SystemIndexer{
		index:   discovery.New(discovery.WithWorkers(cfg.Matching.Workers)),
		dirs:    discovery.SearchPath(),
		sources: sources,
	}
}

// Executables scans the search path
func (i *SystemIndexer) Executables(ctx context.Context) []string {
	return i.index.Scan(ctx, i.dirs)
}

// Aliases reads every alias source
func (i *SystemIndexer) Aliases(ctx context.Context) []alias.Alias {
	if ctx.Err() != nil {
		return nil
	}
	return alias.Load(i.sources)
}
