package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"nudge/internal/config"
	"nudge/internal/middleware"
	"nudge/internal/shell"
	"nudge/internal/suggest"
	"nudge/internal/ui"
)

// mode is one of the mutually exclusive flags that replace the default
// correction behaviour.
type mode struct {
	flag  string
	usage string
	args  cobra.PositionalArgs
	run   func(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("unexpected arguments %q", args)
	}
	return nil
}

func minArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("requires at least %d argument(s), got %d", n, len(args))
		}
		return nil
	}
}

var modes = []mode{
	{flag: "check-command", usage: "print the corrected command line, if any", args: minArgs(1), run: checkCommand},
	{flag: "suggest-completion", usage: "complete the word being typed", args: minArgs(1), run: suggestCompletion},
	{flag: "suggest-full-completion", usage: "complete the whole command line", args: minArgs(1), run: suggestFullCompletion},
	{flag: "suggest-frequent-command", usage: "print the most frequent command starting with the input", args: minArgs(1), run: suggestFrequent},
	{flag: "record-correction", usage: "record that <typo> was corrected to <correction>", args: minArgs(2), run: recordCorrection},
	{flag: "record-valid-command", usage: "count a command line that ran successfully", args: minArgs(1), run: recordValidCommand},
	{flag: "learn-correction", usage: "teach that <typo> means <correction>", args: minArgs(2), run: learnCorrection},
	{flag: "reset_cache", usage: "rebuild the command index, keeping learned corrections", args: noArgs, run: resetCache},
	{flag: "reset_memory", usage: "forget everything and rebuild the command index", args: noArgs, run: resetMemory},
	{flag: "history", usage: "show recent corrections", args: noArgs, run: showHistory},
	{flag: "frequent-typos", usage: "show the most frequent typos", args: noArgs, run: showFrequentTypos},
	{flag: "frequent-corrections", usage: "show the most frequent corrections", args: noArgs, run: showFrequentCorrections},
	{flag: "clear-history", usage: "delete recorded corrections", args: noArgs, run: clearHistory},
	{flag: "enable-history", usage: "start recording corrections", args: noArgs, run: enableHistory},
	{flag: "disable-history", usage: "stop recording corrections", args: noArgs, run: disableHistory},
	{flag: "suggest", usage: "recommend an alias for a command you often mistype", args: noArgs, run: suggestAlias},
	{flag: "export-completions", usage: "print (or write to [path]) a completion script", args: cobra.MaximumNArgs(1), run: exportCompletions},
}

// line joins arguments back into one command line. A single argument is
// kept verbatim so a trailing space survives.
func line(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return strings.Join(args, " ")
}

// closeService saves and releases the store. A save failure is reported
// after whatever the mode already printed.
func closeService(cmd *cobra.Command, svc *suggest.Service, err error) error {
	if cerr := svc.Close(cmd.Context()); cerr != nil {
		return fail(cerr)
	}
	return err
}

// query runs a read-only lookup that prints one line on success.
func query(a *app, cmd *cobra.Command, cfg *config.Config, f func(*suggest.Service) (string, error)) (err error) {
	svc, err := a.open(cmd.Context(), cfg)
	if err != nil {
		return fail(err)
	}
	defer func() { err = closeService(cmd, svc, err) }()

	out, err := f(svc)
	if errors.Is(err, suggest.ErrNoSuggestion) {
		return exitWith(ExitNone)
	}
	if err != nil {
		return fail(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func checkCommand(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return query(a, cmd, cfg, func(s *suggest.Service) (string, error) {
		return s.CheckCommand(strings.Fields(line(args)))
	})
}

func suggestCompletion(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return query(a, cmd, cfg, func(s *suggest.Service) (string, error) {
		return s.SuggestCompletion(line(args))
	})
}

func suggestFullCompletion(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return query(a, cmd, cfg, func(s *suggest.Service) (string, error) {
		return s.SuggestFullCompletion(line(args))
	})
}

func suggestFrequent(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return query(a, cmd, cfg, func(s *suggest.Service) (string, error) {
		return s.SuggestFrequentCommand(line(args))
	})
}

// record runs a best-effort write. Failures are logged and never change
// the exit code.
func record(a *app, cmd *cobra.Command, cfg *config.Config, f func(*suggest.Service)) error {
	err := middleware.SafeCall(func() error {
		svc, err := a.open(cmd.Context(), cfg, suggest.WithoutRefresh())
		if err != nil {
			return err
		}
		f(svc)
		return svc.Close(cmd.Context())
	})
	if err != nil {
		logCmd().Debug("record failed", "error", err)
	}
	return nil
}

func recordCorrection(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return record(a, cmd, cfg, func(s *suggest.Service) {
		s.RecordCorrection(args[0], strings.Join(args[1:], " "))
	})
}

func recordValidCommand(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return record(a, cmd, cfg, func(s *suggest.Service) {
		s.RecordValidCommand(line(args))
	})
}

// mutate opens the service, applies f and saves. Any failure exits 2.
func mutate(a *app, cmd *cobra.Command, cfg *config.Config, refresh bool, f func(*suggest.Service) error) (err error) {
	var opts []suggest.Option
	if !refresh {
		opts = append(opts, suggest.WithoutRefresh())
	}
	svc, err := a.open(cmd.Context(), cfg, opts...)
	if err != nil {
		return fail(err)
	}
	defer func() { err = closeService(cmd, svc, err) }()

	if err := f(svc); err != nil {
		return fail(err)
	}
	return nil
}

func learnCorrection(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		return s.Learn(args[0], strings.Join(args[1:], " "))
	})
}

func resetCache(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		err := ui.RunWithSpinner(cmd.ErrOrStderr(), a.animate(), "Rebuilding command index...", func() error {
			return s.ResetCache(cmd.Context())
		})
		if err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d commands indexed\n", ui.Green("✓"), len(s.Cache().Commands))
		}
		return err
	})
}

func resetMemory(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		err := ui.RunWithSpinner(cmd.ErrOrStderr(), a.animate(), "Forgetting everything...", func() error {
			return s.ResetMemory(cmd.Context())
		})
		if err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s memory cleared, %d commands indexed\n", ui.Green("✓"), len(s.Cache().Commands))
		}
		return err
	})
}

func (a *app) tableOptions() ui.TableOptions {
	return ui.TableOptions{MaxCell: max(a.width()/3, 12)}
}

func showHistory(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		fmt.Fprintln(cmd.OutOrStdout(), ui.HistoryTable(s.History(a.opts.limit), a.tableOptions()))
		if !s.HistoryEnabled() {
			fmt.Fprintln(cmd.ErrOrStderr(), ui.Muted("history recording is disabled"))
		}
		return nil
	})
}

func showFrequentTypos(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		fmt.Fprintln(cmd.OutOrStdout(), ui.RankedTable("Typo", s.FrequentTypos(a.opts.limit), a.tableOptions()))
		return nil
	})
}

func showFrequentCorrections(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		fmt.Fprintln(cmd.OutOrStdout(), ui.RankedTable("Correction", s.FrequentCorrections(a.opts.limit), a.tableOptions()))
		return nil
	})
}

func clearHistory(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		s.ClearHistory()
		fmt.Fprintf(cmd.ErrOrStderr(), "%s history cleared\n", ui.Green("✓"))
		return nil
	})
}

func setHistory(a *app, cmd *cobra.Command, cfg *config.Config, on bool) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		s.SetHistoryEnabled(on)
		state := "disabled"
		if on {
			state = "enabled"
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s history %s\n", ui.Green("✓"), state)
		return nil
	})
}

func enableHistory(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return setHistory(a, cmd, cfg, true)
}

func disableHistory(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return setHistory(a, cmd, cfg, false)
}

func suggestAlias(a *app, cmd *cobra.Command, cfg *config.Config, _ []string) error {
	return mutate(a, cmd, cfg, false, func(s *suggest.Service) error {
		sug, err := s.SuggestAlias()
		if errors.Is(err, suggest.ErrNoSuggestion) {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Muted("No alias suggestions yet. Keep typing!"))
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.AliasHint(sug, a.width()))
		return nil
	})
}

func exportCompletions(a *app, cmd *cobra.Command, cfg *config.Config, args []string) error {
	sh := shell.Detect()
	if a.opts.shell != "" {
		parsed, ok := shell.Parse(a.opts.shell)
		if !ok {
			return fail(fmt.Errorf("unknown shell %q", a.opts.shell))
		}
		sh = parsed
	}
	return mutate(a, cmd, cfg, true, func(s *suggest.Service) error {
		if len(args) == 0 {
			return s.ExportCompletions(cmd.OutOrStdout(), sh)
		}
		if err := s.WriteCompletions(args[0], sh); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s completions written to %s\n", ui.Green("✓"), sh.Title(), args[0])
		return nil
	})
}
