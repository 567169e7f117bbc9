// Package cmd implements the nudge command line.
//
// The shell hooks talk to nudge through flags, arguments, stdout and the
// exit code; everything meant for a human goes to stderr.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"nudge/internal/config"
	"nudge/internal/logger"
	"nudge/internal/suggest"
	"nudge/internal/ui"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
	// Commit is set during build
	Commit = "unknown"
)

// Exit codes understood by the shell hooks.
const (
	ExitOK       = 0
	ExitNone     = 1
	ExitFailure  = 2
	ExitNotFound = 127
)

// exitError carries an exit code up to Execute. A nil err exits silently.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int) error { return &exitError{code: code} }

func fail(err error) error { return &exitError{code: ExitFailure, err: err} }

// exitCode maps a command error onto the process exit status. Errors that
// are not exitErrors come from cobra itself: bad flags or arguments.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitFailure
}

type options struct {
	cfgFile string
	debug   bool
	limit   int
	shell   string
	copy    bool

	modes map[string]*bool
}

// app holds everything a run needs from the outside world so tests can
// replace it.
type app struct {
	opts options

	interactive func() bool
	animate     func() bool
	width       func() int
	prompter    ui.Prompter
	spawn       func(args ...string) error
	openOpts    []suggest.Option
}

func newApp() *app {
	return &app{
		interactive: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
		},
		animate: func() bool {
			return term.IsTerminal(int(os.Stderr.Fd()))
		},
		width: func() int {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
				return w
			}
			return 80
		},
		prompter: ui.FormPrompter{In: os.Stdin, Out: os.Stderr},
		spawn:    spawnDetached,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "nudge [flags] <command-line>",
		Short: "Fix mistyped shell commands",
		Long: `nudge suggests the command you meant when the one you typed does not exist,
corrects subcommands and flags of well-known tools, and learns from the
corrections you accept.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}

	f := root.Flags()
	f.SetInterspersed(false)
	f.SetNormalizeFunc(dashedResetFlags)
	f.StringVar(&a.opts.cfgFile, "config", "", "config file (default is $HOME/.config/nudge/config.yaml)")
	f.BoolVarP(&a.opts.debug, "debug", "d", false, "log debug output to stderr")
	f.IntVar(&a.opts.limit, "limit", 10, "rows shown by --history and the frequency views")
	f.StringVar(&a.opts.shell, "shell", "", "shell for --export-completions (default is $SHELL)")
	f.BoolVarP(&a.opts.copy, "copy", "c", false, "also copy an accepted correction to the clipboard")

	a.opts.modes = make(map[string]*bool, len(modes))
	names := make([]string, 0, len(modes))
	for _, m := range modes {
		a.opts.modes[m.flag] = f.Bool(m.flag, false, m.usage)
		names = append(names, m.flag)
	}
	root.MarkFlagsMutuallyExclusive(names...)

	return root
}

// dashedResetFlags accepts --reset-cache and --reset-memory as spellings
// of the underscored reset flags.
func dashedResetFlags(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "reset-cache":
		return "reset_cache"
	case "reset-memory":
		return "reset_memory"
	}
	return pflag.NormalizedName(name)
}

// selected returns the mode picked on the command line, or nil for the
// default correction mode.
func (a *app) selected() *mode {
	for i := range modes {
		if *a.opts.modes[modes[i].flag] {
			return &modes[i]
		}
	}
	return nil
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.opts.cfgFile)
	if err != nil {
		return fail(err)
	}
	a.initLogger(cfg)

	m := a.selected()
	if m == nil {
		if len(args) == 0 {
			_ = cmd.Usage()
			return fail(errors.New("no command line given"))
		}
		return a.correct(cmd, cfg, args)
	}
	if err := m.args(cmd, args); err != nil {
		return fail(fmt.Errorf("--%s: %w", m.flag, err))
	}
	return m.run(a, cmd, cfg, args)
}

func (a *app) initLogger(cfg *config.Config) {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Logging.Level
	lc.File = cfg.Logging.File
	lc.MaxSize = cfg.Logging.MaxSize
	lc.MaxBackups = cfg.Logging.MaxBackups
	if a.opts.debug {
		lc.Level = "debug"
	}
	if err := logger.Initialize(lc); err != nil {
		fmt.Fprintf(os.Stderr, "nudge: logging disabled: %v\n", err)
	}
	if a.opts.debug {
		logger.Get().SetLevel(logger.DebugLevel)
	}
}

func logCmd() *logger.Logger { return logger.With("cmd") }

func (a *app) open(ctx context.Context, cfg *config.Config, extra ...suggest.Option) (*suggest.Service, error) {
	opts := append(append([]suggest.Option{}, a.openOpts...), extra...)
	return suggest.Open(ctx, cfg, opts...)
}

// Execute runs nudge with os.Args and returns the exit code.
func Execute() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Debug("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return execute(ctx, newApp(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func execute(ctx context.Context, a *app, args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	code := exitCode(err)
	var ee *exitError
	if err != nil && (!errors.As(err, &ee) || ee.err != nil) {
		fmt.Fprintf(errOut, "%s %v\n", ui.Red("nudge:"), err)
	}
	return code
}
