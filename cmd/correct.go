package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"nudge/internal/config"
	"nudge/internal/suggest"
	"nudge/internal/ui"
)

// correct is the default mode: resolve a command line that failed, ask
// the user and print the accepted line for the hook to run.
func (a *app) correct(cmd *cobra.Command, cfg *config.Config, args []string) (err error) {
	tokens := strings.Fields(line(args))
	if len(tokens) == 0 {
		return fail(errors.New("empty command line"))
	}

	svc, err := a.open(cmd.Context(), cfg)
	if err != nil {
		return fail(err)
	}
	defer func() { err = closeService(cmd, svc, err) }()

	errOut := cmd.ErrOrStderr()
	res := svc.Resolve(tokens)
	if !res.Found() {
		fmt.Fprintf(errOut, "nudge: command not found: %s\n", tokens[0])
		return exitWith(ExitNotFound)
	}

	q := ui.Question{Input: strings.Join(tokens, " "), Line: res.Line(), Note: res.Annotation()}
	if !a.interactive() {
		msg := fmt.Sprintf("nudge: did you mean %s?", ui.Command(q.Line))
		if q.Note != "" {
			msg += " " + ui.Muted("("+q.Note+")")
		}
		fmt.Fprintln(errOut, msg)
		return exitWith(ExitNone)
	}

	ans, err := a.prompter.Ask(q)
	if err != nil {
		return fail(fmt.Errorf("prompt failed: %w", err))
	}
	logCmd().Debug("answered", "choice", ans.Choice)

	switch ans.Choice {
	case ui.ChoiceAccept:
		fmt.Fprintln(cmd.OutOrStdout(), res.Line())
		if a.opts.copy {
			if err := clipboard.WriteAll(res.Line()); err != nil {
				fmt.Fprintf(errOut, "%s\n", ui.Yellowf("nudge: failed to copy to clipboard: %v", err))
			}
		}
		if typo, fixed := res.Typo(), res.Correction(); fixed != "" {
			a.recordInBackground(svc, typo, fixed)
		}
		return nil
	case ui.ChoiceTeach:
		if err := svc.Learn(res.Typo(), ans.Teach); err != nil {
			return fail(err)
		}
		fmt.Fprintf(errOut, "%s learned %s → %s\n", ui.Green("✓"), res.Typo(), ans.Teach)
		return exitWith(ExitNone)
	default:
		return exitWith(ExitNone)
	}
}

// recordInBackground hands the correction to a detached nudge process so
// the prompt returns immediately. If the child cannot start, the record
// is written with this invocation's save instead.
func (a *app) recordInBackground(svc *suggest.Service, typo, correction string) {
	var args []string
	if a.opts.cfgFile != "" {
		args = append(args, "--config", a.opts.cfgFile)
	}
	args = append(args, "--record-correction", typo, correction)

	if err := a.spawn(args...); err != nil {
		logCmd().Debug("background record unavailable", "error", err)
		svc.RecordCorrection(typo, correction)
	}
}
