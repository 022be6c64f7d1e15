package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/enrollcheck/internal/config"
	"github.com/roach88/enrollcheck/internal/eventlog"
	"github.com/roach88/enrollcheck/internal/pipeline"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	ConfigFile        string
	Source            string
	Patterns          []string
	Interval          string
	OutputRoot        string
	EventOutput       bool
	GenerateBefore    bool
	RequireValidation bool
	ExpandDays        int
	Workers           int
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Reconcile enrollment events over an interval",
		Long: `Reconcile course enrollment events against validation snapshots.

Reads tracking logs for the given interval, groups enrollment events per
(course, user) key, and writes per-date files of the events that would
close every gap between observed and expected enrollment state.

Flags override matching values from --config.

Example:
  enrollcheck validate --source /var/log/tracking --interval 2013-09-01-2014-10-10 --output-root ./out
  enrollcheck validate --config enrollcheck.yaml --event-output`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")
	cmd.Flags().StringVar(&opts.Source, "source", "", "directory holding tracking log files")
	cmd.Flags().StringArrayVar(&opts.Patterns, "pattern", nil, "glob pattern selecting log files (repeatable)")
	cmd.Flags().StringVar(&opts.Interval, "interval", "", "analysis window: YYYY-MM-DD or YYYY-MM-DD-YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.OutputRoot, "output-root", "", "directory for synthesized output files")
	cmd.Flags().BoolVar(&opts.EventOutput, "event-output", false, "write full event documents instead of tuples")
	cmd.Flags().BoolVar(&opts.GenerateBefore, "generate-before", false, "synthesize events predating the interval")
	cmd.Flags().BoolVar(&opts.RequireValidation, "require-validation", false, "report keys with events but no validation")
	cmd.Flags().IntVar(&opts.ExpandDays, "expand-days", 1, "days to widen log-file selection beyond the interval")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "map/reduce worker count (0 = NumCPU)")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	setupLogging(opts.Verbose, cmd.ErrOrStderr())
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if err := mergeConfigFile(opts, cmd); err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Source == "" {
		formatter.Error(ErrCodeConfig, "a source directory is required (--source or config file)", nil)
		return NewExitError(ExitCommandError, "missing source directory")
	}
	if opts.OutputRoot == "" {
		formatter.Error(ErrCodeConfig, "an output root is required (--output-root or config file)", nil)
		return NewExitError(ExitCommandError, "missing output root")
	}

	interval, err := eventlog.ParseInterval(opts.Interval)
	if err != nil {
		formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid interval", err)
	}

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = []string{"*tracking.log*"}
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	summary, err := pipeline.Run(ctx, pipeline.Config{
		SourceRoot:        opts.Source,
		Patterns:          patterns,
		Interval:          interval,
		OutputRoot:        opts.OutputRoot,
		EventOutput:       opts.EventOutput,
		GenerateBefore:    opts.GenerateBefore,
		RequireValidation: opts.RequireValidation,
		ExpandDays:        opts.ExpandDays,
		Workers:           opts.Workers,
	})
	if err != nil {
		formatter.Error(ErrCodeRun, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation run failed", err)
	}

	return formatter.SuccessText(pipeline.DescribeSummary(summary), summary)
}

// mergeConfigFile fills options from the config file for every flag the
// user did not set explicitly.
func mergeConfigFile(opts *ValidateOptions, cmd *cobra.Command) error {
	if opts.ConfigFile == "" {
		return nil
	}
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("source") {
		opts.Source = cfg.Source
	}
	if !flags.Changed("pattern") && len(cfg.Patterns) > 0 {
		opts.Patterns = cfg.Patterns
	}
	if !flags.Changed("interval") && cfg.Interval != "" {
		opts.Interval = cfg.Interval
	}
	if !flags.Changed("output-root") {
		opts.OutputRoot = cfg.OutputRoot
	}
	if !flags.Changed("event-output") {
		opts.EventOutput = cfg.EventOutput
	}
	if !flags.Changed("generate-before") {
		opts.GenerateBefore = cfg.GenerateBefore
	}
	if !flags.Changed("require-validation") {
		opts.RequireValidation = cfg.RequireValidation
	}
	if !flags.Changed("expand-days") && cfg.ExpandDays > 0 {
		opts.ExpandDays = cfg.ExpandDays
	}
	if !flags.Changed("workers") {
		opts.Workers = cfg.Workers
	}
	return nil
}

// signalContext derives a context cancelled by SIGINT/SIGTERM so a
// long run can stop cleanly without leaving partial output files.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
