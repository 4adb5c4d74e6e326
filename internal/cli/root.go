package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the phasemem command. Run with two arguments it
// converts an image; the inspect and history subcommands hang off it.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	return newRootCommand(opts, &ConvertOptions{RootOptions: opts})
}

// newRootCommand builds the command tree around caller-supplied options so
// tests can inject a clock and run IDs.
func newRootCommand(opts *RootOptions, convOpts *ConvertOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phasemem <input_image> <output_image>",
		Short: "Round-trip an image through a decaying phase-encoded state buffer",
		Long: `phasemem stores each pixel's red/green pair as a complex amplitude in a
state buffer, rotated by a protection-level-dependent phase, then reads the
buffer back into a PNG. Slots decay over time: once a slot outlives its
coherence lifetime it reads back as zero.

The protection level is fixed at 3.

Examples:
  phasemem in.png out.png
  phasemem --elapse 8h in.jpg out.png
  phasemem --model model.cue --journal runs.db in.png out.png --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitFailure, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(convOpts, args[0], args[1], cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	addConvertFlags(cmd, convOpts)

	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger builds the structured logger commands hand to the packages
// they drive. Verbose lowers the level to Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
