package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/phasemem/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Journal string
	Limit   int
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List conversions recorded in a journal",
		Long: `List runs recorded with --journal, newest first.

Examples:
  phasemem history --journal runs.db
  phasemem history --journal runs.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("journal")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to show (0 for all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Journal)
	if err != nil {
		return f.Fail("failed to open journal", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return f.Fail("failed to list runs", err)
	}

	return f.Success(runs, func(w io.Writer) { printHistory(w, runs) })
}

func printHistory(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tCREATED\tINPUT\tOUTPUT\tSIZE\tLEVEL\tELAPSED\tPROTECTIONS\tDECOHERED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%dx%d\t%d\t%s\t%d\t%d\n",
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.InputPath,
			r.OutputPath,
			r.Width, r.Height,
			r.Level,
			time.Duration(r.ElapsedSeconds*float64(time.Second)),
			r.Protections,
			r.DecoheredReads,
		)
	}
	tw.Flush()
}
