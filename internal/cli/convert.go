package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/phasemem/internal/clock"
	"github.com/roach88/phasemem/internal/convert"
	"github.com/roach88/phasemem/internal/model"
	"github.com/roach88/phasemem/internal/store"
)

// ConvertOptions holds flags for the conversion (root) command.
type ConvertOptions struct {
	*RootOptions
	ModelPath string
	Journal   string
	Elapse    time.Duration

	// Clock and IDs allow overriding time and run IDs (for testing).
	Clock clock.Clock
	IDs   convert.IDGenerator
}

func addConvertFlags(cmd *cobra.Command, opts *ConvertOptions) {
	cmd.Flags().StringVar(&opts.ModelPath, "model", "", "model constants file (.yaml, .yml or .cue)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "record the run in this SQLite journal")
	cmd.Flags().DurationVar(&opts.Elapse, "elapse", 0, "simulated time between encoding and reconstruction")
}

// loadModel returns the default model or the one in path.
func loadModel(path string) (model.Model, error) {
	if path == "" {
		return model.Default(), nil
	}
	return model.Load(path)
}

func runConvert(opts *ConvertOptions, input, output string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	m, err := loadModel(opts.ModelPath)
	if err != nil {
		return f.Fail("failed to load model", err)
	}
	if opts.ModelPath != "" {
		log.Debug("model loaded", "path", opts.ModelPath)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := convert.Run(ctx, convert.Options{
		Input:  input,
		Output: output,
		Level:  model.DefaultLevel,
		Model:  m,
		Clock:  opts.Clock,
		Elapse: opts.Elapse,
		IDs:    opts.IDs,
		Logger: log,
	})
	if err != nil {
		return f.Fail("conversion failed", err)
	}

	if opts.Journal != "" {
		if err := recordRun(ctx, opts.Journal, report); err != nil {
			return f.Fail("failed to record run", err)
		}
		log.Debug("run recorded", "journal", opts.Journal, "run_id", report.RunID)
	}

	return f.Success(report, func(w io.Writer) { printReport(w, f, report) })
}

func recordRun(ctx context.Context, path string, r *convert.Report) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer st.Close()

	return st.RecordRun(ctx, store.Run{
		ID:                r.RunID,
		CreatedAt:         r.StartedAt,
		InputPath:         r.Input,
		OutputPath:        r.Output,
		Width:             r.Width,
		Height:            r.Height,
		Channels:          r.Channels,
		Level:             r.Level,
		BaselineErrorRate: r.BaselineErrorRate,
		LifetimeSeconds:   r.LifetimeSeconds,
		ElapsedSeconds:    r.ElapsedSeconds,
		Protections:       r.Protections,
		DecoheredReads:    r.DecoheredReads,
		OutputSHA256:      r.OutputSHA256,
	})
}

func printReport(w io.Writer, f *OutputFormatter, r *convert.Report) {
	fmt.Fprintf(w, "Image loaded: %s (Width: %d, Height: %d, Channels: %d)\n", r.Input, r.Width, r.Height, r.Channels)
	fmt.Fprintf(w, "Reconstructed image saved to %s\n", r.Output)
	// Counts get thousands separators; large images run into the millions.
	message.NewPrinter(language.English).Fprintf(w, "Processed %d pixels at level %d (protections: %d, decohered reads: %d)\n",
		r.Pixels, r.Level, r.Protections, r.DecoheredReads)
	if r.Probe.Valid {
		fmt.Fprintf(w, "State at index %d: %.6f + %.6fi\n", r.Probe.Index, r.Probe.Real, r.Probe.Imag)
		fmt.Fprintf(w, "Current error rate at index %d: %.10e\n", r.Probe.Index, r.Probe.ErrorRate)
	} else {
		fmt.Fprintf(w, "State at index %d: out of range\n", r.Probe.Index)
	}
	f.VerboseLog("run %s sha256 %s", r.RunID, r.OutputSHA256)
}
