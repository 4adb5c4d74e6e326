package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/phasemem/internal/clock"
	"github.com/roach88/phasemem/internal/imaging"
	"github.com/roach88/phasemem/internal/model"
	"github.com/roach88/phasemem/internal/statebuf"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	ModelPath string
	Elapse    time.Duration
	Index     int
	Count     int

	// Clock allows overriding the time source (for testing).
	Clock clock.Clock
}

// SlotView is one inspected slot.
type SlotView struct {
	Index      int     `json:"index"`
	StoredReal float64 `json:"stored_real"`
	StoredImag float64 `json:"stored_imag"`
	ErrorRate  float64 `json:"error_rate"`
	AgeSeconds float64 `json:"age_seconds"`
	ReadReal   float64 `json:"read_real"`
	ReadImag   float64 `json:"read_imag"`
	Decohered  bool    `json:"decohered"`
}

// InspectResult is the inspect command's output.
type InspectResult struct {
	Input             string     `json:"input"`
	Width             int        `json:"width"`
	Height            int        `json:"height"`
	Channels          int        `json:"channels"`
	Level             int        `json:"level"`
	BaselineErrorRate float64    `json:"baseline_error_rate"`
	LifetimeSeconds   float64    `json:"lifetime_seconds"`
	ElapsedSeconds    float64    `json:"elapsed_seconds"`
	Slots             []SlotView `json:"slots"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <input_image>",
		Short: "Show per-slot buffer state for an image",
		Long: `Load an image into a state buffer (level 3) and print the state of a range
of slots: the stored (rotated) amplitude, the current error rate, and the
value a read returns.

Error rate and stored amplitude are sampled before the read, since a read
may apply a protection rotation.

Examples:
  phasemem inspect in.png
  phasemem inspect in.png --index 100 --count 8 --elapse 9h`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ModelPath, "model", "", "model constants file (.yaml, .yml or .cue)")
	cmd.Flags().DurationVar(&opts.Elapse, "elapse", 0, "simulated time before inspecting")
	cmd.Flags().IntVar(&opts.Index, "index", 0, "first slot to show")
	cmd.Flags().IntVar(&opts.Count, "count", 4, "number of slots to show")

	return cmd
}

func runInspect(opts *InspectOptions, input string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	log := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	if opts.Index < 0 || opts.Count < 0 {
		return f.Fail("invalid range", fmt.Errorf("index and count must be non-negative (index=%d, count=%d)", opts.Index, opts.Count))
	}

	m, err := loadModel(opts.ModelPath)
	if err != nil {
		return f.Fail("failed to load model", err)
	}

	samples, err := imaging.LoadFile(input)
	if err != nil {
		return f.Fail("failed to load image", err)
	}
	log.Info("image loaded", "path", input, "width", samples.Width, "height", samples.Height, "channels", samples.Channels)

	clk := clock.NewOffset(opts.Clock)
	buf, err := imaging.LoadToBuffer(samples, model.DefaultLevel, statebuf.WithClock(clk), statebuf.WithModel(m))
	if err != nil {
		return f.Fail("failed to seed buffer", err)
	}
	defer buf.Destroy()

	clk.Advance(opts.Elapse)

	result := InspectResult{
		Input:             input,
		Width:             samples.Width,
		Height:            samples.Height,
		Channels:          samples.Channels,
		Level:             int(buf.Level()),
		BaselineErrorRate: buf.BaselineErrorRate(),
		LifetimeSeconds:   buf.Lifetime().Seconds(),
		ElapsedSeconds:    clk.Elapsed().Seconds(),
		Slots:             []SlotView{},
	}

	end := min(opts.Index+opts.Count, buf.Size())
	for i := opts.Index; i < end; i++ {
		view, err := inspectSlot(buf, i, clk.Now())
		if err != nil {
			return f.Fail("failed to inspect slot", err)
		}
		result.Slots = append(result.Slots, view)
	}
	if end <= opts.Index && opts.Count > 0 {
		log.Warn("no slots in range", "index", opts.Index, "size", buf.Size())
	}

	return f.Success(result, func(w io.Writer) { printInspect(w, result) })
}

func inspectSlot(buf *statebuf.Buffer, i int, now time.Time) (SlotView, error) {
	rec, err := buf.Snapshot(i)
	if err != nil {
		return SlotView{}, err
	}
	rate, err := buf.ErrorRateAt(i)
	if err != nil {
		return SlotView{}, err
	}
	age := now.Sub(rec.LastAccess).Seconds()

	v, err := buf.Read(i)
	if err != nil {
		return SlotView{}, err
	}

	return SlotView{
		Index:      i,
		StoredReal: real(rec.Amplitude),
		StoredImag: imag(rec.Amplitude),
		ErrorRate:  rate,
		AgeSeconds: age,
		ReadReal:   real(v),
		ReadImag:   imag(v),
		Decohered:  age > rec.Lifetime,
	}, nil
}

func printInspect(w io.Writer, r InspectResult) {
	fmt.Fprintf(w, "Image: %s (Width: %d, Height: %d, Channels: %d)\n", r.Input, r.Width, r.Height, r.Channels)
	fmt.Fprintf(w, "Level %d, baseline error rate %.10e, lifetime %.1fs, elapsed %.1fs\n",
		r.Level, r.BaselineErrorRate, r.LifetimeSeconds, r.ElapsedSeconds)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tSTORED\tERROR RATE\tREAD\tSTATE")
	for _, s := range r.Slots {
		state := "coherent"
		if s.Decohered {
			state = "decohered"
		}
		fmt.Fprintf(tw, "%d\t%.6f%+.6fi\t%.4e\t%.6f%+.6fi\t%s\n",
			s.Index, s.StoredReal, s.StoredImag, s.ErrorRate, s.ReadReal, s.ReadImag, state)
	}
	tw.Flush()
}
