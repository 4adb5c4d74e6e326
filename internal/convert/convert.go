// Package convert runs the full image round trip: decode, seed a state
// buffer, optionally age it, reconstruct, encode, and report.
package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/roach88/phasemem/internal/clock"
	"github.com/roach88/phasemem/internal/imaging"
	"github.com/roach88/phasemem/internal/model"
	"github.com/roach88/phasemem/internal/statebuf"
)

// Options configures a conversion.
type Options struct {
	Input  string
	Output string

	// Level defaults to model.DefaultLevel when zero.
	Level model.Level

	// Model defaults to model.Default() when zero.
	Model model.Model

	// Clock defaults to clock.System.
	Clock clock.Clock

	// Elapse is simulated time inserted between seeding the buffer and
	// reading it back.
	Elapse time.Duration

	// ProbeIndex is the slot sampled after reconstruction.
	ProbeIndex int

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator

	// MaxSlots overrides statebuf.DefaultMaxSlots when positive.
	MaxSlots int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Probe is the state of one slot read after reconstruction.
type Probe struct {
	Index     int     `json:"index"`
	Real      float64 `json:"real"`
	Imag      float64 `json:"imag"`
	ErrorRate float64 `json:"error_rate"`
	Valid     bool    `json:"valid"`
}

// Report summarizes one conversion.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`

	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`
	Pixels   int `json:"pixels"`

	Level             int     `json:"level"`
	BaselineErrorRate float64 `json:"baseline_error_rate"`
	LifetimeSeconds   float64 `json:"lifetime_seconds"`
	ElapsedSeconds    float64 `json:"elapsed_seconds"`

	Protections    int64 `json:"protections"`
	DecoheredReads int64 `json:"decohered_reads"`

	Probe Probe `json:"probe"`

	// Mean and standard deviation of sqrt(r^2+g^2)/255 over output pixels.
	MeanMagnitude   float64 `json:"mean_magnitude"`
	StdDevMagnitude float64 `json:"stddev_magnitude"`

	OutputSHA256 string `json:"output_sha256"`
}

func (o *Options) applyDefaults() {
	if o.Level == 0 {
		o.Level = model.DefaultLevel
	}
	if o.Model == (model.Model{}) {
		o.Model = model.Default()
	}
	if o.Clock == nil {
		o.Clock = clock.System{}
	}
	if o.IDs == nil {
		o.IDs = UUIDv7Generator{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Run converts opts.Input into opts.Output.
//
// Decode, allocation and encode failures abort the run and are returned
// as-is so callers can inspect their codes. The buffer is always destroyed
// before Run returns.
func Run(ctx context.Context, opts Options) (*Report, error) {
	opts.applyDefaults()
	log := opts.Logger

	clk := clock.NewOffset(opts.Clock)
	report := &Report{
		RunID:     opts.IDs.Generate(),
		StartedAt: clk.Now().UTC(),
		Input:     opts.Input,
		Output:    opts.Output,
		Level:     int(opts.Level),
	}
	log = log.With("run_id", report.RunID)

	var decodeOpts []imaging.DecodeOption
	if opts.MaxSlots > 0 {
		decodeOpts = append(decodeOpts, imaging.WithMaxPixels(opts.MaxSlots))
	}
	in, err := imaging.LoadFile(opts.Input, decodeOpts...)
	if err != nil {
		return nil, err
	}
	log.Info("image loaded", "path", opts.Input, "width", in.Width, "height", in.Height, "channels", in.Channels)
	report.Width, report.Height, report.Channels = in.Width, in.Height, in.Channels
	report.Pixels = in.Pixels()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bufOpts := []statebuf.Option{
		statebuf.WithClock(clk),
		statebuf.WithModel(opts.Model),
	}
	if opts.MaxSlots > 0 {
		bufOpts = append(bufOpts, statebuf.WithMaxSlots(opts.MaxSlots))
	}
	buf, err := imaging.LoadToBuffer(in, opts.Level, bufOpts...)
	if err != nil {
		return nil, err
	}
	defer buf.Destroy()

	report.BaselineErrorRate = buf.BaselineErrorRate()
	report.LifetimeSeconds = buf.Lifetime().Seconds()
	log.Debug("buffer seeded", "slots", buf.Size(), "level", opts.Level, "lifetime", buf.Lifetime())

	if opts.Elapse > 0 {
		clk.Advance(opts.Elapse)
		log.Debug("simulated elapsed time", "elapse", opts.Elapse)
	}
	report.ElapsedSeconds = clk.Elapsed().Seconds()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := imaging.SaveFromBuffer(buf, in.Width, in.Height)
	if err != nil {
		return nil, err
	}

	encoded, err := imaging.SaveFile(opts.Output, out)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(encoded)
	report.OutputSHA256 = hex.EncodeToString(sum[:])
	log.Info("reconstructed image saved", "path", opts.Output, "sha256", report.OutputSHA256)

	report.Probe = probe(buf, opts.ProbeIndex)
	if !report.Probe.Valid {
		log.Warn("probe index outside buffer", "index", opts.ProbeIndex, "size", buf.Size())
	}

	stats := buf.Stats()
	report.Protections = stats.Protections
	report.DecoheredReads = stats.DecoheredReads
	report.MeanMagnitude, report.StdDevMagnitude = magnitudeStats(out)

	return report, nil
}

// probe reads one slot the way a caller inspecting the buffer would. It
// runs after reconstruction, so the read can itself trigger protection.
func probe(buf *statebuf.Buffer, index int) Probe {
	p := Probe{Index: index}
	v, err := buf.Read(index)
	if err != nil {
		p.ErrorRate = 1.0
		return p
	}
	rate, err := buf.ErrorRateAt(index)
	if err != nil {
		p.ErrorRate = 1.0
		return p
	}
	p.Real, p.Imag, p.ErrorRate, p.Valid = real(v), imag(v), rate, true
	return p
}

func magnitudeStats(s *imaging.Samples) (mean, stddev float64) {
	n := s.Pixels()
	if n == 0 {
		return 0, 0
	}
	mags := make([]float64, n)
	for i := 0; i < n; i++ {
		px := s.At(i)
		r, g := float64(px[0])/255.0, float64(px[1])/255.0
		mags[i] = math.Hypot(r, g)
	}
	if n == 1 {
		return mags[0], 0
	}
	return stat.MeanStdDev(mags, nil)
}

// String renders a short one-line summary for logs.
func (r *Report) String() string {
	return fmt.Sprintf("run %s: %dx%d level=%d protections=%d decohered=%d sha256=%s",
		r.RunID, r.Width, r.Height, r.Level, r.Protections, r.DecoheredReads, r.OutputSHA256)
}
