package convert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/phasemem/internal/imaging"
	"github.com/roach88/phasemem/internal/model"
	"github.com/roach88/phasemem/internal/statebuf"
	"github.com/roach88/phasemem/internal/testutil"
)

func testOptions(t *testing.T, dir string) Options {
	t.Helper()
	return Options{
		Input:  testutil.WriteScenarioPNG(t, dir),
		Output: filepath.Join(dir, "out.png"),
		Clock:  testutil.NewManualClock(),
		IDs:    testutil.NewFixedIDGenerator("run-0001"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRun_Scenario(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, "run-0001", report.RunID)
	assert.Equal(t, testutil.Epoch, report.StartedAt)
	assert.Equal(t, 2, report.Width)
	assert.Equal(t, 2, report.Height)
	assert.Equal(t, 3, report.Channels)
	assert.Equal(t, 4, report.Pixels)
	assert.Equal(t, int(model.DefaultLevel), report.Level)
	assert.InDelta(t, model.Default().BaselineErrorRate(), report.BaselineErrorRate, 1e-15)
	assert.InDelta(t, model.Default().CoherenceLifetime(model.Level3), report.LifetimeSeconds, 1e-6)
	assert.Equal(t, 0.0, report.ElapsedSeconds)
	assert.Equal(t, int64(0), report.Protections)
	assert.Equal(t, int64(0), report.DecoheredReads)
	assert.Len(t, report.OutputSHA256, 64)

	assert.True(t, report.Probe.Valid)
	assert.Equal(t, 0, report.Probe.Index)
	assert.InDelta(t, 1.0, report.Probe.Real, 1e-9)
	assert.InDelta(t, 0.0, report.Probe.Imag, 1e-9)
	assert.Equal(t, 0.0, report.Probe.ErrorRate)

	// Magnitudes are 1, 1, 0 and sqrt(2).
	assert.InDelta(t, 0.8535533905932737, report.MeanMagnitude, 1e-9)
	assert.Greater(t, report.StdDevMagnitude, 0.0)

	out, err := imaging.LoadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Channels)
	assert.Equal(t, []uint8{
		255, 0, 0,
		0, 255, 0,
		0, 0, 0,
		255, 255, 0,
	}, out.Pix)
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()

	first := testOptions(t, dir)
	first.Output = filepath.Join(dir, "first.png")
	r1, err := Run(context.Background(), first)
	require.NoError(t, err)

	second := testOptions(t, dir)
	second.Output = filepath.Join(dir, "second.png")
	r2, err := Run(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, r1.OutputSHA256, r2.OutputSHA256)

	b1, err := os.ReadFile(first.Output)
	require.NoError(t, err)
	b2, err := os.ReadFile(second.Output)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestRun_ElapseBeyondLifetime(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Elapse = 10 * time.Hour

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 36000.0, report.ElapsedSeconds)
	// Four reconstruction reads plus the probe read.
	assert.Equal(t, int64(5), report.DecoheredReads)
	assert.Equal(t, 0.0, report.MeanMagnitude)
	assert.True(t, report.Probe.Valid)
	assert.Equal(t, 0.0, report.Probe.Real)
	assert.Equal(t, 0.0, report.Probe.Imag)
	assert.Greater(t, report.Probe.ErrorRate, 0.0)

	out, err := imaging.LoadFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, make([]uint8, 12), out.Pix)
}

func TestRun_ProtectionUnderLoweredThreshold(t *testing.T) {
	dir := t.TempDir()

	baseline, err := Run(context.Background(), testOptions(t, dir))
	require.NoError(t, err)

	m := model.Default()
	m.ProtectThreshold = 0.5
	opts := testOptions(t, dir)
	opts.Output = filepath.Join(dir, "protected.png")
	opts.Model = m
	opts.Elapse = time.Duration(0.8 * m.CoherenceLifetime(model.Level3) * float64(time.Second))

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, int64(4), report.Protections)
	assert.Equal(t, int64(0), report.DecoheredReads)
	assert.NotEqual(t, baseline.OutputSHA256, report.OutputSHA256)
}

func TestRun_ProbeOutOfRange(t *testing.T) {
	opts := testOptions(t, t.TempDir())
	opts.ProbeIndex = 99

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)
	assert.False(t, report.Probe.Valid)
	assert.Equal(t, 1.0, report.Probe.ErrorRate)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Input = filepath.Join(dir, "missing.png")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, imaging.IsDecodeFailure(err))

	_, statErr := os.Stat(opts.Output)
	assert.True(t, os.IsNotExist(statErr), "no output on failure")
}

func TestRun_GrayscaleInput(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Input = testutil.WritePNG(t, dir, "gray.png", testutil.GrayImage(2, 2, []uint8{1, 2, 3, 4}))

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, imaging.IsDecodeFailure(err))
}

func TestRun_AllocationFailure(t *testing.T) {
	opts := testOptions(t, t.TempDir())
	opts.MaxSlots = 3

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, statebuf.IsAllocationFailure(err))
}

func TestRun_UnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(t, dir)
	opts.Output = filepath.Join(dir, "missing-dir", "out.png")

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, imaging.IsEncodeFailure(err))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, testOptions(t, t.TempDir()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestUUIDv7Generator(t *testing.T) {
	g := UUIDv7Generator{}
	a, b := g.Generate(), g.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestReport_String(t *testing.T) {
	r := &Report{RunID: "abc", Width: 2, Height: 3, Level: 3, OutputSHA256: "ff"}
	assert.Equal(t, "run abc: 2x3 level=3 protections=0 decohered=0 sha256=ff", r.String())
}

func TestRun_DigestMatchesWrittenFile(t *testing.T) {
	opts := testOptions(t, t.TempDir())

	report, err := Run(context.Background(), opts)
	require.NoError(t, err)

	data, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), report.OutputSHA256)
}

func TestRun_OversizedInputRejectedBeforeDecode(t *testing.T) {
	opts := testOptions(t, t.TempDir())
	opts.MaxSlots = 3

	_, err := Run(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, statebuf.IsAllocationFailure(err))
	assert.False(t, imaging.IsDecodeFailure(err))
	assert.NoFileExists(t, opts.Output)
}
