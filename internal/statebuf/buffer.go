package statebuf

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/phasemem/internal/clock"
	"github.com/roach88/phasemem/internal/model"
)

// DefaultMaxSlots caps buffer size. A slot is 64 bytes, so the cap is 4 GiB
// of records, enough for an 8192x8192 image.
const DefaultMaxSlots = 1 << 26

// Record is the state of one slot.
type Record struct {
	Amplitude  complex128
	Level      model.Level
	Lifetime   float64 // coherence lifetime in seconds
	LastAccess time.Time
}

type slot struct {
	mu  sync.Mutex
	rec Record
}

// Stats counts buffer events since creation.
type Stats struct {
	Protections    int64 `json:"protections"`
	DecoheredReads int64 `json:"decohered_reads"`
}

// Buffer is a fixed-size array of state records sharing one protection
// level, coherence lifetime and baseline error rate.
type Buffer struct {
	mu       sync.RWMutex // write-held only by Destroy
	slots    []slot
	released bool

	size      int
	level     model.Level
	lifetime  float64
	baseline  float64
	threshold float64

	encode  complex128 // exp(i*Phi^level)
	decode  complex128 // exp(-i*Phi^level)
	correct complex128 // exp(i*CorrectionAngle)

	clock clock.Clock

	protections    atomic.Int64
	decoheredReads atomic.Int64
}

type options struct {
	clock    clock.Clock
	model    model.Model
	maxSlots int
}

// Option configures New.
type Option func(*options)

// WithClock sets the time source. Defaults to clock.System.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithModel sets the model constants. Defaults to model.Default().
func WithModel(m model.Model) Option {
	return func(o *options) {
		o.model = m
	}
}

// WithMaxSlots overrides DefaultMaxSlots.
func WithMaxSlots(n int) Option {
	return func(o *options) {
		o.maxSlots = n
	}
}

// New creates a buffer of size slots at the given protection level.
//
// Every slot starts with amplitude 0 and LastAccess set to the clock's
// current time. A size above the slot cap fails with ALLOCATION_FAILURE
// and nothing is allocated.
func New(size int, level model.Level, opts ...Option) (*Buffer, error) {
	o := options{
		clock:    clock.System{},
		model:    model.Default(),
		maxSlots: DefaultMaxSlots,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if size < 0 {
		return nil, &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("negative size %d", size), Index: -1}
	}
	if !level.Valid() {
		return nil, &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("protection level %d outside [1,5]", int(level)), Index: -1}
	}
	if err := o.model.Validate(); err != nil {
		return nil, &Error{Code: ErrCodeInvalidArgument, Message: err.Error(), Index: -1}
	}
	if size > o.maxSlots {
		return nil, &Error{
			Code:    ErrCodeAllocationFailure,
			Message: fmt.Sprintf("cannot allocate %d slots (limit %d)", size, o.maxSlots),
			Index:   -1,
			Size:    size,
		}
	}

	m := o.model
	if lt := m.CoherenceLifetime(level); !(lt > 0) {
		return nil, &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("coherence lifetime %v for level %d is not positive", lt, int(level)), Index: -1}
	}

	b := &Buffer{
		slots:     make([]slot, size),
		size:      size,
		level:     level,
		lifetime:  m.CoherenceLifetime(level),
		baseline:  m.BaselineErrorRate(),
		threshold: m.ProtectThreshold * m.BaselineErrorRate(),
		encode:    cmplx.Exp(complex(0, m.ProtectionFactor(level))),
		decode:    cmplx.Exp(complex(0, -m.ProtectionFactor(level))),
		correct:   cmplx.Exp(complex(0, m.CorrectionAngle(level))),
		clock:     o.clock,
	}

	now := b.clock.Now()
	for i := range b.slots {
		b.slots[i].rec = Record{
			Level:      level,
			Lifetime:   b.lifetime,
			LastAccess: now,
		}
	}
	return b, nil
}

// Write stores value at index, rotated by the level's protection factor,
// then runs a protection check on the slot.
func (b *Buffer) Write(index int, value complex128) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, err := b.slotLocked(index)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := b.clock.Now()
	s.rec.Amplitude = value * b.encode
	touch(&s.rec, now)
	b.protectLocked(s, now)
	return nil
}

// Read returns the value at index.
//
// A slot whose elapsed time since LastAccess exceeds its lifetime has
// decohered: Read returns 0 and leaves the slot untouched. Otherwise Read
// runs a protection check and returns the amplitude with the write
// rotation undone. Out of range returns 0 and an INDEX_OUT_OF_RANGE error.
func (b *Buffer) Read(index int) (complex128, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, err := b.slotLocked(index)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := b.clock.Now()
	if elapsed(&s.rec, now) > s.rec.Lifetime {
		b.decoheredReads.Add(1)
		return 0, nil
	}

	b.protectLocked(s, now)
	return s.rec.Amplitude * b.decode, nil
}

// ErrorRateAt returns baseline * (1 - exp(-elapsed/lifetime)) for index.
// It is 0 right after an access and approaches the baseline from below.
// Out of range returns 1.0 and an INDEX_OUT_OF_RANGE error.
func (b *Buffer) ErrorRateAt(index int) (float64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, err := b.slotLocked(index)
	if err != nil {
		return 1.0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return b.errorRateLocked(s, b.clock.Now()), nil
}

// Protect applies the correction rotation to index if its current error
// rate exceeds the protection threshold. It reports whether it fired.
func (b *Buffer) Protect(index int) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, err := b.slotLocked(index)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return b.protectLocked(s, b.clock.Now()), nil
}

// Snapshot returns a copy of the record at index.
func (b *Buffer) Snapshot(index int) (Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, err := b.slotLocked(index)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, nil
}

// Destroy releases the slots. Calling it more than once is a no-op.
func (b *Buffer) Destroy() {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots = nil
	b.released = true
}

// Released reports whether Destroy has been called.
func (b *Buffer) Released() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.released
}

// Size returns the number of slots, or 0 once released.
func (b *Buffer) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return 0
	}
	return b.size
}

// Level returns the buffer's protection level.
func (b *Buffer) Level() model.Level { return b.level }

// BaselineErrorRate returns the buffer-wide error rate computed at creation.
func (b *Buffer) BaselineErrorRate() float64 { return b.baseline }

// Lifetime returns the coherence lifetime shared by every slot.
func (b *Buffer) Lifetime() time.Duration {
	return time.Duration(b.lifetime * float64(time.Second))
}

// Stats returns event counters.
func (b *Buffer) Stats() Stats {
	return Stats{
		Protections:    b.protections.Load(),
		DecoheredReads: b.decoheredReads.Load(),
	}
}

// slotLocked resolves index. The caller must hold b.mu (read).
func (b *Buffer) slotLocked(index int) (*slot, error) {
	if b.released {
		return nil, newReleased()
	}
	if index < 0 || index >= b.size {
		return nil, newOutOfRange(index, b.size)
	}
	return &b.slots[index], nil
}

// protectLocked is the threshold policy. The caller must hold s.mu.
func (b *Buffer) protectLocked(s *slot, now time.Time) bool {
	if b.errorRateLocked(s, now) <= b.threshold {
		return false
	}
	s.rec.Amplitude *= b.correct
	touch(&s.rec, now)
	b.protections.Add(1)
	return true
}

func (b *Buffer) errorRateLocked(s *slot, now time.Time) float64 {
	return b.baseline * (1 - math.Exp(-elapsed(&s.rec, now)/s.rec.Lifetime))
}

// elapsed returns seconds since LastAccess, never negative.
func elapsed(r *Record, now time.Time) float64 {
	d := now.Sub(r.LastAccess).Seconds()
	if d < 0 {
		return 0
	}
	return d
}

// touch sets LastAccess to now unless that would move it backwards.
func touch(r *Record, now time.Time) {
	if now.After(r.LastAccess) {
		r.LastAccess = now
	}
}
