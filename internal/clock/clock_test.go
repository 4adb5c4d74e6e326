package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	assert.False(t, got.Before(before))
}

func TestFunc(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Func(func() time.Time { return fixed })
	assert.Equal(t, fixed, c.Now())
}

func TestOffset_Advance(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	o := NewOffset(Func(func() time.Time { return fixed }))

	assert.Equal(t, fixed, o.Now())

	o.Advance(90 * time.Second)
	o.Advance(30 * time.Second)
	assert.Equal(t, fixed.Add(2*time.Minute), o.Now())
	assert.Equal(t, 2*time.Minute, o.Elapsed())
}

func TestOffset_IgnoresNegative(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	o := NewOffset(Func(func() time.Time { return fixed }))

	o.Advance(time.Minute)
	o.Advance(-time.Hour)
	o.Advance(0)
	assert.Equal(t, time.Minute, o.Elapsed())
}

func TestOffset_NilBaseUsesSystem(t *testing.T) {
	o := NewOffset(nil)
	before := time.Now()
	assert.False(t, o.Now().Before(before))
}

func TestOffset_ThreadSafe(t *testing.T) {
	o := NewOffset(nil)
	const goroutines = 50

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			o.Advance(time.Second)
			_ = o.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*time.Second, o.Elapsed())
}
