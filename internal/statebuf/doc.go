// Package statebuf implements the state buffer: a fixed-size array of
// complex-valued slots with a phase-rotation encoding, a time-based
// fidelity decay and a threshold-triggered re-protection rotation.
//
// # Slot lifecycle
//
//  1. New allocates every slot with amplitude 0 and LastAccess = now.
//  2. Write rotates the value by exp(i*Phi^level), touches the slot and
//     runs a protection check.
//  3. Read returns 0 if the slot has outlived its coherence lifetime.
//     Otherwise it runs a protection check and returns the inverse rotation.
//  4. Destroy releases the slots; later calls fail with BUFFER_RELEASED.
//
// Reads are not pure: the protection check may rotate the stored amplitude
// and refresh LastAccess. A decohered read never mutates anything.
//
// # Time
//
// All "now" readings come from an injected clock.Clock, read once per
// operation. LastAccess only ever moves forward; if the clock reports a
// time before the stored LastAccess the slot keeps its old timestamp and
// elapsed time is treated as zero.
//
// # Concurrency
//
// Each slot carries its own mutex, held for the whole read-modify-write of
// an operation. A buffer-level RWMutex keeps Destroy from racing slot
// access. Operations on different slots proceed in parallel.
package statebuf
