// Package model holds the numeric constants behind the phase transform and
// the formulas derived from them.
//
// The constants are kept together in a Model value instead of being baked
// into the buffer so the decay and protection behavior can be swapped out
// (via a YAML or CUE model file) and tested on its own.
//
// # Formulas
//
//   - Baseline error rate: exp(-(Psi*Xi)/Tau), shared by every slot
//   - Coherence lifetime:  Tau * exp(-level*Epsilon), in seconds
//   - Protection factor:   Phi^level, the write/read rotation angle
//   - Correction angle:    sqrt(Psi*Xi) * Phi^level, the re-protection rotation
package model
