package model

import (
	"fmt"
	"math"
)

// Default constants.
const (
	DefaultPsi              = 44.8
	DefaultXi               = 3721.8
	DefaultTau              = 64713.97
	DefaultEpsilon          = 0.28082
	DefaultPhi              = 1.618033988749895
	DefaultProtectThreshold = 1.0
)

// Model is the set of constants the state buffer derives its behavior from.
//
// Struct tags serve both the YAML decoder and CUE's Decode (which reads
// json tags).
type Model struct {
	// Psi and Xi are coupling constants. Their product feeds the baseline
	// error rate and its square root scales the correction angle.
	Psi float64 `yaml:"psi" json:"psi"`
	Xi  float64 `yaml:"xi" json:"xi"`

	// Tau is the base coherence lifetime in seconds and the denominator of
	// the baseline error rate.
	Tau float64 `yaml:"tau" json:"tau"`

	// Epsilon is the lifetime decay coefficient per protection level.
	Epsilon float64 `yaml:"epsilon" json:"epsilon"`

	// Phi is the base of the per-level rotation angle.
	Phi float64 `yaml:"phi" json:"phi"`

	// ProtectThreshold scales the baseline error rate to get the point at
	// which re-protection fires. At 1.0 the decay curve never crosses it.
	ProtectThreshold float64 `yaml:"protect_threshold" json:"protect_threshold"`
}

// Default returns the stock model.
func Default() Model {
	return Model{
		Psi:              DefaultPsi,
		Xi:               DefaultXi,
		Tau:              DefaultTau,
		Epsilon:          DefaultEpsilon,
		Phi:              DefaultPhi,
		ProtectThreshold: DefaultProtectThreshold,
	}
}

// Validate checks that every constant is finite and in range.
func (m Model) Validate() error {
	positive := []struct {
		name string
		val  float64
	}{
		{"psi", m.Psi},
		{"xi", m.Xi},
		{"tau", m.Tau},
		{"phi", m.Phi},
		{"protect_threshold", m.ProtectThreshold},
	}
	for _, f := range positive {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return fmt.Errorf("model: %s must be finite, got %v", f.name, f.val)
		}
		if f.val <= 0 {
			return fmt.Errorf("model: %s must be positive, got %v", f.name, f.val)
		}
	}
	if math.IsNaN(m.Epsilon) || math.IsInf(m.Epsilon, 0) || m.Epsilon < 0 {
		return fmt.Errorf("model: epsilon must be finite and non-negative, got %v", m.Epsilon)
	}
	return nil
}

// BaselineErrorRate returns exp(-(Psi*Xi)/Tau). It does not depend on size
// or level.
func (m Model) BaselineErrorRate() float64 {
	return math.Exp(-(m.Psi * m.Xi) / m.Tau)
}

// CoherenceLifetime returns the lifetime in seconds for a level.
func (m Model) CoherenceLifetime(l Level) float64 {
	return m.Tau * math.Exp(-float64(l)*m.Epsilon)
}

// ProtectionFactor returns Phi^level.
func (m Model) ProtectionFactor(l Level) float64 {
	return math.Pow(m.Phi, float64(l))
}

// CorrectionAngle returns sqrt(Psi*Xi) * Phi^level.
func (m Model) CorrectionAngle(l Level) float64 {
	return math.Sqrt(m.Psi*m.Xi) * m.ProtectionFactor(l)
}
