package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Load error codes.
const (
	ErrCodeNotFound       = "MODEL_NOT_FOUND"
	ErrCodeUnsupported    = "MODEL_UNSUPPORTED_FORMAT"
	ErrCodeParseFailed    = "MODEL_PARSE_FAILED"
	ErrCodeSchemaMismatch = "MODEL_SCHEMA_MISMATCH"
	ErrCodeInvalid        = "MODEL_INVALID"
)

// LoadError describes why a model file could not be used.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err is (or wraps) a *LoadError with the given code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// schemaCUE constrains CUE model files. The struct is closed so a typo in a
// key is an error rather than a silently ignored field.
const schemaCUE = `
close({
	psi?:               number & >0
	xi?:                number & >0
	tau?:               number & >0
	epsilon?:           number & >=0
	phi?:               number & >0
	protect_threshold?: number & >0
})
`

// overrides is the on-disk shape. Absent keys stay nil and keep the default.
type overrides struct {
	Psi              *float64 `yaml:"psi" json:"psi,omitempty"`
	Xi               *float64 `yaml:"xi" json:"xi,omitempty"`
	Tau              *float64 `yaml:"tau" json:"tau,omitempty"`
	Epsilon          *float64 `yaml:"epsilon" json:"epsilon,omitempty"`
	Phi              *float64 `yaml:"phi" json:"phi,omitempty"`
	ProtectThreshold *float64 `yaml:"protect_threshold" json:"protect_threshold,omitempty"`
}

func (o overrides) apply(m Model) Model {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&m.Psi, o.Psi)
	set(&m.Xi, o.Xi)
	set(&m.Tau, o.Tau)
	set(&m.Epsilon, o.Epsilon)
	set(&m.Phi, o.Phi)
	set(&m.ProtectThreshold, o.ProtectThreshold)
	return m
}

// Load reads a model file and overlays it on Default.
// The format is chosen by extension: .yaml/.yml or .cue.
func Load(path string) (Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Model{}, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "model file not found"}
		}
		return Model{}, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "reading model file", Err: err}
	}

	var ov overrides
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		ov, err = parseYAML(path, data)
	case ".cue":
		ov, err = parseCUE(path, data)
	default:
		return Model{}, &LoadError{
			Code:    ErrCodeUnsupported,
			Path:    path,
			Message: fmt.Sprintf("unsupported extension %q (want .yaml, .yml or .cue)", ext),
		}
	}
	if err != nil {
		return Model{}, err
	}

	m := ov.apply(Default())
	if err := m.Validate(); err != nil {
		return Model{}, &LoadError{Code: ErrCodeInvalid, Path: path, Message: "model constants out of range", Err: err}
	}
	return m, nil
}

func parseYAML(path string, data []byte) (overrides, error) {
	var ov overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ov); err != nil {
		// A file with no documents decodes to io.EOF: no overrides.
		if errors.Is(err, io.EOF) {
			return overrides{}, nil
		}
		return overrides{}, &LoadError{Code: ErrCodeParseFailed, Path: path, Message: "parsing YAML", Err: err}
	}
	return ov, nil
}

func parseCUE(path string, data []byte) (overrides, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("model_schema.cue"))
	if err := schema.Err(); err != nil {
		return overrides{}, &LoadError{Code: ErrCodeParseFailed, Path: path, Message: "compiling model schema", Err: err}
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return overrides{}, &LoadError{Code: ErrCodeParseFailed, Path: path, Message: "compiling CUE", Err: err}
	}

	unified := schema.Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return overrides{}, &LoadError{Code: ErrCodeSchemaMismatch, Path: path, Message: "validating against model schema", Err: err}
	}

	var ov overrides
	if err := unified.Decode(&ov); err != nil {
		return overrides{}, &LoadError{Code: ErrCodeParseFailed, Path: path, Message: "decoding CUE", Err: err}
	}
	return ov, nil
}
