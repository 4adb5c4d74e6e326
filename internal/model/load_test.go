package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeModelFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAMLPartialKeepsDefaults(t *testing.T) {
	path := writeModelFile(t, "model.yaml", `
tau: 120.5
protect_threshold: 0.5
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120.5, m.Tau)
	assert.Equal(t, 0.5, m.ProtectThreshold)
	assert.Equal(t, DefaultPsi, m.Psi)
	assert.Equal(t, DefaultXi, m.Xi)
	assert.Equal(t, DefaultEpsilon, m.Epsilon)
	assert.Equal(t, DefaultPhi, m.Phi)
}

func TestLoad_YAMLEmptyFileIsDefault(t *testing.T) {
	path := writeModelFile(t, "empty.yml", "# nothing here\n")

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), m)
}

func TestLoad_YAMLUnknownKey(t *testing.T) {
	path := writeModelFile(t, "model.yaml", "tau: 10\ngamma: 3\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeParseFailed))
}

func TestLoad_YAMLOutOfRange(t *testing.T) {
	path := writeModelFile(t, "model.yaml", "tau: -5\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeInvalid))
	assert.Contains(t, err.Error(), "tau must be positive")
}

func TestLoad_CUE(t *testing.T) {
	path := writeModelFile(t, "model.cue", `
psi:               40.0
xi:                3000.0
tau:               600
epsilon:           0.5
phi:               1.5
protect_threshold: 0.9
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, Model{
		Psi:              40,
		Xi:               3000,
		Tau:              600,
		Epsilon:          0.5,
		Phi:              1.5,
		ProtectThreshold: 0.9,
	}, m)
}

func TestLoad_CUESchemaRejectsNegative(t *testing.T) {
	path := writeModelFile(t, "model.cue", "tau: -1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeSchemaMismatch))
}

func TestLoad_CUESchemaRejectsUnknownField(t *testing.T) {
	path := writeModelFile(t, "model.cue", "tau: 10\nomega: 2\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeSchemaMismatch))
}

func TestLoad_CUESyntaxError(t *testing.T) {
	path := writeModelFile(t, "model.cue", "tau: {{{\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeParseFailed))
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	path := writeModelFile(t, "model.toml", "tau = 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeUnsupported))
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, IsLoadError(err, ErrCodeNotFound))
}
