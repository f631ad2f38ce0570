package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTemplateMatchesDefault(t *testing.T) {
	cfg, err := FromYAML([]byte(GenerateDefault()))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "config.json", cfg.OutputName())
}

func TestFromYAML(t *testing.T) {
	t.Run("Should keep defaults for absent settings", func(t *testing.T) {
		cfg, err := FromYAML([]byte("output:\n  format: yaml\nrename:\n  missing-digits: reject\n"))
		require.NoError(t, err)
		assert.Equal(t, "yaml", cfg.Output.Format)
		assert.Equal(t, "zstd", cfg.Output.Compression)
		assert.Equal(t, "reject", cfg.RenameOptions().MissingDigits)
		assert.Equal(t, "out", cfg.RenameOptions().AnswerExtension)
		assert.True(t, cfg.Journal.Enabled)
	})

	t.Run("Should name the invalid setting", func(t *testing.T) {
		_, err := FromYAML([]byte("rename:\n  answer-extension: res\n"))
		assert.ErrorContains(t, err, "config.rename.answer-extension must be one of [out, ans]")

		_, err = FromYAML([]byte("output:\n  compression: gzip\n"))
		assert.ErrorContains(t, err, "config.output.compression")

		_, err = FromYAML([]byte("discovery:\n  documents: []\n"))
		assert.ErrorContains(t, err, "config.discovery.documents is required")

		_, err = FromYAML([]byte("output:\n  filename: a/b\n"))
		assert.ErrorContains(t, err, "config.output.filename")
	})

	t.Run("Should reject malformed yaml", func(t *testing.T) {
		_, err := FromYAML([]byte("output: [\n"))
		assert.ErrorContains(t, err, "invalid config yaml")
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	assert.ErrorContains(t, err, "caseport config init")

	cfg, err := LoadOptional(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("log:\n  level: debug\n"), 0o644))
	cfg, err = Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("log:\n  level: loud\n"), 0o644))
	_, err = LoadOptional(dir)
	assert.Error(t, err)
}
