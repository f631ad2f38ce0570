package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseport/internal/config"
	"caseport/internal/domain"
)

func useWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	viper.Set("workspace", dir)
	viper.Set("log-level", "error")
	t.Cleanup(viper.Reset)
	return dir
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestDecodeCommand(t *testing.T) {
	t.Run("Should print the canonical document", func(t *testing.T) {
		dir := useWorkspace(t)
		doc := filepath.Join(dir, "config.yml")
		require.NoError(t, os.WriteFile(doc, []byte("time: 2\nmemory: 256\n"), 0o644))

		out, err := execute(t, decodeCmd(), doc)
		require.NoError(t, err)
		var c domain.CasesConfig
		require.NoError(t, json.Unmarshal([]byte(out), &c))
		assert.Equal(t, domain.ResourceLimits{Time: 2000, Memory: 262144}, c.ResourceLimits)
	})

	t.Run("Should honor the format flag", func(t *testing.T) {
		dir := useWorkspace(t)
		doc := filepath.Join(dir, "config.yml")
		require.NoError(t, os.WriteFile(doc, []byte("time: 2\nmemory: 256\n"), 0o644))

		out, err := execute(t, decodeCmd(), "--format", "yaml", doc)
		require.NoError(t, err)
		assert.Contains(t, out, "resourceLimits:")
	})

	t.Run("Should surface decode errors", func(t *testing.T) {
		useWorkspace(t)
		cmd := decodeCmd()
		cmd.SetIn(strings.NewReader("time: 20000\n"))
		_, err := execute(t, cmd, "-")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "time")
	})
}

func TestConfigCommands(t *testing.T) {
	t.Run("Should write the default config once", func(t *testing.T) {
		dir := useWorkspace(t)
		_, err := execute(t, configInitCmd())
		require.NoError(t, err)
		cfg, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), cfg)

		_, err = execute(t, configInitCmd())
		assert.ErrorContains(t, err, "already exists")
	})

	t.Run("Should report an invalid config", func(t *testing.T) {
		dir := useWorkspace(t)
		require.NoError(t, os.WriteFile(config.Path(dir), []byte("output:\n  format: toml\n"), 0o644))
		_, err := execute(t, configValidateCmd())
		assert.ErrorContains(t, err, "config.output.format")
	})
}

func TestConvertCommand(t *testing.T) {
	t.Run("Should convert packages and journal the runs", func(t *testing.T) {
		dir := useWorkspace(t)
		in := filepath.Join(dir, "in")
		outDir := filepath.Join(dir, "out")
		require.NoError(t, os.Mkdir(in, 0o755))
		writeZip(t, filepath.Join(in, "a.zip"), map[string]string{
			"config.yml": "time: 2\nmemory: 256\n",
			"case1.in":   "1 2\n",
			"case1.ans":  "3\n",
		})

		viper.Set("json", true)
		out, err := execute(t, convertCmd(), in, "-o", outDir, "-j", "2")
		require.NoError(t, err)
		var runs []domain.Run
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, domain.RunSucceeded, runs[0].Status)
		assert.FileExists(t, filepath.Join(outDir, "a.tar.zst"))

		out, err = execute(t, runsListCmd())
		require.NoError(t, err)
		var listed []domain.Run
		require.NoError(t, json.Unmarshal([]byte(out), &listed))
		require.Len(t, listed, 1)
		assert.Equal(t, runs[0].ID, listed[0].ID)

		viper.Set("json", false)
		out, err = execute(t, runsShowCmd(), runs[0].ID)
		require.NoError(t, err)
		assert.NotContains(t, out, "{")
		assert.Regexp(t, `\|\s*status\s*\|\s*succeeded\s*\|`, out)
		assert.Regexp(t, `\|\s*documents\s*\|\s*1\s*\|`, out)
	})

	t.Run("Should refuse journal commands when the journal is off", func(t *testing.T) {
		dir := useWorkspace(t)
		require.NoError(t, os.WriteFile(config.Path(dir), []byte("journal:\n  enabled: false\n"), 0o644))
		_, err := execute(t, runsListCmd())
		assert.ErrorContains(t, err, "journal is disabled")
	})
}
