package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caseport/internal/db"
	"caseport/internal/repo"
)

func TestOpen(t *testing.T) {
	t.Run("Should open a workspace without config", func(t *testing.T) {
		dir := t.TempDir()
		ws, err := Open(dir, Options{LogOutput: io.Discard})
		require.NoError(t, err)
		defer ws.Close()
		assert.FileExists(t, db.Path(dir))
		assert.Equal(t, "json", ws.Config.Output.Format)

		runs, err := ws.Engine.Repo.ListRuns(context.Background(), repo.RunFilters{})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("Should honor a disabled journal", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "caseport.yml"), []byte("journal:\n  enabled: false\n"), 0o644))
		ws, err := Open(dir, Options{LogOutput: io.Discard})
		require.NoError(t, err)
		assert.Nil(t, ws.DB)
		assert.NoError(t, ws.Close())
		assert.NoFileExists(t, db.Path(dir))
	})

	t.Run("Should reject an unknown log level", func(t *testing.T) {
		_, err := Open(t.TempDir(), Options{LogLevel: "loud", NoJournal: true})
		assert.Error(t, err)
	})
}
