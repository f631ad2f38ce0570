package stage

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage(t *testing.T) {
	t.Run("Should create and remove a unique directory", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		s, err := New(fs, "/work")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(filepath.Base(s.Dir), "caseport-"))
		require.NoError(t, afero.WriteFile(fs, s.Path("tests", "1.in"), []byte("1"), 0o644))

		other, err := New(fs, "/work")
		require.NoError(t, err)
		assert.NotEqual(t, s.Dir, other.Dir)

		require.NoError(t, s.Close())
		ok, err := afero.DirExists(fs, s.Dir)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, _ = afero.DirExists(fs, other.Dir)
		assert.True(t, ok)
	})

	t.Run("Should work on the real filesystem", func(t *testing.T) {
		s, err := New(afero.NewOsFs(), t.TempDir())
		require.NoError(t, err)
		assert.DirExists(t, s.Dir)
		require.NoError(t, s.Close())
		assert.NoDirExists(t, s.Dir)
	})

	t.Run("Should tolerate a nil stage", func(t *testing.T) {
		var s *Stage
		assert.NoError(t, s.Close())
	})
}
