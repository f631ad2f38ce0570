// Package stage manages the scratch directory one conversion works in.
package stage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const prefix = "caseport-"

// Stage owns a uniquely named directory. Close removes it with everything
// below; callers defer it right after New succeeds.
type Stage struct {
	Fs  afero.Fs
	Dir string
}

// New creates <root>/caseport-<uuid>. An empty root means the system temp
// directory.
func New(fs afero.Fs, root string) (*Stage, error) {
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, prefix+uuid.NewString())
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return &Stage{Fs: fs, Dir: dir}, nil
}

// Path joins elems below the stage directory.
func (s *Stage) Path(elems ...string) string {
	return filepath.Join(append([]string{s.Dir}, elems...)...)
}

func (s *Stage) Close() error {
	if s == nil || s.Dir == "" {
		return nil
	}
	if err := s.Fs.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("remove stage %s: %w", s.Dir, err)
	}
	return nil
}
