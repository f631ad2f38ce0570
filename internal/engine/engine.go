package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"caseport/internal/archive"
	"caseport/internal/config"
	"caseport/internal/domain"
	"caseport/internal/errs"
	"caseport/internal/events"
	"caseport/internal/legacy"
	"caseport/internal/logger"
	"caseport/internal/rename"
	"caseport/internal/repo"
	"caseport/internal/stage"
)

// ErrNoDocuments is returned when an archive holds no legacy document.
var ErrNoDocuments = errors.New("no legacy document found")

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Fs     afero.Fs
	Log    logger.Logger
	Now    func() time.Time
}

// New wires an engine on the OS filesystem. A nil db disables the journal.
func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Fs:     afero.NewOsFs(),
		Log:    logger.Discard(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) cfg() *config.Config {
	if e.Config != nil {
		return e.Config
	}
	return config.Default()
}

func (e Engine) fs() afero.Fs {
	if e.Fs != nil {
		return e.Fs
	}
	return afero.NewOsFs()
}

func (e Engine) log() logger.Logger {
	if e.Log != nil {
		return e.Log
	}
	return logger.Discard()
}

// writer stamps journal entries with the engine clock unless the writer has
// its own.
func (e Engine) writer() events.Writer {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w
}

func (e Engine) journaling() bool {
	return e.DB != nil && e.cfg().Journal.Enabled
}

// ConvertDocument adapts one legacy document into the canonical model.
func (e Engine) ConvertDocument(data []byte) (domain.CasesConfig, error) {
	return legacy.Convert(data)
}

// Encode serializes c in the configured output format.
func (e Engine) Encode(c domain.CasesConfig) ([]byte, error) {
	switch e.cfg().Output.Format {
	case "yaml":
		return yaml.Marshal(c)
	default:
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// Normalize runs the filename pass over dir.
func (e Engine) Normalize(ctx context.Context, dir string) (rename.Report, error) {
	if err := ctx.Err(); err != nil {
		return rename.Report{}, err
	}
	return rename.New(e.fs(), e.cfg().RenameOptions()).Run(dir)
}

// ConvertArchive runs the whole pipeline for one zip archive and writes the
// package into outDir. The returned run is valid even when err is not nil.
func (e Engine) ConvertArchive(ctx context.Context, src, outDir string) (domain.Run, error) {
	run := domain.Run{
		ID:        uuid.NewString(),
		Source:    src,
		Status:    domain.RunRunning,
		StartedAt: e.now().UTC().Format(time.RFC3339Nano),
	}
	log := e.log().With("run", run.ID, "archive", filepath.Base(src))
	if err := e.journal(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertRun(ctx, tx, run); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return e.writer().Append(ctx, tx, events.RunStarted, run.ID, src, nil)
	}); err != nil {
		return run, err
	}
	log.Info("conversion started")

	convErr := e.convert(ctx, &run, outDir, log)
	if convErr != nil {
		run.Status = domain.RunFailed
		run.ErrorKind = string(errs.KindOf(convErr))
		run.Error = convErr.Error()
		log.Error("conversion failed", "kind", run.ErrorKind, "err", convErr)
	} else {
		run.Status = domain.RunSucceeded
		log.Info("conversion finished", "documents", run.Documents, "renamed", run.Renamed, "output", run.Output)
	}
	finished := e.now().UTC().Format(time.RFC3339Nano)
	run.FinishedAt = &finished

	// the outcome is recorded even when ctx was cancelled
	jctx := context.WithoutCancel(ctx)
	jerr := e.journal(jctx, func(tx *sql.Tx) error {
		if err := e.Repo.FinishRun(jctx, tx, run); err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		if convErr != nil {
			return e.writer().Append(jctx, tx, events.RunFailed, run.ID, src, events.EventPayload{"kind": run.ErrorKind, "error": run.Error})
		}
		return e.writer().Append(jctx, tx, events.RunSucceeded, run.ID, run.Output, events.EventPayload{"documents": run.Documents, "renamed": run.Renamed, "bytes": run.Bytes})
	})
	return run, errors.Join(convErr, jerr)
}

func (e Engine) convert(ctx context.Context, run *domain.Run, outDir string, log logger.Logger) error {
	cfg := e.cfg()
	fs := e.fs()
	st, err := stage.New(fs, cfg.Staging.Root)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn("stage cleanup failed", "dir", st.Dir, "err", cerr)
		}
	}()
	log.Debug("staging", "dir", st.Dir)

	if err := archive.ExtractZip(fs, run.Source, st.Dir); err != nil {
		return err
	}
	if cfg.Rename.Enabled {
		report, err := e.Normalize(ctx, st.Dir)
		if err != nil {
			return err
		}
		run.Renamed = len(report.Renamed)
		for _, skipped := range report.Skipped {
			log.Warn("case file has no case number", "file", skipped)
		}
		if err := e.journal(ctx, func(tx *sql.Tx) error {
			for _, r := range report.Renamed {
				if err := e.writer().Append(ctx, tx, events.FileRenamed, run.ID, r.From, events.EventPayload{"to": r.To}); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}
	}

	docs, err := archive.FindDocuments(fs, st.Dir, cfg.Discovery.Documents)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("%s: %w", filepath.Base(run.Source), ErrNoDocuments)
	}
	written := make(map[string]string, len(docs))
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		out := path.Join(path.Dir(doc), cfg.OutputName())
		if prev, ok := written[out]; ok {
			return fmt.Errorf("documents %s and %s both convert to %s", prev, doc, out)
		}
		written[out] = doc
		c, err := e.convertFile(st.Dir, doc, out)
		if err != nil {
			return fmt.Errorf("%s: %w", doc, err)
		}
		run.Documents++
		log.Debug("document converted", "document", doc, "output", out)
		if err := e.journal(ctx, func(tx *sql.Tx) error {
			return e.writer().Append(ctx, tx, events.DocumentConverted, run.ID, doc, events.EventPayload{
				"output": out,
				"score":  c.Score,
				"task":   c.Task.Kind,
				"cases":  c.CaseCount(),
			})
		}); err != nil {
			return err
		}
	}

	if err := fs.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	name := strings.TrimSuffix(filepath.Base(run.Source), filepath.Ext(run.Source))
	target := filepath.Join(outDir, name+archive.Extension(cfg.Output.Compression))
	f, err := fs.Create(target)
	if err != nil {
		return err
	}
	if err := archive.Pack(fs, st.Dir, f, cfg.Output.Compression); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if info, err := fs.Stat(target); err == nil {
		run.Bytes = info.Size()
	}
	run.Output = target
	return nil
}

// convertFile converts the legacy document at root/doc and writes the
// canonical encoding to root/out.
func (e Engine) convertFile(root, doc, out string) (domain.CasesConfig, error) {
	fs := e.fs()
	src := filepath.Join(root, filepath.FromSlash(doc))
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return domain.CasesConfig{}, err
	}
	c, err := e.ConvertDocument(data)
	if err != nil {
		return domain.CasesConfig{}, err
	}
	encoded, err := e.Encode(c)
	if err != nil {
		return domain.CasesConfig{}, err
	}
	dst := filepath.Join(root, filepath.FromSlash(out))
	if err := afero.WriteFile(fs, dst, encoded, 0o644); err != nil {
		return domain.CasesConfig{}, err
	}
	if !e.cfg().Output.KeepLegacy && dst != src {
		if err := fs.Remove(src); err != nil {
			return domain.CasesConfig{}, err
		}
	}
	return c, nil
}

// ConvertDir converts every archive in inDir with up to jobs conversions in
// flight. All archives are attempted; the first error is returned after
// every run has finished.
func (e Engine) ConvertDir(ctx context.Context, inDir, outDir string, jobs int) ([]domain.Run, error) {
	archives, err := archive.FindArchives(e.fs(), inDir)
	if err != nil {
		return nil, err
	}
	if jobs < 1 {
		jobs = 1
	}
	runs := make([]domain.Run, len(archives))
	var g errgroup.Group
	g.SetLimit(jobs)
	for i, src := range archives {
		g.Go(func() error {
			run, err := e.ConvertArchive(ctx, src, outDir)
			runs[i] = run
			return err
		})
	}
	return runs, g.Wait()
}

func (e Engine) journal(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if !e.journaling() {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
