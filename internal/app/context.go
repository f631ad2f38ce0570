package app

import (
	"database/sql"
	"fmt"
	"io"

	"caseport/internal/config"
	"caseport/internal/db"
	"caseport/internal/engine"
	"caseport/internal/logger"
	"caseport/internal/migrate"
)

// Options override workspace settings from the command line.
type Options struct {
	LogLevel  string
	LogJSON   bool
	LogOutput io.Writer
	// NoJournal skips opening the journal database.
	NoJournal bool
}

// Workspace is an opened workspace: its config, journal and engine.
type Workspace struct {
	Path   string
	Config *config.Config
	DB     *sql.DB
	Engine engine.Engine
	Log    logger.Logger
}

// Open loads caseport.yml from workspace (defaults when absent), opens and
// migrates the journal when enabled, and wires an engine.
func Open(workspace string, opts Options) (*Workspace, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	levelName := cfg.Log.Level
	if opts.LogLevel != "" {
		levelName = opts.LogLevel
	}
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Config{Level: level, Output: opts.LogOutput, JSON: cfg.Log.JSON || opts.LogJSON})

	var conn *sql.DB
	if cfg.Journal.Enabled && !opts.NoJournal {
		conn, err = db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		if err := migrate.Migrate(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate journal: %w", err)
		}
	}
	eng := engine.New(conn, cfg)
	eng.Log = log
	return &Workspace{Path: workspace, Config: cfg, DB: conn, Engine: eng, Log: log}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}
