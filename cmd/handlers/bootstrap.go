package handlers

import (
	"context"
	"fmt"

	"github.com/PaultheAICoder/AInewsletter-sub001/internal/config"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/llmclient"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/logger"
	"github.com/PaultheAICoder/AInewsletter-sub001/internal/persistence"
)

// ExitError carries the process exit code a command should terminate
// with, distinguishing configuration/environment failures (2) from a
// run that reached the backfill loop but finished with failures (1).
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) ExitCode() int { return e.Code }
func (e *ExitError) Unwrap() error { return e.Err }

// configError wraps err as an exit-code-2 environment/configuration
// failure.
func configError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// runError wraps err as an exit-code-1 completed-with-failures result.
func runError(err error) error {
	return &ExitError{Code: 1, Err: err}
}

// app bundles the process config and an open database handle, the
// two things every subcommand needs before it can do anything else.
type app struct {
	cfg *config.Config
	db  *persistence.PostgresDB
}

// bootstrap loads config, opens the database, and runs pending
// migrations. Every subcommand calls this first; a failure here is
// always a configuration error (exit code 2), never a run failure.
func bootstrap(ctx context.Context, cfgFile string) (*app, error) {
	logger.Init("info")

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, configError(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Init(cfg.Logging.Level)

	db, err := persistence.NewPostgresDB(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		return nil, configError(fmt.Errorf("failed to connect to database: %w", err))
	}

	mgr := persistence.NewMigrationManager(db)
	if err := mgr.Migrate(ctx); err != nil {
		db.Close()
		return nil, configError(fmt.Errorf("failed to apply migrations: %w", err))
	}

	return &app{cfg: cfg, db: db}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// newLLMClient constructs the shared structured-output client used by
// scoring, arc extraction, newsletter selection, and embeddings.
func (a *app) newLLMClient(ctx context.Context) (*llmclient.Client, error) {
	client, err := llmclient.NewClient(ctx, a.cfg.AI.Gemini.APIKey, a.cfg.AI.Gemini.ScoringModel)
	if err != nil {
		return nil, configError(fmt.Errorf("failed to construct LLM client: %w", err))
	}
	return client, nil
}
