package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/roach88/stateshift/internal/bootstrap"
	"github.com/roach88/stateshift/internal/catalog"
	"github.com/roach88/stateshift/internal/config"
	"github.com/roach88/stateshift/internal/logging"
	"github.com/roach88/stateshift/internal/migrate"
	"github.com/roach88/stateshift/internal/store"
)

// session is the wiring shared by commands: config, logger, step
// environment and, when opened, the document store.
type session struct {
	cfg *config.Config
	log zerolog.Logger
	env migrate.Env
	reg *migrate.Registry

	docs bootstrap.DocumentStore
	db   *store.Store // nil when the document lives in a file
}

// newSession loads config and builds the step environment. The store is
// opened separately by openStore so read-only commands that never touch
// it do not create a database file.
func newSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	log := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, Writer: cmd.ErrOrStderr()})

	env, err := migrate.BuiltinEnv(cfg.Locale)
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, log: log, env: env, reg: migrate.Builtin()}, nil
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if opts.DB != "" {
		cfg.DBPath = opts.DB
	}
	if opts.File != "" {
		cfg.FilePath = opts.File
	}
	if opts.Key != "" {
		cfg.Key = opts.Key
	}
	if opts.Locale != "" {
		cfg.Locale = opts.Locale
	}
	return cfg, nil
}

func (s *session) openStore() error {
	if s.cfg.UseFile() {
		s.docs = store.NewFileStore(s.cfg.FilePath)
		s.log.Debug().Str("file", s.cfg.FilePath).Msg("using file store")
		return nil
	}
	db, err := store.Open(s.cfg.DBPath)
	if err != nil {
		return err
	}
	s.db = db
	s.docs = db.Documents(s.cfg.Key)
	s.log.Debug().Str("db", s.cfg.DBPath).Str("key", s.cfg.Key).Msg("using sqlite store")
	return nil
}

func (s *session) runner() *migrate.Runner {
	return migrate.NewRunner(s.reg, s.env, migrate.WithLogger(s.log))
}

func (s *session) location() string {
	if s.cfg.UseFile() {
		return s.cfg.FilePath
	}
	return fmt.Sprintf("%s#%s", s.cfg.DBPath, s.cfg.Key)
}

func (s *session) Close() {
	if s.db == nil {
		return
	}
	if err := s.db.Close(); err != nil {
		s.log.Error().Err(err).Msg("error closing database")
	}
}

// classify maps an error to its CLI error code and exit code.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, config.ErrInvalidConfig):
		return ErrCodeConfig, ExitCommandError
	case errors.Is(err, catalog.ErrInvalidCatalog):
		return ErrCodeCatalog, ExitCommandError
	case errors.Is(err, store.ErrNotFound):
		return ErrCodeNotFound, ExitCommandError
	case errors.Is(err, migrate.ErrProtectedField):
		return ErrCodeProtected, ExitFailure
	case errors.Is(err, migrate.ErrStepFailure):
		return ErrCodeStepFailed, ExitFailure
	case errors.Is(err, migrate.ErrUnknownVersionGap):
		return ErrCodeVersionGap, ExitFailure
	case errors.Is(err, migrate.ErrVersionAhead):
		return ErrCodeVersionAhead, ExitFailure
	case errors.Is(err, migrate.ErrMalformedDocument):
		return ErrCodeMalformed, ExitFailure
	}
	return ErrCodeGeneric, ExitFailure
}

// errorDetails returns structured context for the typed migration errors.
func errorDetails(err error) any {
	var stepErr *migrate.StepError
	if errors.As(err, &stepErr) {
		return map[string]any{"version": stepErr.Version, "step": stepErr.Name}
	}
	var gapErr *migrate.GapError
	if errors.As(err, &gapErr) {
		return map[string]any{"after": gapErr.After, "missing": gapErr.Missing, "latest": gapErr.Latest}
	}
	var compileErr *catalog.CompileError
	if errors.As(err, &compileErr) {
		return map[string]any{"field": compileErr.Field, "message": compileErr.Message}
	}
	return nil
}

// outputError reports err through the formatter and returns the matching
// ExitError for main to exit with.
func outputError(formatter *OutputFormatter, message string, err error) error {
	code, exit := classify(err)
	_ = formatter.Error(code, fmt.Sprintf("%s: %v", message, err), errorDetails(err))
	return WrapExitError(exit, fmt.Sprintf("%s: %s", code, message), err)
}

// outputStoreError reports a store that could not be opened. These are
// command errors regardless of the cause.
func outputStoreError(formatter *OutputFormatter, err error) error {
	_ = formatter.Error(ErrCodeStore, fmt.Sprintf("opening store: %v", err), nil)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: opening store", ErrCodeStore), err)
}

// commandContext returns the command's context, or a background context
// when the command is executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
