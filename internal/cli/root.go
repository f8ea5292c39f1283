package cli

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/arnavshah/roster-engine/pkg/baseline"
	"github.com/arnavshah/roster-engine/pkg/config"
	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/engine"
	"github.com/arnavshah/roster-engine/pkg/logging"
)

// ErrInvalid marks a command that ran but found its input unusable
var ErrInvalid = errors.New("invalid input")

type envKey struct{}

// env is what every subcommand shares once flags are parsed
type env struct {
	cfg *config.Config
	log *slog.Logger
	db  *gorm.DB
}

func envFrom(ctx context.Context) *env {
	e, _ := ctx.Value(envKey{}).(*env)
	if e == nil {
		e = &env{cfg: config.Default(), log: logging.Discard()}
	}
	return e
}

// open connects the database lazily; commands that never touch storage skip it
func (e *env) open() (*gorm.DB, error) {
	if e.db != nil {
		return e.db, nil
	}
	db, err := database.Open(e.cfg.DatabaseOptions())
	if err != nil {
		return nil, err
	}
	e.db = db
	return db, nil
}

// engine builds an engine; with store set it persists solutions and reads baselines
func (e *env) engine(store bool) (*engine.Engine, *database.SolutionStore, error) {
	opts := []engine.Option{engine.WithLogger(e.log)}
	var solutions *database.SolutionStore
	if store {
		db, err := e.open()
		if err != nil {
			return nil, nil, err
		}
		solutions = database.NewSolutionStore(db)
		opts = append(opts, engine.WithSolutions(solutions), engine.WithBaselines(baseline.NewGormStore(db)))
	}
	return engine.New(e.cfg.SchedulerConfig(), opts...), solutions, nil
}

// NewRootCmd builds the roster command tree
func NewRootCmd(version string) *cobra.Command {
	var (
		configPath string
		dataPath   string
		dsn        string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:          "roster",
		Short:        "Roster engine: solve, explain, publish and inspect staff schedules",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = os.Getenv("ROSTER_CONFIG")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.ApplyEnv()
			if dataPath != "" {
				cfg.Database.Path = dataPath
			}
			if dsn != "" {
				cfg.Database.DSN = dsn
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}
			log := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, &env{cfg: cfg, log: log}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML settings file (env: ROSTER_CONFIG)")
	cmd.PersistentFlags().StringVar(&dataPath, "db", "", "SQLite database file (env: DATA_PATH, default roster.db)")
	cmd.PersistentFlags().StringVar(&dsn, "database-url", "", "Postgres DSN; overrides --db (env: DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "text or json")

	cmd.AddCommand(newSolveCmd())
	cmd.AddCommand(newExplainCmd())
	cmd.AddCommand(newPublishCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newValidateCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}
	return cmd
}
