// Package cli implements gemctl, the storefront operations tool.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gemstore/internal/config"
	"gemstore/internal/logging"
	"gemstore/internal/repositories"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// LoadConfig reads the server configuration. Tests replace it.
	LoadConfig func() (*config.Config, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root gemctl command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{LoadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gemctl",
		Short: "Operate a gemstore deployment",
		Long:  "Seed the catalog, manage the admin account and sessions, review order requests and follow their events.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewReconcileAdminCommand(opts))
	cmd.AddCommand(NewPruneSessionsCommand(opts))
	cmd.AddCommand(NewRequestsCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// logger writes to stderr so json output on stdout stays clean.
func (o *RootOptions) logger(cmd *cobra.Command, cfg *config.Config) *logrus.Logger {
	level := cfg.LogLevel
	if o.Verbose {
		level = "debug"
	}
	return logging.NewWithOutput(level, cfg.LogFormat, cmd.ErrOrStderr())
}

// openDatabase loads the configuration and opens the migrated database.
func (o *RootOptions) openDatabase(cmd *cobra.Command) (*config.Config, *gorm.DB, logrus.FieldLogger, func(), error) {
	cfg, err := o.LoadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := o.logger(cmd, cfg)

	db, err := repositories.OpenDatabase(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	if err := repositories.AutoMigrate(db); err != nil {
		closeDB()
		return nil, nil, nil, nil, err
	}
	return cfg, db, logger, closeDB, nil
}

// emit writes v as one JSON document, or text via the given func.
func (o *RootOptions) emit(w io.Writer, v interface{}, text func(io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
