package cli

import (
	"fmt"
	"io"

	"gemstore/internal/repositories"
	"gemstore/internal/services"

	"github.com/spf13/cobra"
)

// NewSeedCommand loads the starter catalog into an empty database.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the starter catalog when no products exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, logger, closeDB, err := rootOpts.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			products := services.NewProductService(repositories.NewGORMProductRepository(db), logger)
			added, err := products.SeedIfEmpty()
			if err != nil {
				return err
			}
			return rootOpts.emit(cmd.OutOrStdout(), map[string]int{"added": added}, func(w io.Writer) {
				if added == 0 {
					fmt.Fprintln(w, "catalog already has products, nothing seeded")
					return
				}
				fmt.Fprintf(w, "seeded %d products\n", added)
			})
		},
	}
}

// NewReconcileAdminCommand creates the configured admin account if needed and
// makes it the only admin.
func NewReconcileAdminCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-admin",
		Short: "Ensure ADMIN_EMAIL is the one and only admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, logger, closeDB, err := rootOpts.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			if !cfg.AdminConfigured() {
				return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD are not set")
			}
			auth := services.NewAuthService(repositories.NewGORMUserRepository(db), services.AdminCredentials{
				Email:    cfg.AdminEmail,
				Password: cfg.AdminPassword,
			}, logger)
			if err := auth.EnsureAdminAccount(); err != nil {
				return err
			}
			return rootOpts.emit(cmd.OutOrStdout(), map[string]string{"admin": cfg.AdminEmail}, func(w io.Writer) {
				fmt.Fprintf(w, "%s is the admin account\n", cfg.AdminEmail)
			})
		},
	}
}

// NewPruneSessionsCommand deletes expired rows from the database session
// store. Redis expires sessions on its own.
func NewPruneSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-sessions",
		Short: "Delete expired sessions from the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, db, _, closeDB, err := rootOpts.openDatabase(cmd)
			if err != nil {
				return err
			}
			defer closeDB()

			if cfg.SessionStore != "gorm" {
				return fmt.Errorf("SESSION_STORE=%s expires sessions itself", cfg.SessionStore)
			}
			removed, err := repositories.NewGORMSessionRepository(db).DeleteExpired()
			if err != nil {
				return err
			}
			return rootOpts.emit(cmd.OutOrStdout(), map[string]int64{"removed": removed}, func(w io.Writer) {
				fmt.Fprintf(w, "removed %d expired sessions\n", removed)
			})
		},
	}
}
