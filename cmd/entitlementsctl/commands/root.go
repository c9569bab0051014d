// Package commands описывает команды entitlementsctl.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/magabrotheeeer/exam-subscriptions/internal/app/entitlements"
	"github.com/magabrotheeeer/exam-subscriptions/internal/config"
	"github.com/magabrotheeeer/exam-subscriptions/internal/logger"
	"github.com/magabrotheeeer/exam-subscriptions/internal/migrations"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage/repository"
)

var errConfigRequired = errors.New("--config or CONFIG_PATH is required")

type options struct {
	configPath string
	cfg        *config.Config
	log        *slog.Logger
}

// NewRoot создаёт корневую команду.
func NewRoot() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "entitlementsctl",
		Short:         "Maintenance commands for the exam subscriptions service",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.configPath == "" {
				return errConfigRequired
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.log = logger.New(cfg.Env, cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config file")
	root.AddCommand(newSweepCmd(opts), newMigrateCmd(opts))
	return root
}

func newSweepCmd(opts *options) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one reconciliation pass over all accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if dryRun {
				db, err := repository.New(opts.cfg.StorageConnectionString)
				if err != nil {
					return err
				}
				defer db.Close()
				return printPending(ctx, cmd.OutOrStdout(), db, time.Now())
			}

			cfg := *opts.cfg
			cfg.Sweep.Disabled = true

			app, err := entitlements.New(ctx, &cfg, opts.log)
			if err != nil {
				return err
			}
			res, err := app.SweepOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "accounts=%d purged=%d failed=%d warned=%d\n",
				res.Accounts, res.Purged, res.Failed, res.Warned)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list expired instances without purging them")
	return cmd
}

type expiredLister interface {
	ExpiredInstances(ctx context.Context, now time.Time) ([]models.Instance, error)
}

// printPending выводит экземпляры, которые удалит следующий проход сверки.
func printPending(ctx context.Context, w io.Writer, store expiredLister, now time.Time) error {
	instances, err := store.ExpiredInstances(ctx, now)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		fmt.Fprintf(w, "account=%s instance=%d plan=%q end_date=%s\n",
			inst.AccountID, inst.ID, inst.PlanName, inst.EndDate.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(w, "pending=%d\n", len(instances))
	return nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	var down int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations or roll back with --down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := repository.New(opts.cfg.StorageConnectionString)
			if err != nil {
				return err
			}
			defer db.Close()

			path := opts.cfg.MigrationsPath
			if down > 0 {
				err = migrations.Down(db.DB, path, down)
			} else {
				err = migrations.Run(db.DB, path)
			}
			if err != nil {
				return err
			}
			return printVersion(cmd, db, path)
		},
	}
	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")
	return cmd
}

func printVersion(cmd *cobra.Command, db *repository.Storage, path string) error {
	version, dirty, err := migrations.Version(db.DB, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
	return nil
}
