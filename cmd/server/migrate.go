package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phoneadvisor/internal/repository"
)

var migrateSeed bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and optionally seed the phones table",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateSeed, "seed", false, "upsert the JSON catalog (CATALOG_PATH or built-in) into the phones table")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	repo, err := repository.NewPostgresRepository(
		cfg.GetPostgreSQLDSN(),
		cfg.PostgreSQL.MaxConnections,
		cfg.PostgreSQL.MaxIdleConnections,
	)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.Migrate(); err != nil {
		return err
	}
	log.Info("migrations applied")

	if !migrateSeed {
		return nil
	}

	var catalog *repository.Catalog
	if cfg.Catalog.Path != "" {
		catalog, err = repository.LoadCatalogFile(cfg.Catalog.Path, log)
	} else {
		catalog, err = repository.DefaultCatalog(log)
	}
	if err != nil {
		return err
	}

	n, err := repo.UpsertPhones(cmd.Context(), catalog.All())
	if err != nil {
		return fmt.Errorf("seed phones: %w", err)
	}
	log.Info("phones seeded", zap.Int("count", n))
	return nil
}
