package database

import (
	"context"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/sirupsen/logrus"

	"github.com/amikxn/TrialMatchAI/internal/domain"
)

// MigrationRunner applies the review-store schema to the postgres backend.
// The sqlite backend creates its schema inline and never goes through here.
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a runner over the SQL files in migrationsPath.
func NewMigrationRunner(databaseURL, migrationsPath string, logger *logrus.Logger) (*MigrationRunner, error) {
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		databaseURL,
	)
	if err != nil {
		return nil, domain.NewMatchError(domain.ErrStoreError,
			fmt.Sprintf("could not open review-store migrations at %s", migrationsPath),
			err.Error(), "")
	}

	return &MigrationRunner{
		migrate: m,
		log:     logger,
	}, nil
}

// Up applies all pending review-store migrations.
func (mr *MigrationRunner) Up(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mr.log.WithField("store", "reviews").Info("Applying review-store migrations")

	if err := mr.migrate.Up(); err != nil {
		if err == migrate.ErrNoChange {
			mr.log.Info("Review-store schema already current")
			return nil
		}
		return domain.NewMatchError(domain.ErrStoreError,
			"review-store migration failed", err.Error(), "")
	}

	mr.logSchemaVersion("Review-store schema migrated")
	return nil
}

// Down rolls back the most recent review-store migration.
func (mr *MigrationRunner) Down(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mr.log.WithField("store", "reviews").Info("Rolling back one review-store migration")

	if err := mr.migrate.Steps(-1); err != nil {
		if err == migrate.ErrNoChange {
			mr.log.Info("No review-store migrations to roll back")
			return nil
		}
		return domain.NewMatchError(domain.ErrStoreError,
			"review-store rollback failed", err.Error(), "")
	}

	mr.logSchemaVersion("Review-store schema rolled back")
	return nil
}

// Version returns the current review-store schema version.
func (mr *MigrationRunner) Version() (uint, bool, error) {
	return mr.migrate.Version()
}

// Close closes the migration source and its database handle.
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return domain.NewMatchError(domain.ErrStoreError,
			"closing migration source failed", sourceErr.Error(), "")
	}
	if dbErr != nil {
		return domain.NewMatchError(domain.ErrStoreError,
			"closing migration database failed", dbErr.Error(), "")
	}
	return nil
}

func (mr *MigrationRunner) logSchemaVersion(message string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Warn("Could not read review-store schema version")
		return
	}
	mr.log.WithFields(logrus.Fields{
		"store":   "reviews",
		"version": version,
		"dirty":   dirty,
	}).Info(message)
}
