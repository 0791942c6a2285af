package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/pitchfund/internal/audit/domain"
	distributiondomain "github.com/smallbiznis/pitchfund/internal/distribution/domain"
	investmentdomain "github.com/smallbiznis/pitchfund/internal/investment/domain"
	ledgerdomain "github.com/smallbiznis/pitchfund/internal/ledger/domain"
	pitchdomain "github.com/smallbiznis/pitchfund/internal/pitch/domain"
	tierdomain "github.com/smallbiznis/pitchfund/internal/tier/domain"
	userdomain "github.com/smallbiznis/pitchfund/internal/user/domain"
	"gorm.io/gorm"
)

//go:embed migrations/postgres/*.sql
var embeddedMigrations embed.FS

const migrationsDir = "migrations/postgres"

// Models lists every persisted type. Non-postgres databases are created from it.
func Models() []any {
	return []any{
		&userdomain.User{},
		&ledgerdomain.BalanceEntry{},
		&pitchdomain.Pitch{},
		&tierdomain.Tier{},
		&investmentdomain.Investment{},
		&distributiondomain.ProfitDistribution{},
		&distributiondomain.InvestorPayout{},
		&auditdomain.AuditLog{},
	}
}

// Migrate brings the schema up to date: versioned SQL on postgres, AutoMigrate elsewhere.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.

	return nil
}
