package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const migrationsTable = "schema_migrations"

var versionPattern = regexp.MustCompile(`^0*([0-9]+)_`)

// Run applies every pending up migration found at sourceURL (file://dir).
// A database that already carries the ledger tables but no migrate metadata
// is baselined to the latest local version first.
func Run(databaseURL, sourceURL string) error {
	if databaseURL == "" {
		return errors.New("database URL is empty")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	driver, err := pg.WithInstance(db, &pg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if needsBaseline(db) {
		if latest := LatestVersion(strings.TrimPrefix(sourceURL, "file://")); latest > 0 {
			log.Warn().Int64("version", latest).Msg("baseline existing schema")
			if err := m.Force(int(latest)); err != nil {
				return fmt.Errorf("force version %d: %w", latest, err)
			}
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}

func needsBaseline(db *sql.DB) bool {
	var hasAccounts, hasMeta bool
	q := `SELECT EXISTS (SELECT 1 FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_name = $1)`
	if err := db.QueryRow(q, "accounts").Scan(&hasAccounts); err != nil || !hasAccounts {
		return false
	}
	if err := db.QueryRow(q, migrationsTable).Scan(&hasMeta); err != nil {
		return false
	}
	return !hasMeta
}

// LatestVersion returns the highest numeric prefix among files in dir, or 0.
func LatestVersion(dir string) int64 {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var max int64
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		m := versionPattern.FindStringSubmatch(f.Name())
		if len(m) < 2 {
			continue
		}
		v, _ := strconv.ParseInt(m[1], 10, 64)
		if v > max {
			max = v
		}
	}
	return max
}
