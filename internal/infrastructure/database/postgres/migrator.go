package postgres

import (
	"database/sql"
	"strconv"

	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/turtacn/connprobe/pkg/errors"
)

// migrationState reads the version recorded by golang-migrate. The driver
// creates the table when it is missing, so only point it at databases whose
// schema golang-migrate owns. Closing the driver also closes db.
var migrationState = func(db *sql.DB, table string) (version int, dirty bool, err error) {
	drv, err := migratepg.WithInstance(db, &migratepg.Config{MigrationsTable: table})
	if err != nil {
		return 0, false, err
	}
	defer drv.Close()
	return drv.Version()
}

// checkMigrations maps the migration state onto probe errors: a dirty
// version or no version at all is degraded.
func checkMigrations(db *sql.DB, table string) error {
	version, dirty, err := migrationState(db, table)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeProbeBadResponse, "failed to read migration state").WithDetail(table)
	}
	if version == database.NilVersion {
		return errors.Degraded("no migrations applied").WithDetail(table)
	}
	if dirty {
		return errors.Degraded("migration state is dirty").WithDetail("version=" + strconv.Itoa(version))
	}
	return nil
}

//Personal.AI order the ending
