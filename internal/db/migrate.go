package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/l2emu/core/internal/db/migrations"
)

// gooseInit configures goose's embedded migration source exactly once —
// SetBaseFS/SetDialect are process-global, so repeated calls across
// multiple RunMigrations invocations (tests spinning up several pools)
// would otherwise race.
var gooseInit sync.Once

// RunMigrations applies every pending goose migration embedded in
// internal/db/migrations against dsn.
func RunMigrations(ctx context.Context, dsn string) error {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer conn.Close()

	var setupErr error
	gooseInit.Do(func() {
		goose.SetBaseFS(migrations.FS)
		setupErr = goose.SetDialect("postgres")
	})
	if setupErr != nil {
		return fmt.Errorf("setting goose dialect: %w", setupErr)
	}
	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
