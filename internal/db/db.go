package db

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB owns the pgx connection pool the LS/GS processes share. Account
// queries themselves live behind PostgresAccountRepository (repository.go)
// — DB is purely lifecycle: connect, expose the pool, close.
type DB struct {
	pool *pgxpool.Pool
}

// New opens a pool against dsn and verifies it with a ping before returning.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{pool: pool}, nil
}

// Close releases every connection in the pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool exposes the underlying pgx pool for callers that need it directly —
// the PostgresAccountRepository and CharacterRepository constructors.
// Migrations do not use it: RunMigrations opens its own connection.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// HashPassword reproduces the L2J account password format: SHA-1 over the
// plaintext, Base64-encoded.
func HashPassword(password string) string {
	sum := sha1.Sum([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}
