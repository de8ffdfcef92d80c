// Package postgres implements the store using pgx/v5 with raw SQL.
// Reservation runs as a single UPDATE over a SKIP LOCKED sub-select, so
// concurrent collections never block on each other's rows. Migrations are
// embedded SQL files.
package postgres
