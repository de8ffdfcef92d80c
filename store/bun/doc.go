// Package bunstore implements store.Store on the Bun ORM with the
// PostgreSQL dialect.
//
// The schema is the one of the pgx store; both backends record applied
// files in taskpool_migrations and can share a database. Reservation is an
// UPDATE over a FOR UPDATE SKIP LOCKED sub-select, so concurrent
// collections never block on each other's rows.
//
// The caller owns the *bun.DB:
//
//	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
//	db := bun.NewDB(sqldb, pgdialect.New())
//	s := bunstore.New(db)
//	if err := s.Migrate(ctx); err != nil { ... }
package bunstore
