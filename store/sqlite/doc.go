// Package sqlite implements store.Store on database/sql with the
// mattn/go-sqlite3 driver. Suitable for single-host deployments, CLI tools
// and tests.
//
// SQLite serializes writers, so the store holds a single connection and
// every reservation is one UPDATE statement:
//
//	s, _ := sqlite.New("file:taskpool.db")
//	defer s.Close()
//	s.Migrate(ctx)
package sqlite
