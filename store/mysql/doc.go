// Package mysql implements store.Store on database/sql with the
// go-sql-driver/mysql driver.
//
// Reservation is a single-table UPDATE with ORDER BY and LIMIT. InnoDB
// re-reads rows locked by a concurrent reservation once that lock is
// released, so two collections never stamp the same task. The connection
// is opened with clientFoundRows so that closing a task with its current
// status still counts as a match.
package mysql
