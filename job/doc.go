// Package job defines the Job entity and its persistence contract.
//
// A job carries an encoded payload and owns many tasks. Jobs are created by
// the pool manager and never mutated afterwards; the Deleted flag hides a job
// from listings but is only ever set outside the core.
package job
