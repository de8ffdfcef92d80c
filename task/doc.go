// Package task defines the Task entity, its reservation signature and its
// persistence contract.
//
// A task moves through three observable states:
//
//	pending (signature "") → pending (signature set) → done | failed
//
// The signature is written by exactly one collection call, and the status
// is written when the task is closed. Nothing in this package moves a task
// back to pending.
package task
