// Package broker fans the tasks of a job out over parallel background
// workers.
//
// [Partition] splits a task count into near-equal shares: every share gets
// floor(count/parts) and the first count%parts shares get one more. The
// [Broker] launches one worker per non-empty share through a
// launcher.Launcher and returns without waiting for them. Each worker then
// reserves its share itself, so shares that overlap in time never process
// a task twice.
package broker
