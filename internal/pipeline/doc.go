// Package pipeline wires the reconciliation core into a batch job:
// select log files, map lines to (course, user) keyed events, group by
// key, reconcile each key's history, and write the synthesized events
// partitioned into one gzip file per calendar date.
//
// Each key is pure, independent computation, so the map and reduce
// phases shard work across a bounded pool. Output is deterministic
// regardless of worker count: keys are reduced into slots ordered by
// key, and per-date records are assembled in that order.
package pipeline
