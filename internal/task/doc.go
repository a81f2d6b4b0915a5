// Package task runs the background side of moderation.
//
// Worker consumes moderation requests, claims the oldest pending task for
// the referenced item, scores the ad and stores the verdict. Transient
// failures are retried with a fixed delay; deterministic failures (no
// pending task, missing ad) are not. Anything that cannot be completed is
// forwarded to the dead-letter channel.
//
// Reconciler is a periodic sweep that re-enqueues tasks whose request was
// lost, for example because a worker crashed after claiming a task.
package task
