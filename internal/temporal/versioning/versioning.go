// Package versioning defines workflow versions and task queue names.
package versioning

const (
	// Workflow versions for determinism tracking.
	RolloverV1 = "rollover-v1"
	PurgeV1    = "purge-v1"

	// QueueScheduler is the single task queue for window rollover and
	// retention purge. Exactly one worker instance may poll it: worker
	// exclusivity is what serializes rollover across nodes.
	QueueScheduler = "replyhive-scheduler"
)
