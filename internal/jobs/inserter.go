package jobs

import (
	"context"
)

// JobInserter is an interface for inserting jobs into the queue.
// This allows services to enqueue jobs without knowing about River directly.
type JobInserter interface {
	// InsertWorkflowMemoryJob enqueues a workflow memory creation job.
	// Returns an error if the job could not be inserted.
	InsertWorkflowMemoryJob(ctx context.Context, args WorkflowMemoryArgs) error
}
