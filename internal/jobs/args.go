// Package jobs provides River job arguments, job insertion, and job error
// handling for async processing tasks; the workers live in internal/workers.
package jobs

// WorkflowMemoryArgs contains the arguments for an async workflow memory
// creation job, enqueued by the bulk feedback path so the request can return
// without waiting on the embed-and-record round trip for every item (spec
// §4.8 bulk feedback).
type WorkflowMemoryArgs struct {
	// SessionID is the training session the workflow memory is derived from.
	SessionID int64 `json:"session_id"`

	// Summary is the pre-composed reasoning summary text to embed.
	Summary string `json:"summary"`
}

// Kind returns the job type identifier for River.
func (WorkflowMemoryArgs) Kind() string { return "workflow_memory" }
