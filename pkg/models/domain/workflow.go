package domain

import "time"

type WorkflowStatus string

const (
	WorkflowStatusPending   WorkflowStatus = "pending"
	WorkflowStatusFinished  WorkflowStatus = "finished"
	WorkflowStatusFailed    WorkflowStatus = "failed"
	WorkflowStatusCancelled WorkflowStatus = "cancelled"
)

// Workflow tracks one scheduled aggregation pass.
type Workflow struct {
	ID         string
	Status     WorkflowStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Error      *string
}
