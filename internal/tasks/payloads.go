package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type constants shared between queue producers and consumers.
const (
	TypeResumePrint   = "resume:print"
	TypeResumePreview = "resume:preview"
)

// GeneratePayload carries the minimum a worker needs to pick up a print or
// preview job.
type GeneratePayload struct {
	JobID         uint   `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewResumePrintTask builds a document generation task. Queue-level retry is
// disabled: the render pipeline's own orchestrator is the sole retry
// authority.
func NewResumePrintTask(jobID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(GeneratePayload{
		JobID:         jobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumePrint, payload, asynq.MaxRetry(0)), nil
}

// NewResumePreviewTask builds a preview snapshot task.
func NewResumePreviewTask(jobID uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(GeneratePayload{
		JobID:         jobID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumePreview, payload, asynq.MaxRetry(0)), nil
}
