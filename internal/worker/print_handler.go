package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"resumepress/internal/database"
	"resumepress/internal/errcode"
	"resumepress/internal/printer"
	"resumepress/internal/tasks"
)

// PrintTaskHandler consumes document generation tasks.
type PrintTaskHandler struct {
	db          *gorm.DB
	service     *printer.Service
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewPrintTaskHandler(
	db *gorm.DB,
	service *printer.Service,
	redisClient *redis.Client,
	logger *slog.Logger,
) *PrintTaskHandler {
	return &PrintTaskHandler{
		db:          db,
		service:     service,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *PrintTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	log := h.logger

	var payload tasks.GeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("job_id", uint64(payload.JobID)),
	)
	log.Info("Starting resume document generation task...")

	job, req, err := loadJob(ctx, h.db, payload.JobID, log)
	if err != nil || job == nil {
		return err
	}

	if err := setJobStatus(ctx, h.db, job, database.JobStatusProcessing); err != nil {
		log.Error("mark job processing failed", slog.Any("error", err))
		return err
	}

	resultURL, genErr := h.service.GenerateResume(ctx, req, printer.PageFormat(job.Format))
	if genErr != nil {
		log.Error("generate resume failed", slog.Any("error", genErr))
		h.finishFailed(ctx, job, payload.CorrelationID, genErr, log)
		return genErr
	}

	h.finishCompleted(ctx, job, payload.CorrelationID, resultURL, log)
	log.Info("Resume document generation task completed.")
	return nil
}

func (h *PrintTaskHandler) finishFailed(ctx context.Context, job *database.PrintJob, correlationID string, genErr error, log *slog.Logger) {
	updates := map[string]any{
		"status":        database.JobStatusFailed,
		"error_code":    string(printer.ErrorCode(genErr)),
		"error_message": strings.TrimSpace(genErr.Error()),
	}
	if err := h.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		log.Error("update failed job failed", slog.Any("error", err))
	}

	notify := GenerationNotifyMessage{
		Status:        "error",
		JobID:         job.ID,
		DocumentID:    job.DocumentID,
		Kind:          job.Kind,
		CorrelationID: correlationID,
		ErrorCode:     wireErrorCode(genErr),
		ErrorMessage:  strings.TrimSpace(genErr.Error()),
	}
	if err := publishNotify(ctx, h.redisClient, job.OwnerID, notify); err != nil {
		log.Error("publish error notification failed", slog.Any("error", err))
	}
}

func (h *PrintTaskHandler) finishCompleted(ctx context.Context, job *database.PrintJob, correlationID string, resultURL string, log *slog.Logger) {
	updates := map[string]any{
		"status":     database.JobStatusCompleted,
		"result_url": resultURL,
	}
	if err := h.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		log.Error("update completed job failed", slog.Any("error", err))
	}

	notify := GenerationNotifyMessage{
		Status:        "completed",
		JobID:         job.ID,
		DocumentID:    job.DocumentID,
		Kind:          job.Kind,
		CorrelationID: correlationID,
		ResultURL:     resultURL,
		ErrorCode:     errcode.OK,
	}
	if err := publishNotify(ctx, h.redisClient, job.OwnerID, notify); err != nil {
		log.Error("publish completion notification failed", slog.Any("error", err))
	}
}

// loadJob fetches the job row and rebuilds the render request from its
// payload. A vanished job is skipped, not retried.
func loadJob(ctx context.Context, db *gorm.DB, jobID uint, log *slog.Logger) (*database.PrintJob, printer.RenderRequest, error) {
	var job database.PrintJob
	if err := db.WithContext(ctx).First(&job, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("print job not found, skipping task")
			return nil, printer.RenderRequest{}, nil
		}
		log.Error("query print job failed", slog.Any("error", err))
		return nil, printer.RenderRequest{}, err
	}

	var doc printer.Document
	if err := json.Unmarshal(job.Payload, &doc); err != nil {
		log.Error("decode job payload failed", slog.Any("error", err))
		return nil, printer.RenderRequest{}, err
	}

	req := printer.RenderRequest{
		OwnerID:    job.OwnerID,
		Title:      job.Title,
		DocumentID: job.DocumentID,
		Data:       doc,
	}
	return &job, req, nil
}

func setJobStatus(ctx context.Context, db *gorm.DB, job *database.PrintJob, status string) error {
	return db.WithContext(ctx).Model(job).Update("status", status).Error
}
