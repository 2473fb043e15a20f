package worker

import (
	"context"
	"encoding/json"
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

// PreviewTaskHandler consumes preview snapshot tasks.
type PreviewTaskHandler struct {
	db          *gorm.DB
	service     *printer.Service
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewPreviewTaskHandler(
	db *gorm.DB,
	service *printer.Service,
	redisClient *redis.Client,
	logger *slog.Logger,
) *PreviewTaskHandler {
	return &PreviewTaskHandler{
		db:          db,
		service:     service,
		redisClient: redisClient,
		logger:      logger,
	}
}

// ProcessTask implements asynq.Handler.
func (h *PreviewTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
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
	log.Info("Starting resume preview generation task...")

	job, req, err := loadJob(ctx, h.db, payload.JobID, log)
	if err != nil || job == nil {
		return err
	}

	if err := setJobStatus(ctx, h.db, job, database.JobStatusProcessing); err != nil {
		log.Error("mark job processing failed", slog.Any("error", err))
		return err
	}

	resultURL, genErr := h.service.GeneratePreview(ctx, req)
	if genErr != nil {
		log.Error("generate preview failed", slog.Any("error", genErr))

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
			CorrelationID: payload.CorrelationID,
			ErrorCode:     wireErrorCode(genErr),
			ErrorMessage:  strings.TrimSpace(genErr.Error()),
		}
		if err := publishNotify(ctx, h.redisClient, job.OwnerID, notify); err != nil {
			log.Error("publish error notification failed", slog.Any("error", err))
		}
		return genErr
	}

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
		CorrelationID: payload.CorrelationID,
		ResultURL:     resultURL,
		ErrorCode:     errcode.OK,
	}
	if err := publishNotify(ctx, h.redisClient, job.OwnerID, notify); err != nil {
		log.Error("publish completion notification failed", slog.Any("error", err))
	}

	log.Info("Resume preview generation task completed.")
	return nil
}
