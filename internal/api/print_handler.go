package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"resumepress/internal/api/middleware"
	"resumepress/internal/database"
	"resumepress/internal/printer"
	"resumepress/internal/tasks"
)

// taskEnqueuer is the slice of asynq.Client the handler needs.
type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PrintHandler accepts generation requests, records them as jobs and hands
// them to the queue.
type PrintHandler struct {
	db    *gorm.DB
	queue taskEnqueuer
}

func NewPrintHandler(db *gorm.DB, queue taskEnqueuer) *PrintHandler {
	return &PrintHandler{db: db, queue: queue}
}

type generateRequest struct {
	OwnerID    uint             `json:"owner_id" binding:"required"`
	Title      string           `json:"title"`
	DocumentID string           `json:"document_id"`
	Format     string           `json:"format"`
	Data       printer.Document `json:"data"`
}

type jobResponse struct {
	JobID      uint   `json:"job_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	ResultURL  string `json:"result_url,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Error      string `json:"error_message,omitempty"`
}

// CreatePrintJob handles POST /v1/print.
func (h *PrintHandler) CreatePrintJob(c *gin.Context) {
	h.createJob(c, database.JobKindPrint)
}

// CreatePreviewJob handles POST /v1/preview.
func (h *PrintHandler) CreatePreviewJob(c *gin.Context) {
	h.createJob(c, database.JobKindPreview)
}

func (h *PrintHandler) createJob(c *gin.Context, kind string) {
	log := middleware.LoggerFromContext(c)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "invalid request body")
		return
	}
	if !printer.PageFormat(req.Format).Valid() {
		BadRequest(c, "unsupported page format")
		return
	}
	if len(req.Data.Layout) == 0 {
		BadRequest(c, "resume layout is empty")
		return
	}
	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}

	payload, err := json.Marshal(req.Data)
	if err != nil {
		Internal(c, "encode resume payload failed")
		return
	}

	job := database.PrintJob{
		OwnerID:    req.OwnerID,
		DocumentID: req.DocumentID,
		Title:      req.Title,
		Kind:       kind,
		Format:     req.Format,
		Payload:    datatypes.JSON(payload),
		Status:     database.JobStatusPending,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&job).Error; err != nil {
		log.Error("create print job failed", slog.Any("error", err))
		Internal(c, "create job failed")
		return
	}

	correlationID := middleware.GetCorrelationID(c)

	var task *asynq.Task
	if kind == database.JobKindPreview {
		task, err = tasks.NewResumePreviewTask(job.ID, correlationID)
	} else {
		task, err = tasks.NewResumePrintTask(job.ID, correlationID)
	}
	if err != nil {
		log.Error("build generation task failed", slog.Any("error", err))
		Internal(c, "enqueue job failed")
		return
	}

	if _, err := h.queue.EnqueueContext(c.Request.Context(), task); err != nil {
		log.Error("enqueue generation task failed", slog.Any("error", err))
		Internal(c, "enqueue job failed")
		return
	}

	log.Info("generation job enqueued",
		slog.Uint64("job_id", uint64(job.ID)),
		slog.String("kind", kind),
		slog.String("document_id", job.DocumentID),
	)
	c.JSON(http.StatusAccepted, jobResponse{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
		Status:     job.Status,
	})
}

// GetJob handles GET /v1/jobs/:id.
func (h *PrintHandler) GetJob(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid job id")
		return
	}

	var job database.PrintJob
	if err := h.db.WithContext(c.Request.Context()).First(&job, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "job not found")
			return
		}
		Internal(c, "query job failed")
		return
	}

	c.JSON(http.StatusOK, jobResponse{
		JobID:      job.ID,
		DocumentID: job.DocumentID,
		Status:     job.Status,
		ResultURL:  job.ResultURL,
		ErrorCode:  job.ErrorCode,
		Error:      job.ErrorMessage,
	})
}
