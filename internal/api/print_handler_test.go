package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"resumepress/internal/database"
	"resumepress/internal/tasks"
)

type fakeEnqueuer struct {
	enqueued []*asynq.Task
	err      error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, task)
	return &asynq.TaskInfo{}, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.PrintJob{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestRouter(db *gorm.DB, queue taskEnqueuer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewPrintHandler(db, queue)
	router.POST("/v1/print", h.CreatePrintJob)
	router.POST("/v1/preview", h.CreatePreviewJob)
	router.GET("/v1/jobs/:id", h.GetJob)
	return router
}

func printRequestBody(t *testing.T, format string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"owner_id": 1,
		"title":    "My Resume",
		"format":   format,
		"data": map[string]any{
			"layout": [][2][]string{
				{{"summary", "experience"}, {"skills"}},
			},
			"css": map[string]any{"visible": false, "value": ""},
		},
	})
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestCreatePrintJob(t *testing.T) {
	db := newTestDB(t)
	queue := &fakeEnqueuer{}
	router := newTestRouter(db, queue)

	req := httptest.NewRequest(http.MethodPost, "/v1/print", printRequestBody(t, "a4"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	var resp jobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != database.JobStatusPending {
		t.Errorf("status = %q, want %q", resp.Status, database.JobStatusPending)
	}
	if resp.DocumentID == "" {
		t.Error("document id was not assigned")
	}

	var job database.PrintJob
	if err := db.First(&job, resp.JobID).Error; err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job.Kind != database.JobKindPrint || job.Format != "a4" {
		t.Errorf("job kind=%q format=%q", job.Kind, job.Format)
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(queue.enqueued))
	}
	if queue.enqueued[0].Type() != tasks.TypeResumePrint {
		t.Errorf("task type = %q, want %q", queue.enqueued[0].Type(), tasks.TypeResumePrint)
	}
}

func TestCreatePreviewJob(t *testing.T) {
	db := newTestDB(t)
	queue := &fakeEnqueuer{}
	router := newTestRouter(db, queue)

	req := httptest.NewRequest(http.MethodPost, "/v1/preview", printRequestBody(t, ""))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0].Type() != tasks.TypeResumePreview {
		t.Fatalf("expected one preview task, got %v", queue.enqueued)
	}
}

func TestCreatePrintJob_Rejections(t *testing.T) {
	db := newTestDB(t)
	queue := &fakeEnqueuer{}
	router := newTestRouter(db, queue)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"owner_id": `},
		{"missing owner", `{"title":"x","data":{"layout":[[["a"],[]]]}}`},
		{"unknown format", `{"owner_id":1,"format":"tabloid","data":{"layout":[[["a"],[]]]}}`},
		{"empty layout", `{"owner_id":1,"data":{"layout":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/print", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}

	if len(queue.enqueued) != 0 {
		t.Errorf("rejected requests enqueued %d tasks", len(queue.enqueued))
	}
}

func TestGetJob(t *testing.T) {
	db := newTestDB(t)
	router := newTestRouter(db, &fakeEnqueuer{})

	job := database.PrintJob{
		OwnerID:    1,
		DocumentID: "doc-42",
		Kind:       database.JobKindPrint,
		Status:     database.JobStatusCompleted,
		ResultURL:  "https://example.invalid/resumes/1/doc-42.pdf",
	}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/v1/jobs/%d", job.ID), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var resp jobResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != database.JobStatusCompleted || resp.ResultURL != job.ResultURL {
		t.Errorf("response = %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/999", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing job status = %d, want 404", w.Code)
	}
}
