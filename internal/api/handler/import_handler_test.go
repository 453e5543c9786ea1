package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/leadforge/leadforge/internal/api/dispatch"
	"github.com/leadforge/leadforge/internal/api/domain"
	"github.com/leadforge/leadforge/internal/api/dto"
	"github.com/leadforge/leadforge/internal/api/model"
	"github.com/leadforge/leadforge/internal/api/router/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	createErr error
	getErr    error
	listErr   error

	created []model.ImportJob
	jobs    map[string]*model.ImportJob
	listed  []model.ImportJob

	gotUploaderID int64
	gotLimit      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: make(map[string]*model.ImportJob)}
}

func (s *fakeStore) CreateImportJob(ctx context.Context, job *model.ImportJob) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *job)
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeStore) GetImportJobByID(ctx context.Context, jobID string) (*model.ImportJob, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrImportJobNotFound
	}
	return job, nil
}

func (s *fakeStore) ListImportJobsByUploader(ctx context.Context, uploaderID int64, limit int) ([]model.ImportJob, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.gotUploaderID = uploaderID
	s.gotLimit = limit
	return s.listed, nil
}

type fakeBlobStore struct {
	putErr error

	keys         []string
	data         [][]byte
	contentTypes []string
}

func (b *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if b.putErr != nil {
		return b.putErr
	}
	b.keys = append(b.keys, key)
	b.data = append(b.data, data)
	b.contentTypes = append(b.contentTypes, contentType)
	return nil
}

type fakeJobDispatcher struct {
	err        error
	dispatched []dispatch.JobMessage
}

func (d *fakeJobDispatcher) DispatchCSVJob(ctx context.Context, msg dispatch.JobMessage) error {
	if d.err != nil {
		return d.err
	}
	d.dispatched = append(d.dispatched, msg)
	return nil
}

type testEnv struct {
	store      *fakeStore
	blobs      *fakeBlobStore
	dispatcher *fakeJobDispatcher
	router     *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		store:      newFakeStore(),
		blobs:      &fakeBlobStore{},
		dispatcher: &fakeJobDispatcher{},
	}

	h := NewImportHandler(&Dependencies{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:          env.store,
		Blobs:          env.blobs,
		Dispatcher:     env.dispatcher,
		KeyPrefix:      "csv",
		MaxUploadBytes: 1 << 20,
	})

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.Use(identity.Middleware())
	v1.POST("/imports", h.UploadCSV)
	v1.GET("/imports", h.ListImportJobs)
	v1.GET("/imports/:job_id", h.GetImportJob)
	env.router = r
	return env
}

func multipartBody(t *testing.T, fileName, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return &buf, w.FormDataContentType()
}

func doUpload(env *testEnv, body *bytes.Buffer, contentType, uploader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", contentType)
	if uploader != "" {
		req.Header.Set(identity.HeaderName, uploader)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadCSV(t *testing.T) {
	csvContent := "name,phone\nAlice,+14155551234\n"

	t.Run("stages file, creates job, dispatches", func(t *testing.T) {
		env := newTestEnv(t)
		body, contentType := multipartBody(t, "contacts.csv", "text/csv", csvContent)

		rec := doUpload(env, body, contentType, "42")
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp dto.UploadResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, domain.JobStatusPending, resp.Status)
		_, err := uuid.Parse(resp.JobID)
		assert.NoError(t, err)

		require.Len(t, env.blobs.keys, 1)
		assert.Contains(t, env.blobs.keys[0], "csv/")
		assert.Contains(t, env.blobs.keys[0], "contacts.csv")
		assert.Equal(t, []byte(csvContent), env.blobs.data[0])

		require.Len(t, env.store.created, 1)
		job := env.store.created[0]
		assert.Equal(t, resp.JobID, job.ID)
		assert.Equal(t, int64(42), job.UploaderID)
		assert.Equal(t, "contacts.csv", job.FileName)
		assert.Equal(t, env.blobs.keys[0], job.StorageKey)
		assert.Equal(t, domain.JobStatusPending, job.Status)

		require.Len(t, env.dispatcher.dispatched, 1)
		msg := env.dispatcher.dispatched[0]
		assert.Equal(t, resp.JobID, msg.JobID)
		assert.Equal(t, job.StorageKey, msg.StorageKey)
		assert.Equal(t, int64(42), msg.UploaderID)
	})

	t.Run("missing identity header", func(t *testing.T) {
		env := newTestEnv(t)
		body, contentType := multipartBody(t, "contacts.csv", "text/csv", csvContent)

		rec := doUpload(env, body, contentType, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, env.store.created)
	})

	t.Run("missing file part", func(t *testing.T) {
		env := newTestEnv(t)
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		require.NoError(t, w.Close())

		rec := doUpload(env, &buf, w.FormDataContentType(), "42")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects non-csv content type", func(t *testing.T) {
		env := newTestEnv(t)
		body, contentType := multipartBody(t, "contacts.pdf", "application/pdf", csvContent)

		rec := doUpload(env, body, contentType, "42")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, env.blobs.keys)
		assert.Empty(t, env.store.created)
		assert.Empty(t, env.dispatcher.dispatched)
	})

	t.Run("rejects oversized file before staging", func(t *testing.T) {
		env := newTestEnv(t)
		big := bytes.Repeat([]byte("a"), (1<<20)+1)
		body, contentType := multipartBody(t, "big.csv", "text/csv", string(big))

		rec := doUpload(env, body, contentType, "42")
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Empty(t, env.blobs.keys)
		assert.Empty(t, env.store.created)
	})

	t.Run("staging failure returns 500 without a job", func(t *testing.T) {
		env := newTestEnv(t)
		env.blobs.putErr = assert.AnError
		body, contentType := multipartBody(t, "contacts.csv", "text/csv", csvContent)

		rec := doUpload(env, body, contentType, "42")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, env.store.created)
		assert.Empty(t, env.dispatcher.dispatched)
	})

	t.Run("dispatch failure keeps the pending job", func(t *testing.T) {
		env := newTestEnv(t)
		env.dispatcher.err = assert.AnError
		body, contentType := multipartBody(t, "contacts.csv", "text/csv", csvContent)

		rec := doUpload(env, body, contentType, "42")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		require.Len(t, env.store.created, 1)
		assert.Equal(t, domain.JobStatusPending, env.store.created[0].Status)
	})
}

func TestGetImportJob(t *testing.T) {
	jobID := "7d9f1c3e-5a20-4b8f-9a61-0f3b2c4d5e6f"

	t.Run("returns the job", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.jobs[jobID] = &model.ImportJob{
			ID:                jobID,
			UploaderID:        42,
			FileName:          "contacts.csv",
			Status:            domain.JobStatusCompleted,
			TotalRows:         10,
			SuccessfulImports: 8,
			FailedImports:     2,
			ProcessingTimeMs:  sql.NullInt64{Int64: 1500, Valid: true},
			CreatedAt:         time.Now().UTC(),
			CompletedAt:       sql.NullTime{Time: time.Now().UTC(), Valid: true},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+jobID, nil)
		req.Header.Set(identity.HeaderName, "42")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp dto.ImportJobDTO
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, jobID, resp.ID)
		assert.Equal(t, domain.JobStatusCompleted, resp.Status)
		assert.Equal(t, 10, resp.TotalRows)
		assert.Equal(t, 8, resp.SuccessfulImports)
		assert.Equal(t, 2, resp.FailedImports)
		require.NotNil(t, resp.ProcessingTimeMs)
		assert.Equal(t, int64(1500), *resp.ProcessingTimeMs)
		assert.NotNil(t, resp.CompletedAt)
	})

	t.Run("invalid uuid", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/not-a-uuid", nil)
		req.Header.Set(identity.HeaderName, "42")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown job", func(t *testing.T) {
		env := newTestEnv(t)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+jobID, nil)
		req.Header.Set(identity.HeaderName, "42")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListImportJobs(t *testing.T) {
	t.Run("lists the uploader's jobs with default limit", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.listed = []model.ImportJob{
			{ID: "7d9f1c3e-5a20-4b8f-9a61-0f3b2c4d5e6f", Status: domain.JobStatusCompleted},
			{ID: "0b4d7e2a-9c15-4f3d-8a6b-1e2f3c4d5a6b", Status: domain.JobStatusPending},
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports", nil)
		req.Header.Set(identity.HeaderName, "42")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, int64(42), env.store.gotUploaderID)
		assert.Equal(t, defaultListLimit, env.store.gotLimit)

		var resp dto.ListImportJobsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Jobs, 2)
		assert.Equal(t, domain.JobStatusCompleted, resp.Jobs[0].Status)
	})

	t.Run("limit is capped", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports?limit=500", nil)
		req.Header.Set(identity.HeaderName, "42")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, maxListLimit, env.store.gotLimit)
	})

	t.Run("rejects non-positive limit", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports?limit=0", nil)
		req.Header.Set(identity.HeaderName, "42")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"contacts.csv", "contacts.csv"},
		{"../../etc/passwd", "passwd"},
		{"my leads (final).csv", "my_leads__final_.csv"},
		{"", "upload.csv"},
		{"..", "upload.csv"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFileName(tt.in), tt.in)
	}
}
