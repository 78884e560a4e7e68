package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bandprep/internal/auth"
	"bandprep/internal/submission"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusReader struct {
	writing  map[uint64]*submission.StatusView
	speaking map[uint64]*submission.StatusView
	owner    uint64
}

func (f *fakeStatusReader) WritingStatus(ctx context.Context, userID, id uint64) (*submission.StatusView, error) {
	return f.lookup(f.writing, userID, id)
}

func (f *fakeStatusReader) SpeakingStatus(ctx context.Context, userID, id uint64) (*submission.StatusView, error) {
	return f.lookup(f.speaking, userID, id)
}

func (f *fakeStatusReader) lookup(m map[uint64]*submission.StatusView, userID, id uint64) (*submission.StatusView, error) {
	// Ownership mismatch reads as nonexistent, same as the real store.
	if userID != f.owner {
		return nil, submission.ErrNotFound
	}
	v, ok := m[id]
	if !ok {
		return nil, submission.ErrNotFound
	}
	return v, nil
}

func statusRouter(reader StatusReader, userID uint64) http.Handler {
	h := &StatusHandler{Subs: reader}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	r.Get("/api/submissions/{id}/status", h.Writing)
	r.Get("/api/speaking/{id}/status", h.Speaking)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatusDoneSubmission(t *testing.T) {
	submitted := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	processed := submitted.Add(time.Minute)
	wc := 287

	reader := &fakeStatusReader{
		owner: 42,
		writing: map[uint64]*submission.StatusView{
			7: {
				ID:             7,
				Status:         submission.StatusDone,
				AnalysisResult: json.RawMessage(`{"overall_band":6.5}`),
				SubmittedAt:    submitted,
				ProcessedAt:    &processed,
				WordCount:      &wc,
			},
		},
	}

	rec := get(t, statusRouter(reader, 42), "/api/submissions/7/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OK         bool `json:"ok"`
		Submission struct {
			ID             uint64          `json:"id"`
			Status         string          `json:"status"`
			AnalysisResult json.RawMessage `json:"analysis_result"`
			ErrorMessage   *string         `json:"error_message"`
			WordCount      *int            `json:"word_count"`
		} `json:"submission"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.EqualValues(t, 7, resp.Submission.ID)
	assert.Equal(t, "done", resp.Submission.Status)
	assert.JSONEq(t, `{"overall_band":6.5}`, string(resp.Submission.AnalysisResult))
	assert.Nil(t, resp.Submission.ErrorMessage)
	require.NotNil(t, resp.Submission.WordCount)
	assert.Equal(t, 287, *resp.Submission.WordCount)
}

func TestStatusFailedSubmission(t *testing.T) {
	msg := "missing required fields: task_type=present, task_prompt=present, content=empty"
	reader := &fakeStatusReader{
		owner: 42,
		writing: map[uint64]*submission.StatusView{
			3: {ID: 3, Status: submission.StatusFailed, ErrorMessage: &msg, SubmittedAt: time.Now()},
		},
	}

	rec := get(t, statusRouter(reader, 42), "/api/submissions/3/status")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `"status":"failed"`)
	assert.Contains(t, body, "content")
	assert.Contains(t, body, `"analysis_result":null`)
}

func TestStatusOtherUsersJobReadsAsNotFound(t *testing.T) {
	reader := &fakeStatusReader{
		owner: 42,
		writing: map[uint64]*submission.StatusView{
			7: {ID: 7, Status: submission.StatusPending, SubmittedAt: time.Now()},
		},
	}

	// Authenticated as user 99, polling user 42's submission.
	rec := get(t, statusRouter(reader, 99), "/api/submissions/7/status")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Submission not found")
}

func TestStatusInvalidID(t *testing.T) {
	reader := &fakeStatusReader{owner: 42}
	rec := get(t, statusRouter(reader, 42), "/api/submissions/abc/status")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusPollingIsIdempotent(t *testing.T) {
	wc := 10
	reader := &fakeStatusReader{
		owner: 42,
		speaking: map[uint64]*submission.StatusView{
			5: {ID: 5, Status: submission.StatusProcessing, SubmittedAt: time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC), WordCount: &wc},
		},
	}
	router := statusRouter(reader, 42)

	first := get(t, router, "/api/speaking/5/status")
	second := get(t, router, "/api/speaking/5/status")

	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}
