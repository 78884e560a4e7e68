package eval

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"bandprep/internal/jobs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writingJob() *jobs.Job {
	return &jobs.Job{
		ID:         1,
		TaskType:   "academic_task_2",
		TaskPrompt: "Some people believe that universities should accept equal numbers of male and female students.",
		Content:    "In today's world, the question of gender balance in higher education remains contested.",
	}
}

func TestWritingEvaluateSuccess(t *testing.T) {
	var gotBody writingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/evaluate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"overall_band":6.5,"TR":6.0,"CC":7.0}}`))
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	result, err := c.Evaluate(context.Background(), writingJob())
	require.NoError(t, err)

	// Both task-2 variants collapse to task_2 on the wire.
	assert.Equal(t, "task_2", gotBody.TaskType)
	assert.NotEmpty(t, gotBody.Essay)
	assert.Empty(t, gotBody.ImageBase64)

	var parsed struct {
		OverallBand float64 `json:"overall_band"`
	}
	require.NoError(t, json.Unmarshal(result, &parsed))
	assert.Equal(t, 6.5, parsed.OverallBand)
}

func TestWritingEvaluateBareResultBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"overall_band":7.0,"comment":"well organized"}`))
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	result, err := c.Evaluate(context.Background(), writingJob())
	require.NoError(t, err)
	assert.JSONEq(t, `{"overall_band":7.0,"comment":"well organized"}`, string(result))
}

func TestWritingEvaluateDeclaredFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"detail":"rate limited"}`))
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	_, err := c.Evaluate(context.Background(), writingJob())
	require.Error(t, err)

	var evalErr *Error
	require.ErrorAs(t, err, &evalErr)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestWritingEvaluateNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	_, err := c.Evaluate(context.Background(), writingJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")
}

func TestWritingEvaluateInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway timeout</html>`))
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	_, err := c.Evaluate(context.Background(), writingJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON response")
}

func TestWritingEvaluateMissingFieldsShortCircuits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	j := writingJob()
	j.Content = ""

	_, err := c.Evaluate(context.Background(), j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "essay=empty")
	assert.EqualValues(t, 0, hits.Load(), "no network call for an invalid payload")
}

func TestWritingEvaluateRejectsUnknownTaskType(t *testing.T) {
	c := NewWritingClient("http://unused", t.TempDir())
	j := writingJob()
	j.TaskType = "task_3"

	_, err := c.Evaluate(context.Background(), j)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid task_type")
}

func TestWritingEvaluateInlinesChartImage(t *testing.T) {
	dir := t.TempDir()
	key := filepath.Join("submissions", "2026", "08", "chart_1.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, key)), 0o755))
	// Minimal PNG signature so content sniffing sees image/png.
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	require.NoError(t, os.WriteFile(filepath.Join(dir, key), png, 0o644))

	var gotBody writingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"overall_band":5.5}}`))
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, dir)
	j := writingJob()
	j.TaskType = "academic_task_1"
	j.ImagePath = key

	_, err := c.Evaluate(context.Background(), j)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotBody.ImageBase64, "data:image/png;base64,"), "got %q", gotBody.ImageBase64)
}

func TestWritingEvaluateMissingImageIsSkipped(t *testing.T) {
	var gotBody writingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"ok":true,"result":{"overall_band":6.0}}`))
	}))
	defer srv.Close()

	c := NewWritingClient(srv.URL, t.TempDir())
	j := writingJob()
	j.ImagePath = "submissions/2026/08/gone.png"

	_, err := c.Evaluate(context.Background(), j)
	require.NoError(t, err, "a missing chart image means text-only evaluation, not failure")
	assert.Empty(t, gotBody.ImageBase64)
}

func TestDecodeResultEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr string
	}{
		{name: "wrapped ok", body: `{"ok":true,"result":{"overall_band":6.5}}`, want: `{"overall_band":6.5}`},
		{name: "bare object", body: `{"overall_band":8.0}`, want: `{"overall_band":8.0}`},
		{name: "ok true without result", body: `{"ok":true}`, want: `{"ok":true}`},
		{name: "ok false with detail", body: `{"ok":false,"detail":"model overloaded"}`, wantErr: "model overloaded"},
		{name: "ok false with error", body: `{"ok":false,"error":"bad audio"}`, wantErr: "bad audio"},
		{name: "ok false bare", body: `{"ok":false}`, wantErr: "unknown error"},
		{name: "not json", body: `oops`, wantErr: "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeResult([]byte(tt.body))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}
