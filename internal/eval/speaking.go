package eval

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"bandprep/internal/jobs"
)

// Audio transcription plus grading takes longer than text scoring.
const speakingTimeout = 3 * time.Minute

// SpeakingClient scores recorded answers. The speaking service runs next to
// the workers and reads the upload dir itself, so the request carries the
// file's path rather than its bytes. That saves re-uploading large audio at
// the cost of a shared filesystem.
type SpeakingClient struct {
	URL       string
	UploadDir string
	Client    *http.Client
}

func NewSpeakingClient(url, uploadDir string) *SpeakingClient {
	return &SpeakingClient{
		URL:       url,
		UploadDir: uploadDir,
		Client:    &http.Client{Timeout: speakingTimeout},
	}
}

func (c *SpeakingClient) Evaluate(ctx context.Context, job *jobs.Job) (json.RawMessage, error) {
	if job.TaskPrompt == "" {
		return nil, errorf("missing required field: task_prompt")
	}
	if job.AudioPath == "" {
		return nil, errorf("audio file not found: no file reference")
	}

	audioPath := filepath.Join(c.UploadDir, job.AudioPath)
	if _, err := os.Stat(audioPath); err != nil {
		return nil, errorf("audio file not found: %s", audioPath)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("task_prompt", job.TaskPrompt); err != nil {
		return nil, errorf("encode request: %v", err)
	}
	if err := mw.WriteField("audio_path", audioPath); err != nil {
		return nil, errorf("encode request: %v", err)
	}
	if err := mw.Close(); err != nil {
		return nil, errorf("encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/evaluate", &body)
	if err != nil {
		return nil, errorf("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, errorf("AI service request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errorf("read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorf("AI service returned HTTP %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	return decodeResult(respBody)
}
