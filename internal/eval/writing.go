package eval

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bandprep/internal/jobs"
)

const writingTimeout = 2 * time.Minute

// Task types the scoring service accepts. Both task-2 variants grade against
// the same rubric, so they collapse to task_2 on the wire.
var allowedTaskTypes = map[string]bool{
	"academic_task_1": true,
	"general_task_1":  true,
	"task_2":          true,
}

// WritingClient scores essays. An optional chart image (academic task 1) is
// inlined as a base64 data URI; audio never flows through this client.
type WritingClient struct {
	URL       string
	UploadDir string
	Client    *http.Client
}

func NewWritingClient(url, uploadDir string) *WritingClient {
	return &WritingClient{
		URL:       url,
		UploadDir: uploadDir,
		Client:    &http.Client{Timeout: writingTimeout},
	}
}

type writingRequest struct {
	TaskType    string `json:"task_type"`
	TaskPrompt  string `json:"task_prompt"`
	Essay       string `json:"essay"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

func (c *WritingClient) Evaluate(ctx context.Context, job *jobs.Job) (json.RawMessage, error) {
	if job.TaskType == "" || job.TaskPrompt == "" || job.Content == "" {
		return nil, errorf("missing required fields: task_type='%s', task_prompt=%s, essay=%s",
			job.TaskType, presentOrEmpty(job.TaskPrompt), presentOrEmpty(job.Content))
	}

	taskType := job.TaskType
	if taskType == "academic_task_2" || taskType == "general_task_2" {
		taskType = "task_2"
	}
	if !allowedTaskTypes[taskType] {
		return nil, errorf("invalid task_type for AI service: '%s' (mapped to '%s')", job.TaskType, taskType)
	}

	req := writingRequest{
		TaskType:   taskType,
		TaskPrompt: job.TaskPrompt,
		Essay:      job.Content,
	}

	// The chart image is optional; a missing blob just means a text-only
	// evaluation, not a failure.
	if job.ImagePath != "" {
		if uri, ok := c.imageDataURI(job.ImagePath); ok {
			req.ImageBase64 = uri
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errorf("encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return nil, errorf("build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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

func (c *WritingClient) imageDataURI(storageKey string) (string, bool) {
	path := filepath.Join(c.UploadDir, storageKey)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	mime := http.DetectContentType(data)
	format := "jpeg"
	switch {
	case strings.Contains(mime, "png"):
		format = "png"
	case strings.Contains(mime, "gif"):
		format = "gif"
	case strings.Contains(mime, "webp"):
		format = "webp"
	}

	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(data), true
}

func presentOrEmpty(v string) string {
	if v == "" {
		return "empty"
	}
	return "present"
}
