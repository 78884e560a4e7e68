package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job is a claimed submission as the worker sees it: the superset of both
// pipelines' payloads. ImagePath and AudioPath are storage keys relative to
// the upload dir, already resolved through the files table at claim time.
type Job struct {
	ID         uint64
	UserID     uint64
	TaskID     uint64
	TaskType   string
	TaskPrompt string
	Content    string
	WordCount  int
	ImagePath  string
	AudioURL   string
	AudioPath  string
}

// Store is the durable queue for one pipeline. ClaimNext hands a pending job
// to exactly one caller under concurrent polling and returns (nil, nil) when
// nothing is claimable. MarkDone and MarkFailed write the terminal state;
// exactly one of result/reason ends up stored.
type Store interface {
	ClaimNext(ctx context.Context) (*Job, error)
	MarkDone(ctx context.Context, id uint64, result json.RawMessage) error
	MarkFailed(ctx context.Context, id uint64, reason string) error
}

// Heartbeater publishes worker liveness. Failures are advisory only.
type Heartbeater interface {
	Heartbeat(ctx context.Context, workerID string) error
}

// Evaluator turns a claimed job into a normalized scoring result.
type Evaluator interface {
	Evaluate(ctx context.Context, job *Job) (json.RawMessage, error)
}

// WorkerInstance is the liveness row for one worker process. Rows are
// upserted on every loop pass and never deleted; staleness is inferred from
// LastHeartbeat age.
type WorkerInstance struct {
	WorkerID      string    `gorm:"primaryKey"`
	LastHeartbeat time.Time `gorm:"not null"`
	Status        string    `gorm:"not null;default:'active'"`
}

func (WorkerInstance) TableName() string { return "worker_instances" }

// ActiveWindow bounds how old a heartbeat may be for a worker to count as
// alive.
const ActiveWindow = 5 * time.Minute

// ValidateWriting re-checks payload completeness after claim. The claim
// predicate already filters incomplete rows; this keeps a guaranteed-invalid
// request from ever reaching the evaluator if it slips through.
func ValidateWriting(j *Job) error {
	if j.TaskType == "" || j.TaskPrompt == "" || j.Content == "" {
		return fmt.Errorf("missing required fields: task_type=%s, task_prompt=%s, content=%s",
			presence(j.TaskType), presence(j.TaskPrompt), presence(j.Content))
	}
	return nil
}

// ValidateSpeaking is the speaking-pipeline counterpart.
func ValidateSpeaking(j *Job) error {
	if j.TaskPrompt == "" || j.AudioPath == "" {
		return fmt.Errorf("missing required fields: task_prompt=%s, audio_path=%s",
			presence(j.TaskPrompt), presence(j.AudioPath))
	}
	return nil
}

func presence(v string) string {
	if v == "" {
		return "empty"
	}
	return "present"
}
