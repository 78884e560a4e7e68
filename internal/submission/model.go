package submission

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Status lifecycle is forward-only: pending -> processing -> done|failed.
// Terminal rows are never reclaimed.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// WritingSubmission is one essay awaiting or having undergone evaluation.
// Exactly one of AnalysisResult / ErrorMessage is set once status is terminal.
type WritingSubmission struct {
	ID            uint64 `gorm:"primaryKey"`
	UserID        uint64 `gorm:"index;not null"`
	ExamVariantID uint64 `gorm:"not null"`
	TaskID        uint64 `gorm:"not null"`

	Content    string `gorm:"type:text;not null;default:''"`
	WordCount  int    `gorm:"not null;default:0"`
	TaskPrompt string `gorm:"type:text;not null;default:''"`
	TaskType   string `gorm:"type:text;not null;default:''"`

	ImageFileID *uint64

	Status         string          `gorm:"index;not null;default:'pending'"`
	AnalysisResult json.RawMessage `gorm:"type:jsonb"`
	ErrorMessage   *string         `gorm:"type:text"`

	SubmittedAt time.Time  `gorm:"index;not null;default:now()"`
	ProcessedAt *time.Time `gorm:"type:timestamptz"`
}

// SpeakingSubmission is one recorded speaking attempt.
type SpeakingSubmission struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null"`
	TaskID uint64 `gorm:"not null"`

	TaskPrompt string `gorm:"type:text;not null;default:''"`
	AudioURL   string `gorm:"type:text;not null;default:''"`

	FileID *uint64

	Status         string          `gorm:"index;not null;default:'pending'"`
	AnalysisResult json.RawMessage `gorm:"type:jsonb"`
	ErrorMessage   *string         `gorm:"type:text"`

	SubmittedAt time.Time  `gorm:"index;not null;default:now()"`
	ProcessedAt *time.Time `gorm:"type:timestamptz"`
}

// File records an uploaded blob. StorageKey is relative to the upload dir.
type File struct {
	ID         uint64    `gorm:"primaryKey"`
	StorageKey string    `gorm:"uniqueIndex;not null"`
	Mime       string    `gorm:"not null"`
	SizeBytes  int64     `gorm:"not null"`
	UploadedBy uint64    `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"not null;default:now()"`
}

// Task is a practice prompt from the question bank.
type Task struct {
	ID        uint64         `gorm:"primaryKey"`
	TaskType  string         `gorm:"index;not null"`
	Prompt    string         `gorm:"type:text;not null"`
	Topics    pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
	CreatedAt time.Time      `gorm:"not null;default:now()"`
}

// ExamVariant groups tasks into a mock exam (Academic / General Training).
type ExamVariant struct {
	ID        uint64    `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"not null;default:now()"`
}

// UserTaskCompletion marks a task as attempted. Insert-ignore on conflict.
type UserTaskCompletion struct {
	UserID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	TaskID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	ExamVariantID uint64    `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null;default:now()"`
}
