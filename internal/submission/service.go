package submission

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("not found")
var ErrTaskNotFound = errors.New("task not found")
var ErrVariantNotFound = errors.New("exam variant not found")

type Service struct {
	DB *gorm.DB
}

type CreateWritingInput struct {
	TaskID        uint64
	TaskType      string
	ExamVariantID uint64
	Essay         string
	TaskPrompt    string
	ImageFileID   *uint64
}

// CreateWriting inserts a pending essay job and marks the task attempted,
// atomically. The worker picks the row up from there.
func (s *Service) CreateWriting(ctx context.Context, userID uint64, in CreateWritingInput) (uint64, error) {
	var id uint64

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := existsByID(tx, &Task{}, in.TaskID, ErrTaskNotFound); err != nil {
			return err
		}
		if err := existsByID(tx, &ExamVariant{}, in.ExamVariantID, ErrVariantNotFound); err != nil {
			return err
		}

		ws := WritingSubmission{
			UserID:        userID,
			ExamVariantID: in.ExamVariantID,
			TaskID:        in.TaskID,
			Content:       in.Essay,
			WordCount:     CountWords(in.Essay),
			TaskPrompt:    in.TaskPrompt,
			TaskType:      in.TaskType,
			ImageFileID:   in.ImageFileID,
			Status:        StatusPending,
			SubmittedAt:   time.Now(),
		}
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		id = ws.ID

		return markCompleted(tx, userID, in.TaskID, in.ExamVariantID)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

type CreateSpeakingInput struct {
	TaskID     uint64
	TaskPrompt string
	AudioURL   string
	FileID     *uint64
}

func (s *Service) CreateSpeaking(ctx context.Context, userID uint64, in CreateSpeakingInput) (uint64, error) {
	var id uint64

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := existsByID(tx, &Task{}, in.TaskID, ErrTaskNotFound); err != nil {
			return err
		}

		ss := SpeakingSubmission{
			UserID:      userID,
			TaskID:      in.TaskID,
			TaskPrompt:  in.TaskPrompt,
			AudioURL:    in.AudioURL,
			FileID:      in.FileID,
			Status:      StatusPending,
			SubmittedAt: time.Now(),
		}
		if err := tx.Create(&ss).Error; err != nil {
			return err
		}
		id = ss.ID

		return markCompleted(tx, userID, in.TaskID, 0)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SaveFile records an uploaded blob's metadata and returns its id.
func (s *Service) SaveFile(ctx context.Context, userID uint64, storageKey, mime string, size int64) (uint64, error) {
	f := File{
		StorageKey: storageKey,
		Mime:       mime,
		SizeBytes:  size,
		UploadedBy: userID,
	}
	if err := s.DB.WithContext(ctx).Create(&f).Error; err != nil {
		return 0, err
	}
	return f.ID, nil
}

func existsByID(tx *gorm.DB, model any, id uint64, notFound error) error {
	var n int64
	if err := tx.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func markCompleted(tx *gorm.DB, userID, taskID, variantID uint64) error {
	c := UserTaskCompletion{UserID: userID, TaskID: taskID, ExamVariantID: variantID}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error
}
