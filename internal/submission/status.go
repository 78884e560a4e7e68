package submission

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// StatusView is what the polling endpoint exposes. AnalysisResult is nil
// unless the stored payload parses cleanly; a corrupt result must not break
// polling.
type StatusView struct {
	ID             uint64          `json:"id"`
	Status         string          `json:"status"`
	AnalysisResult json.RawMessage `json:"analysis_result"`
	ErrorMessage   *string         `json:"error_message"`
	SubmittedAt    time.Time       `json:"submitted_at"`
	ProcessedAt    *time.Time      `json:"processed_at"`
	WordCount      *int            `json:"word_count,omitempty"`
}

// WritingStatus returns the current state of a writing submission, scoped to
// its owner. Another user's submission reads as ErrNotFound.
func (s *Service) WritingStatus(ctx context.Context, userID, id uint64) (*StatusView, error) {
	var ws WritingSubmission
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&ws).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	v := &StatusView{
		ID:             ws.ID,
		Status:         ws.Status,
		AnalysisResult: sanitizeResult(ws.AnalysisResult),
		ErrorMessage:   ws.ErrorMessage,
		SubmittedAt:    ws.SubmittedAt,
		ProcessedAt:    ws.ProcessedAt,
	}
	wc := ws.WordCount
	v.WordCount = &wc
	return v, nil
}

func (s *Service) SpeakingStatus(ctx context.Context, userID, id uint64) (*StatusView, error) {
	var ss SpeakingSubmission
	err := s.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&ss).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &StatusView{
		ID:             ss.ID,
		Status:         ss.Status,
		AnalysisResult: sanitizeResult(ss.AnalysisResult),
		ErrorMessage:   ss.ErrorMessage,
		SubmittedAt:    ss.SubmittedAt,
		ProcessedAt:    ss.ProcessedAt,
	}, nil
}

func sanitizeResult(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return nil
	}
	return raw
}
