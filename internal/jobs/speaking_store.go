package jobs

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
)

// SpeakingStore drains the speaking_submissions queue.
type SpeakingStore struct {
	DB *gorm.DB
}

type speakingRow struct {
	ID         uint64  `gorm:"column:id"`
	UserID     uint64  `gorm:"column:user_id"`
	TaskID     uint64  `gorm:"column:task_id"`
	TaskPrompt string  `gorm:"column:task_prompt"`
	AudioURL   string  `gorm:"column:audio_url"`
	AudioPath  *string `gorm:"column:audio_path"`
}

// ClaimNext mirrors WritingStore.ClaimNext for spoken submissions. The
// completeness predicate here is task_prompt plus audio_url.
func (s *SpeakingStore) ClaimNext(ctx context.Context) (*Job, error) {
	var row speakingRow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(`
select
  ss.id,
  ss.user_id,
  ss.task_id,
  ss.task_prompt,
  ss.audio_url,
  f.storage_key as audio_path
from speaking_submissions ss
left join files f on f.id = ss.file_id
where ss.status = 'pending'
  and ss.task_prompt <> ''
  and ss.audio_url <> ''
order by ss.submitted_at asc
limit 1
for update of ss skip locked
`).Scan(&row).Error; err != nil {
			return err
		}
		if row.ID == 0 {
			return nil
		}
		return tx.Exec(`update speaking_submissions set status='processing' where id=?`, row.ID).Error
	})
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}

	job := &Job{
		ID:         row.ID,
		UserID:     row.UserID,
		TaskID:     row.TaskID,
		TaskPrompt: row.TaskPrompt,
		AudioURL:   row.AudioURL,
	}
	if row.AudioPath != nil {
		job.AudioPath = *row.AudioPath
	}
	return job, nil
}

func (s *SpeakingStore) MarkDone(ctx context.Context, id uint64, result json.RawMessage) error {
	return s.DB.WithContext(ctx).Exec(`
update speaking_submissions
set status='done', analysis_result=?, error_message=null, processed_at=now()
where id=?`, string(result), id).Error
}

func (s *SpeakingStore) MarkFailed(ctx context.Context, id uint64, reason string) error {
	return s.DB.WithContext(ctx).Exec(`
update speaking_submissions
set status='failed', analysis_result=null, error_message=?, processed_at=now()
where id=?`, reason, id).Error
}
