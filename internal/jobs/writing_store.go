package jobs

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"
)

// WritingStore drains the writing_submissions queue.
type WritingStore struct {
	DB *gorm.DB
}

type writingRow struct {
	ID         uint64  `gorm:"column:id"`
	UserID     uint64  `gorm:"column:user_id"`
	TaskID     uint64  `gorm:"column:task_id"`
	TaskType   string  `gorm:"column:task_type"`
	TaskPrompt string  `gorm:"column:task_prompt"`
	Content    string  `gorm:"column:content"`
	WordCount  int     `gorm:"column:word_count"`
	ImagePath  *string `gorm:"column:image_path"`
}

// ClaimNext locks the oldest complete pending essay and flips it to
// processing, in one transaction. Rows missing task_type, task_prompt or
// content are skipped so they can never wedge the queue. Concurrent claimers
// are serialized by the row lock; SKIP LOCKED keeps them from queueing behind
// each other.
func (s *WritingStore) ClaimNext(ctx context.Context) (*Job, error) {
	var row writingRow
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Raw(`
select
  ws.id,
  ws.user_id,
  ws.task_id,
  ws.task_type,
  ws.task_prompt,
  ws.content,
  ws.word_count,
  f.storage_key as image_path
from writing_submissions ws
left join files f on f.id = ws.image_file_id
where ws.status = 'pending'
  and ws.task_type <> ''
  and ws.task_prompt <> ''
  and ws.content <> ''
order by ws.submitted_at asc
limit 1
for update of ws skip locked
`).Scan(&row).Error; err != nil {
			return err
		}
		if row.ID == 0 {
			return nil
		}
		return tx.Exec(`update writing_submissions set status='processing' where id=?`, row.ID).Error
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
		TaskType:   row.TaskType,
		TaskPrompt: row.TaskPrompt,
		Content:    row.Content,
		WordCount:  row.WordCount,
	}
	if row.ImagePath != nil {
		job.ImagePath = *row.ImagePath
	}
	return job, nil
}

func (s *WritingStore) MarkDone(ctx context.Context, id uint64, result json.RawMessage) error {
	return s.DB.WithContext(ctx).Exec(`
update writing_submissions
set status='done', analysis_result=?, error_message=null, processed_at=now()
where id=?`, string(result), id).Error
}

func (s *WritingStore) MarkFailed(ctx context.Context, id uint64, reason string) error {
	return s.DB.WithContext(ctx).Exec(`
update writing_submissions
set status='failed', analysis_result=null, error_message=?, processed_at=now()
where id=?`, reason, id).Error
}
