package db

import (
	"fmt"

	"bandprep/internal/auth"
	"bandprep/internal/jobs"
	"bandprep/internal/submission"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

// Ping verifies store connectivity. Workers treat a failure here as fatal.
func Ping(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&submission.File{},
		&submission.Task{},
		&submission.ExamVariant{},
		&submission.UserTaskCompletion{},
		&submission.WritingSubmission{},
		&submission.SpeakingSubmission{},
		&jobs.WorkerInstance{},
	); err != nil {
		return err
	}

	// Queue scans are always (status, submitted_at); keep those hot.
	stmts := []string{
		`create index if not exists idx_writing_queue on writing_submissions(status, submitted_at);`,
		`create index if not exists idx_speaking_queue on speaking_submissions(status, submitted_at);`,
		`create index if not exists idx_writing_user on writing_submissions(user_id, submitted_at desc);`,
		`create index if not exists idx_speaking_user on speaking_submissions(user_id, submitted_at desc);`,
		`create index if not exists idx_tasks_topics on tasks using gin (topics);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
