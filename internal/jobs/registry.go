package jobs

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Registry tracks worker liveness in worker_instances.
type Registry struct {
	DB *gorm.DB
}

// Heartbeat upserts this worker's liveness row. Keyed on worker_id so a
// restarted process with the same identity refreshes in place.
func (r *Registry) Heartbeat(ctx context.Context, workerID string) error {
	return r.DB.WithContext(ctx).Exec(`
insert into worker_instances (worker_id, last_heartbeat, status)
values (?, now(), 'active')
on conflict (worker_id) do update
set last_heartbeat = now(), status = 'active'
`, workerID).Error
}

// Active lists workers whose heartbeat falls within ActiveWindow. Stale rows
// stay in the table; they simply drop out of this view.
func (r *Registry) Active(ctx context.Context) ([]WorkerInstance, error) {
	var out []WorkerInstance
	cutoff := time.Now().Add(-ActiveWindow)
	err := r.DB.WithContext(ctx).
		Where("last_heartbeat >= ?", cutoff).
		Order("last_heartbeat desc").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
