package memory

import (
	"context"
	"sort"

	"github.com/riskibarqy/predictor-league/internal/domain/jobscheduler"
)

type JobRunRepository struct {
	db *Database
}

func NewJobRunRepository(db *Database) *JobRunRepository {
	return &JobRunRepository{db: db}
}

func (r *JobRunRepository) UpsertEvent(_ context.Context, event jobscheduler.RunEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.runs[event.RunID] = event
	return nil
}

func (r *JobRunRepository) ListRecent(_ context.Context, jobName string, limit int) ([]jobscheduler.RunEvent, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]jobscheduler.RunEvent, 0)
	for _, event := range r.db.runs {
		if jobName == "" || event.JobName == jobName {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
