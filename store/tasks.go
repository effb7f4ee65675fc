package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/todoapi/models"
)

// Tasks reads the todo table on behalf of an authenticated assignee.
// Every query is scoped to the assignee.
type Tasks struct {
	db      bun.IDB
	timeout time.Duration
}

// NewTasks returns a Tasks store backed by db. Only WithTimeout applies.
func NewTasks(db bun.IDB, opts ...Option) *Tasks {
	o := buildOptions(opts)
	return &Tasks{db: db, timeout: o.timeout}
}

// ListByAssignee returns the tasks assigned to assignee ordered by id.
func (s *Tasks) ListByAssignee(ctx context.Context, assignee string) ([]models.Task, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	tasks := []models.Task{}
	err := s.db.NewSelect().Model(&tasks).
		Where("assignee = ?", assignee).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, classify(ctx, "list tasks", err)
	}
	return tasks, nil
}

// Get returns task id if it belongs to assignee, or (nil, nil).
func (s *Tasks) Get(ctx context.Context, id int64, assignee string) (*models.Task, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	task := &models.Task{}
	err := s.db.NewSelect().Model(task).
		Where("id = ?", id).
		Where("assignee = ?", assignee).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(ctx, "get task", err)
	}
	return task, nil
}

// SetImageKey records the attachment object key on a task.
// It returns sql.ErrNoRows if the task does not belong to assignee.
func (s *Tasks) SetImageKey(ctx context.Context, id int64, assignee, key string) error {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	res, err := s.db.NewUpdate().
		Model((*models.Task)(nil)).
		Set("image_key = ?", key).
		Where("id = ?", id).
		Where("assignee = ?", assignee).
		Exec(ctx)
	if err != nil {
		return classify(ctx, "set image key", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
