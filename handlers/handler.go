package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/padraicbc/todoapi/auth"
	"github.com/padraicbc/todoapi/models"
)

// TaskStore is the task access the handlers need.
type TaskStore interface {
	ListByAssignee(ctx context.Context, assignee string) ([]models.Task, error)
	Get(ctx context.Context, id int64, assignee string) (*models.Task, error)
	SetImageKey(ctx context.Context, id int64, assignee, key string) error
}

// Attachments issues presigned URLs for task images.
type Attachments interface {
	DownloadURL(ctx context.Context, key string) (string, error)
	UploadURL(ctx context.Context, key string) (string, error)
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	auth  *auth.Authenticator
	tasks TaskStore
	files Attachments
	log   *zap.Logger
}

// New creates a Handler. files may be nil when attachments are disabled.
func New(a *auth.Authenticator, tasks TaskStore, files Attachments, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{auth: a, tasks: tasks, files: files, log: log}
}
