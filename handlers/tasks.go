package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	mw "github.com/padraicbc/todoapi/middleware"
	"github.com/padraicbc/todoapi/models"
	"github.com/padraicbc/todoapi/objstore"
)

type attachmentURL struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
}

// Tasks lists the tasks assigned to the caller.
func (h *Handler) Tasks(c echo.Context) error {
	tasks, err := h.tasks.ListByAssignee(c.Request().Context(), mw.Username(c))
	if err != nil {
		h.log.Error("list tasks failed", zap.Error(err))
		return mw.HTTPError(err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// TaskImage returns a presigned download URL for a task's attachment.
func (h *Handler) TaskImage(c echo.Context) error {
	task, err := h.ownTask(c)
	if err != nil {
		return err
	}
	if task.ImageKey == nil {
		return echo.NewHTTPError(http.StatusNotFound, "task has no image")
	}

	url, err := h.files.DownloadURL(c.Request().Context(), *task.ImageKey)
	if err != nil {
		h.log.Error("presign download failed", zap.Int64("task", task.ID), zap.Error(err))
		return mw.HTTPError(err)
	}
	return c.JSON(http.StatusOK, attachmentURL{URL: url})
}

// UploadTaskImage reserves a new object key for a task's attachment and
// returns a presigned upload URL for it.
func (h *Handler) UploadTaskImage(c echo.Context) error {
	task, err := h.ownTask(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	key := objstore.NewKey(task.ID)
	url, err := h.files.UploadURL(ctx, key)
	if err != nil {
		h.log.Error("presign upload failed", zap.Int64("task", task.ID), zap.Error(err))
		return mw.HTTPError(err)
	}
	if err := h.tasks.SetImageKey(ctx, task.ID, mw.Username(c), key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "task not found")
		}
		h.log.Error("set image key failed", zap.Int64("task", task.ID), zap.Error(err))
		return mw.HTTPError(err)
	}
	return c.JSON(http.StatusOK, attachmentURL{Key: key, URL: url})
}

func (h *Handler) ownTask(c echo.Context) (*models.Task, error) {
	if h.files == nil {
		return nil, echo.NewHTTPError(http.StatusNotImplemented, "attachments disabled")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid task id")
	}

	task, err := h.tasks.Get(c.Request().Context(), id, mw.Username(c))
	if err != nil {
		h.log.Error("get task failed", zap.Int64("task", id), zap.Error(err))
		return nil, mw.HTTPError(err)
	}
	if task == nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return task, nil
}
