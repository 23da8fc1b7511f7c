package api

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskmaster/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, logger *log.Logger) {
	e.GET("/api/tasks", getTasks(store, logger))
	e.POST("/api/tasks", createTask(store, logger))
	e.PATCH("/api/tasks/:id", updateTask(store, logger))
	e.GET("/api/health", health())

	initEventPublisher(store, logger)
}

func health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	}
}

func getTasks(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newTaskRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		fetchStart := time.Now()
		tasks, fetchErr := store.FetchTasks(ctx)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to fetch tasks"})
			return err
		}
		metrics.SetTasksReturned(len(tasks))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, tasks)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type createTaskRequest struct {
	Title    string          `json:"title"`
	Priority domain.Priority `json:"priority"`
	Status   domain.Status   `json:"status"`
	Assignee string          `json:"assignee"`
	Starred  bool            `json:"starred"`
}

func createTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		var req createTaskRequest
		lr := io.LimitReader(c.Request().Body, taskPayloadMaxSize)
		if err := sonic.ConfigStd.NewDecoder(lr).Decode(&req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		if strings.TrimSpace(req.Title) == "" {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "Title is required"})
		}

		task := domain.Task{
			ID:        uuid.NewString(),
			Title:     req.Title,
			Priority:  req.Priority,
			Status:    req.Status,
			Assignee:  req.Assignee,
			Starred:   req.Starred,
			CreatedAt: nextTimestamp(),
		}
		task.ApplyDefaults()

		if err := store.CreateTask(ctx, task); err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to create task"})
		}

		if ev, err := domain.NewTaskCreatedEvent(task); err == nil {
			publishTaskEvent(ev, logger)
		}

		return c.JSON(http.StatusCreated, task)
	}
}

func updateTask(store Storage, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")

		var patch domain.TaskPatch
		lr := io.LimitReader(c.Request().Body, taskPayloadMaxSize)
		if err := sonic.ConfigStd.NewDecoder(lr).Decode(&patch); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}

		task, err := store.UpdateTask(ctx, id, patch)
		if err != nil {
			var notFound NotFoundError
			if errors.As(err, &notFound) {
				return c.JSON(http.StatusNotFound, errorResponse{Error: "Not found"})
			}
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to update task"})
		}

		if ev, evErr := domain.NewTaskUpdatedEvent(task.ID, patch, nextTimestamp()); evErr == nil {
			publishTaskEvent(ev, logger)
		}

		return c.JSON(http.StatusOK, task)
	}
}
