// Package jobs runs background maintenance for the console: manifest
// reconciliation and session cleanup, scheduled through Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/czhcheng27/project-playground/internal/jobs"
	"github.com/czhcheng27/project-playground/internal/observability"
	"github.com/czhcheng27/project-playground/internal/permission"
	"github.com/czhcheng27/project-playground/internal/token"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionReconcile re-applies pending default grants so a sync
	// interrupted between phases always converges.
	TaskPermissionReconcile = "permission:reconcile"
	// TaskSessionCleanup sweeps expired session records out of redis.
	TaskSessionCleanup = "session:cleanup"
)

// ReconcilePayload is carried by permission reconcile tasks.
type ReconcilePayload struct {
	Reason string `json:"reason"`
}

// NewPermissionReconcileTask constructs a reconcile task.
func NewPermissionReconcileTask(payload ReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionReconcile, data), nil
}

// NewSessionCleanupTask constructs a session cleanup task.
func NewSessionCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskSessionCleanup, nil)
}

// NewPermissionReconcileHandler builds the handler for reconcile tasks.
func NewPermissionReconcileHandler(syncer *permission.Syncer, metrics *observability.Metrics, jm *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload ReconcilePayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		tracker := jm.Track("permission_reconcile")
		if err := tracker.End(syncer.Reconcile(ctx)); err != nil {
			metrics.ObserveSyncRun("error")
			logger.Error("permission reconcile", slog.Any("error", err))
			return err
		}
		metrics.ObserveSyncRun("ok")
		logger.Info("permission reconcile complete", slog.String("reason", payload.Reason))
		return nil
	}
}

// NewSessionCleanupHandler builds the handler for session cleanup tasks.
func NewSessionCleanupHandler(tokens *token.Manager, jm *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := jm.Track("session_cleanup")
		removed, err := tokens.CleanupExpired(ctx)
		if err := tracker.End(err); err != nil {
			logger.Error("session cleanup", slog.Any("error", err))
			return err
		}
		logger.Info("session cleanup complete", slog.Int("removed", removed))
		return nil
	}
}
