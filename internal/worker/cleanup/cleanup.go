// Package cleanup は失効したログインセッションの定期削除ジョブを提供する。
// 絶対有効期限を過ぎたセッションと、アイドルタイムアウトを超えて
// 使われていないセッションを削除する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/sitecms/internal/metrics"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB / *sqlx.DB / *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const deleteStaleSessionsQuery = `DELETE FROM sessions
WHERE expires_at < now()
   OR last_seen_at < now() - make_interval(secs => $1)`

// SessionCleanupJob は失効セッションの削除ジョブ。
// 削除は冪等で、対象がなくてもエラーにならない。
type SessionCleanupJob struct {
	db          Executor
	logger      *slog.Logger
	metrics     metrics.MetricsCollector
	idleTimeout time.Duration
}

// NewSessionCleanupJob は新しいSessionCleanupJobを生成する。metricsはnilでもよい。
func NewSessionCleanupJob(db Executor, logger *slog.Logger, mc metrics.MetricsCollector, idleTimeout time.Duration) *SessionCleanupJob {
	return &SessionCleanupJob{
		db:          db,
		logger:      logger,
		metrics:     mc,
		idleTimeout: idleTimeout,
	}
}

// Run は失効セッションを1回削除し、削除件数を返す。
func (j *SessionCleanupJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	result, err := j.db.ExecContext(ctx, deleteStaleSessionsQuery, j.idleTimeout.Seconds())
	if err != nil {
		j.logger.Error("session cleanup failed",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to delete stale sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted count: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsCleaned(deleted)
	}
	j.logger.Info("session cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Duration("idle_timeout", j.idleTimeout),
		slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
	)
	return deleted, nil
}

// Start は起動直後に1回、その後intervalごとにRunを実行する。
// ctxがキャンセルされるまでブロックする。
func (j *SessionCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("session cleanup started", slog.Duration("interval", interval))

	// 失敗はRun内でログ済みのため、次の周期で再試行する
	_, _ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("session cleanup stopped")
			return
		case <-ticker.C:
			_, _ = j.Run(ctx)
		}
	}
}
