package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/munigestion/munigestion/internal/shared"
)

// ExpiringGrantsJob warns about exceptional grants that are about to lapse so
// administrators can renew them in time. Expired rows stay in place for
// audit; this job never deletes anything.
type ExpiringGrantsJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	Audit  *shared.AuditLogger
	clock  func() time.Time
}

// NewExpiringGrantsJob initialises the expiring-grant scan handler.
func NewExpiringGrantsJob(pool *pgxpool.Pool, logger *slog.Logger, audit *shared.AuditLogger) *ExpiringGrantsJob {
	return &ExpiringGrantsJob{
		Pool:   pool,
		Logger: logger,
		Audit:  audit,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type expiringGrant struct {
	OverrideID int64
	UserID     int64
	Permission string
	ExpiresAt  time.Time
}

// Handle executes the scan.
func (j *ExpiringGrantsJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("expiring grants: handler not configured")
	}
	var payload ExpiringGrantsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowHours <= 0 {
		payload.WindowHours = 168
	}

	now := j.clock()
	until := now.Add(time.Duration(payload.WindowHours) * time.Hour)
	rows, err := j.Pool.Query(ctx,
		`SELECT up.id, up.user_id, p.name, up.expires_at
		 FROM user_permissions up
		 JOIN permissions p ON p.id = up.permission_id
		 WHERE up.type = 'GRANT' AND up.expires_at IS NOT NULL
		   AND up.expires_at > $1 AND up.expires_at <= $2
		 ORDER BY up.expires_at`, now, until)
	if err != nil {
		return err
	}
	defer rows.Close()

	var expiring []expiringGrant
	for rows.Next() {
		var g expiringGrant
		if err := rows.Scan(&g.OverrideID, &g.UserID, &g.Permission, &g.ExpiresAt); err != nil {
			return err
		}
		expiring = append(expiring, g)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	logger := j.Logger.With(slog.Int("window_hours", payload.WindowHours))
	for _, g := range expiring {
		logger.Warn("exceptional grant expiring soon",
			slog.Int64("override_id", g.OverrideID),
			slog.Int64("user_id", g.UserID),
			slog.String("permission", g.Permission),
			slog.Time("expires_at", g.ExpiresAt))
		if j.Audit != nil {
			if err := j.Audit.Record(ctx, shared.AuditLog{
				ActorID:  g.UserID,
				Action:   shared.AuditGrantExpiring,
				Entity:   "user_permission",
				EntityID: strconv.FormatInt(g.OverrideID, 10),
				Meta: map[string]any{
					"permission": g.Permission,
					"expires_at": g.ExpiresAt,
				},
			}); err != nil {
				logger.Error("record expiring grant", slog.Any("error", err))
			}
		}
	}
	logger.Info("expiring grant scan finished", slog.Int("count", len(expiring)))
	return nil
}
