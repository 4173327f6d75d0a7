package sqlstore

import (
	"context"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

type auditLog struct {
	ext sqlx.ExtContext
}

func (a *auditLog) Append(ctx context.Context, rec *domain.TransitionRecord) (int64, error) {
	query := `
		INSERT INTO job_transitions (
			job_id, actor_id, previous_status, new_status,
			notes, latitude, longitude, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	var prev *string
	if rec.PreviousStatus != nil {
		s := string(*rec.PreviousStatus)
		prev = &s
	}
	var lat, lng *float64
	if rec.Location != nil {
		lat, lng = &rec.Location.Latitude, &rec.Location.Longitude
	}

	id, err := insertReturningID(ctx, a.ext, query,
		rec.JobID,
		rec.ActorID,
		nullString(prev),
		string(rec.NewStatus),
		nullString(rec.Notes),
		nullFloat64(lat),
		nullFloat64(lng),
		rec.CreatedAt,
	)
	if err != nil {
		return 0, domain.Internal("append transition", err)
	}

	rec.ID = id
	return id, nil
}

func (a *auditLog) ListByJob(ctx context.Context, jobID int64) ([]domain.TransitionRecord, error) {
	query := `
		SELECT id, job_id, actor_id, previous_status, new_status,
			notes, latitude, longitude, created_at
		FROM job_transitions
		WHERE job_id = ?
		ORDER BY created_at ASC, id ASC
	`

	var rows []transitionRow
	if err := sqlx.SelectContext(ctx, a.ext, &rows, a.ext.Rebind(query), jobID); err != nil {
		return nil, domain.Internal("list transitions", err)
	}

	records := make([]domain.TransitionRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].toDomain()
	}
	return records, nil
}
