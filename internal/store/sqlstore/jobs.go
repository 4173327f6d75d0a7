package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/fieldops-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

type jobRepo struct {
	ext sqlx.ExtContext
}

func (r *jobRepo) Get(ctx context.Context, id int64) (*domain.Job, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate locks the job row until the transaction ends. SQLite has no
// row locks; its write transactions are serialized by the database instead.
func (r *jobRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Job, error) {
	return r.get(ctx, id, r.ext.DriverName() == DriverPostgres)
}

func (r *jobRepo) get(ctx context.Context, id int64, forUpdate bool) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row jobRow
	err := sqlx.GetContext(ctx, r.ext, &row, r.ext.Rebind(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, domain.Internal("get job", err)
	}

	job := row.toDomain()
	refs, err := r.attachments(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if a := refs[id]; a != nil {
		job.Attachments = a
	}
	return job, nil
}

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			customer_id, assignee_id, region_id, status, priority,
			title, description, materials, start_date, due_date,
			completed_at, price, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?
		)
		RETURNING id
	`

	id, err := insertReturningID(ctx, r.ext, query,
		job.CustomerID,
		nullInt64(job.AssigneeID),
		job.RegionID,
		string(job.Status),
		string(job.Priority),
		job.Title,
		job.Description,
		job.Materials,
		job.StartDate,
		nullTime(job.DueDate),
		nullTime(job.CompletedAt),
		nullFloat64(job.Price),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return domain.Internal("create job", err)
	}
	job.ID = id

	return r.insertAttachments(ctx, job)
}

func (r *jobRepo) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE jobs
		SET customer_id = ?,
			assignee_id = ?,
			region_id = ?,
			status = ?,
			priority = ?,
			title = ?,
			description = ?,
			materials = ?,
			start_date = ?,
			due_date = ?,
			completed_at = ?,
			price = ?,
			updated_at = ?
		WHERE id = ?
	`

	n, err := execAffected(ctx, r.ext, query,
		job.CustomerID,
		nullInt64(job.AssigneeID),
		job.RegionID,
		string(job.Status),
		string(job.Priority),
		job.Title,
		job.Description,
		job.Materials,
		job.StartDate,
		nullTime(job.DueDate),
		nullTime(job.CompletedAt),
		nullFloat64(job.Price),
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return domain.Internal("update job", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}

	if _, err := execAffected(ctx, r.ext, `DELETE FROM job_attachments WHERE job_id = ?`, job.ID); err != nil {
		return domain.Internal("replace job attachments", err)
	}
	return r.insertAttachments(ctx, job)
}

func (r *jobRepo) Delete(ctx context.Context, id int64) error {
	n, err := execAffected(ctx, r.ext, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return domain.Internal("delete job", err)
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []any{}

	// Filters
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != 0 {
		query += ` AND assignee_id = ?`
		args = append(args, filter.AssigneeID)
	}
	if filter.RegionID != 0 {
		query += ` AND region_id = ?`
		args = append(args, filter.RegionID)
	}
	if filter.CustomerID != 0 {
		query += ` AND customer_id = ?`
		args = append(args, filter.CustomerID)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	var rows []jobRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, r.ext.Rebind(query), args...); err != nil {
		return nil, domain.Internal("list jobs", err)
	}

	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	refs, err := r.attachments(ctx, ids)
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, len(rows))
	for i := range rows {
		job := rows[i].toDomain()
		if a := refs[job.ID]; a != nil {
			job.Attachments = a
		}
		jobs[i] = *job
	}
	return jobs, nil
}

func (r *jobRepo) CountByStatus(ctx context.Context) (map[domain.JobStatus]int, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := `SELECT status, COUNT(*) AS count FROM jobs GROUP BY status`
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query); err != nil {
		return nil, domain.Internal("count jobs by status", err)
	}

	counts := make(map[domain.JobStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.JobStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// attachments loads attachment references keyed by job id
func (r *jobRepo) attachments(ctx context.Context, jobIDs []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(jobIDs))
	if len(jobIDs) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`SELECT job_id, reference FROM job_attachments WHERE job_id IN (?) ORDER BY id`, jobIDs)
	if err != nil {
		return nil, domain.Internal("build attachments query", err)
	}

	var rows []attachmentRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, r.ext.Rebind(query), args...); err != nil {
		return nil, domain.Internal("load job attachments", err)
	}
	for _, row := range rows {
		out[row.JobID] = append(out[row.JobID], row.Reference)
	}
	return out, nil
}

func (r *jobRepo) insertAttachments(ctx context.Context, job *domain.Job) error {
	for _, ref := range job.Attachments {
		_, err := execAffected(ctx, r.ext,
			`INSERT INTO job_attachments (job_id, reference, created_at) VALUES (?, ?, ?)`,
			job.ID, ref, job.UpdatedAt,
		)
		if err != nil {
			return domain.Internal(fmt.Sprintf("attach %q to job %d", ref, job.ID), err)
		}
	}
	return nil
}
