package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/fieldops-be/internal/domain"
)

// schema lists the DDL per driver. {{id}}, {{ts}} and {{float}} are
// replaced with the dialect types before execution.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{id}},
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL CHECK (role IN ('admin', 'manager', 'staff')),
		capabilities TEXT NOT NULL DEFAULT '[]',
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role ON users (role)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id {{id}},
		customer_id BIGINT NOT NULL,
		assignee_id BIGINT REFERENCES users (id) ON DELETE SET NULL,
		region_id BIGINT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'traveling', 'working', 'completed', 'cancelled')),
		priority TEXT NOT NULL DEFAULT 'medium'
			CHECK (priority IN ('low', 'medium', 'high', 'urgent')),
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		materials TEXT NOT NULL DEFAULT '',
		start_date {{ts}} NOT NULL,
		due_date {{ts}},
		completed_at {{ts}},
		price {{float}},
		created_at {{ts}} NOT NULL,
		updated_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_assignee ON jobs (assignee_id)`,

	`CREATE TABLE IF NOT EXISTS job_attachments (
		id {{id}},
		job_id BIGINT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		reference TEXT NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_attachments_job ON job_attachments (job_id)`,

	`CREATE TABLE IF NOT EXISTS job_transitions (
		id {{id}},
		job_id BIGINT NOT NULL REFERENCES jobs (id) ON DELETE CASCADE,
		actor_id BIGINT NOT NULL,
		previous_status TEXT,
		new_status TEXT NOT NULL,
		notes TEXT,
		latitude {{float}},
		longitude {{float}},
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_job_transitions_job ON job_transitions (job_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id {{id}},
		recipient_id BIGINT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		job_id BIGINT REFERENCES jobs (id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		category TEXT NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		read_at {{ts}},
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient_id, read_at)`,
}

var dialects = map[string]*strings.Replacer{
	DriverPostgres: strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{ts}}", "TIMESTAMPTZ",
		"{{float}}", "DOUBLE PRECISION",
	),
	DriverSQLite: strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{ts}}", "TIMESTAMP",
		"{{float}}", "REAL",
	),
}

// Migrate creates the tables and indexes if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	r, ok := dialects[s.db.DriverName()]
	if !ok {
		return domain.Internal("migrate", fmt.Errorf("unsupported driver %q", s.db.DriverName()))
	}

	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return domain.Internal(fmt.Sprintf("migrate statement %d", i+1), err)
		}
	}

	s.logger.Info("Database schema is up to date",
		slog.String("driver", s.db.DriverName()),
		slog.Int("statements", len(schema)),
	)
	return nil
}
