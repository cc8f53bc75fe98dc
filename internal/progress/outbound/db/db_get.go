package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const summaryColumns = `student_id, course_id, completed_count, total_count, overall_pct,
	is_completed, completed_at, last_activity_at, reached_milestones`

func scanSummary(row pgx.Row) (*entity.Summary, error) {
	var s entity.Summary
	err := row.Scan(
		&s.StudentID, &s.CourseID, &s.CompletedCount, &s.TotalCount, &s.OverallPct,
		&s.IsCompleted, &s.CompletedAt, &s.LastActivityAt, &s.ReachedMilestones,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const recordColumns = `student_id, material_id, course_id, status, progress_pct, time_spent, last_accessed_at`

func scanRecord(row pgx.Row) (entity.MaterialRecord, error) {
	var r entity.MaterialRecord
	err := row.Scan(&r.StudentID, &r.MaterialID, &r.CourseID, &r.Status, &r.ProgressPct, &r.TimeSpent, &r.LastAccessedAt)
	return r, err
}

func (s *DB) GetMaterial(ctx context.Context, materialID int64) (_ *entity.Material, err error) {
	ctx, span := s.startSpan(ctx, "GetMaterial")
	defer func() { s.endSpan(span, err) }()

	var m entity.Material
	err = s.conn.QueryRow(ctx, `
		SELECT m.id, m.course_id, m.title, m.active AND c.active
		FROM course_materials m
		JOIN courses c ON c.id = m.course_id
		WHERE m.id = $1`, materialID,
	).Scan(&m.ID, &m.CourseID, &m.Title, &m.Active)
	if err != nil {
		return nil, mapError(err)
	}

	return &m, nil
}

func (s *DB) IsEnrolled(ctx context.Context, studentID, courseID int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "IsEnrolled")
	defer func() { s.endSpan(span, err) }()

	var ok bool
	err = s.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM enrollments
			WHERE student_id = $1 AND course_id = $2 AND status = 'active'
		)`, studentID, courseID,
	).Scan(&ok)
	if err != nil {
		return false, mapError(err)
	}

	return ok, nil
}

func (s *DB) GetSummary(ctx context.Context, studentID, courseID int64) (_ *entity.Summary, err error) {
	ctx, span := s.startSpan(ctx, "GetSummary")
	defer func() { s.endSpan(span, err) }()

	sum, err := getSummary(ctx, s.conn, studentID, courseID)
	return sum, mapError(err)
}

func getSummary(ctx context.Context, q querier, studentID, courseID int64) (*entity.Summary, error) {
	return scanSummary(q.QueryRow(ctx, `
		SELECT `+summaryColumns+`
		FROM course_progress_summaries
		WHERE student_id = $1 AND course_id = $2`, studentID, courseID,
	))
}

func (s *DB) ListSummaries(ctx context.Context, studentID int64) (_ []entity.Summary, err error) {
	ctx, span := s.startSpan(ctx, "ListSummaries")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM course_progress_summaries
		WHERE student_id = $1
		ORDER BY last_activity_at DESC NULLS LAST, course_id`, studentID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := make([]entity.Summary, 0)
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, mapError(err)
		}
		items = append(items, *sum)
	}

	return items, mapError(rows.Err())
}

func (s *DB) ListMaterialRecords(ctx context.Context, studentID, courseID int64) (_ []entity.MaterialRecord, err error) {
	ctx, span := s.startSpan(ctx, "ListMaterialRecords")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT `+recordColumns+`
		FROM material_progress_records
		WHERE student_id = $1 AND course_id = $2
		ORDER BY material_id`, studentID, courseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := make([]entity.MaterialRecord, 0)
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, mapError(err)
		}
		items = append(items, r)
	}

	return items, mapError(rows.Err())
}
