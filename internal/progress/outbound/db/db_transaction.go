package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/progress/entity"
)

// InPairTx serializes writers of one (student, course) pair across
// processes with a transaction-scoped advisory lock.
func (s *DB) InPairTx(ctx context.Context, studentID, courseID int64, fn func(context.Context, entity.PairTx) error) (err error) {
	ctx, span := s.startSpan(ctx, "InPairTx")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, rbErr)
		}
	}()

	lockKey := fmt.Sprintf("progress:%d:%d", studentID, courseID)
	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", lockKey); err != nil {
		return mapError(err)
	}

	if err = fn(ctx, &pairTx{tx: tx}); err != nil {
		return mapError(err)
	}

	return mapError(tx.Commit(ctx))
}

type pairTx struct {
	tx pgx.Tx
}

func (p *pairTx) GetRecord(ctx context.Context, studentID, materialID int64) (*entity.MaterialRecord, error) {
	r, err := scanRecord(p.tx.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM material_progress_records
		WHERE student_id = $1 AND material_id = $2
		FOR UPDATE`, studentID, materialID))
	if err != nil {
		return nil, mapError(err)
	}
	return &r, nil
}

func (p *pairTx) UpsertRecord(ctx context.Context, r entity.MaterialRecord) error {
	_, err := p.tx.Exec(ctx, `
		INSERT INTO material_progress_records
			(student_id, material_id, course_id, status, progress_pct, time_spent, last_accessed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (student_id, material_id) DO UPDATE SET
			course_id = EXCLUDED.course_id,
			status = EXCLUDED.status,
			progress_pct = EXCLUDED.progress_pct,
			time_spent = EXCLUDED.time_spent,
			last_accessed_at = EXCLUDED.last_accessed_at,
			updated_at = now()`,
		r.StudentID, r.MaterialID, r.CourseID, r.Status, r.ProgressPct, r.TimeSpent, r.LastAccessedAt,
	)
	return mapError(err)
}

func (p *pairTx) ListActiveRecords(ctx context.Context, studentID, courseID int64) ([]entity.MaterialRecord, error) {
	rows, err := p.tx.Query(ctx, `
		SELECT r.student_id, r.material_id, r.course_id, r.status, r.progress_pct, r.time_spent, r.last_accessed_at
		FROM material_progress_records r
		JOIN course_materials m ON m.id = r.material_id AND m.course_id = r.course_id
		WHERE r.student_id = $1 AND r.course_id = $2 AND m.active`, studentID, courseID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []entity.MaterialRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, mapError(err)
		}
		out = append(out, r)
	}
	return out, mapError(rows.Err())
}

func (p *pairTx) CountActiveMaterials(ctx context.Context, courseID int64) (int, error) {
	var n int
	err := p.tx.QueryRow(ctx, `SELECT count(*) FROM course_materials WHERE course_id = $1 AND active`, courseID).Scan(&n)
	return n, mapError(err)
}

func (p *pairTx) GetSummary(ctx context.Context, studentID, courseID int64) (*entity.Summary, error) {
	sum, err := getSummary(ctx, p.tx, studentID, courseID)
	return sum, mapError(err)
}

func (p *pairTx) SaveSummary(ctx context.Context, s entity.Summary) error {
	reached := s.ReachedMilestones
	if reached == nil {
		reached = []string{}
	}

	_, err := p.tx.Exec(ctx, `
		INSERT INTO course_progress_summaries
			(student_id, course_id, completed_count, total_count, overall_pct, is_completed,
			 completed_at, last_activity_at, reached_milestones)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (student_id, course_id) DO UPDATE SET
			completed_count = EXCLUDED.completed_count,
			total_count = EXCLUDED.total_count,
			overall_pct = EXCLUDED.overall_pct,
			is_completed = EXCLUDED.is_completed,
			completed_at = EXCLUDED.completed_at,
			last_activity_at = EXCLUDED.last_activity_at,
			reached_milestones = EXCLUDED.reached_milestones,
			updated_at = now()`,
		s.StudentID, s.CourseID, s.CompletedCount, s.TotalCount, s.OverallPct, s.IsCompleted,
		s.CompletedAt, s.LastActivityAt, reached,
	)
	return mapError(err)
}
