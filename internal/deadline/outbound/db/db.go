package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/coursepulse/internal/deadline/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/shared/urgency"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}
	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("deadline.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *DB) ListUpcoming(ctx context.Context, courseID int64, from, until time.Time, limit int) (_ []entity.Item, err error) {
	ctx, span := s.startSpan(ctx, "ListUpcoming")
	defer func() { s.endSpan(span, err) }()

	var lim *int
	if limit > 0 {
		lim = &limit
	}

	rows, err := s.conn.Query(ctx, `
		SELECT d.id, d.kind, d.course_id, d.title, d.due_at, d.visible
		FROM deadline_items d
		JOIN courses c ON c.id = d.course_id AND c.active
		WHERE d.visible
		  AND d.due_at > $1 AND d.due_at <= $2
		  AND ($3::BIGINT = 0 OR d.course_id = $3)
		ORDER BY d.due_at, d.id
		LIMIT $4`, from, until, courseID, lim)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := make([]entity.Item, 0)
	for rows.Next() {
		var it entity.Item
		if err := rows.Scan(&it.ID, &it.Kind, &it.CourseID, &it.Title, &it.DueAt, &it.Visible); err != nil {
			return nil, mapError(err)
		}
		items = append(items, it)
	}

	return items, mapError(rows.Err())
}

func (s *DB) MarkWindow(ctx context.Context, deadlineID int64, tier urgency.Tier) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "MarkWindow")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
		INSERT INTO deadline_window_marks (deadline_id, tier)
		VALUES ($1, $2)
		ON CONFLICT (deadline_id, tier) DO NOTHING`, deadlineID, tier.String())
	if err != nil {
		return false, mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) UnmarkWindow(ctx context.Context, deadlineID int64, tier urgency.Tier) (err error) {
	ctx, span := s.startSpan(ctx, "UnmarkWindow")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `DELETE FROM deadline_window_marks WHERE deadline_id = $1 AND tier = $2`, deadlineID, tier.String())
	return mapError(err)
}
