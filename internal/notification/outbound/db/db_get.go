package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
)

func (s *DB) GetCourse(ctx context.Context, courseID int64) (_ *entity.Course, err error) {
	ctx, span := s.startSpan(ctx, "GetCourse")
	defer func() { s.endSpan(span, err) }()

	var c entity.Course
	err = s.conn.QueryRow(ctx, `SELECT id, teacher_id, title FROM courses WHERE id = $1`, courseID).
		Scan(&c.ID, &c.TeacherID, &c.Title)
	if err != nil {
		return nil, mapError(err)
	}

	return &c, nil
}

func (s *DB) GetRecipient(ctx context.Context, userID int64) (_ *entity.Recipient, err error) {
	ctx, span := s.startSpan(ctx, "GetRecipient")
	defer func() { s.endSpan(span, err) }()

	var r entity.Recipient
	err = s.conn.QueryRow(ctx, `SELECT id, email, full_name FROM users WHERE id = $1`, userID).
		Scan(&r.ID, &r.Email, &r.FullName)
	if err != nil {
		return nil, mapError(err)
	}

	return &r, nil
}

func (s *DB) ListPendingStudents(ctx context.Context, courseID, deadlineID int64) (_ []int64, err error) {
	ctx, span := s.startSpan(ctx, "ListPendingStudents")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT e.student_id
		FROM enrollments e
		WHERE e.course_id = $1 AND e.status = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM submissions sb
			WHERE sb.deadline_id = $2 AND sb.student_id = e.student_id
		  )
		ORDER BY e.student_id`, courseID, deadlineID)
	if err != nil {
		return nil, mapError(err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	return ids, mapError(err)
}

func (s *DB) ListPreferences(ctx context.Context, userID int64, t entity.Type) (_ []entity.Preference, err error) {
	ctx, span := s.startSpan(ctx, "ListPreferences")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
		SELECT user_id, type, channel, enabled
		FROM notification_preferences
		WHERE user_id = $1 AND type = $2`, userID, t.String())
	if err != nil {
		return nil, mapError(err)
	}

	prefs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.Preference, error) {
		var p entity.Preference
		err := row.Scan(&p.UserID, &p.Type, &p.Channel, &p.Enabled)
		return p, err
	})
	return prefs, mapError(err)
}

func (s *DB) GetTemplate(ctx context.Context, t entity.Type, ch entity.Channel) (_ *entity.Template, err error) {
	ctx, span := s.startSpan(ctx, "GetTemplate")
	defer func() { s.endSpan(span, err) }()

	var tpl entity.Template
	err = s.conn.QueryRow(ctx, `
		SELECT type, channel, subject, body
		FROM notification_templates
		WHERE type = $1 AND channel = $2`, t.String(), ch.String()).
		Scan(&tpl.Type, &tpl.Channel, &tpl.Subject, &tpl.Body)
	if err != nil {
		return nil, mapError(err)
	}

	return &tpl, nil
}
