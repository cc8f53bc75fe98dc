package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shandysiswandi/coursepulse/internal/pkg/eventlog"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/uid"
	"github.com/shandysiswandi/coursepulse/internal/shared/event"
)

type MQ struct {
	pub  eventlog.Publisher
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func New(pub eventlog.Publisher, uuid uid.StringID, ins instrument.Instrumentation) *MQ {
	return &MQ{pub: pub, uuid: uuid, ins: ins}
}

// PublishProgressChanged keys the record by student and course so one
// pair's changes stay ordered on a partition.
func (m *MQ) PublishProgressChanged(ctx context.Context, ev event.CourseProgressChanged) error {
	ctx, span := m.ins.Tracer("progress.outbound.mq").Start(ctx, "PublishProgressChanged")
	defer span.End()

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return m.pub.Publish(ctx, event.TopicCourseProgressChanged, eventlog.Record{
		Key: fmt.Sprintf("%d:%d", ev.StudentID, ev.CourseID),
		Headers: map[string]string{
			event.HeaderCorrelationID: instrument.GetCorrelationID(ctx),
			event.HeaderEventID:       m.uuid.Generate(),
		},
		Body: body,
	})
}
