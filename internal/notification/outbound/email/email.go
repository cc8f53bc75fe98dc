package email

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/instrument"
	"github.com/shandysiswandi/coursepulse/internal/pkg/mail"
)

var errNoAddress = errors.New("recipient has no email address")

// Mail is the email channel adapter.
type Mail struct {
	client mail.Mail
	ins    instrument.Instrumentation
}

func New(client mail.Mail, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, ins: ins}
}

func (m *Mail) Send(ctx context.Context, msg entity.Message) (err error) {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "Send")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if msg.Recipient.Email == "" {
		return entity.Permanent(errNoAddress)
	}

	err = m.client.Send(ctx, mail.Message{
		To:       []string{msg.Recipient.Email},
		Subject:  msg.Subject,
		HTMLBody: msg.Body,
		Headers: map[string]string{
			"X-Notification-ID":   strconv.FormatInt(msg.NotificationID, 10),
			"X-Notification-Type": msg.Type.String(),
		},
	})
	if errors.Is(err, mail.ErrRejected) {
		return entity.Permanent(err)
	}

	return err
}
