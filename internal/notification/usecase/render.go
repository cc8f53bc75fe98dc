package usecase

import (
	"bytes"
	"context"
	"errors"
	htmltemplate "html/template"
	"log/slog"
	"text/template"

	"github.com/shandysiswandi/coursepulse/internal/notification/entity"
	"github.com/shandysiswandi/coursepulse/internal/pkg/goerror"
	"github.com/shandysiswandi/coursepulse/internal/pkg/valueobject"
)

// render builds the message for one claim. Missing recipients or templates
// are permanent; repository failures are retryable.
func (s *Usecase) render(ctx context.Context, c entity.Claim) (entity.Message, error) {
	recipient, err := s.repoDB.GetRecipient(ctx, c.RecipientID)
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.Message{}, entity.Permanent(errors.New("recipient not found"))
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get recipient", "user_id", c.RecipientID, "error", err)
		return entity.Message{}, err
	}

	tpl, err := s.repoDB.GetTemplate(ctx, c.Type, c.Channel)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "notification template not found", "type", c.Type, "channel", c.Channel)
		return entity.Message{}, entity.Permanent(errors.New("template not found"))
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get template", "type", c.Type, "channel", c.Channel, "error", err)
		return entity.Message{}, err
	}

	data := c.Payload.Merge(valueobject.JSONMap{"recipient_name": recipient.FullName})

	subject, err := renderText("subject", tpl.Subject, data)
	if err != nil {
		return entity.Message{}, entity.Permanent(err)
	}

	var body string
	if c.Channel == entity.ChannelEmail {
		body, err = renderHTML("body", tpl.Body, data)
	} else {
		body, err = renderText("body", tpl.Body, data)
	}
	if err != nil {
		return entity.Message{}, entity.Permanent(err)
	}

	return entity.Message{
		NotificationID: c.NotificationID,
		Type:           c.Type,
		Recipient:      *recipient,
		Subject:        subject,
		Body:           body,
		Payload:        c.Payload,
		CreatedAt:      c.CreatedAt,
	}, nil
}

func renderText(name, tpl string, data map[string]any) (string, error) {
	t, err := template.New(name).Option("missingkey=zero").Parse(tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func renderHTML(name, tpl string, data map[string]any) (string, error) {
	t, err := htmltemplate.New(name).Option("missingkey=zero").Parse(tpl)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
