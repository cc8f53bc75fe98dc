package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrSendGridKeyRequired = errors.New("mail: sendgrid api key is required")

const sendGridDefaultHost = "https://api.sendgrid.com"

// SendGrid sends through the SendGrid v3 mail API.
type SendGrid struct {
	key  string
	host string
	from string
	api  func(req rest.Request) (*rest.Response, error)
}

func NewSendGrid(cfg Config) (*SendGrid, error) {
	if cfg.SendGridAPIKey == "" {
		return nil, ErrSendGridKeyRequired
	}

	host := cfg.SendGridBaseURL
	if host == "" {
		host = sendGridDefaultHost
	}

	return &SendGrid{key: cfg.SendGridAPIKey, host: host, from: cfg.From, api: sendgrid.API}, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = s.from
	}
	if from == "" {
		return ErrNoSender
	}

	p := sgmail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail("", to))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail("", from))
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	if msg.TextBody != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	}
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	for k, v := range msg.Headers {
		m.SetHeader(k, v)
	}

	req := sendgrid.GetRequest(s.key, "/v3/mail/send", s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	var res *rest.Response
	err := runWithContext(ctx, func() error {
		var err error
		res, err = s.api(req)
		return err
	})
	if err != nil {
		return err
	}

	return classify(res.StatusCode, res.Body)
}

func (s *SendGrid) Close() error { return nil }

// classify treats 429 and 5xx as retryable and other non-2xx as rejected.
func classify(status int, body string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("mail: sendgrid status %d: %s", status, strings.TrimSpace(body))
	default:
		return fmt.Errorf("%w: sendgrid status %d: %s", ErrRejected, status, strings.TrimSpace(body))
	}
}
