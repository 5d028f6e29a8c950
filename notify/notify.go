// Package notify tells staff about new public submissions by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v2"
	"github.com/sirupsen/logrus"
)

// Field is one labelled line of a notice.
type Field struct {
	Label string
	Value string
}

// Notice describes a submission staff should look at.
type Notice struct {
	Subject string
	Fields  []Field
	ReplyTo string
	Link    string
}

// Sender delivers notices.
type Sender interface {
	Send(ctx context.Context, n Notice) error
}

var body = template.Must(template.New("notice").Parse(`<div dir="auto">
<h2>{{.Subject}}</h2>
<table>{{range .Fields}}{{if .Value}}
<tr><th align="start">{{.Label}}</th><td>{{.Value}}</td></tr>{{end}}{{end}}
</table>
{{if .Link}}<p><a href="{{.Link}}">{{.Link}}</a></p>{{end}}
</div>`))

// HTML renders n as the email body.
func HTML(n Notice) (string, error) {
	var buf bytes.Buffer
	if err := body.Execute(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ResendSender sends notices via the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
	to     []string
	log    logrus.FieldLogger
}

// NewResendSender creates a sender delivering from -> to.
func NewResendSender(apiKey, from string, to []string, log logrus.FieldLogger) *ResendSender {
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
		log:    log,
	}
}

// Send delivers n to the configured staff addresses.
func (s *ResendSender) Send(ctx context.Context, n Notice) error {
	html, err := HTML(n)
	if err != nil {
		return fmt.Errorf("render notice: %w", err)
	}
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: n.Subject,
		Html:    html,
	}
	if n.ReplyTo != "" {
		params.ReplyTo = n.ReplyTo
	}
	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	s.log.WithFields(logrus.Fields{"message_id": sent.Id, "subject": n.Subject}).Info("staff notice sent")
	return nil
}

// NoopSender logs notices without delivering them.
type NoopSender struct {
	log logrus.FieldLogger
}

// NewNoopSender creates a NoopSender.
func NewNoopSender(log logrus.FieldLogger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) Send(_ context.Context, n Notice) error {
	s.log.WithField("subject", n.Subject).Debug("staff notice skipped: no mail provider")
	return nil
}
