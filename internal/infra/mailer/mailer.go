// Package mailer sends order notification emails over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/lbatal/storefront-assistant-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/gomail.v2"
)

var tracer = otel.Tracer("infra/mailer")

// Service is the name used in errors and metrics.
const Service = "smtp"

// dialSender is the part of gomail.Dialer the mailer uses.
type dialSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPMailer sends HTML emails through an authenticated SMTP server
// (Gmail with an app password by default). Each Send opens and closes its
// own connection and returns no later than its context's deadline.
type SMTPMailer struct {
	dialer dialSender
	from   string
}

// NewSMTPMailer creates a mailer that authenticates as user.
func NewSMTPMailer(host string, port int, user, password string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   user,
	}
}

// Send delivers msg. SMTP errors are wrapped as ErrExternalService; an
// expired or cancelled ctx yields ErrTimeout.
func (m *SMTPMailer) Send(ctx context.Context, msg *domain.EmailMessage) error {
	_, span := tracer.Start(ctx, "SMTPMailer.Send")
	defer span.End()
	span.SetAttributes(attribute.String("email.to", msg.To))

	if err := ctx.Err(); err != nil {
		return &domain.ErrTimeout{Operation: "smtp send"}
	}

	gm := gomail.NewMessage()
	gm.SetHeader("From", m.from)
	gm.SetHeader("To", msg.To)
	gm.SetHeader("Subject", msg.Subject)
	gm.SetBody("text/html", msg.HTMLBody)

	// gomail takes no context; a stalled send is abandoned when ctx ends.
	done := make(chan error, 1)
	go func() {
		done <- m.dialer.DialAndSend(gm)
	}()

	select {
	case err := <-done:
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return &domain.ErrExternalService{Service: Service, Err: fmt.Errorf("send to %s: %w", msg.To, err)}
		}
		return nil
	case <-ctx.Done():
		err := &domain.ErrTimeout{Operation: "smtp send"}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
}
