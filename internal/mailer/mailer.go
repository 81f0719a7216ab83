// Package mailer delivers outgoing mail over SMTP.
package mailer

import (
	"context"
	"fmt"

	"github.com/nemoguigrat/uralintern/internal/config"
	"github.com/nemoguigrat/uralintern/internal/services"

	"github.com/wneessen/go-mail"
)

type SMTPMailer struct {
	client *mail.Client
	from   string
}

// New returns an SMTP mailer, or nil when SMTP_HOST is not set.
func New(cfg *config.Config) (*SMTPMailer, error) {
	if cfg.SMTPHost == "" {
		return nil, nil
	}

	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return &SMTPMailer{client: client, from: cfg.SMTPFrom}, nil
}

// Send delivers all messages over one SMTP session.
func (m *SMTPMailer) Send(ctx context.Context, mails []services.Mail) error {
	msgs := make([]*mail.Msg, 0, len(mails))
	for _, ml := range mails {
		msg, err := message(m.from, ml)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return m.client.DialAndSendWithContext(ctx, msgs...)
}

func message(from string, ml services.Mail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address %q: %w", from, err)
	}
	if err := msg.To(ml.To); err != nil {
		return nil, fmt.Errorf("recipient %q: %w", ml.To, err)
	}
	msg.Subject(ml.Subject)
	msg.SetBodyString(mail.TypeTextPlain, ml.Body)
	return msg, nil
}
