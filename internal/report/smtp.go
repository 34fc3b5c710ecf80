package report

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"adenrich/internal/config"
)

// SMTPSender delivers messages through one SMTP submission host.
type SMTPSender struct {
	cfg config.SMTP
}

var _ Sender = (*SMTPSender)(nil)

func NewSMTPSender(cfg config.SMTP) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	msg, err := build(s.cfg.From, m)
	if err != nil {
		return err
	}
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send %q via %s:%d: %w", m.Subject, s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

// Ping dials and greets the SMTP host without sending anything.
func (s *SMTPSender) Ping(ctx context.Context) error {
	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp dial %s:%d: %w", s.cfg.Host, s.cfg.Port, err)
	}
	return client.Close()
}

func build(from string, m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address %q: %w", from, err)
	}
	if err := msg.To(m.To...); err != nil {
		return nil, fmt.Errorf("to addresses %v: %w", m.To, err)
	}
	if len(m.Cc) > 0 {
		if err := msg.Cc(m.Cc...); err != nil {
			return nil, fmt.Errorf("cc addresses %v: %w", m.Cc, err)
		}
	}
	msg.Subject(m.Subject)
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	if m.Attachment != "" {
		msg.AttachFile(m.Attachment)
	}
	if m.HighPriority {
		msg.SetImportance(mail.ImportanceHigh)
	}
	return msg, nil
}

// client maps the job's SMTP settings onto a go-mail client. start_tls makes
// TLS mandatory; without it the client still upgrades opportunistically when
// the server offers STARTTLS.
func (s *SMTPSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.StartTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client for %s: %w", s.cfg.Host, err)
	}
	return client, nil
}
