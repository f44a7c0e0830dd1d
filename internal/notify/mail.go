package notify

import (
	"context"
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

type messageSender interface {
	DialAndSend(m ...*mail.Message) error
}

// SMTPMailer отправляет письма через SMTP-сервер.
type SMTPMailer struct {
	sender messageSender
	from   string
}

// NewSMTPMailer создаёт отправителя писем от имени from.
func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	d := mail.NewDialer(host, port, username, password)
	d.StartTLSPolicy = mail.OpportunisticStartTLS

	return &SMTPMailer{
		sender: d,
		from:   from,
	}
}

// Send отправляет письмо адресату to. Клиент SMTP не поддерживает контекст,
// поэтому по истечении ctx ожидание результата прекращается.
func (m *SMTPMailer) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mm := mail.NewMessage()
	mm.SetHeader("From", m.from)
	mm.SetHeader("To", to)
	mm.SetHeader("Subject", msg.Subject)
	mm.SetBody("text/plain", msg.Body)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.sender.DialAndSend(mm)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
