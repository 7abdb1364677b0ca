package email

import (
	"log/slog"
	"net/mail"
)

// ConsoleService logs email to stdout instead of delivering it. Used in
// development and whenever no sendgrid key is configured.
type ConsoleService struct {
	From mail.Address
}

func (svc *ConsoleService) Send(msg Message) {
	slog.Info("email (console backend)",
		"from", svc.From.String(),
		"to", msg.To.String(),
		"subject", msg.Subject,
		"body", msg.Body,
	)
}
