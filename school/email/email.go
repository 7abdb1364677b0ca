package email

import "net/mail"

type Message struct {
	To      mail.Address
	Subject string
	Body    string
}

// Service delivers transactional email. Delivery is best effort, failures are
// logged by the implementation and never propagated to callers.
type Service interface {
	Send(msg Message)
}
