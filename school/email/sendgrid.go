package email

import (
	"log/slog"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

type SendgridService struct {
	Key  string
	From mail.Address
}

func (svc *SendgridService) Send(msg Message) {
	go svc.send(msg)
}

func (svc *SendgridService) send(msg Message) {
	m := sgmail.NewV3Mail()
	m.SetFrom(sgmail.NewEmail(svc.From.Name, svc.From.Address))

	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))
	m.AddPersonalizations(p)

	m.AddContent(sgmail.NewContent("text/plain", msg.Body))

	req := sendgrid.GetRequest(svc.Key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.API(req)
	if err != nil {
		slog.Error("error sending email", "to", msg.To.Address, "error", err)
	} else if res.StatusCode >= http.StatusBadRequest {
		slog.Error("sendgrid rejected email", "to", msg.To.Address, "status", res.StatusCode, "body", res.Body)
	}
}
