package push

import (
	"context"
	"log/slog"
)

type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Client sends a push notification to a set of device tokens. Implementations
// are best effort, delivery failures are reported as errors but callers must
// never fail the primary operation because of them.
type Client interface {
	SendMulticast(ctx context.Context, tokens []string, note Notification) error
}

// NoopClient is used when push credentials are not configured, so the rest of
// the system behaves identically with push disabled.
type NoopClient struct{}

func (NoopClient) SendMulticast(ctx context.Context, tokens []string, note Notification) error {
	slog.Info("push disabled, dropping notification", "title", note.Title, "recipients", len(tokens))
	return nil
}
