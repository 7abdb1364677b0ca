package push

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

type FcmClient struct {
	messaging *messaging.Client
}

func NewFcmClient(ctx context.Context, credentialsFile string) (*FcmClient, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase messaging client: %w", err)
	}

	return &FcmClient{messaging: client}, nil
}

func (c *FcmClient) SendMulticast(ctx context.Context, tokens []string, note Notification) error {
	if len(tokens) == 0 {
		return nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: note.Title,
			Body:  note.Body,
		},
		Data: note.Data,
	}

	res, err := c.messaging.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("error sending multicast push: %w", err)
	}

	if res.FailureCount > 0 {
		for _, delivery := range res.Responses {
			if delivery.Error != nil {
				slog.Error("push delivery failed for device", "error", delivery.Error)
			}
		}
		return fmt.Errorf("push delivery failed for %d of %d devices", res.FailureCount, len(tokens))
	}

	return nil
}
