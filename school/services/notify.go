package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"school_platform/school/email"
	"school_platform/school/push"
	"school_platform/school/schema"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notifier owns all secondary effects of primary writes: in-app notification
// rows, push multicast, and email. Every method is best effort and safe to
// call after the primary transaction commits; failures are logged and never
// surfaced to the caller.
type Notifier struct {
	db    *gorm.DB
	push  push.Client
	email email.Service
}

func NewNotifier(db *gorm.DB, pushClient push.Client, emailService email.Service) *Notifier {
	return &Notifier{db: db, push: pushClient, email: emailService}
}

// HomeworkCreated inserts one notification row per parent with a child in the
// homework's class, then sends one multicast push to those parents' devices.
// The notification rows do not depend on the push outcome.
func (n *Notifier) HomeworkCreated(ctx context.Context, homework *schema.Homework) {
	parents, err := schema.ClassParents(homework.ClassName, n.db)
	if err != nil {
		slog.Error("homework fan-out: error listing class parents", "homework_id", homework.Id, "error", err)
		return
	}
	if len(parents) == 0 {
		return
	}

	homeworkId := homework.Id
	title := "New homework assigned"
	body := fmt.Sprintf("%v (due %v)", homework.Title, homework.DueDate.Format("2006-01-02"))

	notifications := make([]schema.Notification, 0, len(parents))
	parentIds := make([]uuid.UUID, 0, len(parents))
	for _, parent := range parents {
		notifications = append(notifications, schema.Notification{
			Id:         uuid.New(),
			UserId:     parent.Id,
			Title:      title,
			Body:       body,
			HomeworkId: &homeworkId,
		})
		parentIds = append(parentIds, parent.Id)
	}

	result := n.db.Create(&notifications)
	if result.Error != nil {
		slog.Error("homework fan-out: sql error inserting notifications", "homework_id", homework.Id, "error", result.Error)
	}

	n.sendPush(ctx, parentIds, push.Notification{
		Title: title,
		Body:  body,
		Data:  map[string]string{"homework_id": homework.Id.String()},
	})
}

// EventDecided informs the event creator of an approval or rejection via a
// notification row, a push, and an email.
func (n *Notifier) EventDecided(ctx context.Context, event *schema.Event, creator *schema.User) {
	eventId := event.Id
	title := fmt.Sprintf("Event %v", event.Status)
	body := fmt.Sprintf("Your event '%v' has been %v.", event.Title, event.Status)

	notification := schema.Notification{
		Id:      uuid.New(),
		UserId:  creator.Id,
		Title:   title,
		Body:    body,
		EventId: &eventId,
	}
	result := n.db.Create(&notification)
	if result.Error != nil {
		slog.Error("event fan-out: sql error inserting notification", "event_id", event.Id, "error", result.Error)
	}

	n.sendPush(ctx, []uuid.UUID{creator.Id}, push.Notification{
		Title: title,
		Body:  body,
		Data:  map[string]string{"event_id": event.Id.String()},
	})

	n.email.Send(email.Message{
		To:      mail.Address{Name: creator.Name, Address: creator.Email},
		Subject: title,
		Body:    body,
	})
}

// Welcome sends a welcome email to a newly created account.
func (n *Notifier) Welcome(name, address string) {
	n.email.Send(email.Message{
		To:      mail.Address{Name: name, Address: address},
		Subject: "Welcome to the school platform",
		Body:    fmt.Sprintf("Hello %v, your account has been created. You can now log in with your email address.", name),
	})
}

func (n *Notifier) sendPush(ctx context.Context, userIds []uuid.UUID, note push.Notification) {
	var tokens []string
	result := n.db.Model(&schema.DeviceToken{}).
		Where("user_id IN ?", userIds).
		Pluck("token", &tokens)
	if result.Error != nil {
		slog.Error("push fan-out: sql error loading device tokens", "error", result.Error)
		return
	}
	if len(tokens) == 0 {
		return
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := n.push.SendMulticast(sendCtx, tokens, note); err != nil {
		slog.Error("push fan-out: error sending multicast", "recipients", len(tokens), "error", err)
	}
}
