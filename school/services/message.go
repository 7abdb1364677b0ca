package services

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"school_platform/school/auth"
	"school_platform/school/schema"
	"school_platform/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *MessageService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Post("/send", s.Send)
		r.Get("/inbox", s.Inbox)
		r.Get("/sent", s.Sent)
		r.Post("/{message_id}/read", s.MarkRead)

		r.Get("/notifications", s.Notifications)
		r.Post("/notifications/{notification_id}/read", s.MarkNotificationRead)
	})

	return r
}

type sendMessageRequest struct {
	RecipientId uuid.UUID `json:"recipient_id" validate:"required"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body" validate:"required"`
}

type sendMessageResponse struct {
	MessageId uuid.UUID `json:"message_id"`
}

func (s *MessageService) Send(w http.ResponseWriter, r *http.Request) {
	sender, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params sendMessageRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.RecipientId == sender.Id {
		http.Error(w, "cannot send a message to yourself", http.StatusUnprocessableEntity)
		return
	}

	message := schema.Message{
		Id:          uuid.New(),
		SenderId:    sender.Id,
		RecipientId: params.RecipientId,
		Subject:     params.Subject,
		Body:        params.Body,
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkUserExists(txn, params.RecipientId); err != nil {
			return err
		}

		result := txn.Create(&message)
		if result.Error != nil {
			slog.Error("sql error creating message", "sender_id", sender.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error sending message: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, sendMessageResponse{MessageId: message.Id})
}

type MessageInfo struct {
	Id            uuid.UUID `json:"id"`
	SenderId      uuid.UUID `json:"sender_id"`
	SenderName    string    `json:"sender_name,omitempty"`
	RecipientId   uuid.UUID `json:"recipient_id"`
	RecipientName string    `json:"recipient_name,omitempty"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Read          bool      `json:"read"`
	SentAt        time.Time `json:"sent_at"`
}

func convertToMessageInfo(msg *schema.Message) MessageInfo {
	info := MessageInfo{
		Id:          msg.Id,
		SenderId:    msg.SenderId,
		RecipientId: msg.RecipientId,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Read:        msg.Read,
		SentAt:      msg.CreatedAt,
	}
	if msg.Sender != nil {
		info.SenderName = msg.Sender.Name
	}
	if msg.Recipient != nil {
		info.RecipientName = msg.Recipient.Name
	}
	return info
}

func (s *MessageService) listMessages(w http.ResponseWriter, r *http.Request, column string) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var messages []schema.Message
	result := s.db.
		Preload("Sender").Preload("Recipient").
		Where(fmt.Sprintf("%s = ?", column), user.Id).
		Order("created_at desc").
		Find(&messages)
	if result.Error != nil {
		slog.Error("sql error listing messages", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing messages: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]MessageInfo, 0, len(messages))
	for i := range messages {
		infos = append(infos, convertToMessageInfo(&messages[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *MessageService) Inbox(w http.ResponseWriter, r *http.Request) {
	s.listMessages(w, r, "recipient_id")
}

func (s *MessageService) Sent(w http.ResponseWriter, r *http.Request) {
	s.listMessages(w, r, "sender_id")
}

// MarkRead flips the read flag. Only the recipient can mark a message read.
func (s *MessageService) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	messageId, err := utils.URLParamUUID(r, "message_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var message schema.Message
		result := txn.Where("id = ?", messageId).First(&message)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return CodedError(schema.ErrMessageNotFound, http.StatusNotFound)
			}
			slog.Error("sql error looking up message", "message_id", messageId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if message.RecipientId != user.Id {
			return CodedError(errors.New("only the recipient can mark a message as read"), http.StatusForbidden)
		}

		result = txn.Model(&message).Update("read", true)
		if result.Error != nil {
			slog.Error("sql error marking message read", "message_id", messageId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating message: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type NotificationInfo struct {
	Id         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Read       bool       `json:"read"`
	HomeworkId *uuid.UUID `json:"homework_id,omitempty"`
	EventId    *uuid.UUID `json:"event_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (s *MessageService) Notifications(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := s.db.Where("user_id = ?", user.Id)
	if r.URL.Query().Get("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	var notifications []schema.Notification
	result := query.Order("created_at desc").Find(&notifications)
	if result.Error != nil {
		slog.Error("sql error listing notifications", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing notifications: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]NotificationInfo, 0, len(notifications))
	for _, note := range notifications {
		infos = append(infos, NotificationInfo{
			Id:         note.Id,
			Title:      note.Title,
			Body:       note.Body,
			Read:       note.Read,
			HomeworkId: note.HomeworkId,
			EventId:    note.EventId,
			CreatedAt:  note.CreatedAt,
		})
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *MessageService) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	notificationId, err := utils.URLParamUUID(r, "notification_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.db.Model(&schema.Notification{}).
		Where("id = ?", notificationId).
		Where("user_id = ?", user.Id).
		Update("read", true)
	if result.Error != nil {
		slog.Error("sql error marking notification read", "notification_id", notificationId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error updating notification: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, fmt.Sprintf("notification %v not found", notificationId), http.StatusNotFound)
		return
	}

	utils.WriteSuccess(w)
}
