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

type EventService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
	notifier *Notifier
}

func (s *EventService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/list", s.List)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.TeacherOrAdminOnly())

		r.Post("/create", s.Create)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.AdminOnly())

		r.Post("/{event_id}/approve", s.Approve)
		r.Post("/{event_id}/reject", s.Reject)
	})

	return r
}

type createEventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location"`
}

type createEventResponse struct {
	EventId uuid.UUID `json:"event_id"`
	Status  string    `json:"status"`
}

// Create registers a new event proposal. Events created by teachers start
// pending and must be approved by an admin before parents can see them.
// Events created by admins are approved immediately.
func (s *EventService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createEventRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	status := schema.EventPending
	if user.IsAdmin() {
		status = schema.EventApproved
	}

	event := schema.Event{
		Id:          uuid.New(),
		Title:       params.Title,
		Description: params.Description,
		Date:        params.Date,
		Location:    params.Location,
		Status:      status,
		CreatedById: user.Id,
	}

	result := s.db.Create(&event)
	if result.Error != nil {
		slog.Error("sql error creating event", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating event: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, createEventResponse{EventId: event.Id, Status: event.Status})
}

type EventInfo struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Status      string    `json:"status"`
	CreatedById uuid.UUID `json:"created_by_id"`
	CreatedBy   string    `json:"created_by,omitempty"`
}

func convertToEventInfo(event *schema.Event) EventInfo {
	info := EventInfo{
		Id:          event.Id,
		Title:       event.Title,
		Description: event.Description,
		Date:        event.Date,
		Location:    event.Location,
		Status:      event.Status,
		CreatedById: event.CreatedById,
	}
	if event.CreatedBy != nil {
		info.CreatedBy = event.CreatedBy.Name
	}
	return info
}

// List returns events visible to the caller. Admins see everything, other
// users see approved events plus their own proposals in any state.
func (s *EventService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	query := s.db.Preload("CreatedBy")
	if !user.IsAdmin() {
		query = query.Where("status = ? OR created_by_id = ?", schema.EventApproved, user.Id)
	}
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var events []schema.Event
	result := query.Order("date asc").Find(&events)
	if result.Error != nil {
		slog.Error("sql error listing events", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing events: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]EventInfo, 0, len(events))
	for i := range events {
		infos = append(infos, convertToEventInfo(&events[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *EventService) decide(w http.ResponseWriter, r *http.Request, status string) {
	eventId, err := utils.URLParamUUID(r, "event_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var event schema.Event
	err = s.db.Transaction(func(txn *gorm.DB) error {
		event, err = schema.GetEvent(eventId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrEventNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if event.Status != schema.EventPending {
			return CodedError(fmt.Errorf("event %v has already been %s", eventId, event.Status), http.StatusUnprocessableEntity)
		}

		event.Status = status
		result := txn.Save(&event)
		if result.Error != nil {
			slog.Error("sql error updating event status", "event_id", eventId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error updating event: %v", err), GetResponseCode(err))
		return
	}

	creator, err := schema.GetUser(event.CreatedById, s.db)
	if err != nil {
		slog.Error("error loading event creator for notification", "event_id", eventId, "error", err)
	} else {
		s.notifier.EventDecided(r.Context(), &event, &creator)
	}

	utils.WriteSuccess(w)
}

func (s *EventService) Approve(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, schema.EventApproved)
}

func (s *EventService) Reject(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, schema.EventRejected)
}
