package services

import (
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
	"gorm.io/gorm/clause"
)

type FcmService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *FcmService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Post("/register", s.Register)
		r.Delete("/{token}", s.Unregister)
	})

	return r
}

type registerTokenRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

// Register stores a device token for the caller. A token already registered,
// possibly by a different account on a shared device, is reassigned to the
// caller rather than duplicated.
func (s *FcmService) Register(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params registerTokenRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	token := schema.DeviceToken{
		Id:       uuid.New(),
		UserId:   user.Id,
		Token:    params.Token,
		Platform: params.Platform,
		LastSeen: time.Now().UTC(),
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "last_seen"}),
	}).Create(&token)
	if result.Error != nil {
		slog.Error("sql error registering device token", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error registering device token: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}

func (s *FcmService) Unregister(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	token, err := utils.URLParam(r, "token")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result := s.db.Where("token = ?", token).Where("user_id = ?", user.Id).Delete(&schema.DeviceToken{})
	if result.Error != nil {
		slog.Error("sql error deleting device token", "user_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error deleting device token: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}
