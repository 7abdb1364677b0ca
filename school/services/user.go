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

type UserService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
	notifier *Notifier
}

func (s *UserService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Post("/signup", s.Signup)
		r.Get("/login", s.LoginWithEmail)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Get("/info", s.Info)

		r.Post("/children", s.AddChild)
		r.Get("/children", s.ListChildren)
		r.Delete("/children/{child_id}", s.DeleteChild)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.AdminOnly())

		r.Get("/list", s.List)
		r.Post("/create", s.CreateUser)

		r.Delete("/{user_id}", s.DeleteUser)

		r.Post("/{user_id}/admin", s.PromoteAdmin)
		r.Delete("/{user_id}/admin", s.DemoteAdmin)
	})

	return r
}

type signupRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type signupResponse struct {
	UserId uuid.UUID `json:"user_id"`
}

// Signup is parent self-registration. Teacher and admin accounts can only be
// created by an admin.
func (s *UserService) Signup(w http.ResponseWriter, r *http.Request) {
	var params signupRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	userId, err := s.userAuth.CreateUser(params.Name, params.Email, params.Password, schema.RoleParent, "", "")
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			responseCode = http.StatusConflict
		}
		http.Error(w, err.Error(), responseCode)
		return
	}

	utils.WriteJsonResponse(w, signupResponse{UserId: userId})
}

type loginResponse struct {
	UserId      uuid.UUID `json:"user_id"`
	Role        string    `json:"role"`
	AccessToken string    `json:"access_token"`
}

func (s *UserService) LoginWithEmail(w http.ResponseWriter, r *http.Request) {
	email, password, ok := r.BasicAuth()
	if !ok {
		http.Error(w, "missing or invalid Authorization header", http.StatusUnauthorized)
		return
	}

	login, err := s.userAuth.LoginWithEmail(email, password)
	if err != nil {
		responseCode := http.StatusInternalServerError
		switch {
		case errors.Is(err, auth.ErrUserNotFoundWithEmail):
			responseCode = http.StatusNotFound
		case errors.Is(err, auth.ErrInvalidCredentials):
			responseCode = http.StatusUnauthorized
		}
		http.Error(w, fmt.Sprintf("login failed: %v", err), responseCode)
		return
	}

	utils.WriteJsonResponse(w, loginResponse{UserId: login.UserId, Role: login.Role, AccessToken: login.AccessToken})
}

type UserInfo struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ClassName string    `json:"class_name,omitempty"`
	Grade     string    `json:"grade,omitempty"`
}

func convertToUserInfo(user *schema.User) UserInfo {
	return UserInfo{
		Id:        user.Id,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		ClassName: user.ClassName,
		Grade:     user.Grade,
	}
}

func (s *UserService) Info(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	info := convertToUserInfo(&user)
	utils.WriteJsonResponse(w, info)
}

func (s *UserService) List(w http.ResponseWriter, r *http.Request) {
	query := s.db
	if role := r.URL.Query().Get("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []schema.User
	result := query.Find(&users)
	if result.Error != nil {
		slog.Error("sql error listing users", "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing users: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, convertToUserInfo(&users[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

type createUserRequest struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Role      string `json:"role" validate:"required,oneof=parent teacher admin"`
	ClassName string `json:"class_name"`
	Grade     string `json:"grade"`
}

func (s *UserService) CreateUser(w http.ResponseWriter, r *http.Request) {
	var params createUserRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Role == schema.RoleTeacher && params.ClassName == "" {
		http.Error(w, "teacher accounts require a class_name", http.StatusUnprocessableEntity)
		return
	}

	userId, err := s.userAuth.CreateUser(params.Name, params.Email, params.Password, params.Role, params.ClassName, params.Grade)
	if err != nil {
		responseCode := http.StatusInternalServerError
		if errors.Is(err, auth.ErrEmailAlreadyInUse) {
			responseCode = http.StatusConflict
		}
		http.Error(w, fmt.Sprintf("error creating user: %v", err), responseCode)
		return
	}

	s.notifier.Welcome(params.Name, params.Email)

	utils.WriteJsonResponse(w, signupResponse{UserId: userId})
}

func (s *UserService) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		var admin schema.User
		adminResult := txn.Where("role = ?", schema.RoleAdmin).Where("id <> ?", userId).First(&admin)
		if adminResult.Error != nil {
			slog.Error("sql error finding admin to assign homeworks to", "user_id", userId, "error", adminResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		// A deleted teacher's homeworks are handed to an admin so the class
		// keeps its assignments.
		updateResult := txn.Model(&schema.Homework{}).
			Where("teacher_id = ?", userId).
			Update("teacher_id", admin.Id)
		if updateResult.Error != nil {
			slog.Error("sql error reassigning homeworks of deleted user", "user_id", userId, "error", updateResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		deleteResult := txn.Delete(&schema.User{Id: userId})
		if deleteResult.Error != nil {
			slog.Error("sql error deleting user", "user_id", userId, "error", deleteResult.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting user %v: %v", userId, err), GetResponseCode(err))
		return
	}

	if err := s.userAuth.DeleteUser(userId); err != nil {
		http.Error(w, fmt.Sprintf("error deleting user %v: %v", userId, err), http.StatusInternalServerError)
		return
	}

	utils.WriteSuccess(w)
}

func (s *UserService) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		user, err := schema.GetUser(userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrUserNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		user.Role = schema.RoleAdmin

		result := txn.Save(&user)
		if result.Error != nil {
			slog.Error("sql error updating user role to admin", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error promoting admin: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *UserService) DemoteAdmin(w http.ResponseWriter, r *http.Request) {
	userId, err := utils.URLParamUUID(r, "user_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		user, err := schema.GetUser(userId, txn)
		if err != nil {
			if errors.Is(err, schema.ErrUserNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if !user.IsAdmin() {
			return CodedError(errors.New("user is already not an admin"), http.StatusUnprocessableEntity)
		}

		var count int64
		result := txn.Model(&schema.User{}).Where("role = ?", schema.RoleAdmin).Count(&count)
		if result.Error != nil {
			slog.Error("sql error counting existing admins", "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		if count < 2 {
			return CodedError(fmt.Errorf("cannot demote admin %v since there would be no admins left", userId), http.StatusUnprocessableEntity)
		}

		// A demoted admin with a class assignment goes back to teaching,
		// anyone else becomes a parent.
		if user.ClassName != "" {
			user.Role = schema.RoleTeacher
		} else {
			user.Role = schema.RoleParent
		}

		result = txn.Save(&user)
		if result.Error != nil {
			slog.Error("sql error demoting admin", "user_id", userId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error demoting admin: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type addChildRequest struct {
	Name      string     `json:"name" validate:"required"`
	Gender    string     `json:"gender"`
	BirthDate *time.Time `json:"birth_date"`
	Grade     string     `json:"grade"`
	ClassName string     `json:"class_name" validate:"required"`
}

type addChildResponse struct {
	ChildId uuid.UUID `json:"child_id"`
}

func (s *UserService) AddChild(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params addChildRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	child := schema.Child{
		Id:        uuid.New(),
		Name:      params.Name,
		Gender:    params.Gender,
		BirthDate: params.BirthDate,
		Grade:     params.Grade,
		ClassName: params.ClassName,
		ParentId:  user.Id,
	}

	result := s.db.Create(&child)
	if result.Error != nil {
		slog.Error("sql error creating child", "parent_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error registering child: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	utils.WriteJsonResponse(w, addChildResponse{ChildId: child.Id})
}

func (s *UserService) ListChildren(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var children []schema.Child
	result := s.db.Where("parent_id = ?", user.Id).Find(&children)
	if result.Error != nil {
		slog.Error("sql error listing children", "parent_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing children: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]ChildInfo, 0, len(children))
	for i := range children {
		infos = append(infos, convertToChildInfo(&children[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

func (s *UserService) DeleteChild(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	childId, err := utils.URLParamUUID(r, "child_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if _, err := getOwnedChild(txn, childId, user.Id); err != nil {
			return err
		}

		result := txn.Delete(&schema.Child{Id: childId})
		if result.Error != nil {
			slog.Error("sql error deleting child", "child_id", childId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting child: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}
