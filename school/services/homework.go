package services

import (
	"encoding/json"
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
	"gorm.io/gorm/clause"
)

// activityResultPrefix marks interactive activity results serialized into the
// free text completion answer column.
const activityResultPrefix = "Interactive Activity Result: "

type HomeworkService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
	notifier *Notifier
}

func (s *HomeworkService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.ParentOnly())

		r.Get("/feed", s.Feed)
		r.Post("/submit", s.Submit)
		r.Post("/{homework_id}/complete", s.Complete)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.TeacherOnly())

		r.Post("/create", s.Create)
		r.Get("/list", s.List)
		r.Get("/submissions", s.AllSubmissions)
		r.Get("/{homework_id}/submissions", s.Submissions)
		r.Post("/{homework_id}", s.Update)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.TeacherOrAdminOnly())

		r.Delete("/{homework_id}", s.Delete)
	})

	return r
}

type createHomeworkRequest struct {
	Title        string                 `json:"title" validate:"required"`
	Instructions string                 `json:"instructions"`
	DueDate      time.Time              `json:"due_date" validate:"required"`
	FileUrl      string                 `json:"file_url" validate:"omitempty,url"`
	ClassName    string                 `json:"class_name"`
	Grade        string                 `json:"grade"`
	Interactive  bool                   `json:"interactive"`
	Items        map[string]interface{} `json:"items"`
}

type createHomeworkResponse struct {
	HomeworkId uuid.UUID `json:"homework_id"`
}

func (s *HomeworkService) Create(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params createHomeworkRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	// Homework defaults to the teacher's own class assignment.
	className := params.ClassName
	if className == "" {
		className = user.ClassName
	}
	grade := params.Grade
	if grade == "" {
		grade = user.Grade
	}

	if className == "" {
		http.Error(w, "homework must have a class, and the creating teacher has no class assigned", http.StatusUnprocessableEntity)
		return
	}

	var items string
	if params.Items != nil {
		itemsJson, err := json.Marshal(params.Items)
		if err != nil {
			http.Error(w, fmt.Sprintf("items cannot be serialized to json: %v", err), http.StatusBadRequest)
			return
		}
		items = string(itemsJson)
	}

	homework := schema.Homework{
		Id:           uuid.New(),
		Title:        params.Title,
		Instructions: params.Instructions,
		DueDate:      params.DueDate,
		FileUrl:      params.FileUrl,
		Status:       schema.HomeworkPending,
		ClassName:    className,
		Grade:        grade,
		Interactive:  params.Interactive,
		Items:        items,
		TeacherId:    user.Id,
	}

	result := s.db.Create(&homework)
	if result.Error != nil {
		slog.Error("sql error creating homework", "error", result.Error)
		http.Error(w, fmt.Sprintf("error creating homework: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	slog.Info("homework created", "homework_id", homework.Id, "class_name", className, "teacher_id", user.Id)

	// Fan out after the primary write, failures here never fail the request.
	s.notifier.HomeworkCreated(r.Context(), &homework)

	utils.WriteJsonResponse(w, createHomeworkResponse{HomeworkId: homework.Id})
}

type HomeworkInfo struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Instructions string    `json:"instructions"`
	DueDate      time.Time `json:"due_date"`
	FileUrl      string    `json:"file_url"`
	Status       string    `json:"status"`
	ClassName    string    `json:"class_name"`
	Grade        string    `json:"grade"`
	Interactive  bool      `json:"interactive"`
	Items        string    `json:"items,omitempty"`
}

func convertToHomeworkInfo(hw *schema.Homework) HomeworkInfo {
	return HomeworkInfo{
		Id:           hw.Id,
		Title:        hw.Title,
		Instructions: hw.Instructions,
		DueDate:      hw.DueDate,
		FileUrl:      hw.FileUrl,
		Status:       hw.Status,
		ClassName:    hw.ClassName,
		Grade:        hw.Grade,
		Interactive:  hw.Interactive,
		Items:        hw.Items,
	}
}

func (s *HomeworkService) List(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var homeworks []schema.Homework
	result := s.db.Where("teacher_id = ?", user.Id).Order("due_date DESC").Find(&homeworks)
	if result.Error != nil {
		slog.Error("sql error listing homeworks", "teacher_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing homeworks: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	infos := make([]HomeworkInfo, 0, len(homeworks))
	for i := range homeworks {
		infos = append(infos, convertToHomeworkInfo(&homeworks[i]))
	}
	utils.WriteJsonResponse(w, infos)
}

type updateHomeworkRequest struct {
	Title        *string    `json:"title"`
	Instructions *string    `json:"instructions"`
	DueDate      *time.Time `json:"due_date"`
	FileUrl      *string    `json:"file_url"`
	Items        *string    `json:"items"`
}

func (s *HomeworkService) Update(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	homeworkId, err := utils.URLParamUUID(r, "homework_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params updateHomeworkRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		homework, err := schema.GetHomework(homeworkId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrHomeworkNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if homework.TeacherId != user.Id {
			return CodedError(fmt.Errorf("homework %v is not owned by teacher %v", homeworkId, user.Id), http.StatusForbidden)
		}

		updates := map[string]interface{}{}
		if params.Title != nil {
			updates["title"] = *params.Title
		}
		if params.Instructions != nil {
			updates["instructions"] = *params.Instructions
		}
		if params.DueDate != nil {
			updates["due_date"] = *params.DueDate
		}
		if params.FileUrl != nil {
			updates["file_url"] = *params.FileUrl
		}
		if params.Items != nil {
			updates["items"] = *params.Items
		}

		if len(updates) == 0 {
			return nil
		}

		result := txn.Model(&schema.Homework{Id: homeworkId}).Updates(updates)
		if result.Error != nil {
			slog.Error("sql error updating homework", "homework_id", homeworkId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error updating homework: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

func (s *HomeworkService) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	homeworkId, err := utils.URLParamUUID(r, "homework_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		homework, err := schema.GetHomework(homeworkId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrHomeworkNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		if homework.TeacherId != user.Id && !user.IsAdmin() {
			return CodedError(fmt.Errorf("homework %v is not owned by teacher %v", homeworkId, user.Id), http.StatusForbidden)
		}

		for _, dependent := range []interface{}{&schema.Submission{}, &schema.HomeworkCompletion{}} {
			result := txn.Where("homework_id = ?", homeworkId).Delete(dependent)
			if result.Error != nil {
				slog.Error("sql error deleting homework dependents", "homework_id", homeworkId, "error", result.Error)
				return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
			}
		}

		result := txn.Delete(&schema.Homework{Id: homeworkId})
		if result.Error != nil {
			slog.Error("sql error deleting homework", "homework_id", homeworkId, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}
		return nil
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error deleting homework: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type ChildInfo struct {
	Id        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Gender    string     `json:"gender,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Grade     string     `json:"grade,omitempty"`
	ClassName string     `json:"class_name"`
}

func convertToChildInfo(child *schema.Child) ChildInfo {
	return ChildInfo{
		Id:        child.Id,
		Name:      child.Name,
		Gender:    child.Gender,
		BirthDate: child.BirthDate,
		Grade:     child.Grade,
		ClassName: child.ClassName,
	}
}

type FeedItem struct {
	HomeworkInfo

	TeacherName    string `json:"teacher_name"`
	TeacherFileUrl string `json:"teacher_file_url,omitempty"`

	Submitted        bool       `json:"submitted"`
	SubmittedAt      *time.Time `json:"submitted_at,omitempty"`
	Comment          string     `json:"comment,omitempty"`
	Completed        bool       `json:"completed"`
	CompletionAnswer string     `json:"completion_answer,omitempty"`
}

type FeedResponse struct {
	Homeworks       []FeedItem  `json:"homeworks"`
	Children        []ChildInfo `json:"children"`
	FilteredByChild bool        `json:"filtered_by_child"`
}

// Feed returns every homework assigned to the child's class, annotated with
// that child's submission and completion state.
func (s *HomeworkService) Feed(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	childId, err := utils.QueryParamUUID(r, "child_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	child, err := getOwnedChild(s.db, childId, user.Id)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading child: %v", err), GetResponseCode(err))
		return
	}

	var homeworks []schema.Homework
	result := s.db.Preload("Teacher").
		Where("class_name = ?", child.ClassName).
		Order("due_date DESC").
		Find(&homeworks)
	if result.Error != nil {
		slog.Error("sql error listing class homeworks", "class_name", child.ClassName, "error", result.Error)
		http.Error(w, fmt.Sprintf("error loading homework feed: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	homeworkIds := make([]uuid.UUID, 0, len(homeworks))
	for _, hw := range homeworks {
		homeworkIds = append(homeworkIds, hw.Id)
	}

	submissions := map[uuid.UUID]schema.Submission{}
	completions := map[uuid.UUID]schema.HomeworkCompletion{}

	if len(homeworkIds) > 0 {
		var subRows []schema.Submission
		result = s.db.
			Where("homework_id IN ? AND parent_id = ? AND child_id = ?", homeworkIds, user.Id, child.Id).
			Find(&subRows)
		if result.Error != nil {
			slog.Error("sql error loading submissions for feed", "child_id", child.Id, "error", result.Error)
			http.Error(w, fmt.Sprintf("error loading homework feed: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
			return
		}
		for _, sub := range subRows {
			submissions[sub.HomeworkId] = sub
		}

		var compRows []schema.HomeworkCompletion
		result = s.db.
			Where("homework_id IN ? AND parent_id = ? AND child_id = ?", homeworkIds, user.Id, child.Id).
			Find(&compRows)
		if result.Error != nil {
			slog.Error("sql error loading completions for feed", "child_id", child.Id, "error", result.Error)
			http.Error(w, fmt.Sprintf("error loading homework feed: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
			return
		}
		for _, comp := range compRows {
			completions[comp.HomeworkId] = comp
		}
	}

	items := make([]FeedItem, 0, len(homeworks))
	for i := range homeworks {
		hw := &homeworks[i]

		item := FeedItem{
			HomeworkInfo:   convertToHomeworkInfo(hw),
			TeacherFileUrl: hw.FileUrl,
		}
		if hw.Teacher != nil {
			item.TeacherName = hw.Teacher.Name
		}

		if sub, ok := submissions[hw.Id]; ok {
			item.Submitted = true
			submittedAt := sub.SubmittedAt
			item.SubmittedAt = &submittedAt
			item.Comment = sub.Comment
			// The submission file shadows the teacher's file under the shared
			// file_url key; the teacher's own file stays available under
			// teacher_file_url.
			if sub.FileUrl != "" {
				item.FileUrl = sub.FileUrl
			}
		}

		if comp, ok := completions[hw.Id]; ok {
			item.Completed = true
			item.CompletionAnswer = comp.CompletionAnswer
		}

		items = append(items, item)
	}

	res := FeedResponse{
		Homeworks:       items,
		Children:        []ChildInfo{convertToChildInfo(&child)},
		FilteredByChild: true,
	}
	utils.WriteJsonResponse(w, res)
}

type submitRequest struct {
	HomeworkId uuid.UUID `json:"homework_id" validate:"required"`
	ChildId    uuid.UUID `json:"child_id" validate:"required"`

	FileUrl          string                 `json:"file_url" validate:"omitempty,url"`
	Comment          string                 `json:"comment"`
	CompletionAnswer string                 `json:"completion_answer"`
	ActivityResult   map[string]interface{} `json:"activity_result"`
}

func serializeActivityResult(result map[string]interface{}) (string, error) {
	resultJson, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("activity result cannot be serialized to json: %w", err)
	}
	return activityResultPrefix + string(resultJson), nil
}

// completionAnswer resolves the answer text to persist, preferring the
// structured activity result over the free text answer.
func (p *submitRequest) completionAnswer() (string, error) {
	if p.ActivityResult != nil {
		return serializeActivityResult(p.ActivityResult)
	}
	return p.CompletionAnswer, nil
}

// Submit records that a parent, on behalf of a child, has turned in work for
// a homework item. The operation is idempotent: repeat submissions for the
// same homework and child update the existing rows.
func (s *HomeworkService) Submit(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params submitRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		homework, err := schema.GetHomework(params.HomeworkId, txn, false)
		if err != nil {
			if errors.Is(err, schema.ErrHomeworkNotFound) {
				return CodedError(err, http.StatusNotFound)
			}
			return CodedError(err, http.StatusInternalServerError)
		}

		child, err := getOwnedChild(txn, params.ChildId, user.Id)
		if err != nil {
			return err
		}

		if child.ClassName != homework.ClassName {
			return CodedError(fmt.Errorf("homework %v is not assigned to the class of child %v", homework.Id, child.Id), http.StatusUnprocessableEntity)
		}

		if homework.Interactive {
			if params.ActivityResult == nil && params.CompletionAnswer == "" {
				return CodedError(errors.New("interactive homework requires an activity result or completion answer"), http.StatusBadRequest)
			}
		} else {
			if params.FileUrl == "" && params.CompletionAnswer == "" {
				return CodedError(errors.New("submission requires a file url or completion answer"), http.StatusBadRequest)
			}
		}

		submission := schema.Submission{
			Id:          uuid.New(),
			HomeworkId:  homework.Id,
			ParentId:    user.Id,
			ChildId:     child.Id,
			FileUrl:     params.FileUrl,
			Comment:     params.Comment,
			SubmittedAt: time.Now().UTC(),
		}

		result := txn.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "homework_id"}, {Name: "parent_id"}, {Name: "child_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"file_url", "comment", "submitted_at"}),
		}).Create(&submission)
		if result.Error != nil {
			slog.Error("sql error upserting submission", "homework_id", homework.Id, "child_id", child.Id, "error", result.Error)
			return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
		}

		answer, err := params.completionAnswer()
		if err != nil {
			return CodedError(err, http.StatusBadRequest)
		}
		if answer == "" {
			return nil
		}

		return upsertCompletion(txn, homework.Id, user.Id, child.Id, answer)
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error submitting homework: %v", err), GetResponseCode(err))
		return
	}

	slog.Info("homework submitted", "homework_id", params.HomeworkId, "child_id", params.ChildId, "parent_id", user.Id)

	utils.WriteSuccess(w)
}

func upsertCompletion(txn *gorm.DB, homeworkId, parentId, childId uuid.UUID, answer string) error {
	completion := schema.HomeworkCompletion{
		Id:               uuid.New(),
		HomeworkId:       homeworkId,
		ParentId:         parentId,
		ChildId:          childId,
		CompletionAnswer: answer,
	}

	result := txn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "homework_id"}, {Name: "parent_id"}, {Name: "child_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completion_answer", "updated_at"}),
	}).Create(&completion)
	if result.Error != nil {
		slog.Error("sql error upserting homework completion", "homework_id", homeworkId, "child_id", childId, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}

type completeRequest struct {
	ChildId          uuid.UUID              `json:"child_id" validate:"required"`
	CompletionAnswer string                 `json:"completion_answer"`
	ActivityResult   map[string]interface{} `json:"activity_result"`
}

// Complete persists an answer without attaching a file. Calling it N times
// yields exactly one completion row holding the latest answer.
func (s *HomeworkService) Complete(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	homeworkId, err := utils.URLParamUUID(r, "homework_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var params completeRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.ActivityResult == nil && params.CompletionAnswer == "" {
		http.Error(w, "completion requires an activity result or completion answer", http.StatusBadRequest)
		return
	}

	answer := params.CompletionAnswer
	if params.ActivityResult != nil {
		answer, err = serializeActivityResult(params.ActivityResult)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		if err := checkHomeworkExists(txn, homeworkId); err != nil {
			return err
		}

		child, err := getOwnedChild(txn, params.ChildId, user.Id)
		if err != nil {
			return err
		}

		return upsertCompletion(txn, homeworkId, user.Id, child.Id, answer)
	})

	if err != nil {
		http.Error(w, fmt.Sprintf("error completing homework: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type SubmissionInfo struct {
	Id         uuid.UUID `json:"id"`
	HomeworkId uuid.UUID `json:"homework_id"`
	ChildId    uuid.UUID `json:"child_id"`
	ChildName  string    `json:"child_name"`
	ParentId   uuid.UUID `json:"parent_id"`
	ParentName string    `json:"parent_name"`

	FileUrl          string    `json:"file_url,omitempty"`
	Comment          string    `json:"comment,omitempty"`
	CompletionAnswer string    `json:"completion_answer,omitempty"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

type SubmissionRollup struct {
	HomeworkId     uuid.UUID        `json:"homework_id"`
	Title          string           `json:"title"`
	Submissions    []SubmissionInfo `json:"submissions"`
	TotalStudents  int              `json:"total_students"`
	SubmittedCount int              `json:"submitted_count"`
	PendingCount   int              `json:"pending_count"`
}

// rollupHomework gathers the submissions for one homework restricted to the
// teacher's own class roster. Submissions from children outside the roster
// are never visible, regardless of the homework's own class field.
func (s *HomeworkService) rollupHomework(homework *schema.Homework, teacher *schema.User) (SubmissionRollup, error) {
	var roster []schema.Child
	result := s.db.Where("class_name = ?", teacher.ClassName).Find(&roster)
	if result.Error != nil {
		slog.Error("sql error loading class roster", "class_name", teacher.ClassName, "error", result.Error)
		return SubmissionRollup{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	var submissions []schema.Submission
	result = s.db.Preload("Child").Preload("Parent").
		Joins("JOIN children ON children.id = submissions.child_id").
		Where("submissions.homework_id = ? AND children.class_name = ?", homework.Id, teacher.ClassName).
		Find(&submissions)
	if result.Error != nil {
		slog.Error("sql error loading submissions for rollup", "homework_id", homework.Id, "error", result.Error)
		return SubmissionRollup{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	completions := map[uuid.UUID]string{}
	var completionRows []schema.HomeworkCompletion
	result = s.db.Where("homework_id = ?", homework.Id).Find(&completionRows)
	if result.Error != nil {
		slog.Error("sql error loading completions for rollup", "homework_id", homework.Id, "error", result.Error)
		return SubmissionRollup{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}
	for _, comp := range completionRows {
		completions[comp.ChildId] = comp.CompletionAnswer
	}

	infos := make([]SubmissionInfo, 0, len(submissions))
	for _, sub := range submissions {
		info := SubmissionInfo{
			Id:               sub.Id,
			HomeworkId:       sub.HomeworkId,
			ChildId:          sub.ChildId,
			ParentId:         sub.ParentId,
			FileUrl:          sub.FileUrl,
			Comment:          sub.Comment,
			CompletionAnswer: completions[sub.ChildId],
			SubmittedAt:      sub.SubmittedAt,
		}
		if sub.Child != nil {
			info.ChildName = sub.Child.Name
		}
		if sub.Parent != nil {
			info.ParentName = sub.Parent.Name
		}
		infos = append(infos, info)
	}

	return SubmissionRollup{
		HomeworkId:     homework.Id,
		Title:          homework.Title,
		Submissions:    infos,
		TotalStudents:  len(roster),
		SubmittedCount: len(infos),
		PendingCount:   len(roster) - len(infos),
	}, nil
}

func (s *HomeworkService) Submissions(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	homeworkId, err := utils.URLParamUUID(r, "homework_id")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	homework, err := schema.GetHomework(homeworkId, s.db, false)
	if err != nil {
		if errors.Is(err, schema.ErrHomeworkNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("error loading homework: %v", err), http.StatusInternalServerError)
		return
	}

	if homework.TeacherId != user.Id {
		http.Error(w, fmt.Sprintf("homework %v is not owned by teacher %v", homeworkId, user.Id), http.StatusForbidden)
		return
	}

	rollup, err := s.rollupHomework(&homework, &user)
	if err != nil {
		http.Error(w, fmt.Sprintf("error loading submissions: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteJsonResponse(w, rollup)
}

func (s *HomeworkService) AllSubmissions(w http.ResponseWriter, r *http.Request) {
	user, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var homeworks []schema.Homework
	result := s.db.Where("teacher_id = ?", user.Id).Order("due_date DESC").Find(&homeworks)
	if result.Error != nil {
		slog.Error("sql error listing homeworks for rollup", "teacher_id", user.Id, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing submissions: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	rollups := make([]SubmissionRollup, 0, len(homeworks))
	for i := range homeworks {
		rollup, err := s.rollupHomework(&homeworks[i], &user)
		if err != nil {
			http.Error(w, fmt.Sprintf("error listing submissions: %v", err), GetResponseCode(err))
			return
		}
		rollups = append(rollups, rollup)
	}

	utils.WriteJsonResponse(w, rollups)
}
