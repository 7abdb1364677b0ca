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
	"gorm.io/gorm/clause"
)

type AttendanceService struct {
	db       *gorm.DB
	userAuth auth.IdentityProvider
}

func (s *AttendanceService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.TeacherOnly())

		r.Post("/record", s.Record)
		r.Post("/bulk", s.RecordBulk)
		r.Get("/", s.ClassAttendance)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)
		r.Use(auth.ParentOnly())

		r.Get("/child/{child_id}", s.ChildHistory)
	})

	return r
}

type attendanceEntry struct {
	ChildId uuid.UUID `json:"child_id" validate:"required"`
	Status  string    `json:"status" validate:"required,oneof=present absent"`
	Late    bool      `json:"late"`
}

type recordAttendanceRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	attendanceEntry
}

// recordEntry upserts the attendance row for (child, date). Re-recording the
// same child on the same day overwrites the earlier status.
func recordEntry(txn *gorm.DB, teacher *schema.User, date string, entry attendanceEntry) error {
	child, err := getClassChild(txn, entry.ChildId, teacher.ClassName)
	if err != nil {
		return err
	}

	attendance := schema.Attendance{
		Id:        uuid.New(),
		ChildId:   child.Id,
		Date:      date,
		TeacherId: teacher.Id,
		Status:    entry.Status,
		Late:      entry.Late,
	}

	result := txn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "child_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"teacher_id", "status", "late"}),
	}).Create(&attendance)
	if result.Error != nil {
		slog.Error("sql error recording attendance", "child_id", entry.ChildId, "date", date, "error", result.Error)
		return CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	return nil
}

func getClassChild(txn *gorm.DB, childId uuid.UUID, className string) (schema.Child, error) {
	var child schema.Child
	result := txn.Where("id = ?", childId).First(&child)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return schema.Child{}, CodedError(schema.ErrChildNotFound, http.StatusNotFound)
		}
		slog.Error("sql error looking up child", "child_id", childId, "error", result.Error)
		return schema.Child{}, CodedError(schema.ErrDbAccessFailed, http.StatusInternalServerError)
	}

	if child.ClassName != className {
		return schema.Child{}, CodedError(fmt.Errorf("child %v is not in class %v", childId, className), http.StatusUnprocessableEntity)
	}

	return child, nil
}

func (s *AttendanceService) Record(w http.ResponseWriter, r *http.Request) {
	teacher, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params recordAttendanceRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		return recordEntry(txn, &teacher, params.Date, params.attendanceEntry)
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error recording attendance: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type bulkAttendanceRequest struct {
	Date    string            `json:"date" validate:"required,datetime=2006-01-02"`
	Entries []attendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

func (s *AttendanceService) RecordBulk(w http.ResponseWriter, r *http.Request) {
	teacher, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var params bulkAttendanceRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	err = s.db.Transaction(func(txn *gorm.DB) error {
		for _, entry := range params.Entries {
			if err := recordEntry(txn, &teacher, params.Date, entry); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		http.Error(w, fmt.Sprintf("error recording attendance: %v", err), GetResponseCode(err))
		return
	}

	utils.WriteSuccess(w)
}

type AttendanceRecord struct {
	ChildId   uuid.UUID `json:"child_id"`
	ChildName string    `json:"child_name,omitempty"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	Late      bool      `json:"late"`
	Recorded  bool      `json:"recorded"`
}

// ClassAttendance returns the teacher's full roster for a date. Children with
// no row yet appear unrecorded so the client can render a checklist.
func (s *AttendanceService) ClassAttendance(w http.ResponseWriter, r *http.Request) {
	teacher, err := auth.UserFromContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, fmt.Sprintf("invalid date %v, expected YYYY-MM-DD", date), http.StatusBadRequest)
		return
	}

	var children []schema.Child
	result := s.db.Where("class_name = ?", teacher.ClassName).Order("name asc").Find(&children)
	if result.Error != nil {
		slog.Error("sql error listing class roster", "class_name", teacher.ClassName, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing attendance: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	var rows []schema.Attendance
	result = s.db.
		Joins("JOIN children ON children.id = attendances.child_id").
		Where("children.class_name = ?", teacher.ClassName).
		Where("attendances.date = ?", date).
		Find(&rows)
	if result.Error != nil {
		slog.Error("sql error listing attendance", "class_name", teacher.ClassName, "date", date, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing attendance: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	recorded := make(map[uuid.UUID]schema.Attendance, len(rows))
	for _, row := range rows {
		recorded[row.ChildId] = row
	}

	records := make([]AttendanceRecord, 0, len(children))
	for _, child := range children {
		record := AttendanceRecord{ChildId: child.Id, ChildName: child.Name, Date: date}
		if row, ok := recorded[child.Id]; ok {
			record.Status = row.Status
			record.Late = row.Late
			record.Recorded = true
		}
		records = append(records, record)
	}

	utils.WriteJsonResponse(w, records)
}

func (s *AttendanceService) ChildHistory(w http.ResponseWriter, r *http.Request) {
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

	if _, err := getOwnedChild(s.db, childId, user.Id); err != nil {
		http.Error(w, fmt.Sprintf("error listing attendance: %v", err), GetResponseCode(err))
		return
	}

	var rows []schema.Attendance
	result := s.db.Where("child_id = ?", childId).Order("date desc").Find(&rows)
	if result.Error != nil {
		slog.Error("sql error listing child attendance", "child_id", childId, "error", result.Error)
		http.Error(w, fmt.Sprintf("error listing attendance: %v", schema.ErrDbAccessFailed), http.StatusInternalServerError)
		return
	}

	records := make([]AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, AttendanceRecord{
			ChildId:  row.ChildId,
			Date:     row.Date,
			Status:   row.Status,
			Late:     row.Late,
			Recorded: true,
		})
	}

	utils.WriteJsonResponse(w, records)
}
