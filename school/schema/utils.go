package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrChildNotFound    = errors.New("child not found")
	ErrHomeworkNotFound = errors.New("homework not found")
	ErrEventNotFound    = errors.New("event not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrDbAccessFailed   = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

// GetChild loads a child only if it is owned by the given parent. Any handler
// acting on a body/query supplied child id must go through this check.
func GetChild(childId, parentId uuid.UUID, db *gorm.DB) (Child, error) {
	var child Child

	result := db.First(&child, "id = ? AND parent_id = ?", childId, parentId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return child, ErrChildNotFound
		}
		slog.Error("sql error in get child", "child_id", childId, "parent_id", parentId, "error", result.Error)
		return child, ErrDbAccessFailed
	}

	return child, nil
}

func GetHomework(homeworkId uuid.UUID, db *gorm.DB, loadTeacher bool) (Homework, error) {
	var homework Homework

	query := db
	if loadTeacher {
		query = query.Preload("Teacher")
	}
	result := query.First(&homework, "id = ?", homeworkId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return homework, ErrHomeworkNotFound
		}
		slog.Error("sql error in get homework", "homework_id", homeworkId, "error", result.Error)
		return homework, ErrDbAccessFailed
	}

	return homework, nil
}

func GetEvent(eventId uuid.UUID, db *gorm.DB) (Event, error) {
	var event Event

	result := db.First(&event, "id = ?", eventId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return event, ErrEventNotFound
		}
		slog.Error("sql error in get event", "event_id", eventId, "error", result.Error)
		return event, ErrDbAccessFailed
	}

	return event, nil
}

// ClassParents returns every parent with at least one child in the class.
func ClassParents(className string, db *gorm.DB) ([]User, error) {
	var parents []User

	result := db.
		Distinct("users.*").
		Joins("JOIN children ON children.parent_id = users.id").
		Where("children.class_name = ?", className).
		Find(&parents)
	if result.Error != nil {
		slog.Error("sql error listing class parents", "class_name", className, "error", result.Error)
		return nil, ErrDbAccessFailed
	}

	return parents, nil
}
