package services

import (
	"errors"
	"log/slog"
	"net/http"
	"school_platform/school/schema"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type codedError struct {
	err  error
	code int
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func CodedError(err error, code int) error {
	return &codedError{err: err, code: code}
}

func GetResponseCode(err error) int {
	var cerr *codedError
	if errors.As(err, &cerr) {
		return cerr.code
	}
	slog.Error("non coded error passed to GetResponseCode", "error", err)
	return http.StatusInternalServerError
}

func checkUserExists(txn *gorm.DB, userId uuid.UUID) error {
	if _, err := schema.GetUser(userId, txn); err != nil {
		if errors.Is(err, schema.ErrUserNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

func checkHomeworkExists(txn *gorm.DB, homeworkId uuid.UUID) error {
	if _, err := schema.GetHomework(homeworkId, txn, false); err != nil {
		if errors.Is(err, schema.ErrHomeworkNotFound) {
			return CodedError(err, http.StatusNotFound)
		}
		return CodedError(err, http.StatusInternalServerError)
	}
	return nil
}

// getOwnedChild resolves a child and verifies it belongs to the parent,
// mapping the outcome to coded errors for handler use.
func getOwnedChild(txn *gorm.DB, childId, parentId uuid.UUID) (schema.Child, error) {
	child, err := schema.GetChild(childId, parentId, txn)
	if err != nil {
		if errors.Is(err, schema.ErrChildNotFound) {
			return child, CodedError(err, http.StatusNotFound)
		}
		return child, CodedError(err, http.StatusInternalServerError)
	}
	return child, nil
}
