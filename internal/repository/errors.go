package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/d60-Lab/newsfeed/internal/apperr"
)

// dbErr 把 gorm / 驱动错误归类到 apperr
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound("%s: not found", msg)
	case isUniqueViolation(err):
		return apperr.Wrap(apperr.KindConflict, err, msg)
	default:
		return apperr.Transient(err, msg)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "duplicate key value") ||
		strings.Contains(s, "SQLSTATE 23505")
}
