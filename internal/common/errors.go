package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Core rule violations. Every one of them leaves the instance unchanged.
var (
	ErrInvalidStage                 = errors.New("invalid stage")
	ErrInvalidTransition            = errors.New("invalid transition")
	ErrDuplicateAssignment          = errors.New("duplicate assignment")
	ErrNoStages                     = errors.New("definition has no stages")
	ErrInsufficientTeachingProgress = errors.New("insufficient teaching progress")
)

// Service level failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("concurrent modification")
	ErrInvalidInput = errors.New("invalid input")
)

const pgUniqueViolation = "23505"

// TranslateDBError maps driver errors onto the sentinel errors above so
// handlers never have to know about gorm or postgres.
func TranslateDBError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateAssignment, what)
	}
	return fmt.Errorf("database error on %s: %w", what, err)
}

// HTTPStatus picks the response code for a service error.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, ErrDuplicateAssignment):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidStage),
		errors.Is(err, ErrNoStages),
		errors.Is(err, ErrInsufficientTeachingProgress):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
