package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestTranslateDBError(t *testing.T) {
	if TranslateDBError(nil, "pack") != nil {
		t.Fatal("expected nil for nil error")
	}

	err := TranslateDBError(gorm.ErrRecordNotFound, "pack")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	err = TranslateDBError(dup, "character research")
	if !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("expected ErrDuplicateAssignment, got %v", err)
	}

	other := errors.New("connection reset")
	err = TranslateDBError(other, "pack")
	if !errors.Is(err, other) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: pack", ErrNotFound), http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{ErrDuplicateAssignment, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrInvalidTransition, http.StatusUnprocessableEntity},
		{ErrInvalidStage, http.StatusUnprocessableEntity},
		{ErrNoStages, http.StatusUnprocessableEntity},
		{ErrInsufficientTeachingProgress, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestListTypesScan(t *testing.T) {
	var ids UUIDList
	if err := ids.Scan(nil); err != nil || len(ids) != 0 {
		t.Fatalf("expected empty list from NULL, got %v %v", ids, err)
	}
	if err := ids.Scan([]byte(`["6f1c2a4e-9d3b-4f7a-8c2e-1b5d9e0a7c31"]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected one id, got %d", len(ids))
	}

	var notes JSONList[string]
	if err := notes.Scan(`["a","b"]`); err != nil {
		t.Fatalf("scan: %v", err)
	}
	v, err := notes.Value()
	if err != nil || v != `["a","b"]` {
		t.Fatalf("unexpected value %v %v", v, err)
	}
	if err := notes.Scan(42); err == nil {
		t.Fatal("expected error scanning an int")
	}
}
