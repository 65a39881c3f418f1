package httpx

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors for the domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

const uniqueViolation = "23505"

// TranslateStoreError converts driver-level uniqueness violations into the
// structured duplicate sentinel so handlers answer with a 409 instead of a
// raw server error.
func TranslateStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

// RespondError maps domain errors to envelope responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrDuplicate):
		Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrValidation):
		Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrUnauthorized):
		Error(w, err.Error(), http.StatusUnauthorized)
	default:
		Error(w, "internal error", http.StatusInternalServerError)
	}
}
