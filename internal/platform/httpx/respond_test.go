package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorWithReservedBusinessCode(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, "session expired", 55001)

	// Reserved codes above the HTTP range ride in a 200 body.
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, 55001, envelope.Code)
	require.False(t, envelope.Success)
	require.Equal(t, "session expired", envelope.Message)
}

func TestErrorWithHTTPStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, "not found", http.StatusNotFound)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var envelope Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Equal(t, http.StatusNotFound, envelope.Code)
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: role not found", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: email already exists", ErrDuplicate), http.StatusConflict},
		{fmt.Errorf("%w: name is required", ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: admin is protected", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("%w: no session", ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, "error %v", tc.err)
	}
}
