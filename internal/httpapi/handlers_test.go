package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kadirpekel/jsonstorage/internal/apperrors"
)

func TestClampLimit(t *testing.T) {
	cases := map[string]int{
		"":     50,
		"0":    1,
		"-5":   1,
		"37":   37,
		"500":  100,
		"abc":  50,
	}
	for in, want := range cases {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestWriteErrorMapsSentinelsToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperrors.NotFound, http.StatusNotFound},
		{apperrors.InProgress, http.StatusAccepted},
		{apperrors.Conflict, http.StatusConflict},
		{apperrors.BadRequestf("bad path"), http.StatusBadRequest},
		{apperrors.Transientf("db down"), http.StatusServiceUnavailable},
		{apperrors.Fatalf("not an object"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, c.err)
		if rec.Code != c.status {
			t.Errorf("writeError(%v) = %d, want %d", c.err, rec.Code, c.status)
		}
	}
}
