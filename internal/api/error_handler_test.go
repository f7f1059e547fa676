package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/makers/loans-api/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		err      error
		wantCode int
		wantBody string
	}{
		{"echo error keeps code", http.MethodGet, echo.NewHTTPError(http.StatusConflict, "busy"), http.StatusConflict, `{"error":"busy"}`},
		{"unauthorized", http.MethodPut, domain.Reason(domain.ErrUnauthorized, "an administrator cannot approve or reject their own loan"), http.StatusUnauthorized, `{"error":"an administrator cannot approve or reject their own loan"}`},
		{"wrapped unauthorized", http.MethodPut, fmt.Errorf("decide: %w", domain.ErrUnauthorized), http.StatusUnauthorized, `{"error":"decide: unauthorized"}`},
		{"not found is a bad request", http.MethodPut, domain.Reason(domain.ErrNotFound, "loan does not exist"), http.StatusBadRequest, `{"error":"loan does not exist"}`},
		{"invalid state", http.MethodPut, domain.Reason(domain.ErrInvalidState, "loan has already been decided"), http.StatusBadRequest, `{"error":"loan has already been decided"}`},
		{"unexpected error is hidden", http.MethodPost, errors.New("pq: connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"head has no body", http.MethodHead, domain.ErrInvalidInput, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.JSONSerializer = jsonSerializer{}
			req := httptest.NewRequest(tt.method, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			NewHTTPErrorHandler(zerolog.Nop())(tt.err, c)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if got := rec.Body.String(); tt.wantBody == "" && got != "" || tt.wantBody != "" && got != tt.wantBody+"\n" {
				t.Fatalf("unexpected body %q", got)
			}
		})
	}
}

func TestHTTPErrorHandler_CommittedResponse(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	_ = c.String(http.StatusOK, "done")

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("late"), c)

	if rec.Code != http.StatusOK || rec.Body.String() != "done" {
		t.Fatalf("committed response was modified: %d %q", rec.Code, rec.Body.String())
	}
}
