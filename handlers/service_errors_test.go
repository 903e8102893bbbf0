package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/serverless-todos/services"
	"github.com/upb/serverless-todos/utils"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"validation error", services.ErrInvalidInput, http.StatusBadRequest, "bad_request"},
		{"no identity", services.ErrNoIdentity, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"internal error", services.WrapInternal("failed to list todos", errors.New("db down")), http.StatusInternalServerError, "internal_error"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}
}

func TestHandleServiceError_HidesInternalDetails(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, services.WrapInternal("failed", errors.New("password=hunter2")), zap.NewNop())

	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestHandleServiceError_ValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()
	err := services.NewDomainError(services.ErrorTypeValidation, "invalid input", nil).WithDetail("field", "userId")

	HandleServiceError(w, err, zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "userId", response.Details["field"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, nil, zap.NewNop())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
