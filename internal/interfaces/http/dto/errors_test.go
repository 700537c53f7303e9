package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code string
		want int
	}{
		{"not found maps to 404", ErrCodeNotFound, http.StatusNotFound},
		{"insufficient balance maps to 422", ErrCodeInsufficientBalance, http.StatusUnprocessableEntity},
		{"invalid split maps to 422", ErrCodeInvalidSplit, http.StatusUnprocessableEntity},
		{"already in group maps to 409", ErrCodeAlreadyInGroup, http.StatusConflict},
		{"ledger corruption maps to 500", ErrCodeLedgerCorruption, http.StatusInternalServerError},
		{"segment not found maps to 404", ErrCodeSegmentNotFound, http.StatusNotFound},
		{"rate limited maps to 429", ErrCodeRateLimited, http.StatusTooManyRequests},
		{"unknown code defaults to 500", "ERR_SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"domain not found", "NOT_FOUND", ErrCodeNotFound},
		{"already in group", "ALREADY_IN_GROUP", ErrCodeAlreadyInGroup},
		{"owner cannot leave collapses to business rule", "OWNER_CANNOT_LEAVE", ErrCodeBusinessRule},
		{"field validation collapses to invalid input", "INVALID_AMOUNT", ErrCodeInvalidInput},
		{"already normalized passes through", ErrCodeConflict, ErrCodeConflict},
		{"unknown passes through", "SOMETHING_ODD", "SOMETHING_ODD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.code))
		})
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "amount", Message: "must be positive"},
	})

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}
