package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("doctor"), http.StatusNotFound},
		{"validation", Validation("bad time %q", "25:00"), http.StatusBadRequest},
		{"conflict", Conflict("slot not free"), http.StatusConflict},
		{"authorization", Authorization("not the owner"), http.StatusForbidden},
		{"wrapped", fmt.Errorf("book: %w", Conflict("slot not free")), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestSentinelMatching(t *testing.T) {
	errDoctor := NotFound("doctor")
	wrapped := fmt.Errorf("create schedules: %w", errDoctor)

	assert.ErrorIs(t, wrapped, errDoctor)
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindConflict))
	assert.Equal(t, "doctor not found", errDoctor.Error())
}
