package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"labsignal/domain/core"
)

func TestWrapKeepsCode(t *testing.T) {
	base := InvalidInput("window_days must be between 21 and 90")
	err := Wrapf(base, "request %d", 7)

	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Equal(t, "request 7: window_days must be between 21 and 90", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unit system", core.ErrInvalidUnitSystem, CodeInvalidInput},
		{"validation", core.NewValidationError("dose", "negative"), CodeInvalidInput},
		{"format", fmt.Errorf("%w: .ods", core.ErrUnsupportedFormat), CodeUnsupportedFormat},
		{"not found", core.ErrProtocolNotFound, CodeNotFound},
		{"other", stderrors.New("disk on fire"), CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, GetCode(Wrap(tt.err, "analyze")))
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "x"))
	assert.NoError(t, Wrapf(nil, "x %d", 1))
	assert.NoError(t, WithCode(CodeIO, nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{ValidationError("bad"), http.StatusBadRequest},
		{InvalidInput("bad"), http.StatusBadRequest},
		{UnsupportedFormat(".ods"), http.StatusUnsupportedMediaType},
		{NotFound("protocol"), http.StatusNotFound},
		{IOError("read", "x.xlsx", stderrors.New("eof")), http.StatusInternalServerError},
		{core.ErrInvalidDate, http.StatusBadRequest},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestGetCodeUnknown(t *testing.T) {
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("plain")))
	assert.False(t, IsAppError(stderrors.New("plain")))
	assert.True(t, IsAppError(fmt.Errorf("ctx: %w", ConfigInvalid("PORT"))))
}
