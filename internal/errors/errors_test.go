package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"biasclean/domain/core"
)

func TestWrap_PreservesCode(t *testing.T) {
	base := NotFound("report")
	wrapped := Wrap(base, "loading report")

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.Equal(t, "loading report: report not found", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrap_PlainErrorBecomesInternal(t *testing.T) {
	wrapped := Wrapf(io.EOF, "reading %s", "input.csv")
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, io.EOF))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, io.ErrUnexpectedEOF)
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
	assert.Equal(t, "UNKNOWN", GetCode(io.EOF))
}

func TestFromDomain(t *testing.T) {
	err := FromDomain(fmt.Errorf("%w: %q", core.ErrUnknownDomain, "astrology"), "invalid domain")
	assert.Equal(t, CodeValidationError, GetCode(err))
	assert.ErrorIs(t, err, core.ErrUnknownDomain)

	err = FromDomain(core.ErrReportNotFound, "load report")
	assert.Equal(t, CodeNotFound, GetCode(err))

	err = FromDomain(Busy("full"), "mitigate")
	assert.Equal(t, CodeBusy, GetCode(err))

	assert.Equal(t, CodeInternalError, GetCode(FromDomain(io.EOF, "read")))
	assert.Nil(t, FromDomain(nil, "nothing"))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{CodeValidationError, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeConfigInvalid, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeBusy, http.StatusTooManyRequests},
		{CodeDatabaseError, http.StatusInternalServerError},
		{"UNKNOWN", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatus(tt.code), tt.code)
	}
}
