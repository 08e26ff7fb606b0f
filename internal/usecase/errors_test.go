package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_FormatsAndUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := newError(ErrorUpstream, "send_chunk_error", cause)
	require.Equal(t, "usecase: UPSTREAM_ERROR (send_chunk_error): boom", err.Error())
	require.ErrorIs(t, err, cause)

	bare := newError(ErrorNoActiveDocument, "no_document", nil)
	require.Equal(t, "usecase: NO_ACTIVE_DOCUMENT (no_document)", bare.Error())

	var nilErr *Error
	require.Equal(t, "", nilErr.Error())
	require.Nil(t, nilErr.Unwrap())
}

func TestError_UserFacing(t *testing.T) {
	for _, code := range []ErrorCode{ErrorUnsupportedFormat, ErrorNoActiveDocument, ErrorDocumentNotFound, ErrorLookupNotFound, ErrorInvalidInput} {
		require.True(t, newError(code, "r", nil).UserFacing(), code)
		_, ok := noticeFor(code)
		require.True(t, ok, code)
	}
	for _, code := range []ErrorCode{ErrorUpstream, ErrorInternal} {
		require.False(t, newError(code, "r", nil).UserFacing(), code)
		_, ok := noticeFor(code)
		require.False(t, ok, code)
	}
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, ErrorLookupNotFound, codeOf(newError(ErrorLookupNotFound, "r", nil)))
	require.Equal(t, ErrorInternal, codeOf(errors.New("plain")))
}
