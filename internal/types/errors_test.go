package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds_ClassifyWithErrorsAs(t *testing.T) {
	var err error = &UpstreamFatal{Reason: "session_expired"}

	var authErr *AuthError
	assert.False(t, errors.As(err, &authErr), "expected an UpstreamFatal to not classify as AuthError")

	var upstreamFatal *UpstreamFatal
	require.True(t, errors.As(err, &upstreamFatal), "expected UpstreamFatal to classify as itself")
	assert.Equal(t, "session_expired", upstreamFatal.Reason)
}

func TestInternalError_UnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := &InternalError{Cause: cause}

	assert.True(t, errors.Is(err, cause), "expected InternalError to unwrap to its cause")
}
