package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRpcErrorCopies(t *testing.T) {
	custom := ErrTaskNotFound.WithMessagef("task %s is unknown", "t-1")

	assert.Equal(t, ErrTaskNotFound.Code, custom.Code)
	assert.Equal(t, "task t-1 is unknown", custom.Message)
	// The shared sentinel must not be mutated.
	assert.Equal(t, "Task not found", ErrTaskNotFound.Message)

	withData := ErrInvalidParams.WithData(map[string]string{"field": "id"})
	assert.Equal(t, ErrInvalidParams.Code, withData.Code)
	assert.NotNil(t, withData.Data)
	assert.Nil(t, ErrInvalidParams.Data)
}

func TestClientErrorKindsMatchWithIs(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{Connectionf("socket closed"), ErrConnection},
		{Timeoutf("deadline blew at %ds", 30), ErrTimeout},
		{Authenticationf("no key"), ErrAuthentication},
		{Messagef("bad envelope"), ErrMessage},
		{Credentialf("keyring refused"), ErrCredential},
	}

	for _, tc := range cases {
		assert.ErrorIs(t, tc.err, tc.kind)
	}

	// Kinds must not cross-match.
	assert.NotErrorIs(t, Connectionf("x"), ErrTimeout)
	assert.NotErrorIs(t, Authenticationf("x"), ErrCredential)

	// Wrapping survives another layer.
	wrapped := fmt.Errorf("initiate failed: %w", Timeoutf("slow"))
	assert.True(t, stderrors.Is(wrapped, ErrTimeout))
}

func TestRemoteAgentError(t *testing.T) {
	err := &RemoteAgentError{Code: -32001, Message: "Task not found"}

	assert.Contains(t, err.Error(), "-32001")
	assert.Contains(t, err.Error(), "Task not found")

	var remote *RemoteAgentError
	assert.True(t, stderrors.As(fmt.Errorf("call failed: %w", err), &remote))
	assert.Equal(t, -32001, remote.Code)
}
