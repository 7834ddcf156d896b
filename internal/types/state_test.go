package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponseState_String(t *testing.T) {
	cases := map[ResponseState]string{
		Idle:              "idle",
		Processing:        "processing",
		Responding:        "responding",
		Error:             "error",
		ResponseState(99): "unknown",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String(), "State(%d).String()", state)
	}
}
