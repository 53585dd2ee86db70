package validators

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Validator_Check(t *testing.T) {
	v := NewValidator()
	v.Check(true, "name", "name is required")
	assert.False(t, v.HasErrors())

	v.Check(false, "name", "name is required")
	v.Check(false, "name", "name is too long")
	assert.True(t, v.HasErrors())
	assert.Equal(t, map[string]any{"name": "name is required"}, v.Errors)
}

func Test_Validator_CheckError(t *testing.T) {
	testCases := []struct {
		name           string
		err            error
		message        string
		expectedErrors map[string]any
	}{
		{
			name:           "error with a custom message",
			err:            fmt.Errorf("boom"),
			message:        "reason is invalid",
			expectedErrors: map[string]any{"reason": "reason is invalid"},
		},
		{
			name:           "error without a message uses the error text",
			err:            fmt.Errorf("boom"),
			expectedErrors: map[string]any{"reason": "boom"},
		},
		{
			name:           "nil error",
			message:        "reason is invalid",
			expectedErrors: map[string]any{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator()
			v.CheckError(tc.err, "reason", tc.message)
			assert.Equal(t, tc.expectedErrors, v.Errors)
		})
	}
}
