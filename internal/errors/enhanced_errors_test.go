package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnhancedErrorMessage(t *testing.T) {
	err := InvariantViolation("manage_task.complete", errors.New("unfinished subtasks"), "sub-1", "sub-2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unfinished subtasks")
	assert.Contains(t, err.Error(), "sub-1, sub-2")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("manage_task.get", errors.New("missing"))))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain error")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestBlockingIDsOf(t *testing.T) {
	err := InvariantViolation("manage_task.complete", errors.New("x"), "a", "b")
	assert.Equal(t, []string{"a", "b"}, BlockingIDsOf(err))
	assert.Nil(t, BlockingIDsOf(errors.New("plain")))
}

func TestDependencyCycleError(t *testing.T) {
	err := DependencyCycle("T1", "T2")
	assert.Equal(t, CodeDependencyCycle, err.Code)
}
