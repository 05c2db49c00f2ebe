package envelope

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/ctxforge/taskmcp/internal/errors"
)

func TestSuccess_SetsConfirmation(t *testing.T) {
	e := Success("manage_task.create", map[string]interface{}{"task_id": "abc"})
	assert.Equal(t, StatusSuccess, e.Status)
	assert.True(t, e.Success)
	assert.True(t, e.Confirmation.OperationCompleted)
	assert.True(t, e.Confirmation.DataPersisted)
	assert.Nil(t, e.Error)
}

func TestPartialSuccess_RecordsFailures(t *testing.T) {
	e := PartialSuccess("manage_subtask.complete", nil, []string{"auto-delegation failed"})
	assert.Equal(t, StatusPartialSuccess, e.Status)
	assert.Equal(t, []string{"auto-delegation failed"}, e.Confirmation.PartialFailures)
}

func TestFailure_UnwrapsEnhancedErrorCode(t *testing.T) {
	err := apperrors.NotFound("manage_task.get", errors.New("no such task"))
	e := Failure("manage_task.get", err)
	assert.Equal(t, StatusFailure, e.Status)
	assert.False(t, e.Success)
	assert.Equal(t, string(apperrors.CodeNotFound), e.Error.Code)
	assert.False(t, e.Confirmation.OperationCompleted)
}

func TestFailure_DefaultsToInternalForPlainError(t *testing.T) {
	e := Failure("manage_task.get", errors.New("boom"))
	assert.Equal(t, string(apperrors.CodeInternal), e.Error.Code)
}
