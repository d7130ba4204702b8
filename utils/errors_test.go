package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Is(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     ErrorKind
	}{
		{"validation", ValidationError("年度无效: %d", 25), ErrValidation, KindValidation},
		{"not found", NotFoundError("销售员不存在: %d", 7), ErrNotFound, KindNotFound},
		{"external", ExternalServiceError(errors.New("dial tcp"), "CRM不可用"), ErrExternalService, KindExternalService},
		{"computation", ComputationError("成交概率为0"), ErrComputation, KindComputation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))

			wrapped := fmt.Errorf("同步失败: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}

	assert.NotErrorIs(t, NotFoundError("x"), ErrValidation)
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
}

func TestExternalServiceError_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := ExternalServiceError(cause, "HR认证失败")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "HR认证失败: connection refused", err.Error())
}
